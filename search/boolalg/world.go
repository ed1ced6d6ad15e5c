// Package boolalg is a toy finite-variable boolean algebra used to
// exercise the search package's Guard/ValueSummary/Solver contracts in
// tests: a World fixes a small number of named boolean variables and
// represents a Guard as the bitmask of satisfying valuations. It is not
// meant to scale past a handful of variables; production callers bind
// search.Guard/search.Solver to a real SAT/BDD engine instead.
package boolalg

import "github.com/dshills/pexplore/search"

// World fixes the variable count for a family of compatible guards.
// Guards built from different Worlds must never be combined.
type World struct {
	numVars int
	all     uint64
}

// NewWorld returns a World with numVars boolean variables, enumerating
// 2^numVars valuations packed into a uint64 bitmask, so numVars must be
// at most 6.
func NewWorld(numVars int) *World {
	if numVars < 0 || numVars > 6 {
		panic("boolalg: numVars must be between 0 and 6")
	}
	n := 1 << uint(numVars)
	var all uint64
	if n >= 64 {
		all = ^uint64(0)
	} else {
		all = (uint64(1) << uint(n)) - 1
	}
	return &World{numVars: numVars, all: all}
}

// True returns the guard satisfied by every valuation.
func (w *World) True() search.Guard {
	return &guard{w: w, sat: w.all}
}

// False returns the guard satisfied by no valuation.
func (w *World) False() search.Guard {
	return &guard{w: w, sat: 0}
}

// Var returns the guard "variable i holds", the set of valuations whose
// i-th bit is set.
func (w *World) Var(i int) search.Guard {
	var sat uint64
	for v := 0; v < (1 << uint(w.numVars)); v++ {
		if v&(1<<uint(i)) != 0 {
			sat |= uint64(1) << uint(v)
		}
	}
	return &guard{w: w, sat: sat}
}

// anyGuardedValues is implemented by search.PrimitiveVS[T] for any T,
// letting Concretize stay generic over the concrete element type.
type anyGuardedValues interface {
	AnyGuardedValues() []search.GuardedValue[any]
}

// Concretize returns the first guarded value carried by vs. Since this
// toy solver has no preference order over satisfying valuations, "first
// in slice order" stands in for whatever deterministic tie-break a real
// solver would apply.
func (w *World) Concretize(vs search.ValueSummary) (search.GuardedValue[any], bool) {
	if vs == nil || vs.IsEmpty() {
		return search.GuardedValue[any]{}, false
	}
	enumerable, ok := vs.(anyGuardedValues)
	if !ok {
		return search.GuardedValue[any]{}, false
	}
	values := enumerable.AnyGuardedValues()
	if len(values) == 0 {
		return search.GuardedValue[any]{}, false
	}
	return values[0], true
}

// Bits returns g's raw satisfying-valuation bitmask, exposed so a
// codec can serialize a Guard built from this World without reaching
// into the unexported guard type.
func (w *World) Bits(g search.Guard) uint64 {
	return g.(*guard).sat
}

// FromBits reconstructs a Guard from a bitmask previously returned by
// Bits.
func (w *World) FromBits(bits uint64) search.Guard {
	return &guard{w: w, sat: bits}
}

// guard is a search.Guard over a fixed World.
type guard struct {
	w   *World
	sat uint64
}

func (g *guard) And(other search.Guard) search.Guard {
	o := other.(*guard)
	return &guard{w: g.w, sat: g.sat & o.sat}
}

func (g *guard) Or(other search.Guard) search.Guard {
	o := other.(*guard)
	return &guard{w: g.w, sat: g.sat | o.sat}
}

func (g *guard) Not() search.Guard {
	return &guard{w: g.w, sat: g.w.all &^ g.sat}
}

func (g *guard) IsFalse() bool {
	return g.sat == 0
}

func (g *guard) IsTrue() bool {
	return g.sat == g.w.all
}
