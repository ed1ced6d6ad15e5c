package search_test

import (
	"testing"

	"github.com/dshills/pexplore/search"
	"github.com/dshills/pexplore/search/boolalg"
)

func TestPrimitiveVSRestrict(t *testing.T) {
	w := boolalg.NewWorld(2)
	a, b := w.Var(0), w.Var(1)

	vs := search.NewPrimitiveVS([]search.GuardedValue[int]{
		{Guard: a, Value: 1},
		{Guard: a.Not(), Value: 2},
	})

	restricted := vs.Restrict(b)
	if restricted.IsEmpty() {
		t.Fatal("restricting to b should not be empty: a AND b and NOT(a) AND b are both satisfiable")
	}

	restrictedToFalse := vs.Restrict(w.False())
	if !restrictedToFalse.IsEmpty() {
		t.Fatal("restricting to False() must yield an empty summary")
	}
}

func TestPrimitiveVSUniverse(t *testing.T) {
	w := boolalg.NewWorld(1)
	a := w.Var(0)

	vs := search.NewPrimitiveVS([]search.GuardedValue[int]{
		{Guard: a, Value: 1},
		{Guard: a.Not(), Value: 2},
	})

	if !vs.Universe().IsTrue() {
		t.Fatal("universe of a disjoint, exhaustive pair of guards should be true")
	}
}

func TestPrimitiveVSDropsFalseGuards(t *testing.T) {
	w := boolalg.NewWorld(1)
	vs := search.NewPrimitiveVS([]search.GuardedValue[int]{
		{Guard: w.False(), Value: 1},
		{Guard: w.True(), Value: 2},
	})
	if len(vs.GuardedValues()) != 1 {
		t.Fatalf("expected the False()-guarded entry to be dropped, got %d entries", len(vs.GuardedValues()))
	}
}
