package search

// StateCache canonicalizes per-step machine state, counts distinct
// states, and emits a guard restricting the next sender to new states
// (§4.7). Build one with NewStateCache; the zero value has no Solver
// and is not usable.
type StateCache struct {
	Mode       StateCachingMode
	IsSymbolic bool
	Concretize Concretizer
	Solver     Solver

	seen map[string]struct{}
}

// NewStateCache builds a StateCache in the given mode.
func NewStateCache(mode StateCachingMode, isSymbolic bool, concretize Concretizer, solver Solver) *StateCache {
	return &StateCache{
		Mode:       mode,
		IsSymbolic: isSymbolic,
		Concretize: concretize,
		Solver:     solver,
		seen:       make(map[string]struct{}),
	}
}

// Enumerate implements enumerate_concrete_states_from_explicit and
// enumerate_concrete_states_from_symbolic depending on IsSymbolic,
// returning (num_states, num_distinct) and the distinct_state_guard
// consumed by FilterDistinct.
func (c *StateCache) Enumerate(
	sticky bool,
	choiceDepth, backtrackDepth int,
	snapshot []ValueSummary,
	canonicalKey func([]GuardedValue[any]) string,
) (numStates, numDistinct int, distinctGuard Guard) {
	if sticky || choiceDepth <= backtrackDepth || c.Mode == StateCachingNone {
		return 0, 0, c.Solver.True()
	}
	if c.IsSymbolic {
		return c.enumerateSymbolic(snapshot, canonicalKey)
	}
	return c.enumerateExplicit(snapshot, canonicalKey)
}

// enumerateExplicit concretizes the whole machine snapshot once and
// tests membership in the seen-state set.
func (c *StateCache) enumerateExplicit(snapshot []ValueSummary, canonicalKey func([]GuardedValue[any]) string) (int, int, Guard) {
	assignment := make([]GuardedValue[any], 0, len(snapshot))
	for _, vs := range snapshot {
		gv, ok := c.Concretize.Concretize(vs)
		if !ok {
			return 0, 0, c.Solver.False()
		}
		assignment = append(assignment, gv)
	}
	key := canonicalKey(assignment)
	if _, ok := c.seen[key]; ok {
		return 1, 0, c.Solver.False()
	}
	c.seen[key] = struct{}{}
	return 1, 1, c.Solver.True()
}

// enumerateSymbolic iteratively concretizes under a shrinking path
// condition iter_pc until it is false, unioning the guard of every
// newly-discovered state into the returned distinct_state_guard.
func (c *StateCache) enumerateSymbolic(snapshot []ValueSummary, canonicalKey func([]GuardedValue[any]) string) (int, int, Guard) {
	numStates := 0
	numDistinct := 0
	distinctGuard := c.Solver.False()

	iterPC := c.Solver.True()

	for !iterPC.IsFalse() {
		assignment := make([]GuardedValue[any], 0, len(snapshot))
		assignmentGuard := c.Solver.True()
		ok := true
		for _, vs := range snapshot {
			gv, found := c.Concretize.Concretize(vs.Restrict(iterPC))
			if !found {
				ok = false
				break
			}
			assignment = append(assignment, gv)
			assignmentGuard = assignmentGuard.And(gv.Guard)
		}
		if !ok {
			break
		}
		numStates++
		key := canonicalKey(assignment)
		if _, seen := c.seen[key]; !seen {
			c.seen[key] = struct{}{}
			numDistinct++
			distinctGuard = distinctGuard.Or(assignmentGuard)
		}
		iterPC = iterPC.And(assignmentGuard.Not())
	}
	return numStates, numDistinct, distinctGuard
}

// FilterDistinct restricts each candidate to distinctGuard and drops
// empties, pruning revisit paths at the sender-selection boundary.
func FilterDistinct(candidates []ValueSummary, distinctGuard Guard) []ValueSummary {
	out := make([]ValueSummary, 0, len(candidates))
	for _, c := range candidates {
		restricted := c.Restrict(distinctGuard)
		if restricted.IsEmpty() {
			continue
		}
		out = append(out, restricted)
	}
	return out
}
