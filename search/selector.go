package search

// ChoiceSelector implements the chosen/backtrack split and orchestrator
// invocation described in §4.3 steps 4-6: within a step, splits a
// choice list into chosen and backtrack, applies orchestration, and
// reports coverage deltas for the caller to record.
type ChoiceSelector struct {
	Orchestrator ChoiceOrchestrator
	// IsSymbolic mirrors Options.IsSymbolic: in symbolic mode chosen
	// receives all candidates; in explicit mode only the first.
	IsSymbolic bool
}

// CoverageDelta summarizes one Select call for the caller's coverage
// accumulator (§4.3 step 6: "update coverage (depth, choice depth,
// chosen.size, backtrack.size, is_data, is_new_choice, learning key)").
type CoverageDelta struct {
	ChosenCount    int
	BacktrackCount int
	IsData         bool
	IsNewChoice    bool
}

// Select reorders candidates (step 4, when more than one remains),
// splits them into chosen/backtrack per the symbolic/explicit rule
// (step 5), and returns the coverage delta for step 6.
func (s *ChoiceSelector) Select(candidates []ValueSummary, isData, isNewChoice bool) (chosen, backtrack []ValueSummary, delta CoverageDelta) {
	if len(candidates) > 1 && s.Orchestrator != nil {
		candidates = s.Orchestrator.Reorder(candidates, isData)
	}
	if s.IsSymbolic {
		chosen = candidates
	} else {
		chosen = candidates[:1]
		backtrack = append([]ValueSummary(nil), candidates[1:]...)
	}
	delta = CoverageDelta{
		ChosenCount:    len(chosen),
		BacktrackCount: len(backtrack),
		IsData:         isData,
		IsNewChoice:    isNewChoice,
	}
	return chosen, backtrack, delta
}
