package search

// Schedule is the ordered sequence of Choices made so far in the
// current iteration, plus the live filter guard those Choices are
// restricted to.
type Schedule struct {
	choices []*Choice
	// Filter is the path condition still reachable at the current
	// choice depth. Becomes false when every alternative at some depth
	// has been exhausted.
	Filter Guard
}

// NewSchedule returns an empty Schedule filtered by the solver's true
// guard.
func NewSchedule(trueGuard Guard) *Schedule {
	return &Schedule{Filter: trueGuard}
}

// Size returns the number of Choices recorded so far.
func (s *Schedule) Size() int {
	return len(s.choices)
}

// At returns the Choice at depth d, or nil if d >= Size().
func (s *Schedule) At(d int) *Choice {
	if d < 0 || d >= len(s.choices) {
		return nil
	}
	return s.choices[d]
}

// Clone produces a deep-enough copy for BacktrackTask freezing: the
// Choice slice is copied, each Choice struct is copied by value (its
// Saved map is defensively cloned), but ValueSummary/Guard values
// themselves are treated as immutable and shared.
func (s *Schedule) Clone() *Schedule {
	out := &Schedule{
		choices: make([]*Choice, len(s.choices)),
		Filter:  s.Filter,
	}
	for i, c := range s.choices {
		cp := *c
		cp.Saved = CloneSchedulerState(c.Saved)
		cp.Backtrack = append([]ValueSummary(nil), c.Backtrack...)
		out.choices[i] = &cp
	}
	return out
}

// TruncateFrom drops every Choice at depth >= d, used when exact
// BacktrackTask creation clears successor choice state.
func (s *Schedule) TruncateFrom(d int) {
	if d < 0 || d >= len(s.choices) {
		return
	}
	s.choices = s.choices[:d]
}

// ClearBacktrackBefore clears Backtrack on every Choice at depth < d,
// used when freezing a BacktrackTask whose prefix was already handled
// by the parent iteration.
func (s *Schedule) ClearBacktrackBefore(d int) {
	for i := 0; i < d && i < len(s.choices); i++ {
		s.choices[i].Backtrack = nil
	}
}

// candidateProducer generates a fresh candidate list for a choice
// depth when no repeat or backtrack set is available.
type candidateProducer func() ([]ValueSummary, error)

// GetNext implements §4.3's get_next: the generic routine used to pick
// each choice (sender, data value, etc.) at the current choice depth d.
func (s *Schedule) GetNext(
	d int,
	isData bool,
	selector *ChoiceSelector,
	produce candidateProducer,
) (ValueSummary, CoverageDelta, error) {
	existing := s.At(d)

	// Step 1: replay a repeat under the current filter.
	if existing != nil && existing.Repeat != nil && !existing.Repeat.IsEmpty() {
		repeated := existing.Repeat.Restrict(s.Filter)
		if repeated.IsEmpty() {
			return nil, CoverageDelta{}, ErrStuck
		}
		s.Filter = s.Filter.And(repeated.Universe())
		if s.Filter.IsFalse() {
			return nil, CoverageDelta{}, ErrStuck
		}
		return repeated, CoverageDelta{}, nil
	}

	var candidates []ValueSummary
	isNewChoice := false

	// Step 2: consume a pending backtrack set.
	if existing != nil && len(existing.Backtrack) > 0 {
		candidates = existing.Backtrack
		existing.Backtrack = nil
	} else {
		// Step 3: generate fresh candidates, restrict to filter, drop
		// empties.
		raw, err := produce()
		if err != nil {
			return nil, CoverageDelta{}, err
		}
		isNewChoice = true
		candidates = make([]ValueSummary, 0, len(raw))
		for _, c := range raw {
			restricted := c.Restrict(s.Filter)
			if restricted.IsEmpty() {
				continue
			}
			candidates = append(candidates, restricted)
		}
	}

	if len(candidates) == 0 {
		return nil, CoverageDelta{}, ErrStuck
	}

	// Steps 4-6: reorder and split via ChoiceSelector.
	chosen, backtrack, delta := selector.Select(candidates, isData, isNewChoice)

	// Step 7: combine chosen into one ValueSummary, record it.
	final := unionValueSummaries(chosen)

	choice := existing
	if choice == nil {
		choice = &Choice{SchedulerChoiceDepth: d, IsData: isData}
		s.appendAt(d, choice)
	}
	choice.Chosen = final
	choice.Backtrack = backtrack
	choice.IsData = isData
	if choice.HandledUniverse == nil {
		choice.HandledUniverse = final.Universe()
	} else {
		choice.HandledUniverse = choice.HandledUniverse.Or(final.Universe())
	}

	s.Filter = s.Filter.And(final.Universe())
	if s.Filter.IsFalse() {
		return nil, delta, ErrStuck
	}

	return final, delta, nil
}

// appendAt stores choice at depth d, growing the slice if needed. d is
// always either an existing index or exactly len(s.choices) in
// practice, since get_next is always called in depth order.
func (s *Schedule) appendAt(d int, choice *Choice) {
	if d < len(s.choices) {
		s.choices[d] = choice
		return
	}
	s.choices = append(s.choices, choice)
}

// unionValueSummaries combines a non-empty slice of ValueSummary into
// one: a single member is returned as is, several are wrapped in a lazy
// unionVS that keeps each member intact. This helper exists because
// GetNext is agnostic to the concrete element type.
func unionValueSummaries(vss []ValueSummary) ValueSummary {
	if len(vss) == 1 {
		return vss[0]
	}
	entries := make([]unionEntry, 0, len(vss))
	for _, vs := range vss {
		entries = append(entries, unionEntry{g: vs.Universe(), v: vs})
	}
	return &unionVS{entries: entries}
}

// unionEntry pairs a member ValueSummary with its own universe guard.
type unionEntry struct {
	g Guard
	v ValueSummary
}

// unionVS is a lazy union of several ValueSummary values sharing
// disjoint-by-convention guards, used only to thread GetNext's choice
// list through without forcing a concrete element type.
type unionVS struct {
	entries []unionEntry
}

func (u *unionVS) Restrict(g Guard) ValueSummary {
	out := &unionVS{}
	for _, e := range u.entries {
		restricted := e.v.Restrict(g)
		if restricted.IsEmpty() {
			continue
		}
		out.entries = append(out.entries, unionEntry{g: e.g.And(g), v: restricted})
	}
	return out
}

func (u *unionVS) Universe() Guard {
	if len(u.entries) == 0 {
		return nil
	}
	g := u.entries[0].g
	for _, e := range u.entries[1:] {
		g = g.Or(e.g)
	}
	return g
}

func (u *unionVS) IsEmpty() bool {
	return len(u.entries) == 0
}
