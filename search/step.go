package search

import (
	"context"
	"time"
)

// Step performs one atomic scheduling decision per §4.2. It reports
// (done, error): done is true once get_next_sender comes back empty,
// meaning the current iteration has reached a terminal state.
func (s *Scheduler) Step(ctx context.Context) (done bool, err error) {
	st := s.state
	start := time.Now()
	ctx = s.withRunContext(ctx)

	// Step 1: snapshot every currently-live machine's local state into
	// src_state, when state caching is enabled.
	st.SrcState = nil
	if s.opts.StateCachingMode != StateCachingNone {
		for _, m := range s.runtime.CurrentMachines() {
			st.SrcState = append(st.SrcState, m.GetLocalState()...)
		}
	}

	// Step 2: StateCache enumeration.
	_, _, distinctGuard := s.stateCache.Enumerate(st.StickyStep, st.ChoiceDepth, st.BacktrackDepth, st.SrcState, s.canonKey)
	st.DistinctStateGuard = distinctGuard

	// Step 3: full symmetry reduction.
	if s.opts.SymmetryMode == SymmetryModeFull {
		if err := s.runtime.MergeSymmetryClasses(ctx); err != nil {
			return false, err
		}
	}

	// Step 4: save scheduler state into the current Choice, if
	// backtracking is enabled.
	if s.opts.UseBacktrack {
		s.saveCurrentChoiceState()
	}

	// Step 5: garbage-collect send buffers of halted-target remnants.
	s.gcSendBuffers()

	// Step 6: pick sender.
	senderChoices, err := s.runtime.GetNextSenderChoices(ctx)
	if err != nil {
		return false, err
	}
	if s.opts.StateCachingMode != StateCachingNone {
		senderChoices = FilterDistinct(senderChoices, distinctGuard)
	}
	if len(senderChoices) == 0 {
		st.Done = true
		return true, nil
	}

	sender, _, err := s.schedule.GetNext(st.ChoiceDepth, false, s.selector, func() ([]ValueSummary, error) {
		return senderChoices, nil
	})
	if err != nil {
		if err == ErrStuck {
			st.Done = true
			return true, nil
		}
		return false, err
	}
	st.ChoiceDepth++

	// Feed the orchestrator's reinforce.Table, when present, the same
	// distinctness signal used for metrics: +1 if this choice led to a
	// still-unexplored state this step, 0 otherwise.
	if l, ok := s.orchestrator.(Learner); ok {
		l.Learn(sender, !distinctGuard.IsFalse())
	}

	// Step 7: wall-clock deadline check.
	if err := s.timeMonitor.Check(ctx, time.Now()); err != nil {
		return false, err
	}

	// Step 8: for each (machine, guard) in sender, remove exactly one
	// message restricted to guard, merging into a single effect.
	effect, contributors, err := s.collectEffect(sender)
	if err != nil {
		return false, err
	}

	// Step 9: sticky-step rule.
	st.StickyStep = contributors == 1 && (effect.CreatesMachine || effect.Synchronous)
	if !st.StickyStep {
		st.Depth++
	}

	// Step 10: invoke the effect.
	if err := s.runtime.PerformEffect(ctx, effect); err != nil {
		return false, err
	}

	// Step 11: record per-depth statistics.
	s.metrics.RecordStep(time.Since(start), !distinctGuard.IsFalse())

	return false, nil
}

// saveCurrentChoiceState snapshots (depth, choice_depth, src_state)
// into the Choice at the current choice depth, per §4.2 step 4.
func (s *Scheduler) saveCurrentChoiceState() {
	c := s.schedule.At(s.state.ChoiceDepth)
	if c == nil {
		c = &Choice{SchedulerChoiceDepth: s.state.ChoiceDepth}
		s.schedule.appendAt(s.state.ChoiceDepth, c)
	}
	c.SchedulerDepth = s.state.Depth
	c.SchedulerChoiceDepth = s.state.ChoiceDepth
	c.Saved = s.snapshotSchedulerState()
}

// snapshotSchedulerState builds a SchedulerState snapshot from every
// current machine.
func (s *Scheduler) snapshotSchedulerState() SchedulerState {
	out := SchedulerState{
		Machines:       make(map[string][]ValueSummary),
		Halted:         make(map[string]bool),
		SchedulerDepth: s.state.Depth,
	}
	for _, m := range s.runtime.CurrentMachines() {
		out.Machines[m.ID()] = m.GetLocalState()
		out.Halted[m.ID()] = m.Halted()
	}
	return out
}

// gcSendBuffers drops messages whose target machine is halted under
// some sub-guard, removing that sub-guard from the message, repeating
// until no halted-target remnant remains (§4.2 step 5).
func (s *Scheduler) gcSendBuffers() {
	for _, m := range s.runtime.CurrentMachines() {
		buf := m.SendBuffer()
		if buf == nil {
			continue
		}
		for {
			haltedUniverse := buf.SatisfiesPredUnderGuard(func(msg Message) bool {
				return s.isTargetHalted(msg.Target)
			})
			if haltedUniverse.IsEmpty() {
				break
			}
			if _, ok := buf.RemoveUnderGuard(haltedUniverse.Universe()); !ok {
				break
			}
		}
	}
}

func (s *Scheduler) isTargetHalted(target string) bool {
	for _, m := range s.runtime.Machines() {
		if m.ID() == target {
			return m.Halted()
		}
	}
	return false
}

// collectEffect implements §4.2 step 8: for each (machine, guard) in
// the sender value summary, remove exactly one message restricted to
// guard, merging the results into a single effect message.
func (s *Scheduler) collectEffect(sender ValueSummary) (Message, int, error) {
	var gvs []GuardedValue[Machine]
	switch v := sender.(type) {
	case *PrimitiveVS[Machine]:
		gvs = v.GuardedValues()
	case *unionVS:
		for _, e := range v.entries {
			pvs, ok := e.v.(*PrimitiveVS[Machine])
			if !ok {
				return Message{}, 0, &SearchError{Kind: KindPropertyViolation, Message: "sender value summary has unexpected concrete type"}
			}
			gvs = append(gvs, pvs.GuardedValues()...)
		}
	default:
		return Message{}, 0, &SearchError{Kind: KindPropertyViolation, Message: "sender value summary has unexpected concrete type"}
	}

	var merged Message
	contributors := 0
	for _, gv := range gvs {
		m := gv.Value
		buf := m.SendBuffer()
		if buf == nil {
			continue
		}
		msg, ok := buf.RemoveUnderGuard(gv.Guard)
		if !ok {
			continue
		}
		if contributors == 0 {
			merged = msg
		} else {
			merged = merged.Merge(msg)
		}
		contributors++
	}
	if contributors == 0 {
		return Message{}, 0, ErrStuck
	}
	return merged, contributors, nil
}
