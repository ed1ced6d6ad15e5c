package search

// Choice records one decision point in a Schedule: the sender that was
// picked, the alternatives set aside for backtracking, and enough
// scheduler state to resume at this point later.
type Choice struct {
	// Chosen is the guarded sender value selection made at this point.
	Chosen ValueSummary
	// Backtrack holds alternative sender values not taken, preserved so
	// a BacktrackTask can replay this Choice with a different pick.
	Backtrack []ValueSummary
	// Repeat holds the sender value this Choice must reproduce before
	// GetNext is allowed to generate fresh candidates again. It is
	// populated only when resuming from a checkpoint taken mid-schedule:
	// every depth shallower than the checkpoint's recorded depth must
	// replay its original Chosen value so the runtime's machine states
	// reconverge with what the checkpoint recorded, rather than diverging
	// onto a new candidate set. A fresh forward run never sets it.
	Repeat ValueSummary
	// HandledUniverse is the union of the guards of every alternative
	// chosen at this Choice so far, including the current Chosen.
	HandledUniverse Guard
	// Saved is a snapshot of scheduler state taken before this Choice
	// was acted on, used to rewind on backtrack.
	Saved SchedulerState
	// SchedulerDepth is the step depth at which this Choice was made.
	SchedulerDepth int
	// SchedulerChoiceDepth is this Choice's position within the
	// Schedule's ordered choice sequence.
	SchedulerChoiceDepth int
	// IsData marks a data (non-sender) choice, e.g. a guarded value
	// pulled from an external nondeterministic source rather than a
	// sender pick.
	IsData bool
}

// SchedulerState is a snapshot used to resume scheduling from a given
// Choice: every machine's local state, which machines had halted, and
// the step depth. Send buffers and RNG state are not part of it.
type SchedulerState struct {
	// Machines is a snapshot of every machine's local state, indexed by
	// machine ID.
	Machines map[string][]ValueSummary
	// Halted records which machines had already halted at snapshot
	// time.
	Halted map[string]bool
	// SchedulerDepth is the step depth at snapshot time; zero means
	// this snapshot predates the first machine creation, so restoring
	// it means resetting every machine rather than replaying state.
	SchedulerDepth int
}

// CloneSchedulerState makes a shallow defensive copy of a
// SchedulerState's maps so resuming from one Choice cannot mutate
// another's snapshot.
func CloneSchedulerState(s SchedulerState) SchedulerState {
	out := SchedulerState{
		Machines:       make(map[string][]ValueSummary, len(s.Machines)),
		Halted:         make(map[string]bool, len(s.Halted)),
		SchedulerDepth: s.SchedulerDepth,
	}
	for id, vs := range s.Machines {
		cp := make([]ValueSummary, len(vs))
		copy(cp, vs)
		out.Machines[id] = cp
	}
	for id, h := range s.Halted {
		out.Halted[id] = h
	}
	return out
}
