// Package search implements an explicit/symbolic hybrid state-space
// exploration scheduler for a message-passing actor language.
//
// The package itself contains no solver-specific or machine-semantics
// code: everything value-summary, guard, and machine shaped is reached
// through the small set of interfaces declared in this file. Callers
// bind these to a concrete value-summary algebra and a concrete set of
// actor machines; search only ever drives the scheduling loop.
package search

import "context"

// Guard is a boolean expression over symbolic path variables. It is the
// sole solver-shaped type the scheduler touches, and it is entirely
// self-contained: there is no package-level "true"/"false" singleton,
// so every Guard value the engine manufactures is produced by algebra
// calls on a Guard already in hand (see Solver.True/Solver.False for the
// one place a fresh constant is needed).
type Guard interface {
	And(other Guard) Guard
	Or(other Guard) Guard
	Not() Guard
	IsFalse() bool
	IsTrue() bool
}

// GuardedValue pairs a concrete value with the path condition under
// which it holds.
type GuardedValue[T any] struct {
	Guard Guard
	Value T
}

// ValueSummary is a guarded disjunction of concrete values: ⋁ᵢ (gᵢ ⇒ vᵢ)
// with pairwise disjoint gᵢ. Restrict narrows the disjunction to the
// paths allowed by g; Universe returns the union of all its guards.
type ValueSummary interface {
	Restrict(g Guard) ValueSummary
	Universe() Guard
	IsEmpty() bool
}

// Concretizer extracts one concrete assignment (with its guard) from a
// ValueSummary. Used by StateCache in Exact/Symbolic caching modes.
type Concretizer interface {
	// Concretize returns one guarded concrete value from vs, and false
	// if vs has no satisfiable assignment.
	Concretize(vs ValueSummary) (GuardedValue[any], bool)
}

// Solver is the small façade mentioned in the design notes: the one
// collaborator reference the scheduler holds for everything
// solver-shaped, bundling guard constants with concretization.
type Solver interface {
	Concretizer
	True() Guard
	False() Guard
}

// Message is a merged send-buffer entry dispatched by a Step.
type Message struct {
	// Sender and Target identify the machines involved.
	Sender string
	Target string
	// Event names the handler/transition this message triggers.
	Event string
	// Payload is the (possibly guarded, machine-defined) message body.
	Payload any
	// Guard restricts the path condition under which this message
	// exists; halted-target cleanup removes guard conjuncts from it.
	Guard Guard
	// CreatesMachine is true when dispatching this message creates a
	// new machine instance (a sticky-step trigger, see Step).
	CreatesMachine bool
	// Synchronous is true when this message is a synchronous call
	// (the other sticky-step trigger).
	Synchronous bool
}

// Merge combines this message (the base, first-contributing sender)
// with another sender's removed message at the same step, per §4.2
// step 8: "Merge those per-sender removed messages into a single
// effect message (first becomes base; rest are merged in)."
func (m Message) Merge(other Message) Message {
	merged := m
	merged.Guard = m.Guard.Or(other.Guard)
	return merged
}

// SendBuffer is a machine's inbound message queue.
type SendBuffer interface {
	// SatisfiesPredUnderGuard reports, as a guarded boolean, under which
	// paths some queued message satisfies pred.
	SatisfiesPredUnderGuard(pred func(Message) bool) ValueSummary
	// RemoveUnderGuard removes and returns exactly one message matching
	// guard g, restricted to g. Returns false if no message matches.
	RemoveUnderGuard(g Guard) (Message, bool)
}

// Machine is a single actor/state-machine instance under exploration.
type Machine interface {
	ID() string
	// GetLocalState returns the machine's local variables as value
	// summaries, in a stable order.
	GetLocalState() []ValueSummary
	SetLocalState(state []ValueSummary)
	// Reset restores the machine to its construction-time state; used
	// by post_iteration_cleanup when resetting to scheduler_depth == 0.
	Reset()
	// SetScheduler back-links the machine to its owning scheduler via
	// the minimal handle it needs, never the reverse (the scheduler
	// owns machines; see design notes on cyclic references).
	SetScheduler(h SchedulerHandle)
	Halted() bool
	SendBuffer() SendBuffer
}

// SchedulerHandle is the minimal capability a Machine needs from its
// owning scheduler: the run id, nothing more. Kept minimal so machine
// implementations never gain the ability to mutate scheduler internals
// directly.
type SchedulerHandle interface {
	RunID() string
}

// Runtime is the machine-semantics collaborator: it knows how to pick
// senders, how to run the per-step effect, and how to seed a fresh
// iteration. Machine/event-handler semantics live entirely behind this
// interface per the out-of-scope list in §1.
type Runtime interface {
	// Machines returns every machine that currently exists (may be a
	// superset of CurrentMachines() under symbolic creation).
	Machines() []Machine
	// CurrentMachines returns the live, ordered machine set used for
	// deterministic iteration order.
	CurrentMachines() []Machine

	// GetNextSender returns a guarded choice of which machine sends
	// next. An empty/false summary means no sender is available (done).
	GetNextSender(ctx context.Context) (ValueSummary, error)
	// GetNextSenderChoices returns the raw candidate list used by
	// ChoiceSelector.GetNext when generating a fresh sender choice.
	GetNextSenderChoices(ctx context.Context) ([]ValueSummary, error)

	// PerformEffect dispatches a merged message to its target machine.
	PerformEffect(ctx context.Context, msg Message) error

	// InitializeSearch creates the initial machine set for a fresh
	// do_search() call.
	InitializeSearch(ctx context.Context) error
	// CheckLiveness is the fairness hook invoked once per iteration.
	// The search loop always passes final = false.
	CheckLiveness(ctx context.Context, final bool) error

	// MergeSymmetryClasses merges all symmetry classes in place; called
	// when SymmetryMode is SymmetryFull, before sender selection.
	MergeSymmetryClasses(ctx context.Context) error
}
