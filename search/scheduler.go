package search

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/pexplore/search/emit"
	"github.com/dshills/pexplore/search/reinforce"
	"github.com/dshills/pexplore/search/store"
)

// Scheduler is the top-level explicit search scheduler: the
// SearchLoop, Schedule, ChoiceSelector, TaskManager, StateCache, and
// Checkpoint components wired together, analogous to the teacher's
// Engine[S] wiring Reducer/Store/Emitter/Metrics (graph/engine.go).
type Scheduler struct {
	runID   string
	runtime Runtime
	solver  Solver
	opts    Options

	store   store.CheckpointStore
	emitter emit.Emitter
	metrics *Metrics

	orchestrator ChoiceOrchestrator
	selector     *ChoiceSelector
	taskManager  *TaskManager
	stateCache   *StateCache
	timeMonitor  *TimeMonitor

	schedule *Schedule
	state    *IterationState
	// currentTaskID is the BacktrackTask the running iteration descends
	// from, defaulting to the root task (id 0).
	currentTaskID int

	concretize Concretizer
	canonKey   func([]GuardedValue[any]) string
}

// IterationState holds the mutable counters threaded through do_search
// (§3 "Iteration counters").
type IterationState struct {
	Iter            int
	StartIter       int
	Depth           int
	ChoiceDepth     int
	BacktrackDepth  int
	Done            bool
	IsDoneIterating bool
	StickyStep      bool
	Result          string

	DistinctStateGuard Guard
	SrcState           []ValueSummary
}

// NewScheduler wires a Scheduler from a Runtime/Solver pair and the
// given options, mirroring graph.New[S]'s "Options struct, or
// functional options, or both" constructor shape.
func NewScheduler(runtime Runtime, solver Solver, cstore store.CheckpointStore, emitter emit.Emitter, base Options, opts ...Option) *Scheduler {
	o := base.Apply(opts...)
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}
	registry := o.MetricsRegistry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Scheduler{
		runID:      uuid.NewString(),
		runtime:    runtime,
		solver:     solver,
		opts:       o,
		store:      cstore,
		emitter:    emitter,
		metrics:    NewMetrics(o.Verbosity, registry),
		concretize: solver,
		canonKey:   defaultCanonicalKey,
	}

	s.orchestrator = s.buildOrchestrator(o)
	s.selector = &ChoiceSelector{Orchestrator: s.orchestrator, IsSymbolic: o.IsSymbolic}
	s.taskManager = NewTaskManager(o.TaskOrchestration, o.RandomSeed)
	s.stateCache = NewStateCache(o.StateCachingMode, o.IsSymbolic, solver, solver)
	s.timeMonitor = NewTimeMonitor(o.Deadline, time.Now())
	s.schedule = NewSchedule(solver.True())
	s.state = &IterationState{DistinctStateGuard: solver.True()}

	return s
}

// buildOrchestrator constructs the ChoiceOrchestrator named by
// Options.ChoiceOrchestration. QLearning/EpsilonGreedy get a fresh
// reinforce.Table and s's own defaultStateHash/defaultChoiceKey; a
// caller with a richer domain state shape can still override the
// result via WithOrchestrator.
func (s *Scheduler) buildOrchestrator(o Options) ChoiceOrchestrator {
	switch o.ChoiceOrchestration {
	case ChoiceOrchestrationRandom:
		return NewRandomOrchestrator(o.RandomSeed)
	case ChoiceOrchestrationQLearning:
		return &QLearningOrchestrator{
			Table:     reinforce.NewTable(o.Alpha),
			StateHash: s.defaultStateHash,
			ChoiceKey: s.defaultChoiceKey,
		}
	case ChoiceOrchestrationEpsilonGreedy:
		return NewEpsilonGreedyOrchestrator(reinforce.NewTable(o.Alpha), s.defaultStateHash, s.defaultChoiceKey, o.Epsilon, o.RandomSeed)
	default:
		return NoneOrchestrator{}
	}
}

// defaultStateHash canonicalizes the current step's source-state
// snapshot the same way StateCache does, giving QLearning/
// EpsilonGreedy a state dimension without requiring the caller to
// supply one. Callers with a richer state shape should build their
// own StateHashFunc and pass it in via WithOrchestrator.
func (s *Scheduler) defaultStateHash() string {
	assignment := make([]GuardedValue[any], 0, len(s.state.SrcState))
	for _, vs := range s.state.SrcState {
		gv, ok := s.concretize.Concretize(vs)
		if !ok {
			continue
		}
		assignment = append(assignment, gv)
	}
	return s.canonKey(assignment)
}

// defaultChoiceKey derives an action key from a candidate's
// concretized value, falling back to its Universe's string form if
// concretization fails.
func (s *Scheduler) defaultChoiceKey(vs ValueSummary) string {
	gv, ok := s.concretize.Concretize(vs)
	if !ok {
		return fmt.Sprintf("%v", vs.Universe())
	}
	return fmt.Sprintf("%v", gv.Value)
}

// WithOrchestrator overrides the ChoiceOrchestrator built from Options,
// used once the caller has a reinforce.Table and domain-specific
// state-hash/choice-key functions ready (QLearning/EpsilonGreedy).
func (s *Scheduler) WithOrchestrator(o ChoiceOrchestrator) *Scheduler {
	s.orchestrator = o
	s.selector.Orchestrator = o
	return s
}

// RunID implements SchedulerHandle.
func (s *Scheduler) RunID() string {
	return s.runID
}

// Schedule exposes the live Schedule for inspection/testing.
func (s *Scheduler) Schedule() *Schedule {
	return s.schedule
}

// State exposes the live IterationState for inspection/testing.
func (s *Scheduler) State() *IterationState {
	return s.state
}

// defaultCanonicalKey canonicalizes a concrete assignment into a
// stable string key for StateCache membership tests. Callers with a
// richer state shape may wire a domain-specific key function instead
// by constructing their own StateCache.
func defaultCanonicalKey(assignment []GuardedValue[any]) string {
	return fmt.Sprintf("%v", collectValues(assignment))
}

func collectValues(assignment []GuardedValue[any]) []any {
	out := make([]any, len(assignment))
	for i, gv := range assignment {
		out[i] = gv.Value
	}
	return out
}
