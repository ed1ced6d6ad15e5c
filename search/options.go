package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChoiceOrchestration selects the ChoiceOrchestrator variant (§6).
type ChoiceOrchestration string

const (
	ChoiceOrchestrationNone          ChoiceOrchestration = "none"
	ChoiceOrchestrationRandom        ChoiceOrchestration = "random"
	ChoiceOrchestrationQLearning     ChoiceOrchestration = "qlearning"
	ChoiceOrchestrationEpsilonGreedy ChoiceOrchestration = "epsilon_greedy"
)

// TaskOrchestration selects the cross-iteration TaskManager strategy (§4.5/§6).
type TaskOrchestration string

const (
	TaskOrchestrationDepthFirst    TaskOrchestration = "depth_first"
	TaskOrchestrationRandom        TaskOrchestration = "random"
	TaskOrchestrationCoverageAStar TaskOrchestration = "coverage_astar"
	TaskOrchestrationLearn         TaskOrchestration = "learn"
)

// SymmetryMode selects whether symmetry classes are merged before
// sender selection (§6).
type SymmetryMode string

const (
	SymmetryModeNone SymmetryMode = "none"
	SymmetryModeFull SymmetryMode = "full"
)

// StateCachingMode selects the StateCache enumeration strategy (§4.7/§6).
type StateCachingMode string

const (
	StateCachingNone  StateCachingMode = "none"
	StateCachingFast  StateCachingMode = "fast"
	StateCachingExact StateCachingMode = "exact"
)

// Options configures SearchLoop/Scheduler behavior. Zero values are
// valid; Verbosity 0, no backtracking, no caching, DepthFirst task
// orchestration and None choice orchestration are each quiet,
// memory-light defaults, the way a zero-value graph.Options is a valid
// sequential, unlimited configuration.
type Options struct {
	// ChoiceOrchestration picks the ChoiceOrchestrator variant.
	ChoiceOrchestration ChoiceOrchestration
	// TaskOrchestration picks the cross-iteration strategy. DepthFirst
	// disables the TaskManager (it stays idle; in-schedule backtrack is
	// always preferred).
	TaskOrchestration TaskOrchestration
	// SymmetryMode is None or Full; Full merges classes before sender
	// selection.
	SymmetryMode SymmetryMode
	// StateCachingMode is None, Fast, or Exact.
	StateCachingMode StateCachingMode
	// IsSymbolic selects the symbolic enumeration path in StateCache.
	IsSymbolic bool
	// UseBacktrack disables SchedulerState snapshotting when false: no
	// backtracks are ever revisited.
	UseBacktrack bool
	// MaxStepBound caps step depth per iteration. Zero means unbounded.
	MaxStepBound int
	// FailOnMaxStepBound makes hitting MaxStepBound a fatal error
	// instead of "correct up to step N".
	FailOnMaxStepBound bool
	// MaxExecutions caps total iterations across resume. Zero means
	// unbounded.
	MaxExecutions int
	// MaxBacktrackTasksPerExecution bounds how many BacktrackTasks
	// set_backtrack_tasks may create in one iteration (§4.5).
	MaxBacktrackTasksPerExecution int
	// Verbosity is the logging level, 0-5+.
	Verbosity int
	// Deadline is the wall-clock budget enforced by TimeMonitor. Zero
	// means no deadline.
	Deadline time.Duration
	// Epsilon is the exploration rate for EpsilonGreedy orchestration.
	Epsilon float64
	// Alpha is the learning rate for QLearning/EpsilonGreedy table
	// updates.
	Alpha float64
	// RandomSeed seeds the Random/EpsilonGreedy orchestrator's PRNG for
	// deterministic replay.
	RandomSeed int64
	// MetricsRegistry is the Prometheus registerer NewMetrics uses. Nil
	// means a fresh, isolated prometheus.NewRegistry() per Scheduler
	// (recommended); pass prometheus.DefaultRegisterer explicitly to
	// expose pexplore_* metrics on a process-wide /metrics handler.
	MetricsRegistry prometheus.Registerer
}

// DefaultOptions returns the zero-backtrack, zero-caching, DepthFirst,
// None-orchestration configuration: the cheapest configuration capable
// of running S1 (single deterministic machine) to completion.
func DefaultOptions() Options {
	return Options{
		ChoiceOrchestration: ChoiceOrchestrationNone,
		TaskOrchestration:   TaskOrchestrationDepthFirst,
		SymmetryMode:        SymmetryModeNone,
		StateCachingMode:    StateCachingNone,
		Epsilon:             0.1,
		Alpha:               0.1,
	}
}

// Option is a functional option for configuring a Scheduler, mirroring
// the teacher's "Options struct, or functional options, or both"
// pattern (graph.New, graph/options.go).
type Option func(*Options)

// WithChoiceOrchestration sets the ChoiceOrchestrator variant.
func WithChoiceOrchestration(mode ChoiceOrchestration) Option {
	return func(o *Options) { o.ChoiceOrchestration = mode }
}

// WithTaskOrchestration sets the cross-iteration TaskManager strategy.
func WithTaskOrchestration(mode TaskOrchestration) Option {
	return func(o *Options) { o.TaskOrchestration = mode }
}

// WithSymmetryMode sets None/Full symmetry reduction.
func WithSymmetryMode(mode SymmetryMode) Option {
	return func(o *Options) { o.SymmetryMode = mode }
}

// WithStateCachingMode sets None/Fast/Exact state caching.
func WithStateCachingMode(mode StateCachingMode) Option {
	return func(o *Options) { o.StateCachingMode = mode }
}

// WithSymbolic toggles the symbolic state enumeration path.
func WithSymbolic(enabled bool) Option {
	return func(o *Options) { o.IsSymbolic = enabled }
}

// WithBacktrack toggles SchedulerState snapshotting.
func WithBacktrack(enabled bool) Option {
	return func(o *Options) { o.UseBacktrack = enabled }
}

// WithMaxStepBound caps step depth per iteration.
func WithMaxStepBound(n int) Option {
	return func(o *Options) { o.MaxStepBound = n }
}

// WithFailOnMaxStepBound makes hitting MaxStepBound fatal.
func WithFailOnMaxStepBound(fail bool) Option {
	return func(o *Options) { o.FailOnMaxStepBound = fail }
}

// WithMaxExecutions caps total iterations across resume.
func WithMaxExecutions(n int) Option {
	return func(o *Options) { o.MaxExecutions = n }
}

// WithMaxBacktrackTasksPerExecution bounds tasks created per iteration.
func WithMaxBacktrackTasksPerExecution(n int) Option {
	return func(o *Options) { o.MaxBacktrackTasksPerExecution = n }
}

// WithVerbosity sets the logging level.
func WithVerbosity(level int) Option {
	return func(o *Options) { o.Verbosity = level }
}

// WithDeadline sets the TimeMonitor wall-clock budget.
func WithDeadline(d time.Duration) Option {
	return func(o *Options) { o.Deadline = d }
}

// WithEpsilon sets the EpsilonGreedy exploration rate.
func WithEpsilon(e float64) Option {
	return func(o *Options) { o.Epsilon = e }
}

// WithAlpha sets the QLearning/EpsilonGreedy learning rate.
func WithAlpha(a float64) Option {
	return func(o *Options) { o.Alpha = a }
}

// WithRandomSeed seeds the orchestrator's PRNG.
func WithRandomSeed(seed int64) Option {
	return func(o *Options) { o.RandomSeed = seed }
}

// WithMetricsRegistry sets the Prometheus registerer NewMetrics uses.
func WithMetricsRegistry(r prometheus.Registerer) Option {
	return func(o *Options) { o.MetricsRegistry = r }
}

// Apply folds a list of functional options onto a base Options value.
func (o Options) Apply(opts ...Option) Options {
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
