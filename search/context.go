package search

import "context"

// contextKey is a private type used for context value keys so they
// cannot collide with keys from other packages, mirroring graph's
// contextKey pattern.
type contextKey string

const (
	// RunIDKey is the context key for the run identifier driving the
	// current SearchLoop.
	RunIDKey contextKey = "pexplore.run_id"
	// IterKey is the context key for the current iteration number.
	IterKey contextKey = "pexplore.iter"
	// DepthKey is the context key for the current step depth.
	DepthKey contextKey = "pexplore.depth"
	// ChoiceDepthKey is the context key for the current choice depth.
	ChoiceDepthKey contextKey = "pexplore.choice_depth"
)

// withRunContext stamps the run's current identifiers onto ctx so
// Runtime implementations (and anything they call downstream) can
// recover run_id/iter/depth/choice_depth without threading extra
// parameters through every Runtime method, mirroring the teacher's
// RNGKey context-value pattern (graph/engine.go).
func (s *Scheduler) withRunContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, RunIDKey, s.runID)
	ctx = context.WithValue(ctx, IterKey, s.state.Iter)
	ctx = context.WithValue(ctx, DepthKey, s.state.Depth)
	ctx = context.WithValue(ctx, ChoiceDepthKey, s.state.ChoiceDepth)
	return ctx
}
