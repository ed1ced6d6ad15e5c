package search

import (
	"context"
	"time"

	"github.com/dshills/pexplore/search/emit"
)

// DoSearch runs the outer iteration loop per §4.1: reset task state,
// increment iter, initialize the search, then repeat
// performSearch/check_liveness/summarize_iteration until
// is_done_iterating.
func (s *Scheduler) DoSearch(ctx context.Context) (string, error) {
	s.taskManager = NewTaskManager(s.opts.TaskOrchestration, s.opts.RandomSeed)
	s.currentTaskID = 0
	s.state.Result = "incomplete"
	s.state.Iter++
	if err := s.runtime.InitializeSearch(s.withRunContext(ctx)); err != nil {
		return "", err
	}
	return s.runLoop(ctx)
}

// ResumeSearch begins by deserializing checkpoint (already loaded into
// s by the caller via Scheduler.LoadCheckpoint), sets start_iter = iter,
// and resumes the outer loop.
func (s *Scheduler) ResumeSearch(ctx context.Context) (string, error) {
	s.state.StartIter = s.state.Iter
	if s.state.Done {
		// The checkpoint was already at a terminal state: clear Done so
		// the loop steps again. No statistics or coverage are reset
		// here, neither now nor after the first resumed iteration.
		s.state.Done = false
	}
	return s.runLoop(ctx)
}

func (s *Scheduler) runLoop(ctx context.Context) (string, error) {
	for !s.state.IsDoneIterating {
		if err := s.performSearch(ctx); err != nil {
			return "", err
		}
		final := s.state.IsDoneIterating
		if err := s.runtime.CheckLiveness(s.withRunContext(ctx), final); err != nil {
			return "", err
		}
		s.summarizeIteration(ctx)
		if !s.state.IsDoneIterating && ctx.Err() != nil {
			return "", &SearchError{Kind: KindInterrupted, Message: "interrupted between iterations", Cause: ErrInterrupted}
		}
	}
	return s.state.Result, nil
}

// performSearch drives Step until it reports done or an error.
func (s *Scheduler) performSearch(ctx context.Context) error {
	for !s.state.Done {
		done, err := s.Step(ctx)
		if err != nil {
			return err
		}
		if done {
			break
		}
		if s.opts.MaxStepBound > 0 && s.state.Depth >= s.opts.MaxStepBound {
			if s.opts.FailOnMaxStepBound {
				return &SearchError{Kind: KindStepBoundExceeded, Message: "max_step_bound exceeded", Depth: s.state.Depth, Cause: ErrStepBoundExceeded}
			}
			s.state.Result = "correct up to step N"
			s.state.Done = true
			break
		}
	}
	return nil
}

// summarizeIteration applies the termination gates in §4.6, in order.
func (s *Scheduler) summarizeIteration(ctx context.Context) {
	s.metrics.RecordIteration(s.state.Iter, s.state.Depth, 0, s.taskManager.NumPendingBacktracks(), s.state.Result)
	s.emitter.Emit(emit.Event{
		RunID:     s.runID,
		Iter:      s.state.Iter,
		Depth:     s.state.Depth,
		Msg:       "iteration summarized",
		Meta:      map[string]interface{}{"result": s.state.Result, "pending_backtracks": s.taskManager.NumPendingBacktracks()},
		Timestamp: time.Now(),
	})

	// Gate 1: max_executions.
	if s.opts.MaxExecutions > 0 && (s.state.Iter-s.state.StartIter) >= s.opts.MaxExecutions {
		s.state.IsDoneIterating = true
		return
	}

	// Gate 2: non-DepthFirst task orchestration.
	if s.opts.TaskOrchestration != TaskOrchestrationDepthFirst {
		s.taskManager.SetBacktrackTasks(s.schedule, s.currentTaskID, s.opts.MaxBacktrackTasksPerExecution)
		task, ok := s.taskManager.GetNextTask()
		if !ok {
			if s.state.Result == "incomplete" {
				s.state.Result = "correct for any depth"
			}
			s.state.IsDoneIterating = true
			return
		}
		s.beginTask(task)
		s.state.Iter++
		return
	}

	// Gate 3: in-schedule cleanup/backtrack.
	s.postIterationCleanup(ctx)
}

// postIterationCleanup implements §4.6 gate 3: walk Schedule depths
// top-down; at the first depth with a non-empty backtrack, restore and
// return (the next iteration resumes there); otherwise clear the
// Choice and continue downward. If the walk finishes, the run is done.
func (s *Scheduler) postIterationCleanup(ctx context.Context) {
	for d := s.schedule.Size() - 1; d >= 0; d-- {
		c := s.schedule.At(d)
		if c == nil {
			continue
		}

		// Fold a replayed repeat into handled_universe, then clear it so
		// the next pass through this depth generates fresh candidates.
		// Repeat is only ever populated by checkpoint resume, so on a
		// fresh forward walk this is almost always a no-op.
		if c.Repeat != nil && !c.Repeat.IsEmpty() {
			if c.HandledUniverse == nil {
				c.HandledUniverse = c.Repeat.Universe()
			} else {
				c.HandledUniverse = c.HandledUniverse.Or(c.Repeat.Universe())
			}
			c.Repeat = nil
		}

		if len(c.Backtrack) > 0 {
			s.restoreFromChoice(d, c)
			s.state.BacktrackDepth = d
			s.metrics.RecordBacktrack()
			s.emitter.Emit(emit.Event{
				RunID:     s.runID,
				Iter:      s.state.Iter,
				Depth:     d,
				Msg:       "backtrack restored",
				Meta:      map[string]interface{}{"remaining": len(c.Backtrack)},
				Timestamp: time.Now(),
			})
			s.state.Iter++
			return
		}

		s.schedule.TruncateFrom(d)
	}

	if s.state.Result == "incomplete" {
		s.state.Result = "correct for any depth"
	}
	s.state.IsDoneIterating = true
}

// restoreFromChoice restores scheduler state from Choice c's saved
// snapshot, or resets every machine if the snapshot was taken at
// scheduler_depth 0.
func (s *Scheduler) restoreFromChoice(d int, c *Choice) {
	if c.Saved.SchedulerDepth == 0 {
		for _, m := range s.runtime.Machines() {
			m.Reset()
		}
	} else {
		for id, localState := range c.Saved.Machines {
			for _, m := range s.runtime.Machines() {
				if m.ID() == id {
					m.SetLocalState(localState)
				}
			}
		}
	}
	s.state.Depth = c.SchedulerDepth
	s.state.ChoiceDepth = c.SchedulerChoiceDepth
	s.state.Done = false
}

// beginTask switches the running Schedule to task's frozen prefix,
// resuming exploration from its choice depth.
func (s *Scheduler) beginTask(task *BacktrackTask) {
	s.schedule = task.Choices
	s.currentTaskID = task.ID
	s.state.ChoiceDepth = task.ChoiceDepth
	s.state.Depth = task.Depth
	s.state.Done = false
}
