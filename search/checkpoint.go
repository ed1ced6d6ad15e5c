package search

import (
	"context"
	"os"
	"time"

	"github.com/dshills/pexplore/search/emit"
	"github.com/dshills/pexplore/search/store"
)

// Codec turns a Scheduler's live state into an opaque byte payload and
// back. Guard/ValueSummary are solver-owned and not JSON-serializable
// in general, so encoding them is left to the caller, the way
// graph.Checkpoint leaves State generic over S.
type Codec interface {
	Encode(*Scheduler) ([]byte, error)
	Decode(*Scheduler, []byte) error
}

// SaveCheckpoint performs the whole-engine serialization named in
// §4.8: atomic write of (scheduler, global data) to a file via the
// configured CheckpointStore.
func (s *Scheduler) SaveCheckpoint(ctx context.Context, codec Codec, label string) error {
	data, err := codec.Encode(s)
	if err != nil {
		return NewCheckpointIOError("<encode>", err)
	}
	rec := store.CheckpointRecord{
		RunID:     s.runID,
		Iter:      s.state.Iter,
		Label:     label,
		Timestamp: time.Now(),
		Data:      data,
	}
	if err := s.store.SaveCheckpoint(ctx, rec); err != nil {
		return NewCheckpointIOError(s.runID, err)
	}
	s.emitter.Emit(emit.Event{
		RunID:     s.runID,
		Iter:      s.state.Iter,
		Msg:       "checkpoint saved",
		Meta:      map[string]interface{}{"label": label},
		Timestamp: time.Now(),
	})
	return nil
}

// LoadCheckpoint reads back a checkpoint, restores the scheduler's
// iteration state via codec, then calls Reinitialize to rebind
// transient caches and back-link every machine to the scheduler.
func (s *Scheduler) LoadCheckpoint(ctx context.Context, codec Codec, runID string) error {
	rec, err := s.store.LoadCheckpoint(ctx, runID)
	if err != nil {
		if err == store.ErrNotFound {
			return NewCheckpointIOError(runID, err)
		}
		return NewCheckpointIOError(runID, err)
	}
	if err := codec.Decode(s, rec.Data); err != nil {
		return NewCheckpointIOError(runID, err)
	}
	s.runID = rec.RunID
	s.state.Iter = rec.Iter
	s.Reinitialize()
	return nil
}

// Reinitialize rebinds every machine's scheduler handle and resets
// transient, non-serialized caches (the StateCache's seen-state set is
// intentionally NOT restored: a resumed run re-populates it from
// scratch, which is conservative — it may re-explore states the
// original run had already pruned, but never silently skips a state).
func (s *Scheduler) Reinitialize() {
	s.stateCache = NewStateCache(s.opts.StateCachingMode, s.opts.IsSymbolic, s.solver, s.solver)
	for _, m := range s.runtime.Machines() {
		m.SetScheduler(s)
	}
}

// SaveBacktrackSnapshot serializes the whole scheduler through codec
// and stores it as a backtrack record tagged with task's depth, choice
// depth and id, plus the originating pid so fanned-out worker
// processes can be distinguished.
func (s *Scheduler) SaveBacktrackSnapshot(ctx context.Context, codec Codec, task *BacktrackTask) error {
	data, err := codec.Encode(s)
	if err != nil {
		return NewCheckpointIOError("<encode-backtrack>", err)
	}
	rec := store.BacktrackRecord{
		RunID:       s.runID,
		Step:        task.Depth,
		ChoiceDepth: task.ChoiceDepth,
		TaskID:      task.ID,
		PID:         os.Getpid(),
		Timestamp:   time.Now(),
		Data:        data,
	}
	if err := s.store.SaveBacktrack(ctx, rec); err != nil {
		return NewCheckpointIOError(s.runID, err)
	}
	return nil
}

// LoadBacktrackSnapshot loads the backtrack record stored for taskID
// and decodes it into the scheduler, replacing its whole state, then
// calls Reinitialize.
func (s *Scheduler) LoadBacktrackSnapshot(ctx context.Context, codec Codec, taskID int) error {
	rec, err := s.store.LoadBacktrack(ctx, s.runID, taskID)
	if err != nil {
		return NewCheckpointIOError(s.runID, err)
	}
	if err := codec.Decode(s, rec.Data); err != nil {
		return NewCheckpointIOError(s.runID, err)
	}
	s.Reinitialize()
	return nil
}
