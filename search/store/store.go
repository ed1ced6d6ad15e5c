// Package store provides checkpoint persistence backends for the
// search package, grounded on graph/store: a small interface plus
// in-memory, file, SQLite, and MySQL implementations.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a checkpoint or backtrack record does
// not exist.
var ErrNotFound = errors.New("store: not found")

// CheckpointRecord is the whole-engine checkpoint named in §4.8:
// "atomic write of (scheduler, global data) to a file." Data is the
// opaque serialized payload produced by a search.Codec;
// this package never interprets it.
type CheckpointRecord struct {
	RunID     string
	Iter      int
	Label     string
	Timestamp time.Time
	Data      []byte
}

// BacktrackRecord is one individually-serialized backtrack point
// (§4.8). FileCheckpointStore writes each one to
// backtrack_d{step}_cd{choice_depth}_task{id}_pid{pid}.out.
type BacktrackRecord struct {
	RunID       string
	Step        int
	ChoiceDepth int
	TaskID      int
	PID         int
	Timestamp   time.Time
	Data        []byte
}

// CheckpointStore persists whole-engine checkpoints and individual
// BacktrackTask snapshots.
type CheckpointStore interface {
	SaveCheckpoint(ctx context.Context, rec CheckpointRecord) error
	LoadCheckpoint(ctx context.Context, runID string) (CheckpointRecord, error)
	SaveBacktrack(ctx context.Context, rec BacktrackRecord) error
	LoadBacktrack(ctx context.Context, runID string, taskID int) (BacktrackRecord, error)
}
