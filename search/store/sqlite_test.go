package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/pexplore/search/store"
)

func TestSQLiteCheckpointStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	s, err := store.NewSQLiteCheckpointStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteCheckpointStore failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	rec := store.CheckpointRecord{RunID: "run-1", Iter: 7, Label: "mid", Timestamp: time.Now(), Data: []byte("payload")}
	if err := s.SaveCheckpoint(ctx, rec); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	got, err := s.LoadCheckpoint(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}
	if got.Iter != 7 || string(got.Data) != "payload" {
		t.Fatalf("round-tripped record does not match: %+v", got)
	}

	// Re-saving the same run id should upsert, not conflict.
	rec.Iter = 8
	if err := s.SaveCheckpoint(ctx, rec); err != nil {
		t.Fatalf("upsert SaveCheckpoint failed: %v", err)
	}
	got, err = s.LoadCheckpoint(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadCheckpoint after upsert failed: %v", err)
	}
	if got.Iter != 8 {
		t.Fatalf("expected upserted iter 8, got %d", got.Iter)
	}

	if _, err := s.LoadCheckpoint(ctx, "missing"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound for an unknown run, got %v", err)
	}
}

func TestSQLiteCheckpointStoreBacktrackRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	s, err := store.NewSQLiteCheckpointStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteCheckpointStore failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	rec := store.BacktrackRecord{RunID: "run-1", Step: 5, ChoiceDepth: 1, TaskID: 3, PID: 42, Timestamp: time.Now(), Data: []byte("frozen")}
	if err := s.SaveBacktrack(ctx, rec); err != nil {
		t.Fatalf("SaveBacktrack failed: %v", err)
	}

	got, err := s.LoadBacktrack(ctx, "run-1", 3)
	if err != nil {
		t.Fatalf("LoadBacktrack failed: %v", err)
	}
	if got.Step != 5 || string(got.Data) != "frozen" {
		t.Fatalf("round-tripped backtrack does not match: %+v", got)
	}

	if _, err := s.LoadBacktrack(ctx, "run-1", 99); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound for an unknown task id, got %v", err)
	}
}
