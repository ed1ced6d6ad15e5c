package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCheckpointStore is a SQLite-backed CheckpointStore, grounded
// on graph/store/sqlite.go: single-writer connection pool and WAL
// mode for concurrent readers.
type SQLiteCheckpointStore struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// NewSQLiteCheckpointStore opens (and migrates) a SQLite-backed
// CheckpointStore at path.
func NewSQLiteCheckpointStore(path string) (*SQLiteCheckpointStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set busy_timeout: %w", err)
	}

	s := &SQLiteCheckpointStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteCheckpointStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS checkpoints (
			run_id TEXT PRIMARY KEY,
			iter INTEGER NOT NULL,
			label TEXT DEFAULT '',
			ts TIMESTAMP NOT NULL,
			data BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS backtracks (
			run_id TEXT NOT NULL,
			task_id INTEGER NOT NULL,
			step INTEGER NOT NULL,
			choice_depth INTEGER NOT NULL,
			pid INTEGER NOT NULL,
			ts TIMESTAMP NOT NULL,
			data BLOB NOT NULL,
			PRIMARY KEY (run_id, task_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: create tables: %w", err)
		}
	}
	return nil
}

func (s *SQLiteCheckpointStore) SaveCheckpoint(ctx context.Context, rec CheckpointRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, iter, label, ts, data) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET iter=excluded.iter, label=excluded.label, ts=excluded.ts, data=excluded.data
	`, rec.RunID, rec.Iter, rec.Label, rec.Timestamp.Format(time.RFC3339Nano), rec.Data)
	if err != nil {
		return fmt.Errorf("store: save checkpoint: %w", err)
	}
	return nil
}

func (s *SQLiteCheckpointStore) LoadCheckpoint(ctx context.Context, runID string) (CheckpointRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rec CheckpointRecord
	var ts string
	err := s.db.QueryRowContext(ctx, `SELECT run_id, iter, label, ts, data FROM checkpoints WHERE run_id = ?`, runID).
		Scan(&rec.RunID, &rec.Iter, &rec.Label, &ts, &rec.Data)
	if err == sql.ErrNoRows {
		return CheckpointRecord{}, ErrNotFound
	}
	if err != nil {
		return CheckpointRecord{}, fmt.Errorf("store: load checkpoint: %w", err)
	}
	rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return CheckpointRecord{}, fmt.Errorf("store: parse timestamp: %w", err)
	}
	return rec, nil
}

func (s *SQLiteCheckpointStore) SaveBacktrack(ctx context.Context, rec BacktrackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backtracks (run_id, task_id, step, choice_depth, pid, ts, data) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, task_id) DO UPDATE SET step=excluded.step, choice_depth=excluded.choice_depth,
			pid=excluded.pid, ts=excluded.ts, data=excluded.data
	`, rec.RunID, rec.TaskID, rec.Step, rec.ChoiceDepth, rec.PID, rec.Timestamp.Format(time.RFC3339Nano), rec.Data)
	if err != nil {
		return fmt.Errorf("store: save backtrack: %w", err)
	}
	return nil
}

func (s *SQLiteCheckpointStore) LoadBacktrack(ctx context.Context, runID string, taskID int) (BacktrackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rec BacktrackRecord
	var ts string
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, task_id, step, choice_depth, pid, ts, data FROM backtracks WHERE run_id = ? AND task_id = ?
	`, runID, taskID).Scan(&rec.RunID, &rec.TaskID, &rec.Step, &rec.ChoiceDepth, &rec.PID, &ts, &rec.Data)
	if err == sql.ErrNoRows {
		return BacktrackRecord{}, ErrNotFound
	}
	if err != nil {
		return BacktrackRecord{}, fmt.Errorf("store: load backtrack: %w", err)
	}
	rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return BacktrackRecord{}, fmt.Errorf("store: parse timestamp: %w", err)
	}
	return rec, nil
}

// Close closes the underlying database connection.
func (s *SQLiteCheckpointStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteCheckpointStore) Path() string {
	return s.path
}
