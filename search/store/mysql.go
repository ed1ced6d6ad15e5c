package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLCheckpointStore is a MySQL/MariaDB-backed CheckpointStore for
// distributed BacktrackTask fan-out, grounded on
// graph/store/mysql.go's connection-pool configuration.
type MySQLCheckpointStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewMySQLCheckpointStore opens (and migrates) a MySQL-backed
// CheckpointStore using dsn.
func NewMySQLCheckpointStore(dsn string) (*MySQLCheckpointStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping mysql: %w", err)
	}

	s := &MySQLCheckpointStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLCheckpointStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS checkpoints (
			run_id VARCHAR(64) PRIMARY KEY,
			iter INT NOT NULL,
			label VARCHAR(255) DEFAULT '',
			ts TIMESTAMP(6) NOT NULL,
			data LONGBLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS backtracks (
			run_id VARCHAR(64) NOT NULL,
			task_id INT NOT NULL,
			step INT NOT NULL,
			choice_depth INT NOT NULL,
			pid INT NOT NULL,
			ts TIMESTAMP(6) NOT NULL,
			data LONGBLOB NOT NULL,
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

func (s *MySQLCheckpointStore) SaveCheckpoint(ctx context.Context, rec CheckpointRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, iter, label, ts, data) VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE iter=VALUES(iter), label=VALUES(label), ts=VALUES(ts), data=VALUES(data)
	`, rec.RunID, rec.Iter, rec.Label, rec.Timestamp, rec.Data)
	if err != nil {
		return fmt.Errorf("store: save checkpoint: %w", err)
	}
	return nil
}

func (s *MySQLCheckpointStore) LoadCheckpoint(ctx context.Context, runID string) (CheckpointRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rec CheckpointRecord
	err := s.db.QueryRowContext(ctx, `SELECT run_id, iter, label, ts, data FROM checkpoints WHERE run_id = ?`, runID).
		Scan(&rec.RunID, &rec.Iter, &rec.Label, &rec.Timestamp, &rec.Data)
	if err == sql.ErrNoRows {
		return CheckpointRecord{}, ErrNotFound
	}
	if err != nil {
		return CheckpointRecord{}, fmt.Errorf("store: load checkpoint: %w", err)
	}
	return rec, nil
}

func (s *MySQLCheckpointStore) SaveBacktrack(ctx context.Context, rec BacktrackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backtracks (run_id, task_id, step, choice_depth, pid, ts, data) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE step=VALUES(step), choice_depth=VALUES(choice_depth),
			pid=VALUES(pid), ts=VALUES(ts), data=VALUES(data)
	`, rec.RunID, rec.TaskID, rec.Step, rec.ChoiceDepth, rec.PID, rec.Timestamp, rec.Data)
	if err != nil {
		return fmt.Errorf("store: save backtrack: %w", err)
	}
	return nil
}

func (s *MySQLCheckpointStore) LoadBacktrack(ctx context.Context, runID string, taskID int) (BacktrackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rec BacktrackRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, task_id, step, choice_depth, pid, ts, data FROM backtracks WHERE run_id = ? AND task_id = ?
	`, runID, taskID).Scan(&rec.RunID, &rec.TaskID, &rec.Step, &rec.ChoiceDepth, &rec.PID, &rec.Timestamp, &rec.Data)
	if err == sql.ErrNoRows {
		return BacktrackRecord{}, ErrNotFound
	}
	if err != nil {
		return BacktrackRecord{}, fmt.Errorf("store: load backtrack: %w", err)
	}
	return rec, nil
}

// Close closes the underlying database connection.
func (s *MySQLCheckpointStore) Close() error {
	return s.db.Close()
}
