// Package storage persists completed task records in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	_ "modernc.org/sqlite"

	"github.com/capitalize-ai/taskform-bot/internal/model"
	"github.com/capitalize-ai/taskform-bot/pkg/tracing"
)

// ErrEmptyTask is returned when saving a record without a task name.
var ErrEmptyTask = errors.New("task name is empty")

// TaskStore is an append-only SQLite store of task records.
type TaskStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and ensures the
// schema exists.
func Open(ctx context.Context, path string) (*TaskStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// SQLite allows a single writer; one connection keeps concurrent saves
	// from failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	store, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New returns a TaskStore bound to an existing database handle and migrates
// it.
func New(ctx context.Context, db *sql.DB) (*TaskStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}
	return &TaskStore{db: db}, nil
}

// Save inserts a record and returns its generated ID.
func (s *TaskStore) Save(ctx context.Context, rec model.TaskRecord) (int64, error) {
	ctx, span := tracing.Tracer().Start(ctx, "storage.SaveTask")
	defer span.End()

	id, err := s.save(ctx, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return -1, err
	}
	span.SetAttributes(attribute.Int64("task.id", id))
	return id, nil
}

func (s *TaskStore) save(ctx context.Context, rec model.TaskRecord) (int64, error) {
	if s == nil || s.db == nil {
		return -1, fmt.Errorf("save task: store is closed")
	}
	if strings.TrimSpace(rec.Task) == "" {
		return -1, fmt.Errorf("save task: %w", ErrEmptyTask)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (task, deadline, reminder, created_at) VALUES (?, ?, ?, ?)`,
		rec.Task, rec.Deadline, rec.Reminder, createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return -1, fmt.Errorf("save task: insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return -1, fmt.Errorf("save task: last insert id: %w", err)
	}
	return id, nil
}

// List returns up to limit records, newest first.
func (s *TaskStore) List(ctx context.Context, limit int) ([]model.TaskRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task, deadline, reminder, created_at FROM tasks ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: query: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.TaskRecord, 0, limit)
	for rows.Next() {
		var rec model.TaskRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Task, &rec.Deadline, &rec.Reminder, &createdAt); err != nil {
			return nil, fmt.Errorf("list tasks: scan: %w", err)
		}
		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("list tasks: parse created_at: %w", err)
		}
		tasks = append(tasks, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: rows: %w", err)
	}
	return tasks, nil
}

// Count returns the number of stored records.
func (s *TaskStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *TaskStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *TaskStore) Close() error {
	return s.db.Close()
}
