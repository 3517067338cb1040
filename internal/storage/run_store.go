package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunRecord is one completed scenario run.
type RunRecord struct {
	ID         string    `json:"id"`
	Scenario   string    `json:"scenario"`
	Trigger    string    `json:"trigger"` // "schedule", "api", "cli"
	DryRun     bool      `json:"dry_run"`
	Current    int       `json:"current"`
	Excluded   int       `json:"excluded"`
	Resent     int       `json:"resent"`
	Notified   int       `json:"notified"`
	Status     string    `json:"status"` // "ok", "failed"
	ErrorMsg   string    `json:"error_msg,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// RunStore defines the interface for persisting run audit records.
type RunStore interface {
	// RecordRun inserts a completed run.
	RecordRun(ctx context.Context, rec RunRecord) error
	// ListRuns returns the most recent runs, newest first, up to limit.
	// An empty scenario returns runs for all scenarios.
	ListRuns(ctx context.Context, scenario string, limit int) ([]RunRecord, error)
}

// SQLiteRunStore implements RunStore backed by SQLite.
type SQLiteRunStore struct {
	db *sql.DB
}

// NewSQLiteRunStore returns a new SQLiteRunStore.
func NewSQLiteRunStore(db *sql.DB) *SQLiteRunStore {
	return &SQLiteRunStore{db: db}
}

// RecordRun inserts a run audit record into the database.
func (s *SQLiteRunStore) RecordRun(ctx context.Context, rec RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, triggered_by, dry_run, current_cnt, excluded_cnt,
		                  resent_cnt, notified_cnt, status, error_msg, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Scenario, rec.Trigger, rec.DryRun, rec.Current, rec.Excluded,
		rec.Resent, rec.Notified, rec.Status, rec.ErrorMsg, rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting run record: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs ordered by started_at descending.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, scenario string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, scenario, triggered_by, dry_run, current_cnt, excluded_cnt,
		       resent_cnt, notified_cnt, status, error_msg, started_at, finished_at
		FROM runs`
	args := []any{}
	if scenario != "" {
		query += ` WHERE scenario = ?`
		args = append(args, scenario)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.Scenario, &rec.Trigger, &rec.DryRun,
			&rec.Current, &rec.Excluded, &rec.Resent, &rec.Notified,
			&rec.Status, &rec.ErrorMsg, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}
	return out, nil
}
