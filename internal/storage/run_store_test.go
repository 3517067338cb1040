package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteRunStore {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteRunStore(db)
}

func testRecord(id, scenario string, startedAt time.Time) RunRecord {
	return RunRecord{
		ID:         id,
		Scenario:   scenario,
		Trigger:    "schedule",
		Current:    5,
		Excluded:   3,
		Notified:   2,
		Status:     "ok",
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(time.Second),
	}
}

func TestSQLiteRunStore_RecordAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordRun(ctx, testRecord("run-1", "approval", now)))
	require.NoError(t, store.RecordRun(ctx, testRecord("run-2", "approval", now.Add(time.Hour))))
	require.NoError(t, store.RecordRun(ctx, testRecord("run-3", "other", now.Add(2*time.Hour))))

	runs, err := store.ListRuns(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-3", runs[0].ID, "newest first")
	assert.Equal(t, "run-1", runs[2].ID)
	assert.Equal(t, 5, runs[0].Current)
	assert.Equal(t, "schedule", runs[0].Trigger)

	runs, err = store.ListRuns(ctx, "approval", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)

	runs, err = store.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteRunStore_FailedRunKeepsError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("run-1", "approval", time.Now().UTC())
	rec.Status = "failed"
	rec.ErrorMsg = "smtp unavailable"
	require.NoError(t, store.RecordRun(ctx, rec))

	runs, err := store.ListRuns(ctx, "approval", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Status)
	assert.Equal(t, "smtp unavailable", runs[0].ErrorMsg)
}

func TestSQLiteRunStore_EmptyList(t *testing.T) {
	store := newTestStore(t)

	runs, err := store.ListRuns(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := NewSQLiteDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening must not reapply migrations.
	db, err = NewSQLiteDB(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, len(migrations), count)
}
