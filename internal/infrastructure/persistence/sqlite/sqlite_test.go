package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
	"github.com/fieldsvc/fieldsvc/internal/domain/repository"
)

// setupTestDB opens a fresh migrated database in a temp directory
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), DBFile))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrator_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	m := NewMigrator(db)
	require.NoError(t, m.Migrate())
	require.NoError(t, m.Migrate())

	v, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)

	for _, table := range []string{"engagements", "stage_records", "history_snapshots"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
}

func TestSplitSQLStatements(t *testing.T) {
	stmts := splitSQLStatements("-- comment\nCREATE TABLE a (x INT);\n\n  -- more\nCREATE TABLE b (y INT);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"}, stmts)
}

func TestEngagementCache_SaveFind(t *testing.T) {
	db := setupTestDB(t)
	cache := NewEngagementCache(db)
	ctx := context.Background()

	_, err := cache.FindByID(ctx, 7)
	assert.ErrorIs(t, err, repository.ErrNotCached)
	_, err = cache.FindActive(ctx)
	assert.ErrorIs(t, err, repository.ErrNotCached)

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	order := engagement.OrderRef{ID: 42, Client: "Padaria São João", Address: "Rua A, 10", Status: model.OrderStatusInField}
	e, err := engagement.NewEngagement(7, order, start)
	require.NoError(t, err)
	require.NoError(t, cache.Save(ctx, e))

	found, err := cache.FindByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, order, found.Order())
	assert.Equal(t, model.StageInspection, found.Stage())
	assert.True(t, start.Equal(found.StartedAt()))

	// Local advance persists
	_, err = e.AdvanceStage()
	require.NoError(t, err)
	require.NoError(t, cache.Save(ctx, e))

	active, err := cache.FindActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), active.ID())
	assert.Equal(t, model.StageDiagnosis, active.Stage())

	// Completed engagements are not active
	require.NoError(t, e.Complete(start.Add(time.Hour)))
	require.NoError(t, cache.Save(ctx, e))

	_, err = cache.FindActive(ctx)
	assert.ErrorIs(t, err, repository.ErrNotCached)

	closed, err := cache.FindByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, model.EngagementCompleted, closed.Status())
	require.NotNil(t, closed.EndedAt())
	assert.True(t, start.Add(time.Hour).Equal(*closed.EndedAt()))
}

func TestEngagementCache_FindActivePicksLatest(t *testing.T) {
	db := setupTestDB(t)
	cache := NewEngagementCache(db)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, offset := range []time.Duration{0, 2 * time.Hour, time.Hour} {
		e, err := engagement.NewEngagement(int64(i+1), engagement.OrderRef{ID: int64(100 + i)}, base.Add(offset))
		require.NoError(t, err)
		require.NoError(t, cache.Save(ctx, e))
	}

	active, err := cache.FindActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active.ID())
}

func TestEngagementCache_ReplaceRecords(t *testing.T) {
	db := setupTestDB(t)
	cache := NewEngagementCache(db)
	ctx := context.Background()

	at := func(m int) time.Time { return time.Date(2025, 3, 1, 9, m, 0, 0, time.UTC) }
	records := []engagement.StageRecord{
		{ID: 2, EngagementID: 7, Stage: model.StageDiagnosis, Description: "bomba travada", CreatedAt: at(10)},
		{ID: 1, EngagementID: 7, Stage: model.StageInspection, Description: "chegada", Photo: "data:image/jpeg;base64,AA==", CreatedAt: at(0)},
	}
	require.NoError(t, cache.ReplaceRecords(ctx, 7, records))

	got, err := cache.Records(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.True(t, got[0].HasPhoto())
	assert.Equal(t, model.StageDiagnosis, got[1].Stage)
	assert.True(t, at(10).Equal(got[1].CreatedAt))

	// Replace, not append
	require.NoError(t, cache.ReplaceRecords(ctx, 7, records[:1]))
	got, err = cache.Records(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	empty, err := cache.Records(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHistoryRepository_Snapshot(t *testing.T) {
	db := setupTestDB(t)
	repo := NewHistoryRepository(db)
	ctx := context.Background()

	_, err := repo.LatestSnapshot(ctx)
	assert.ErrorIs(t, err, repository.ErrNotCached)

	started := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	first := &repository.HistorySnapshot{
		FetchedAt: started.Add(time.Hour),
		Entries: []engagement.Summary{
			{ID: 7, OrderID: 42, Client: "ACME", Stage: model.StageQuote, Status: model.EngagementInProgress, StartedAt: &started},
		},
	}
	require.NoError(t, repo.SaveSnapshot(ctx, first))
	require.NoError(t, repo.SaveSnapshot(ctx, &repository.HistorySnapshot{FetchedAt: started.Add(2 * time.Hour)}))

	latest, err := repo.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, started.Add(2*time.Hour).Equal(latest.FetchedAt))
	assert.Empty(t, latest.Entries)

	require.NoError(t, repo.SaveSnapshot(ctx, first))
	latest, err = repo.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, latest.Entries, 1)
	assert.Equal(t, "ACME", latest.Entries[0].Client)
	require.NotNil(t, latest.Entries[0].StartedAt)
	assert.True(t, started.Equal(*latest.Entries[0].StartedAt))
}
