package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
	"github.com/fieldsvc/fieldsvc/internal/domain/repository"
)

// HistoryRepositoryImpl implements repository.HistoryRepository with SQLite.
// Only the latest snapshot is kept.
type HistoryRepositoryImpl struct {
	db *sql.DB
}

// NewHistoryRepository creates a new SQLite-based history repository
func NewHistoryRepository(db *sql.DB) *HistoryRepositoryImpl {
	return &HistoryRepositoryImpl{db: db}
}

var _ repository.HistoryRepository = (*HistoryRepositoryImpl)(nil)

// SaveSnapshot replaces the stored snapshot
func (r *HistoryRepositoryImpl) SaveSnapshot(ctx context.Context, snap *repository.HistorySnapshot) error {
	entries := snap.Entries
	if entries == nil {
		entries = []engagement.Summary{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal history failed: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM history_snapshots"); err != nil {
		return fmt.Errorf("clear history failed: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO history_snapshots (fetched_at, entries) VALUES (?, ?)",
		formatTime(snap.FetchedAt), string(data),
	); err != nil {
		return fmt.Errorf("save history failed: %w", err)
	}
	return tx.Commit()
}

// LatestSnapshot returns the stored snapshot or repository.ErrNotCached
func (r *HistoryRepositoryImpl) LatestSnapshot(ctx context.Context) (*repository.HistorySnapshot, error) {
	var fetchedAt, data string
	err := r.db.QueryRowContext(ctx,
		"SELECT fetched_at, entries FROM history_snapshots ORDER BY id DESC LIMIT 1",
	).Scan(&fetchedAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("load history failed: %w", err)
	}

	var entries []engagement.Summary
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, fmt.Errorf("unmarshal history failed: %w", err)
	}
	return &repository.HistorySnapshot{FetchedAt: parseTime(fetchedAt), Entries: entries}, nil
}
