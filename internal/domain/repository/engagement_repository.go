package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
)

// ErrNotCached is returned when the local cache holds no entry
var ErrNotCached = errors.New("not in local cache")

// EngagementCache is the local, possibly stale copy of engagements and
// their stage trails. The backend stays authoritative; the cache carries
// the locally advanced stage between commands.
type EngagementCache interface {
	// Save inserts or replaces an engagement
	Save(ctx context.Context, e *engagement.Engagement) error

	// FindByID returns ErrNotCached when absent
	FindByID(ctx context.Context, id int64) (*engagement.Engagement, error)

	// FindActive returns the most recently started in-progress engagement,
	// or ErrNotCached
	FindActive(ctx context.Context) (*engagement.Engagement, error)

	// ReplaceRecords stores the full stage trail of an engagement
	ReplaceRecords(ctx context.Context, engagementID int64, records []engagement.StageRecord) error

	// Records returns the cached trail in creation order
	Records(ctx context.Context, engagementID int64) ([]engagement.StageRecord, error)
}

// HistorySnapshot is the last history listing fetched from the backend
type HistorySnapshot struct {
	FetchedAt time.Time
	Entries   []engagement.Summary
}

// HistoryRepository stores history snapshots for offline viewing
type HistoryRepository interface {
	// SaveSnapshot stores a snapshot, replacing older ones
	SaveSnapshot(ctx context.Context, snap *HistorySnapshot) error

	// LatestSnapshot returns ErrNotCached when nothing was stored
	LatestSnapshot(ctx context.Context) (*HistorySnapshot, error)
}
