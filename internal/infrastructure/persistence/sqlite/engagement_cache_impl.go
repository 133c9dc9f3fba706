package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
	"github.com/fieldsvc/fieldsvc/internal/domain/repository"
)

// EngagementCacheImpl implements repository.EngagementCache with SQLite
type EngagementCacheImpl struct {
	db  *sql.DB
	now func() time.Time
}

// NewEngagementCache creates a new SQLite-based engagement cache
func NewEngagementCache(db *sql.DB) *EngagementCacheImpl {
	return &EngagementCacheImpl{db: db, now: time.Now}
}

var _ repository.EngagementCache = (*EngagementCacheImpl)(nil)

// Save inserts or replaces an engagement
func (r *EngagementCacheImpl) Save(ctx context.Context, e *engagement.Engagement) error {
	query := `
		INSERT INTO engagements (id, order_id, order_client, order_address, order_status,
		                         stage, status, started_at, ended_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			order_id = excluded.order_id,
			order_client = excluded.order_client,
			order_address = excluded.order_address,
			order_status = excluded.order_status,
			stage = excluded.stage,
			status = excluded.status,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			updated_at = excluded.updated_at
	`

	o := e.Order()
	_, err := r.db.ExecContext(ctx, query,
		e.ID(), o.ID, o.Client, o.Address, string(o.Status),
		string(e.Stage()), string(e.Status()),
		formatTime(e.StartedAt()), formatTimePtr(e.EndedAt()), formatTime(r.now()),
	)
	if err != nil {
		return fmt.Errorf("save engagement failed: %w", err)
	}
	return nil
}

// FindByID retrieves a cached engagement
func (r *EngagementCacheImpl) FindByID(ctx context.Context, id int64) (*engagement.Engagement, error) {
	query := `
		SELECT id, order_id, order_client, order_address, order_status,
		       stage, status, started_at, ended_at
		FROM engagements
		WHERE id = ?
	`
	return r.scanEngagement(r.db.QueryRowContext(ctx, query, id))
}

// FindActive retrieves the most recently started in-progress engagement
func (r *EngagementCacheImpl) FindActive(ctx context.Context) (*engagement.Engagement, error) {
	query := `
		SELECT id, order_id, order_client, order_address, order_status,
		       stage, status, started_at, ended_at
		FROM engagements
		WHERE status = ?
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`
	return r.scanEngagement(r.db.QueryRowContext(ctx, query, string(model.EngagementInProgress)))
}

// ReplaceRecords stores the full trail of an engagement in one transaction
func (r *EngagementCacheImpl) ReplaceRecords(ctx context.Context, engagementID int64, records []engagement.StageRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM stage_records WHERE engagement_id = ?", engagementID); err != nil {
		return fmt.Errorf("clear stage records failed: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stage_records (id, engagement_id, position, stage, description, photo, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert failed: %w", err)
	}
	defer stmt.Close()

	for i, rec := range engagement.SortTrail(records) {
		if _, err := stmt.ExecContext(ctx,
			rec.ID, engagementID, i, string(rec.Stage), rec.Description, rec.Photo, formatTime(rec.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert stage record failed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction failed: %w", err)
	}
	return nil
}

// Records returns the cached trail in creation order
func (r *EngagementCacheImpl) Records(ctx context.Context, engagementID int64) ([]engagement.StageRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, engagement_id, stage, description, photo, created_at
		FROM stage_records
		WHERE engagement_id = ?
		ORDER BY position
	`, engagementID)
	if err != nil {
		return nil, fmt.Errorf("query stage records failed: %w", err)
	}
	defer rows.Close()

	records := []engagement.StageRecord{}
	for rows.Next() {
		var (
			rec       engagement.StageRecord
			stage     string
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.EngagementID, &stage, &rec.Description, &rec.Photo, &createdAt); err != nil {
			return nil, fmt.Errorf("scan stage record failed: %w", err)
		}
		rec.Stage = model.Stage(stage)
		rec.CreatedAt = parseTime(createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage records failed: %w", err)
	}
	return records, nil
}

func (r *EngagementCacheImpl) scanEngagement(row *sql.Row) (*engagement.Engagement, error) {
	var (
		id, orderID                  int64
		client, address, orderStatus string
		stage, status, startedAt     string
		endedAt                      sql.NullString
	)
	err := row.Scan(&id, &orderID, &client, &address, &orderStatus, &stage, &status, &startedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("scan engagement failed: %w", err)
	}

	var ended *time.Time
	if endedAt.Valid && endedAt.String != "" {
		t := parseTime(endedAt.String)
		ended = &t
	}

	return engagement.ReconstructEngagement(
		id,
		engagement.OrderRef{ID: orderID, Client: client, Address: address, Status: model.OrderStatus(orderStatus)},
		model.Stage(stage),
		model.EngagementStatus(status),
		parseTime(startedAt),
		ended,
	), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
