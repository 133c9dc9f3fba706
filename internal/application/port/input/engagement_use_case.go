package input

import (
	"context"

	"github.com/fieldsvc/fieldsvc/internal/application/dto"
	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
)

// EngagementUseCase drives one engagement through its stages
type EngagementUseCase interface {
	// Start begins an engagement; ConflictError carries the active one
	Start(ctx context.Context, req dto.StartRequest) (*dto.StartResult, error)

	// Advance records the current stage without moving it
	Advance(ctx context.Context, req dto.AdvanceRequest) (*engagement.StageRecord, error)

	// Next moves the cached stage forward; ErrNoNextStage at the end
	Next(ctx context.Context, engagementID int64) (*dto.NextResult, error)

	// Finalize closes the engagement
	Finalize(ctx context.Context, req dto.FinalizeRequest) error

	// GetActive returns nil, nil when there is no active engagement
	GetActive(ctx context.Context) (*engagement.Engagement, error)

	// Stages returns the stage trail
	Stages(ctx context.Context, engagementID int64) ([]engagement.StageRecord, error)

	// Resume loads the active engagement and its trail
	Resume(ctx context.Context) (*dto.ResumeResult, error)

	// Show loads any engagement and its trail
	Show(ctx context.Context, engagementID int64) (*dto.ResumeResult, error)

	// Evidence lists the archived photos of an engagement
	Evidence(ctx context.Context, engagementID int64) ([]*output.EvidenceMetadata, error)

	// EvidencePhoto loads one archived photo
	EvidencePhoto(ctx context.Context, evidenceID string) (*output.Evidence, error)
}

// OrdersUseCase lists service orders
type OrdersUseCase interface {
	// Browse lists orders; all=false applies the active-engagement filter
	Browse(ctx context.Context, all bool, query string) (*dto.OrdersView, error)
}

// HistoryUseCase reads engagement history
type HistoryUseCase interface {
	List(ctx context.Context) (*dto.HistoryView, error)
	Offline(ctx context.Context) (*dto.HistoryView, error)
	Mine(ctx context.Context) (*dto.HistoryView, error)
}

// AuthUseCase manages the session
type AuthUseCase interface {
	Login(ctx context.Context, req dto.LoginRequest) error
	Logout(ctx context.Context) error
}
