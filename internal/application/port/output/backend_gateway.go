package output

import (
	"context"

	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/order"
)

// BackendGateway is the field-service REST backend.
// Failures are *apperr.Error values.
type BackendGateway interface {
	// Login exchanges credentials for a bearer token
	Login(ctx context.Context, email, password string) (string, error)

	// ListOpenOrders returns the orders offered to technicians
	ListOpenOrders(ctx context.Context) ([]order.ServiceOrder, error)

	// StartEngagement starts work on an order
	StartEngagement(ctx context.Context, orderID int64, at model.Coordinates) (*StartedEngagement, error)

	// GetActiveEngagement returns nil, nil when there is none
	GetActiveEngagement(ctx context.Context) (*engagement.Engagement, error)

	// RecordStage posts a stage record
	RecordStage(ctx context.Context, engagementID int64, req RecordStageInput) (*RecordedStage, error)

	// ListStageRecords returns the trail; 404 yields an empty slice
	ListStageRecords(ctx context.Context, engagementID int64) ([]engagement.StageRecord, error)

	// FinalizeEngagement closes an engagement
	FinalizeEngagement(ctx context.Context, engagementID int64, req FinalizeInput) error

	// History returns every engagement of the technician, newest first
	History(ctx context.Context) ([]engagement.Summary, error)

	// MyEngagements returns the technician's engagement summaries
	MyEngagements(ctx context.Context) ([]engagement.Summary, error)

	// Health reports backend status; it needs no token
	Health(ctx context.Context) (*HealthStatus, error)
}

// StartedEngagement is the start response
type StartedEngagement struct {
	ID      int64
	Message string
}

// RecordStageInput is the body of a stage record
type RecordStageInput struct {
	Stage       model.Stage
	Description string
	Photo       string // data URL, may be empty
}

// RecordedStage is the stage record response. The backend returns either
// the saved record or only the stage and a message.
type RecordedStage struct {
	Record  *engagement.StageRecord
	Stage   model.Stage
	Message string
}

// FinalizeInput is the body of a finalize call
type FinalizeInput struct {
	Observation string
	Location    model.Coordinates
	Photo       string
}

// HealthStatus is the health endpoint response
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}
