package engagement

import (
	"errors"
	"fmt"
	"time"

	"github.com/fieldsvc/fieldsvc/internal/domain/model"
)

var (
	// ErrNoNextStage is returned by AdvanceStage at the last stage; the
	// caller offers finalize instead.
	ErrNoNextStage = errors.New("no next stage: engagement is at the last stage, finalize it")

	// ErrClosed is returned when a completed or canceled engagement is mutated
	ErrClosed = errors.New("engagement is closed")
)

// OrderRef is the service-order summary embedded in an engagement
type OrderRef struct {
	ID      int64             `json:"id"`
	Client  string            `json:"client"`
	Address string            `json:"address"`
	Status  model.OrderStatus `json:"status"`
}

// Engagement is one technician's handling of a service order.
// The client holds a cached, possibly stale copy of the backend's record.
type Engagement struct {
	id        int64
	order     OrderRef
	stage     model.Stage
	status    model.EngagementStatus
	startedAt time.Time
	endedAt   *time.Time
}

// NewEngagement creates an engagement that was just started: first stage,
// in progress.
func NewEngagement(id int64, order OrderRef, startedAt time.Time) (*Engagement, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid engagement id: %d", id)
	}
	return &Engagement{
		id:        id,
		order:     order,
		stage:     model.FirstStage(),
		status:    model.EngagementInProgress,
		startedAt: startedAt,
	}, nil
}

// ReconstructEngagement rebuilds an engagement from stored or fetched data
func ReconstructEngagement(
	id int64,
	order OrderRef,
	stage model.Stage,
	status model.EngagementStatus,
	startedAt time.Time,
	endedAt *time.Time,
) *Engagement {
	if !status.IsValid() {
		status = model.EngagementInProgress
		if endedAt != nil {
			status = model.EngagementCompleted
		}
	}
	return &Engagement{
		id:        id,
		order:     order,
		stage:     stage,
		status:    status,
		startedAt: startedAt,
		endedAt:   endedAt,
	}
}

// ID returns the engagement ID
func (e *Engagement) ID() int64 {
	return e.id
}

// Order returns the service-order summary
func (e *Engagement) Order() OrderRef {
	return e.order
}

// Stage returns the current stage
func (e *Engagement) Stage() model.Stage {
	return e.stage
}

// Status returns the overall status
func (e *Engagement) Status() model.EngagementStatus {
	return e.status
}

// StartedAt returns the start timestamp
func (e *Engagement) StartedAt() time.Time {
	return e.startedAt
}

// EndedAt returns the end timestamp, nil while in progress
func (e *Engagement) EndedAt() *time.Time {
	return e.endedAt
}

// IsActive reports whether the engagement is in progress
func (e *Engagement) IsActive() bool {
	return e.status == model.EngagementInProgress
}

// AdvanceStage moves to the following stage. It never reaches the
// completed state; only Complete does.
func (e *Engagement) AdvanceStage() (model.Stage, error) {
	if !e.IsActive() {
		return e.stage, ErrClosed
	}
	next, ok := e.stage.Next()
	if !ok {
		return e.stage, ErrNoNextStage
	}
	e.stage = next
	return next, nil
}

// Reconcile merges a stage reported by the backend. Stage progression is
// local until the next record is posted, so the later of the two wins.
// It reports whether the stage moved.
func (e *Engagement) Reconcile(reported model.Stage) bool {
	if reported.IsValid() && e.stage.Before(reported) {
		e.stage = reported
		return true
	}
	return false
}

// Complete marks the engagement finalized
func (e *Engagement) Complete(at time.Time) error {
	if !e.IsActive() {
		return ErrClosed
	}
	e.status = model.EngagementCompleted
	e.endedAt = &at
	return nil
}

// CanStartNew reports whether a technician with the given active engagement
// may start another one. Only an engagement in EXECUTION blocks; the backend
// remains the authority and may still reject the start.
func CanStartNew(active *Engagement) bool {
	if active == nil {
		return true
	}
	return active.Stage() != model.StageExecution
}
