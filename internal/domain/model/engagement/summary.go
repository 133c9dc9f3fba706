package engagement

import (
	"time"

	"github.com/fieldsvc/fieldsvc/internal/domain/model"
)

// Summary is a read-only view of a past or current engagement as returned
// by the history endpoints. Fields the backend omitted are left empty.
type Summary struct {
	ID        int64                  `json:"id"`
	OrderID   int64                  `json:"order_id"`
	Client    string                 `json:"client"`
	Address   string                 `json:"address"`
	Stage     model.Stage            `json:"stage"`
	Status    model.EngagementStatus `json:"status"`
	StartedAt *time.Time             `json:"started_at,omitempty"`
	EndedAt   *time.Time             `json:"ended_at,omitempty"`
	Records   []StageRecord          `json:"records"`
}

// IsActive reports whether the summarized engagement is in progress
func (s Summary) IsActive() bool {
	if s.Status.IsValid() {
		return s.Status == model.EngagementInProgress
	}
	return s.EndedAt == nil
}
