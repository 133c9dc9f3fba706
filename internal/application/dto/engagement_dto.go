package dto

import (
	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
)

// MaxDescriptionLength bounds stage notes and finalize observations
const MaxDescriptionLength = 4000

// CoordinatesDTO is a validated location input
type CoordinatesDTO struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// ToModel converts to the domain value
func (c CoordinatesDTO) ToModel() model.Coordinates {
	return model.Coordinates{Latitude: c.Latitude, Longitude: c.Longitude}
}

// StartRequest starts an engagement on a service order
type StartRequest struct {
	OrderID     int64          `json:"order_id" validate:"gt=0"`
	Coordinates CoordinatesDTO `json:"coordinates"`
}

// AdvanceRequest records work done at the current stage
type AdvanceRequest struct {
	EngagementID int64  `json:"engagement_id" validate:"gt=0"`
	Description  string `json:"description" validate:"required,max=4000"`
	PhotoPath    string `json:"photo_path,omitempty"`
}

// FinalizeRequest closes an engagement
type FinalizeRequest struct {
	EngagementID int64          `json:"engagement_id" validate:"gt=0"`
	Observation  string         `json:"observation" validate:"max=4000"`
	Coordinates  CoordinatesDTO `json:"coordinates"`
	PhotoPath    string         `json:"photo_path,omitempty"`
}

// LoginRequest exchanges credentials for a token
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"-" validate:"required"`
}

// EngagementDTO is the presentation view of an engagement
type EngagementDTO struct {
	ID        int64                  `json:"id"`
	OrderID   int64                  `json:"order_id"`
	Client    string                 `json:"client"`
	Address   string                 `json:"address"`
	Stage     model.Stage            `json:"stage"`
	StageName string                 `json:"stage_name"`
	Status    model.EngagementStatus `json:"status"`
	StartedAt string                 `json:"started_at"`
	EndedAt   string                 `json:"ended_at,omitempty"`
	CanFinish bool                   `json:"can_finish"` // At the last stage
}

// NewEngagementDTO converts a domain engagement
func NewEngagementDTO(e *engagement.Engagement) *EngagementDTO {
	if e == nil {
		return nil
	}
	d := &EngagementDTO{
		ID:        e.ID(),
		OrderID:   e.Order().ID,
		Client:    e.Order().Client,
		Address:   e.Order().Address,
		Stage:     e.Stage(),
		StageName: e.Stage().Label(),
		Status:    e.Status(),
		CanFinish: e.Stage() == model.StageCompletion,
	}
	if !e.StartedAt().IsZero() {
		d.StartedAt = e.StartedAt().Format("2006-01-02T15:04:05Z07:00")
	}
	if e.EndedAt() != nil {
		d.EndedAt = e.EndedAt().Format("2006-01-02T15:04:05Z07:00")
	}
	return d
}

// StartResult is returned by a successful start
type StartResult struct {
	Engagement *engagement.Engagement
	Message    string
	Location   model.Coordinates
}

// NextResult is returned by a local stage move
type NextResult struct {
	Previous model.Stage
	Current  model.Stage
}

// ResumeResult is the active engagement with its stage trail
type ResumeResult struct {
	Engagement *engagement.Engagement
	Records    []engagement.StageRecord
	Violation  *engagement.TrailViolation
	Offline    bool // Served from the local cache
}
