package backend

import (
	"strings"
	"time"

	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/order"
)

// Wire types mirror the backend's JSON. Fields the backend may send as
// null are pointers.

type wireOrder struct {
	ID          int64   `json:"id"`
	Client      *string `json:"cliente"`
	Address     *string `json:"endereco"`
	Status      *string `json:"status"`
	Technician  *int64  `json:"tecnico_id"`
	Phone       *string `json:"telefone"`
	Observation *string `json:"observacao"`
}

func (w wireOrder) toModel() order.ServiceOrder {
	return order.ServiceOrder{
		ID:           w.ID,
		Client:       deref(w.Client),
		Address:      deref(w.Address),
		Status:       model.OrderStatus(deref(w.Status)),
		TechnicianID: w.Technician,
		Phone:        deref(w.Phone),
		Observation:  deref(w.Observation),
	}
}

type wireOrderRef struct {
	ID      int64   `json:"id"`
	Client  *string `json:"cliente"`
	Address *string `json:"endereco"`
	Status  *string `json:"status"`
}

type wireEngagement struct {
	ID        int64         `json:"id"`
	Stage     *string       `json:"etapa"`
	Order     *wireOrderRef `json:"os"`
	Status    *string       `json:"status"`
	StartedAt *string       `json:"hora_inicio"`
	EndedAt   *string       `json:"hora_fim"`
}

func (w wireEngagement) toModel() *engagement.Engagement {
	var ref engagement.OrderRef
	if w.Order != nil {
		ref = engagement.OrderRef{
			ID:      w.Order.ID,
			Client:  deref(w.Order.Client),
			Address: deref(w.Order.Address),
			Status:  model.OrderStatus(deref(w.Order.Status)),
		}
	}
	stage := model.Stage(deref(w.Stage))
	if !stage.IsValid() {
		stage = model.FirstStage()
	}
	var started time.Time
	if t := parseTimePtr(w.StartedAt); t != nil {
		started = *t
	}
	return engagement.ReconstructEngagement(
		w.ID, ref, stage,
		model.EngagementStatus(deref(w.Status)),
		started, parseTimePtr(w.EndedAt),
	)
}

type wireStageRecord struct {
	ID          int64   `json:"id"`
	Stage       *string `json:"etapa"`
	Description *string `json:"descricao"`
	Photo       *string `json:"foto"`
	CreatedAt   *string `json:"criado_em"`
}

func (w wireStageRecord) toModel(engagementID int64) engagement.StageRecord {
	rec := engagement.StageRecord{
		ID:           w.ID,
		EngagementID: engagementID,
		Stage:        model.Stage(deref(w.Stage)),
		Description:  deref(w.Description),
		Photo:        deref(w.Photo),
	}
	if t := parseTimePtr(w.CreatedAt); t != nil {
		rec.CreatedAt = *t
	}
	return rec
}

type wireHistoryEntry struct {
	ID        int64             `json:"id"`
	OrderID   int64             `json:"os_id"`
	Client    *string           `json:"cliente"`
	Address   *string           `json:"endereco"`
	Stage     *string           `json:"etapa_atual"`
	StartedAt *string           `json:"hora_inicio"`
	EndedAt   *string           `json:"hora_fim"`
	Status    *string           `json:"status"`
	Records   []wireStageRecord `json:"etapas"`
}

func (w wireHistoryEntry) toModel() engagement.Summary {
	s := engagement.Summary{
		ID:        w.ID,
		OrderID:   w.OrderID,
		Client:    deref(w.Client),
		Address:   deref(w.Address),
		Stage:     model.Stage(deref(w.Stage)),
		Status:    model.EngagementStatus(deref(w.Status)),
		StartedAt: parseTimePtr(w.StartedAt),
		EndedAt:   parseTimePtr(w.EndedAt),
	}
	if w.Records != nil {
		s.Records = make([]engagement.StageRecord, 0, len(w.Records))
		for _, r := range w.Records {
			s.Records = append(s.Records, r.toModel(w.ID))
		}
	}
	return s
}

// wireMyEngagement is an item of /tecnicos/meus-atendimentos
type wireMyEngagement struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"os_id"`
	Client      *string `json:"cliente"`
	Stage       *string `json:"etapa"`
	OrderStatus *string `json:"status_os"`
	StartedAt   *string `json:"hora_inicio"`
	EndedAt     *string `json:"hora_fim"`
	Active      *bool   `json:"ativo"`
}

func (w wireMyEngagement) toModel() engagement.Summary {
	s := engagement.Summary{
		ID:        w.ID,
		OrderID:   w.OrderID,
		Client:    deref(w.Client),
		Stage:     model.Stage(deref(w.Stage)),
		StartedAt: parseTimePtr(w.StartedAt),
		EndedAt:   parseTimePtr(w.EndedAt),
	}
	switch {
	case w.Active != nil && *w.Active:
		s.Status = model.EngagementInProgress
	case w.Active != nil:
		s.Status = model.EngagementCompleted
	}
	return s
}

type wireStartRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type wireStartResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"mensagem"`
}

type wireStageRequest struct {
	Stage       string `json:"etapa"`
	Description string `json:"descricao"`
	Photo       string `json:"foto"`
}

// wireStageResponse covers both response shapes: a saved record, or
// {etapa, mensagem}
type wireStageResponse struct {
	ID          *int64  `json:"id"`
	Stage       *string `json:"etapa"`
	Description *string `json:"descricao"`
	Photo       *string `json:"foto"`
	CreatedAt   *string `json:"criado_em"`
	Message     *string `json:"mensagem"`
}

type wireFinalizeRequest struct {
	Observation string  `json:"observacao"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Photo       string  `json:"foto"`
}

type wireLoginResponse struct {
	Token string `json:"token"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// timeLayouts are tried in order. The backend emits naive UTC ISO-8601.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTime parses a backend timestamp; naive values are UTC
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, ok := parseTime(*s)
	if !ok {
		return nil
	}
	return &t
}
