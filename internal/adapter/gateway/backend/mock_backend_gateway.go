package backend

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/order"
)

// MockBackendGateway is an in-memory BackendGateway for a single
// technician. Errors set in Fail are returned by the named method.
type MockBackendGateway struct {
	mu sync.Mutex

	Orders      []order.ServiceOrder
	engagements map[int64]*mockEngagement
	nextID      int64
	calls       map[string]int

	// Fail maps a method name ("StartEngagement", ...) to the error it returns
	Fail map[string]error
	// ReturnRecords makes RecordStage answer with the saved record
	ReturnRecords bool
	// Token is what Login returns
	Token string
}

type mockEngagement struct {
	id        int64
	order     engagement.OrderRef
	stage     model.Stage
	startedAt time.Time
	endedAt   *time.Time
	records   []engagement.StageRecord
}

// NewMockBackendGateway creates a mock backend serving orders
func NewMockBackendGateway(orders ...order.ServiceOrder) *MockBackendGateway {
	return &MockBackendGateway{
		Orders:      orders,
		engagements: make(map[int64]*mockEngagement),
		nextID:      100,
		calls:       make(map[string]int),
		Fail:        make(map[string]error),
		Token:       "mock-token",
	}
}

var _ output.BackendGateway = (*MockBackendGateway)(nil)

// Calls returns how many times method was invoked
func (m *MockBackendGateway) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// SetFail sets or clears the injected error of method
func (m *MockBackendGateway) SetFail(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.Fail, method)
		return
	}
	m.Fail[method] = err
}

// BackendStage returns the stage the backend holds for an engagement
func (m *MockBackendGateway) BackendStage(id int64) model.Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.engagements[id]; ok {
		return e.stage
	}
	return ""
}

// Seed adds an engagement directly, bypassing start rules
func (m *MockBackendGateway) Seed(id int64, ref engagement.OrderRef, stage model.Stage, ended bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := &mockEngagement{id: id, order: ref, stage: stage, startedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	if ended {
		end := e.startedAt.Add(2 * time.Hour)
		e.endedAt = &end
	}
	m.engagements[id] = e
	if id > m.nextID {
		m.nextID = id
	}
}

// enter counts a call and returns its injected error. Callers hold mu.
func (m *MockBackendGateway) enter(method string) error {
	m.calls[method]++
	return m.Fail[method]
}

func statusErr(op string, status int, detail string) error {
	kind, _ := apperr.FromStatus(status)
	return &apperr.Error{Kind: kind, Op: op, Status: status, Detail: detail}
}

func (m *MockBackendGateway) activeLocked() *mockEngagement {
	var found *mockEngagement
	for _, e := range m.engagements {
		if e.endedAt == nil && (found == nil || e.id < found.id) {
			found = e
		}
	}
	return found
}

func (e *mockEngagement) toModel() *engagement.Engagement {
	return engagement.ReconstructEngagement(e.id, e.order, e.stage, "", e.startedAt, e.endedAt)
}

func (m *MockBackendGateway) Login(ctx context.Context, email, password string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Login"); err != nil {
		return "", err
	}
	return m.Token, nil
}

func (m *MockBackendGateway) ListOpenOrders(ctx context.Context) ([]order.ServiceOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListOpenOrders"); err != nil {
		return nil, err
	}
	return append([]order.ServiceOrder(nil), m.Orders...), nil
}

func (m *MockBackendGateway) StartEngagement(ctx context.Context, orderID int64, at model.Coordinates) (*output.StartedEngagement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("StartEngagement"); err != nil {
		return nil, err
	}

	var ref *engagement.OrderRef
	for _, o := range m.Orders {
		if o.ID == orderID {
			ref = &engagement.OrderRef{ID: o.ID, Client: o.Client, Address: o.Address, Status: model.OrderStatusInService}
		}
	}
	if ref == nil {
		return nil, statusErr("start engagement", http.StatusNotFound, "OS não encontrada")
	}
	if active := m.activeLocked(); active != nil {
		if active.order.ID == orderID {
			return &output.StartedEngagement{ID: active.id, Message: "Atendimento já existe"}, nil
		}
		if active.stage == model.StageExecution {
			return nil, statusErr("start engagement", http.StatusUnprocessableEntity, "Técnico já possui atendimento em andamento")
		}
	}

	m.nextID++
	e := &mockEngagement{id: m.nextID, order: *ref, stage: model.FirstStage(), startedAt: time.Now().UTC()}
	m.nextID++
	e.records = append(e.records, engagement.StageRecord{
		ID: m.nextID, EngagementID: e.id, Stage: model.FirstStage(),
		Description: "Início do atendimento", CreatedAt: e.startedAt,
	})
	m.engagements[e.id] = e
	return &output.StartedEngagement{ID: e.id, Message: "Atendimento iniciado com sucesso"}, nil
}

func (m *MockBackendGateway) GetActiveEngagement(ctx context.Context) (*engagement.Engagement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetActiveEngagement"); err != nil {
		return nil, err
	}
	if e := m.activeLocked(); e != nil {
		return e.toModel(), nil
	}
	return nil, nil
}

func (m *MockBackendGateway) RecordStage(ctx context.Context, engagementID int64, in output.RecordStageInput) (*output.RecordedStage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("RecordStage"); err != nil {
		return nil, err
	}

	e, ok := m.engagements[engagementID]
	if !ok {
		return nil, statusErr("record stage", http.StatusNotFound, "Atendimento não encontrado")
	}
	if !in.Stage.IsValid() {
		return nil, statusErr("record stage", http.StatusBadRequest, "Etapa inválida: "+string(in.Stage))
	}
	if in.Stage.Before(e.stage) {
		return nil, statusErr("record stage", http.StatusBadRequest, "Não é possível voltar para "+string(in.Stage))
	}

	e.stage = in.Stage
	m.nextID++
	rec := engagement.StageRecord{
		ID: m.nextID, EngagementID: e.id, Stage: in.Stage,
		Description: in.Description, Photo: in.Photo,
		CreatedAt: time.Now().UTC(),
	}
	e.records = append(e.records, rec)

	out := &output.RecordedStage{Stage: in.Stage, Message: fmt.Sprintf("Etapa avançada para %s", in.Stage)}
	if m.ReturnRecords {
		out.Record = &rec
	}
	return out, nil
}

func (m *MockBackendGateway) ListStageRecords(ctx context.Context, engagementID int64) ([]engagement.StageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListStageRecords"); err != nil {
		return nil, err
	}
	e, ok := m.engagements[engagementID]
	if !ok {
		return []engagement.StageRecord{}, nil
	}
	return append([]engagement.StageRecord(nil), e.records...), nil
}

func (m *MockBackendGateway) FinalizeEngagement(ctx context.Context, engagementID int64, in output.FinalizeInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FinalizeEngagement"); err != nil {
		return err
	}
	e, ok := m.engagements[engagementID]
	if !ok {
		return statusErr("finalize engagement", http.StatusNotFound, "Atendimento não encontrado")
	}
	if e.endedAt != nil {
		return statusErr("finalize engagement", http.StatusConflict, "Atendimento já finalizado")
	}
	now := time.Now().UTC()
	e.endedAt = &now
	return nil
}

func (m *MockBackendGateway) summariesLocked() []engagement.Summary {
	out := make([]engagement.Summary, 0, len(m.engagements))
	for _, e := range m.engagements {
		start := e.startedAt
		status := model.EngagementInProgress
		if e.endedAt != nil {
			status = model.EngagementCompleted
		}
		out = append(out, engagement.Summary{
			ID:        e.id,
			OrderID:   e.order.ID,
			Client:    e.order.Client,
			Address:   e.order.Address,
			Stage:     e.stage,
			Status:    status,
			StartedAt: &start,
			EndedAt:   e.endedAt,
			Records:   append([]engagement.StageRecord(nil), e.records...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *MockBackendGateway) History(ctx context.Context) ([]engagement.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("History"); err != nil {
		return nil, err
	}
	return m.summariesLocked(), nil
}

func (m *MockBackendGateway) MyEngagements(ctx context.Context) ([]engagement.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("MyEngagements"); err != nil {
		return nil, err
	}
	out := m.summariesLocked()
	for i := range out {
		out[i].Address = ""
		out[i].Records = nil
	}
	return out, nil
}

func (m *MockBackendGateway) Health(ctx context.Context) (*output.HealthStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Health"); err != nil {
		return nil, err
	}
	return &output.HealthStatus{Status: "healthy", Components: map[string]string{"database": "healthy", "api": "healthy"}}, nil
}
