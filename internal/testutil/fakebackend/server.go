// Package fakebackend is an in-memory field-service backend served over
// httptest. It follows the production routes closely enough for gateway
// and command tests.
package fakebackend

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fieldsvc/fieldsvc/internal/domain/model"
)

// Secret signs the tokens issued by Login
var Secret = []byte("fakebackend-secret")

var stageOrder = []string{"INSPECAO", "DIAGNOSTICO", "ORCAMENTO", "APROVACAO", "EXECUCAO", "FINALIZACAO"}

func stageIndex(s string) int {
	for i, v := range stageOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// Order is a seeded service order
type Order struct {
	ID           int64
	Client       string
	Address      string
	Status       string
	TechnicianID *int64
}

type engagementRow struct {
	id           int64
	orderID      int64
	technicianID int64
	stage        string
	startedAt    time.Time
	endedAt      *time.Time
}

type recordRow struct {
	ID          int64  `json:"id"`
	Stage       string `json:"etapa"`
	Description string `json:"descricao"`
	Photo       string `json:"foto"`
	CreatedAt   string `json:"criado_em"`
}

// Request is a request the server received
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Server is the fake backend
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	users       map[string]user
	orders      map[int64]*Order
	engagements map[int64]*engagementRow
	records     map[int64][]recordRow
	nextID      int64
	now         func() time.Time
	requests    []Request

	startStatus    int
	healthDegraded bool
}

type user struct {
	id       int64
	password string
}

// New starts a fake backend; callers Close it
func New() *Server {
	s := &Server{
		users:       map[string]user{},
		orders:      map[int64]*Order{},
		engagements: map[int64]*engagementRow{},
		records:     map[int64][]recordRow{},
		nextID:      100,
		now:         func() time.Time { return time.Now().UTC() },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /api/login", s.login)
	mux.HandleFunc("GET /api/os/abertas", s.auth(s.listOrders))
	mux.HandleFunc("POST /api/os/{id}/iniciar", s.auth(s.start))
	mux.HandleFunc("GET /api/atendimento/ativo", s.auth(s.active))
	mux.HandleFunc("POST /api/atendimento/{id}/etapa", s.auth(s.recordStage))
	mux.HandleFunc("GET /api/atendimento/{id}/etapas", s.auth(s.listRecords))
	mux.HandleFunc("POST /api/atendimento/{id}/finalizar", s.auth(s.finalize))
	mux.HandleFunc("GET /api/atendimentos/historico", s.auth(s.history))
	mux.HandleFunc("GET /api/tecnicos/meus-atendimentos", s.auth(s.mine))

	s.Server = httptest.NewServer(s.capture(mux))
	return s
}

// AddTechnician registers credentials for technician id
func (s *Server) AddTechnician(id int64, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = user{id: id, password: password}
}

// AddOrder seeds an order; Status defaults to the open status
func (s *Server) AddOrder(o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Status == "" {
		o.Status = string(model.OrderStatusOpen)
	}
	s.orders[o.ID] = &o
}

// FailStarts makes every start fail with status; 0 restores normal behavior
func (s *Server) FailStarts(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startStatus = status
}

// SetDegraded makes /health report an unhealthy database
func (s *Server) SetDegraded(degraded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthDegraded = degraded
}

// TokenFor issues a valid token for technician id
func TokenFor(id int64, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(id, 10),
		"exp": time.Now().Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(Secret)
	if err != nil {
		panic(err)
	}
	return token
}

// Requests returns the requests received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request matching method and path
func (s *Server) LastRequest(method, path string) (Request, bool) {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Request{}, false
}

// OrderStatus returns the current status of an order
func (s *Server) OrderStatus(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		return o.Status
	}
	return ""
}

func (s *Server) capture(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, techID int64)

func (s *Server) auth(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return Secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			writeDetail(w, http.StatusUnauthorized, "Usuário não autorizado")
			return
		}
		sub, _ := token.Claims.GetSubject()
		id, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Usuário não autorizado")
			return
		}
		h(w, r, id)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil
}

func isoformat(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000")
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	degraded := s.healthDegraded
	s.mu.Unlock()
	db, status := "healthy", "healthy"
	if degraded {
		db, status = "unhealthy: connection refused", "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"timestamp":  isoformat(s.now()),
		"components": map[string]string{"database": db, "api": "healthy"},
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	email, password := r.URL.Query().Get("email"), r.URL.Query().Get("senha")
	s.mu.Lock()
	u, ok := s.users[email]
	s.mu.Unlock()
	if !ok || u.password != password {
		writeDetail(w, http.StatusUnauthorized, "Credenciais inválidas")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": TokenFor(u.id, time.Hour)})
}

func (s *Server) listOrders(w http.ResponseWriter, _ *http.Request, _ int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.orders))
	for _, o := range s.sortedOrders() {
		if o.Status == string(model.OrderStatusCompleted) {
			continue
		}
		out = append(out, map[string]any{
			"id":         o.ID,
			"cliente":    o.Client,
			"endereco":   o.Address,
			"status":     o.Status,
			"tecnico_id": o.TechnicianID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) sortedOrders() []*Order {
	out := make([]*Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) start(w http.ResponseWriter, r *http.Request, techID int64) {
	id, ok := pathID(r)
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startStatus != 0 {
		writeDetail(w, s.startStatus, "Técnico já possui atendimento em andamento")
		return
	}
	o, ok := s.orders[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "OS não encontrada")
		return
	}
	if (o.Status == string(model.OrderStatusInService) || o.Status == string(model.OrderStatusInField)) && (o.TechnicianID == nil || *o.TechnicianID != techID) {
		writeDetail(w, http.StatusBadRequest, "Esta OS já está sendo atendida por outro técnico")
		return
	}
	for _, e := range s.engagements {
		if e.orderID == id && e.endedAt == nil {
			if e.technicianID != techID {
				writeDetail(w, http.StatusBadRequest, "Esta OS já possui um atendimento em andamento")
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": e.id, "mensagem": "Atendimento já existe"})
			return
		}
	}

	s.nextID++
	now := s.now()
	e := &engagementRow{id: s.nextID, orderID: id, technicianID: techID, stage: "INSPECAO", startedAt: now}
	s.engagements[e.id] = e
	o.Status = string(model.OrderStatusInService)
	o.TechnicianID = &techID
	s.appendRecordLocked(e.id, "INSPECAO", "Início do atendimento", "")

	writeJSON(w, http.StatusOK, map[string]any{"id": e.id, "mensagem": "Atendimento iniciado com sucesso"})
}

func (s *Server) appendRecordLocked(engagementID int64, stage, description, photo string) recordRow {
	s.nextID++
	rec := recordRow{ID: s.nextID, Stage: stage, Description: description, Photo: photo, CreatedAt: isoformat(s.now())}
	s.records[engagementID] = append(s.records[engagementID], rec)
	return rec
}

func (s *Server) activeLocked(techID int64) *engagementRow {
	var found *engagementRow
	for _, e := range s.engagements {
		if e.technicianID == techID && e.endedAt == nil {
			if found == nil || e.id < found.id {
				found = e
			}
		}
	}
	return found
}

func (s *Server) active(w http.ResponseWriter, _ *http.Request, techID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.activeLocked(techID)
	if e == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	o := s.orders[e.orderID]
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    e.id,
		"etapa": e.stage,
		"os": map[string]any{
			"id":       o.ID,
			"cliente":  o.Client,
			"endereco": o.Address,
			"status":   o.Status,
		},
	})
}

func (s *Server) recordStage(w http.ResponseWriter, r *http.Request, techID int64) {
	id, _ := pathID(r)
	var in struct {
		Stage       string `json:"etapa"`
		Description string `json:"descricao"`
		Photo       string `json:"foto"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.engagements[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Atendimento não encontrado")
		return
	}
	if e.technicianID != techID {
		writeDetail(w, http.StatusForbidden, "Você não tem permissão para este atendimento")
		return
	}
	next := stageIndex(in.Stage)
	if next < 0 {
		writeDetail(w, http.StatusBadRequest, "Etapa inválida: "+in.Stage)
		return
	}
	if next < stageIndex(e.stage) {
		writeDetail(w, http.StatusBadRequest, "Não é possível voltar para "+in.Stage)
		return
	}

	e.stage = in.Stage
	s.appendRecordLocked(id, in.Stage, in.Description, in.Photo)
	o := s.orders[e.orderID]
	switch in.Stage {
	case "ORCAMENTO", "APROVACAO":
		o.Status = string(model.OrderStatusAwaiting)
	case "EXECUCAO":
		o.Status = string(model.OrderStatusInField)
	case "FINALIZACAO":
		now := s.now()
		e.endedAt = &now
		o.Status = string(model.OrderStatusCompleted)
	default:
		o.Status = string(model.OrderStatusInService)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"etapa":    in.Stage,
		"mensagem": "Etapa avançada para " + in.Stage,
	})
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request, _ int64) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.engagements[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Atendimento não encontrado")
		return
	}
	recs := s.records[id]
	if recs == nil {
		recs = []recordRow{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) finalize(w http.ResponseWriter, r *http.Request, techID int64) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.engagements[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Atendimento não encontrado")
		return
	}
	if e.technicianID != techID {
		writeDetail(w, http.StatusForbidden, "Você não tem permissão para este atendimento")
		return
	}
	if e.endedAt != nil {
		writeDetail(w, http.StatusConflict, "Atendimento já finalizado")
		return
	}
	now := s.now()
	e.endedAt = &now
	s.orders[e.orderID].Status = string(model.OrderStatusCompleted)
	writeJSON(w, http.StatusOK, map[string]any{"id": e.id, "mensagem": "Atendimento finalizado"})
}

func (s *Server) mineLocked(techID int64) []*engagementRow {
	out := []*engagementRow{}
	for _, e := range s.engagements {
		if e.technicianID == techID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].startedAt.Equal(out[j].startedAt) {
			return out[i].id > out[j].id
		}
		return out[i].startedAt.After(out[j].startedAt)
	})
	return out
}

func (s *Server) history(w http.ResponseWriter, _ *http.Request, techID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []map[string]any{}
	for _, e := range s.mineLocked(techID) {
		o := s.orders[e.orderID]
		status := "em_andamento"
		var end any
		if e.endedAt != nil {
			status = "concluido"
			end = isoformat(*e.endedAt)
		}
		recs := s.records[e.id]
		if recs == nil {
			recs = []recordRow{}
		}
		out = append(out, map[string]any{
			"id":          e.id,
			"os_id":       e.orderID,
			"cliente":     o.Client,
			"endereco":    o.Address,
			"etapa_atual": e.stage,
			"hora_inicio": isoformat(e.startedAt),
			"hora_fim":    end,
			"status":      status,
			"etapas":      recs,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) mine(w http.ResponseWriter, _ *http.Request, techID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []map[string]any{}
	for _, e := range s.mineLocked(techID) {
		o := s.orders[e.orderID]
		var end any
		if e.endedAt != nil {
			end = isoformat(*e.endedAt)
		}
		out = append(out, map[string]any{
			"id":          e.id,
			"os_id":       e.orderID,
			"cliente":     o.Client,
			"etapa":       e.stage,
			"status_os":   o.Status,
			"hora_inicio": isoformat(e.startedAt),
			"hora_fim":    end,
			"ativo":       e.endedAt == nil,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
