// Package backend implements output.BackendGateway over the field-service
// REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/order"
	"github.com/fieldsvc/fieldsvc/internal/pkg/ids"
)

const (
	apiPrefix = "/api"

	headerRequestID   = "X-Request-ID"
	headerIdempotency = "Idempotency-Key"

	// maxErrorBody bounds how much of an error response is read
	maxErrorBody = 64 << 10
)

// TokenStore is the session the client reads the bearer token from
type TokenStore interface {
	Token() string
	Clear() error
}

// Client talks to the backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    TokenStore
	logger     output.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the debug logger
func WithLogger(l output.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a backend client. baseURL has no /api suffix.
func NewClient(baseURL string, timeout time.Duration, session TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		session:    session,
		logger:     output.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ output.BackendGateway = (*Client)(nil)

// request describes one call
type request struct {
	op          string
	method      string
	path        string // relative to baseURL
	query       url.Values
	body        any
	auth        bool
	idempotent  bool // send an Idempotency-Key
	notFoundNil bool // 404 is an empty result
}

// do runs req and decodes a 2xx body into out. It reports false when the
// response was a 404 accepted as empty or a null body.
func (c *Client) do(ctx context.Context, req request, out any) (bool, error) {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return false, apperr.Wrap(apperr.KindTransport, req.op, fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return false, apperr.Wrap(apperr.KindTransport, req.op, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	requestID := ids.NewRequestID()
	httpReq.Header.Set(headerRequestID, requestID)
	if req.idempotent {
		httpReq.Header.Set(headerIdempotency, ids.NewIdempotencyKey())
	}
	if req.auth {
		token := ""
		if c.session != nil {
			token = c.session.Token()
		}
		if token == "" {
			return false, apperr.New(apperr.KindAuth, req.op, "not logged in")
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return false, apperr.Wrap(apperr.KindTransport, req.op, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("%s %s -> %d (%s, request %s)", req.method, req.path, resp.StatusCode, time.Since(start).Round(time.Millisecond), requestID)

	if resp.StatusCode == http.StatusNotFound && req.notFoundNil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	if kind, failed := apperr.FromStatus(resp.StatusCode); failed {
		detail := readDetail(resp.Body)
		if kind == apperr.KindAuth && c.session != nil {
			if err := c.session.Clear(); err != nil {
				c.logger.Warn("failed to clear session: %v", err)
			}
		}
		return false, &apperr.Error{Kind: kind, Op: req.op, Status: resp.StatusCode, Detail: detail}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, apperr.Wrap(apperr.KindTransport, req.op, fmt.Errorf("read response: %w", err))
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return false, apperr.Wrap(apperr.KindTransport, req.op, fmt.Errorf("decode response: %w", err))
	}
	return true, nil
}

// readDetail extracts the human-readable detail from an error body.
// The backend sends {"detail": "..."}, sometimes {"message": "..."};
// validation errors carry a list under detail.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return ""
	}
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}
	if len(body.Detail) > 0 {
		var s string
		if json.Unmarshal(body.Detail, &s) == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(body.Detail, &items) == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
		return string(body.Detail)
	}
	return body.Message
}

func idPath(format string, id int64) string {
	return apiPrefix + fmt.Sprintf(format, strconv.FormatInt(id, 10))
}

// Login exchanges credentials for a token. Credentials travel as query
// parameters, as the backend expects.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp wireLoginResponse
	ok, err := c.do(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   apiPrefix + "/login",
		query:  url.Values{"email": {email}, "senha": {password}},
	}, &resp)
	if err != nil {
		return "", err
	}
	if !ok || resp.Token == "" {
		return "", apperr.Wrap(apperr.KindTransport, "login", errors.New("response has no token"))
	}
	return resp.Token, nil
}

// ListOpenOrders returns the open service orders
func (c *Client) ListOpenOrders(ctx context.Context) ([]order.ServiceOrder, error) {
	var resp []wireOrder
	if _, err := c.do(ctx, request{
		op:     "list orders",
		method: http.MethodGet,
		path:   apiPrefix + "/os/abertas",
		auth:   true,
	}, &resp); err != nil {
		return nil, err
	}
	orders := make([]order.ServiceOrder, 0, len(resp))
	for _, w := range resp {
		orders = append(orders, w.toModel())
	}
	return orders, nil
}

// StartEngagement starts work on an order
func (c *Client) StartEngagement(ctx context.Context, orderID int64, at model.Coordinates) (*output.StartedEngagement, error) {
	var resp wireStartResponse
	ok, err := c.do(ctx, request{
		op:         "start engagement",
		method:     http.MethodPost,
		path:       idPath("/os/%s/iniciar", orderID),
		body:       wireStartRequest{Latitude: at.Latitude, Longitude: at.Longitude},
		auth:       true,
		idempotent: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !ok || resp.ID <= 0 {
		return nil, apperr.Wrap(apperr.KindTransport, "start engagement", errors.New("response has no engagement id"))
	}
	return &output.StartedEngagement{ID: resp.ID, Message: resp.Message}, nil
}

// GetActiveEngagement returns the technician's in-progress engagement.
// 404 and a null body both mean there is none.
func (c *Client) GetActiveEngagement(ctx context.Context) (*engagement.Engagement, error) {
	var resp wireEngagement
	ok, err := c.do(ctx, request{
		op:          "get active engagement",
		method:      http.MethodGet,
		path:        apiPrefix + "/atendimento/ativo",
		auth:        true,
		notFoundNil: true,
	}, &resp)
	if err != nil || !ok || resp.ID <= 0 {
		return nil, err
	}
	return resp.toModel(), nil
}

// RecordStage posts a stage record
func (c *Client) RecordStage(ctx context.Context, engagementID int64, in output.RecordStageInput) (*output.RecordedStage, error) {
	var resp wireStageResponse
	if _, err := c.do(ctx, request{
		op:     "record stage",
		method: http.MethodPost,
		path:   idPath("/atendimento/%s/etapa", engagementID),
		body: wireStageRequest{
			Stage:       string(in.Stage),
			Description: in.Description,
			Photo:       in.Photo,
		},
		auth: true,
	}, &resp); err != nil {
		return nil, err
	}

	out := &output.RecordedStage{Stage: in.Stage}
	if resp.Stage != nil && model.Stage(*resp.Stage).IsValid() {
		out.Stage = model.Stage(*resp.Stage)
	}
	if resp.Message != nil {
		out.Message = *resp.Message
	}
	if resp.ID != nil && *resp.ID > 0 {
		rec := wireStageRecord{
			ID:          *resp.ID,
			Stage:       resp.Stage,
			Description: resp.Description,
			Photo:       resp.Photo,
			CreatedAt:   resp.CreatedAt,
		}.toModel(engagementID)
		out.Record = &rec
	}
	return out, nil
}

// ListStageRecords returns the stage trail in backend order
func (c *Client) ListStageRecords(ctx context.Context, engagementID int64) ([]engagement.StageRecord, error) {
	var resp []wireStageRecord
	if _, err := c.do(ctx, request{
		op:          "list stage records",
		method:      http.MethodGet,
		path:        idPath("/atendimento/%s/etapas", engagementID),
		auth:        true,
		notFoundNil: true,
	}, &resp); err != nil {
		return nil, err
	}
	records := make([]engagement.StageRecord, 0, len(resp))
	for _, w := range resp {
		records = append(records, w.toModel(engagementID))
	}
	return records, nil
}

// FinalizeEngagement closes an engagement
func (c *Client) FinalizeEngagement(ctx context.Context, engagementID int64, in output.FinalizeInput) error {
	_, err := c.do(ctx, request{
		op:     "finalize engagement",
		method: http.MethodPost,
		path:   idPath("/atendimento/%s/finalizar", engagementID),
		body: wireFinalizeRequest{
			Observation: in.Observation,
			Latitude:    in.Location.Latitude,
			Longitude:   in.Location.Longitude,
			Photo:       in.Photo,
		},
		auth:       true,
		idempotent: true,
	}, nil)
	return err
}

// History returns the technician's engagements, newest first
func (c *Client) History(ctx context.Context) ([]engagement.Summary, error) {
	var resp []wireHistoryEntry
	if _, err := c.do(ctx, request{
		op:     "history",
		method: http.MethodGet,
		path:   apiPrefix + "/atendimentos/historico",
		auth:   true,
	}, &resp); err != nil {
		return nil, err
	}
	out := make([]engagement.Summary, 0, len(resp))
	for _, w := range resp {
		out = append(out, w.toModel())
	}
	return out, nil
}

// MyEngagements returns the technician's engagement summaries
func (c *Client) MyEngagements(ctx context.Context) ([]engagement.Summary, error) {
	var resp []wireMyEngagement
	if _, err := c.do(ctx, request{
		op:     "my engagements",
		method: http.MethodGet,
		path:   apiPrefix + "/tecnicos/meus-atendimentos",
		auth:   true,
	}, &resp); err != nil {
		return nil, err
	}
	out := make([]engagement.Summary, 0, len(resp))
	for _, w := range resp {
		out = append(out, w.toModel())
	}
	return out, nil
}

// Health queries /health, which lives outside /api
func (c *Client) Health(ctx context.Context) (*output.HealthStatus, error) {
	var resp output.HealthStatus
	ok, err := c.do(ctx, request{
		op:     "health",
		method: http.MethodGet,
		path:   "/health",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Wrap(apperr.KindTransport, "health", errors.New("empty response"))
	}
	return &resp, nil
}
