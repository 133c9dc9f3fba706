package presenter_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fieldsvc/fieldsvc/internal/adapter/presenter"
	"github.com/fieldsvc/fieldsvc/internal/application/dto"
	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/order"
	"github.com/fieldsvc/fieldsvc/internal/domain/repository"
	"github.com/fieldsvc/fieldsvc/internal/validator/journal"
)

func TestCLIPresenter_PresentSuccess(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		data        interface{}
		wantContain []string
	}{
		{
			name:    "present engagement",
			message: "Engagement started",
			data: &dto.EngagementDTO{
				ID: 101, OrderID: 1, Client: "Padaria São João",
				StageName: "Completion", Status: model.EngagementInProgress, CanFinish: true,
			},
			wantContain: []string{"✓ Engagement started", "Engagement: 101", "Order: 1 (Padaria São João)", "Stage: Completion", "fieldsvc finalize"},
		},
		{
			name:    "present orders",
			message: "",
			data: &dto.OrdersView{
				Orders: []order.ServiceOrder{{ID: 7, Client: "Mercado Central", Address: "Av. Brasil", Status: model.OrderStatusOpen}},
				Hidden: 2,
				Note:   "Engagement 5 is in progress (Quote).",
			},
			wantContain: []string{"Engagement 5 is in progress", "Mercado Central", "open", "2 order(s) hidden"},
		},
		{
			name: "present empty history",
			data: &dto.HistoryView{Empty: true, EmptyMessage: "No engagements yet."},
			wantContain: []string{"No engagements yet."},
		},
		{
			name: "present history",
			data: &dto.HistoryView{
				Total: 1,
				Groups: []dto.HistoryGroup{{
					Status: "In progress",
					Entries: []dto.HistoryEntryView{{
						ID: 5, OrderID: 1, Client: "Padaria", Address: dto.PlaceholderAddress,
						Stage: "Quote", Status: "In progress", StartedAt: "01/03/2025 06:00", EndedAt: dto.PlaceholderTime,
						Records: []dto.HistoryRecordView{{Stage: "Inspection", Description: "Início", HasPhoto: true, CreatedAt: "01/03/2025 06:00"}},
						Warning: "stage record 2 goes back from Quote to Diagnosis",
					}},
				}},
			},
			wantContain: []string{"== In progress (1) ==", "#5  Order 1  Padaria", dto.PlaceholderAddress, "[photo]", "! stage record 2 goes back", "Total: 1"},
		},
		{
			name:        "present next",
			data:        &dto.NextResult{Previous: model.StageQuote, Current: model.StageApproval},
			wantContain: []string{"Stage: Quote → Approval"},
		},
		{
			name: "present journal",
			data: []*repository.JournalRecord{
				{Timestamp: "2025-03-01T09:00:00Z", Operation: "start", EngagementID: 101, Outcome: "ok", ElapsedMs: 12},
			},
			wantContain: []string{"OPERATION", "start", "101", "ok"},
		},
		{
			name:        "present health",
			data:        &output.HealthStatus{Status: "degraded", Components: map[string]string{"database": "unhealthy: timeout", "api": "healthy"}},
			wantContain: []string{"Backend: degraded", "database: unhealthy: timeout"},
		},
		{
			name: "present journal check",
			data: &journal.ValidationResult{
				File: "journal.ndjson",
				Lines: []journal.LineResult{{Line: 3, Issues: []journal.ValidationIssue{
					{Type: journal.IssueError, Field: "outcome", Message: "invalid outcome value: maybe"},
				}}},
				Summary: journal.Summary{Lines: 3, OK: 2, Error: 1},
			},
			wantContain: []string{"✗ line 3 outcome: invalid outcome value", "journal.ndjson: 3 line(s), 2 ok, 0 warn, 1 error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			p := presenter.NewCLIPresenter(buf)

			if err := p.PresentSuccess(tt.message, tt.data); err != nil {
				t.Fatalf("PresentSuccess() error = %v", err)
			}

			out := buf.String()
			for _, want := range tt.wantContain {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q\n%s", want, out)
				}
			}
		})
	}
}

func TestCLIPresenter_PresentError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		hint string
	}{
		{"auth", apperr.New(apperr.KindAuth, "list orders", "expired"), "fieldsvc login"},
		{"transport", apperr.Wrap(apperr.KindTransport, "history", errors.New("dial tcp: refused")), "try again"},
		{"conflict", apperr.New(apperr.KindConflict, "finalize engagement", "already finalized"), "fieldsvc active"},
		{"plain", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			p := presenter.NewCLIPresenter(buf)

			if err := p.PresentError(tt.err); !errors.Is(err, tt.err) {
				t.Errorf("PresentError() should return the error, got %v", err)
			}
			out := buf.String()
			if !strings.HasPrefix(out, "✗ Error: ") {
				t.Errorf("unexpected output %q", out)
			}
			if tt.hint != "" && !strings.Contains(out, tt.hint) {
				t.Errorf("output missing hint %q: %q", tt.hint, out)
			}
			if tt.hint == "" && strings.Count(out, "\n") != 1 {
				t.Errorf("expected no hint line: %q", out)
			}
		})
	}
}
