package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsvc/fieldsvc/internal/adapter/gateway/backend"
	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/order"
)

type staticActive struct {
	e   *engagement.Engagement
	err error
}

func (s staticActive) GetActive(context.Context) (*engagement.Engagement, error) { return s.e, s.err }

type techID int64

func (t techID) TechnicianID() int64 { return int64(t) }

func other(v int64) *int64 { return &v }

func fixtureGateway() *backend.MockBackendGateway {
	return backend.NewMockBackendGateway(
		order.ServiceOrder{ID: 1, Client: "Padaria São João", Address: "Rua A, 10", Status: model.OrderStatusOpen},
		order.ServiceOrder{ID: 2, Client: "Mercado Central", Address: "Av. Brasil, 200", Status: model.OrderStatusInField, TechnicianID: other(9)},
		order.ServiceOrder{ID: 3, Client: "Oficina Zé", Address: "Rua Ceará, 5", Status: model.OrderStatusOpen},
	)
}

func active(stage model.Stage) *engagement.Engagement {
	return engagement.ReconstructEngagement(70, engagement.OrderRef{ID: 3}, stage, model.EngagementInProgress, time.Now(), nil)
}

func TestBrowse(t *testing.T) {
	tests := []struct {
		name    string
		active  *engagement.Engagement
		all     bool
		query   string
		wantIDs []int64
		hidden  int
		note    string
	}{
		{"no active engagement", nil, false, "", []int64{1, 2, 3}, 0, ""},
		{"early stage hides others in field", active(model.StageQuote), false, "", []int64{1, 3}, 1, "in progress"},
		{"execution offers nothing", active(model.StageExecution), false, "", []int64{}, 3, "finalize it"},
		{"all ignores the filter", active(model.StageExecution), true, "", []int64{1, 2, 3}, 0, "finalize it"},
		{"search folds accents", nil, false, "ceara", []int64{3}, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDirectory(fixtureGateway(), staticActive{e: tt.active}, techID(3))
			view, err := d.Browse(context.Background(), tt.all, tt.query)
			require.NoError(t, err)

			got := make([]int64, 0, len(view.Orders))
			for _, o := range view.Orders {
				got = append(got, o.ID)
			}
			assert.Equal(t, tt.wantIDs, got)
			assert.Equal(t, tt.hidden, view.Hidden)
			if tt.note == "" {
				assert.Empty(t, view.Note)
			} else {
				assert.Contains(t, view.Note, tt.note)
			}
			assert.Equal(t, tt.active != nil, view.Active != nil)
		})
	}
}

func TestBrowse_Errors(t *testing.T) {
	gw := fixtureGateway()
	gw.SetFail("ListOpenOrders", apperr.New(apperr.KindAuth, "list orders", "expired"))
	_, err := NewDirectory(gw, staticActive{}, techID(3)).Browse(context.Background(), false, "")
	assert.ErrorIs(t, err, apperr.ErrAuth)

	_, err = NewDirectory(fixtureGateway(), staticActive{err: errors.New("boom")}, nil).Browse(context.Background(), false, "")
	assert.Error(t, err)
}
