package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
)

func techID(v int64) *int64 { return &v }

func fixtureOrders() []ServiceOrder {
	return []ServiceOrder{
		{ID: 1, Client: "Padaria São João", Address: "Rua A, 10", Status: model.OrderStatusOpen},
		{ID: 2, Client: "Mercado Central", Address: "Av. Brasil, 200", Status: model.OrderStatusInField, TechnicianID: techID(9)},
		{ID: 3, Client: "Oficina Zé", Address: "Rua Ceará, 5", Status: model.OrderStatusInField, TechnicianID: techID(3)},
		{ID: 4, Client: "Hotel Praia", Address: "Orla, 1", Status: model.OrderStatusAwaiting, TechnicianID: techID(3)},
	}
}

func activeAt(stage model.Stage, orderID int64) *engagement.Engagement {
	return engagement.ReconstructEngagement(70, engagement.OrderRef{ID: orderID}, stage, model.EngagementInProgress, time.Now(), nil)
}

func ids(orders []ServiceOrder) []int64 {
	out := make([]int64, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestOfferable_NoActiveReturnsAll(t *testing.T) {
	got := Offerable(fixtureOrders(), nil, 3)
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(got))
}

func TestOfferable_ExecutionOffersNothing(t *testing.T) {
	for _, s := range []model.Stage{model.StageExecution, model.StageCompletion} {
		got := Offerable(fixtureOrders(), activeAt(s, 4), 3)
		assert.Empty(t, got, "stage %s", s)
	}
}

func TestOfferable_EarlyStageHidesOthersInField(t *testing.T) {
	got := Offerable(fixtureOrders(), activeAt(model.StageQuote, 4), 3)
	assert.Equal(t, []int64{1, 3, 4}, ids(got))

	// Unknown technician: only the active engagement's own in-field order survives
	got = Offerable(fixtureOrders(), activeAt(model.StageDiagnosis, 2), 0)
	assert.Equal(t, []int64{1, 2, 4}, ids(got))
}

func TestSearch_IgnoresCaseAndAccents(t *testing.T) {
	orders := fixtureOrders()

	assert.Equal(t, []int64{1}, ids(Search(orders, "sao joao")))
	assert.Equal(t, []int64{3}, ids(Search(orders, "CEARA")))
	assert.Equal(t, []int64{2}, ids(Search(orders, "brasil")))
	assert.Empty(t, Search(orders, "nowhere"))
	assert.Len(t, Search(orders, "  "), 4)
}
