package orders

import (
	"context"
	"fmt"

	"github.com/fieldsvc/fieldsvc/internal/application/dto"
	"github.com/fieldsvc/fieldsvc/internal/application/port/input"
	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/order"
)

var _ input.OrdersUseCase = (*Directory)(nil)

// ActiveSource returns the technician's active engagement, or nil
type ActiveSource interface {
	GetActive(ctx context.Context) (*engagement.Engagement, error)
}

// Identity knows who is logged in; 0 means unknown
type Identity interface {
	TechnicianID() int64
}

// Directory lists the service orders a technician can pick from
type Directory struct {
	backend  output.BackendGateway
	active   ActiveSource
	identity Identity
}

// NewDirectory creates an order directory
func NewDirectory(backend output.BackendGateway, active ActiveSource, identity Identity) *Directory {
	return &Directory{backend: backend, active: active, identity: identity}
}

// Browse lists open orders. Unless all is set, orders that cannot be
// started alongside the active engagement are hidden. query narrows the
// result by client or address.
func (d *Directory) Browse(ctx context.Context, all bool, query string) (*dto.OrdersView, error) {
	orders, err := d.backend.ListOpenOrders(ctx)
	if err != nil {
		return nil, err
	}
	active, err := d.active.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	offered := orders
	if !all {
		var techID int64
		if d.identity != nil {
			techID = d.identity.TechnicianID()
		}
		offered = order.Offerable(orders, active, techID)
	}

	view := &dto.OrdersView{
		Orders: order.Search(offered, query),
		Active: dto.NewEngagementDTO(active),
		Hidden: len(orders) - len(offered),
	}
	switch {
	case active == nil:
	case !engagement.CanStartNew(active):
		view.Note = fmt.Sprintf("Engagement %d is in %s; finalize it before starting another order.", active.ID(), active.Stage().Label())
	default:
		view.Note = fmt.Sprintf("Engagement %d is in progress (%s).", active.ID(), active.Stage().Label())
	}
	return view, nil
}
