package order

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
)

// ServiceOrder is a unit of assignable field work. Owned by the backend.
type ServiceOrder struct {
	ID           int64             `json:"id"`
	Client       string            `json:"client"`
	Address      string            `json:"address"`
	Status       model.OrderStatus `json:"status"`
	TechnicianID *int64            `json:"technician_id,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Observation  string            `json:"observation,omitempty"`
}

// AssignedTo reports whether the order is assigned to the given technician
func (o ServiceOrder) AssignedTo(technicianID int64) bool {
	return o.TechnicianID != nil && *o.TechnicianID == technicianID
}

// Offerable filters the orders a technician may start next.
//
//   - no active engagement: every order
//   - active engagement at EXECUTION or later: none
//   - otherwise: orders in the field with another technician are hidden
//
// technicianID 0 means unknown; then every in-field order other than the
// active engagement's own is hidden.
func Offerable(orders []ServiceOrder, active *engagement.Engagement, technicianID int64) []ServiceOrder {
	if active == nil {
		return orders
	}
	if !active.Stage().Before(model.StageExecution) {
		return []ServiceOrder{}
	}

	out := make([]ServiceOrder, 0, len(orders))
	for _, o := range orders {
		if o.Status == model.OrderStatusInField && o.ID != active.Order().ID {
			if technicianID == 0 || !o.AssignedTo(technicianID) {
				continue
			}
		}
		out = append(out, o)
	}
	return out
}

// Search returns the orders whose client or address contains query,
// ignoring case and accents ("sao joao" matches "São João").
func Search(orders []ServiceOrder, query string) []ServiceOrder {
	q := fold(query)
	if q == "" {
		return orders
	}
	out := make([]ServiceOrder, 0, len(orders))
	for _, o := range orders {
		if strings.Contains(fold(o.Client), q) || strings.Contains(fold(o.Address), q) {
			out = append(out, o)
		}
	}
	return out
}

// fold strips diacritics and lowercases
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
