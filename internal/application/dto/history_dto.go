package dto

import "github.com/fieldsvc/fieldsvc/internal/domain/model/order"

// Placeholders shown when the backend omits a field
const (
	PlaceholderClient  = "Client not provided"
	PlaceholderAddress = "Address not provided"
	PlaceholderStage   = "Stage not provided"
	PlaceholderTime    = "--"
	PlaceholderText    = "No description"
)

// HistoryRecordView is one stage record ready for display
type HistoryRecordView struct {
	Stage       string `json:"stage"`
	Description string `json:"description"`
	HasPhoto    bool   `json:"has_photo"`
	CreatedAt   string `json:"created_at"`
}

// HistoryEntryView is one engagement ready for display
type HistoryEntryView struct {
	ID        int64               `json:"id"`
	OrderID   int64               `json:"order_id"`
	Client    string              `json:"client"`
	Address   string              `json:"address"`
	Stage     string              `json:"stage"`
	Status    string              `json:"status"`
	Active    bool                `json:"active"`
	StartedAt string              `json:"started_at"`
	EndedAt   string              `json:"ended_at"`
	Records   []HistoryRecordView `json:"records"`
	Warning   string              `json:"warning,omitempty"` // Trail ordering problem
}

// HistoryGroup is the entries sharing one status
type HistoryGroup struct {
	Status  string             `json:"status"`
	Entries []HistoryEntryView `json:"entries"`
}

// HistoryView is the full history screen
type HistoryView struct {
	Empty        bool           `json:"empty"`
	EmptyMessage string         `json:"empty_message,omitempty"`
	Groups       []HistoryGroup `json:"groups"`
	Total        int            `json:"total"`
	Offline      bool           `json:"offline"`
	FetchedAt    string         `json:"fetched_at,omitempty"`
}

// OrdersView is the order directory screen
type OrdersView struct {
	Orders []order.ServiceOrder `json:"orders"`
	Active *EngagementDTO       `json:"active,omitempty"`
	Hidden int                  `json:"hidden"` // Orders filtered out by the active engagement
	Note   string               `json:"note,omitempty"`
}
