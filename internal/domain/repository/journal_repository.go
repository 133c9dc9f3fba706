package repository

import "context"

// JournalRecord is one line of the action journal
type JournalRecord struct {
	ID           string `json:"id"`        // ULID
	Timestamp    string `json:"timestamp"` // UTC RFC3339Nano
	Operation    string `json:"operation"` // start, advance, next, finalize, login, ...
	EngagementID int64  `json:"engagement_id,omitempty"`
	OrderID      int64  `json:"order_id,omitempty"`
	Stage        string `json:"stage,omitempty"`
	Outcome      string `json:"outcome"` // ok, error, rejected
	ErrorKind    string `json:"error_kind,omitempty"`
	Error        string `json:"error,omitempty"`
	ElapsedMs    int64  `json:"elapsed_ms"`
}

// Journal outcomes
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected" // Refused locally before reaching the backend
)

// JournalRepository manages action journal persistence
type JournalRepository interface {
	// Append adds a new record to the journal
	Append(ctx context.Context, record *JournalRecord) error

	// Load retrieves all journal records, oldest first
	Load(ctx context.Context) ([]*JournalRecord, error)

	// Tail retrieves the last n records, oldest first
	Tail(ctx context.Context, n int) ([]*JournalRecord, error)

	// FindByEngagement retrieves records for one engagement
	FindByEngagement(ctx context.Context, engagementID int64) ([]*JournalRecord, error)
}
