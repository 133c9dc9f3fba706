// Package ids generates the identifiers the client attaches to journal
// records and outgoing requests.
package ids

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a lexically sortable id for the given time
// Format: ULID (e.g., 01JB6X8Y2K9FQR4T3VWHGP5M2C)
func NewULID(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), entropy).String()
}

// NewRequestID returns a ULID for the X-Request-ID header
func NewRequestID() string {
	return NewULID(time.Now())
}

// NewIdempotencyKey returns a random UUID for the Idempotency-Key header
func NewIdempotencyKey() string {
	return uuid.NewString()
}
