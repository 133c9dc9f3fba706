package output

import (
	"context"

	"github.com/fieldsvc/fieldsvc/internal/domain/model"
)

// Locator acquires the device position. Implementations honor ctx
// cancellation and return *geolocation.Error values on failure.
type Locator interface {
	Locate(ctx context.Context) (model.Coordinates, error)
}

// PositionAcquirer wraps a Locator with the timeout and zero fallback used
// by start and finalize
type PositionAcquirer interface {
	AcquireOrZero(ctx context.Context) model.Coordinates
}
