// Package geolocation acquires the device position for start and
// finalize. Every failure is classified and, through the Acquirer,
// downgraded to (0,0).
package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/interface/external/locatecmd"
)

// DefaultTimeout bounds how long a start or finalize waits for a position
const DefaultTimeout = 10 * time.Second

// Exit codes of the location command (sysexits.h)
const (
	ExitUnavailable      = 69 // EX_UNAVAILABLE
	ExitPermissionDenied = 77 // EX_NOPERM
)

// Kind classifies a location failure
type Kind string

const (
	KindPermissionDenied    Kind = "permission_denied"
	KindPositionUnavailable Kind = "position_unavailable"
	KindTimeout             Kind = "timeout"
	KindUnknown             Kind = "unknown"
)

// Error is a classified location failure
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geolocation %s: %v", e.Kind, e.Err)
	}
	return "geolocation " + string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a location error, KindUnknown otherwise
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CommandLocator runs an external command that prints
// {"latitude": .., "longitude": ..} on stdout
type CommandLocator struct {
	runner locatecmd.Runner
}

// NewCommandLocator parses the command line
func NewCommandLocator(command string) (*CommandLocator, error) {
	r, err := locatecmd.Parse(command, 0)
	if err != nil {
		return nil, err
	}
	return &CommandLocator{runner: r}, nil
}

var _ output.Locator = (*CommandLocator)(nil)

// Locate runs the command until ctx ends
func (l *CommandLocator) Locate(ctx context.Context) (model.Coordinates, error) {
	res, err := l.runner.Run(ctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return model.Coordinates{}, &Error{Kind: KindTimeout, Err: err}
	case errors.Is(err, locatecmd.ErrNotFound):
		return model.Coordinates{}, &Error{Kind: KindPositionUnavailable, Err: err}
	case err != nil:
		return model.Coordinates{}, &Error{Kind: KindUnknown, Err: err}
	}

	switch res.ExitCode {
	case 0:
	case ExitPermissionDenied:
		return model.Coordinates{}, &Error{Kind: KindPermissionDenied, Err: exitError(res)}
	case ExitUnavailable:
		return model.Coordinates{}, &Error{Kind: KindPositionUnavailable, Err: exitError(res)}
	default:
		return model.Coordinates{}, &Error{Kind: KindUnknown, Err: exitError(res)}
	}

	var pos struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(res.Stdout, &pos); err != nil {
		return model.Coordinates{}, &Error{Kind: KindUnknown, Err: fmt.Errorf("parse position: %w", err)}
	}
	if pos.Latitude == nil || pos.Longitude == nil {
		return model.Coordinates{}, &Error{Kind: KindPositionUnavailable, Err: errors.New("position missing from output")}
	}
	c := model.Coordinates{Latitude: *pos.Latitude, Longitude: *pos.Longitude}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return model.Coordinates{}, &Error{Kind: KindUnknown, Err: fmt.Errorf("position out of range: %s", c)}
	}
	return c, nil
}

func exitError(res *locatecmd.Result) error {
	if res.Stderr != "" {
		return fmt.Errorf("exit status %d: %s", res.ExitCode, res.Stderr)
	}
	return fmt.Errorf("exit status %d", res.ExitCode)
}

// StaticLocator always reports the same coordinates
type StaticLocator struct {
	Coordinates model.Coordinates
}

// Locate returns the fixed coordinates
func (l StaticLocator) Locate(ctx context.Context) (model.Coordinates, error) {
	return l.Coordinates, nil
}

// DisabledLocator reports that no position source is configured
type DisabledLocator struct{}

// Locate always fails with KindPositionUnavailable
func (DisabledLocator) Locate(ctx context.Context) (model.Coordinates, error) {
	return model.Coordinates{}, &Error{Kind: KindPositionUnavailable, Err: errors.New("no location source configured")}
}

// Acquirer bounds a Locator with a timeout and falls back to (0,0)
type Acquirer struct {
	locator output.Locator
	timeout time.Duration
	logger  output.Logger
}

// NewAcquirer creates an acquirer; timeout <= 0 means DefaultTimeout
func NewAcquirer(locator output.Locator, timeout time.Duration, logger output.Logger) *Acquirer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Acquirer{locator: locator, timeout: timeout, logger: logger}
}

var _ output.PositionAcquirer = (*Acquirer)(nil)

// Acquire returns the position or a classified *Error
func (a *Acquirer) Acquire(ctx context.Context) (model.Coordinates, error) {
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	c, err := a.locator.Locate(cctx)
	if err == nil {
		return c, nil
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return model.Coordinates{}, gerr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.Coordinates{}, &Error{Kind: KindTimeout, Err: err}
	}
	return model.Coordinates{}, &Error{Kind: KindUnknown, Err: err}
}

// AcquireOrZero never fails: any error yields (0,0) and a warning
func (a *Acquirer) AcquireOrZero(ctx context.Context) model.Coordinates {
	c, err := a.Acquire(ctx)
	if err != nil {
		a.logger.Warn("location unavailable (%s), continuing with 0,0: %v", KindOf(err), err)
		return model.Coordinates{}
	}
	return c
}
