package service

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInFlight is returned when the same action is already being submitted
var ErrInFlight = errors.New("action already in progress")

// ProcessLock is a lock shared between fieldsvc processes
type ProcessLock interface {
	// TryLock returns ok=false without error when another process holds it
	TryLock(owner string) (release func() error, ok bool, err error)
}

// Guard rejects a second submission of an action while the first one is
// outstanding. Keys name the action, e.g. "start" or "finalize:12".
type Guard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
	proc     ProcessLock
}

// NewGuard creates a guard. proc may be nil for in-process protection only.
func NewGuard(proc ProcessLock) *Guard {
	return &Guard{
		inflight: make(map[string]struct{}),
		proc:     proc,
	}
}

// Do runs fn unless key is already in flight
func (g *Guard) Do(key string, fn func() error) error {
	return g.do(key, false, fn)
}

// DoExclusive is Do plus the cross-process lock
func (g *Guard) DoExclusive(key string, fn func() error) error {
	return g.do(key, true, fn)
}

func (g *Guard) do(key string, exclusive bool, fn func() error) error {
	g.mu.Lock()
	if _, busy := g.inflight[key]; busy {
		g.mu.Unlock()
		return fmt.Errorf("%s: %w", key, ErrInFlight)
	}
	g.inflight[key] = struct{}{}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.inflight, key)
		g.mu.Unlock()
	}()

	if exclusive && g.proc != nil {
		release, ok, err := g.proc.TryLock(key)
		if err != nil {
			return fmt.Errorf("acquire lock for %s: %w", key, err)
		}
		if !ok {
			return fmt.Errorf("%s (another fieldsvc process): %w", key, ErrInFlight)
		}
		defer release()
	}

	return fn()
}

// InFlight reports whether key is currently running in this process
func (g *Guard) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inflight[key]
	return busy
}

// Guard keys
const KeyStart = "start"

// KeyAdvance is the guard key for recording a stage of an engagement
func KeyAdvance(engagementID int64) string {
	return fmt.Sprintf("advance:%d", engagementID)
}

// KeyFinalize is the guard key for finalizing an engagement
func KeyFinalize(engagementID int64) string {
	return fmt.Sprintf("finalize:%d", engagementID)
}
