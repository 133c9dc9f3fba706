package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessLock struct {
	mu      sync.Mutex
	held    bool
	calls   []string
	failErr error
}

func (f *fakeProcessLock) TryLock(owner string) (func() error, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, owner)
	if f.failErr != nil {
		return nil, false, f.failErr
	}
	if f.held {
		return nil, false, nil
	}
	f.held = true
	return func() error {
		f.mu.Lock()
		f.held = false
		f.mu.Unlock()
		return nil
	}, true, nil
}

func TestGuard_RejectsConcurrentDuplicate(t *testing.T) {
	g := NewGuard(nil)
	entered := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		firstErr = g.Do(KeyFinalize(7), func() error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	assert.True(t, g.InFlight(KeyFinalize(7)))

	err := g.Do(KeyFinalize(7), func() error {
		t.Fatal("duplicate must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrInFlight)

	// Different key runs independently
	ran := false
	require.NoError(t, g.Do(KeyFinalize(8), func() error { ran = true; return nil }))
	assert.True(t, ran)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.False(t, g.InFlight(KeyFinalize(7)))

	// Key is free again after completion, even when fn failed
	boom := errors.New("boom")
	assert.ErrorIs(t, g.Do(KeyFinalize(7), func() error { return boom }), boom)
	assert.NoError(t, g.Do(KeyFinalize(7), func() error { return nil }))
}

func TestGuard_DoExclusiveUsesProcessLock(t *testing.T) {
	proc := &fakeProcessLock{}
	g := NewGuard(proc)

	require.NoError(t, g.DoExclusive(KeyStart, func() error { return nil }))
	assert.Equal(t, []string{KeyStart}, proc.calls)
	assert.False(t, proc.held, "lock released after fn")

	proc.held = true
	err := g.DoExclusive(KeyStart, func() error { return nil })
	assert.ErrorIs(t, err, ErrInFlight)
	assert.Contains(t, err.Error(), "another fieldsvc process")

	proc.held = false
	proc.failErr = errors.New("disk full")
	err = g.DoExclusive(KeyStart, func() error { return nil })
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInFlight)

	// Do never touches the process lock
	proc.failErr = nil
	proc.calls = nil
	require.NoError(t, g.Do(KeyAdvance(1), func() error { return nil }))
	assert.Empty(t, proc.calls)
}

func TestGuardKeys(t *testing.T) {
	assert.Equal(t, "advance:12", KeyAdvance(12))
	assert.Equal(t, "finalize:12", KeyFinalize(12))
}
