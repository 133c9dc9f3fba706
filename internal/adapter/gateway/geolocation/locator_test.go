package geolocation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/interface/external/locatecmd"
)

func shLocator(script string) *CommandLocator {
	return &CommandLocator{runner: locatecmd.Runner{Bin: "/bin/sh", Args: []string{"-c", script}}}
}

func TestCommandLocator(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   model.Coordinates
		kind   Kind // empty for success
	}{
		{"position", `echo '{"latitude": -23.55, "longitude": -46.63}'`, model.Coordinates{Latitude: -23.55, Longitude: -46.63}, ""},
		{"permission denied", `exit 77`, model.Coordinates{}, KindPermissionDenied},
		{"unavailable", `exit 69`, model.Coordinates{}, KindPositionUnavailable},
		{"other exit", `exit 1`, model.Coordinates{}, KindUnknown},
		{"garbage", `echo nope`, model.Coordinates{}, KindUnknown},
		{"missing fields", `echo '{}'`, model.Coordinates{}, KindPositionUnavailable},
		{"out of range", `echo '{"latitude": 123, "longitude": 0}'`, model.Coordinates{}, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := shLocator(tt.script).Locate(context.Background())
			if tt.kind == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			assert.Equal(t, tt.kind, KindOf(err))
			assert.True(t, got.IsZero())
		})
	}
}

func TestCommandLocator_MissingBinary(t *testing.T) {
	l, err := NewCommandLocator("/nonexistent/locate --json")
	require.NoError(t, err)
	_, err = l.Locate(context.Background())
	assert.Equal(t, KindPositionUnavailable, KindOf(err))

	_, err = NewCommandLocator("")
	assert.Error(t, err)
}

func TestAcquirer_Timeout(t *testing.T) {
	a := NewAcquirer(shLocator(`exec sleep 5`), 50*time.Millisecond, nil)

	start := time.Now()
	_, err := a.Acquire(context.Background())
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Less(t, time.Since(start), 3*time.Second)
}

type recordingLogger struct{ warnings []string }

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(format string, args ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}
func (l *recordingLogger) Error(string, ...interface{}) {}

func TestAcquirer_AcquireOrZero(t *testing.T) {
	log := &recordingLogger{}

	c := NewAcquirer(DisabledLocator{}, time.Second, log).AcquireOrZero(context.Background())
	assert.True(t, c.IsZero())
	require.Len(t, log.warnings, 1)
	assert.Contains(t, log.warnings[0], string(KindPositionUnavailable))

	fixed := model.Coordinates{Latitude: 1.5, Longitude: 2.5}
	c = NewAcquirer(StaticLocator{Coordinates: fixed}, 0, log).AcquireOrZero(context.Background())
	assert.Equal(t, fixed, c)
	assert.Len(t, log.warnings, 1)
}

type plainErrLocator struct{ err error }

func (l plainErrLocator) Locate(context.Context) (model.Coordinates, error) {
	return model.Coordinates{}, l.err
}

func TestAcquirer_ClassifiesPlainErrors(t *testing.T) {
	_, err := NewAcquirer(plainErrLocator{err: errors.New("boom")}, time.Second, nil).Acquire(context.Background())
	assert.Equal(t, KindUnknown, KindOf(err))

	_, err = NewAcquirer(plainErrLocator{err: context.DeadlineExceeded}, time.Second, nil).Acquire(context.Background())
	assert.Equal(t, KindTimeout, KindOf(err))
}
