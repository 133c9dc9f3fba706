package locatecmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sh(script string, timeout time.Duration) Runner {
	return Runner{Bin: "/bin/sh", Args: []string{"-c", script}, Timeout: timeout}
}

func TestRunner_Success(t *testing.T) {
	res, err := sh(`echo '{"latitude": -23.5, "longitude": -46.6}'`, time.Second).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, string(res.Stdout), "latitude")
}

func TestRunner_ExitCode(t *testing.T) {
	res, err := sh(`echo denied >&2; exit 77`, time.Second).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 77, res.ExitCode)
	assert.Equal(t, "denied", res.Stderr)
}

func TestRunner_Timeout(t *testing.T) {
	_, err := sh(`exec sleep 5`, 50*time.Millisecond).Run(context.Background())
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestRunner_MissingBinary(t *testing.T) {
	_, err := Runner{Bin: "/nonexistent/fieldsvc-locate"}.Run(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParse(t *testing.T) {
	r, err := Parse("  termux-location -p gps  ", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "termux-location", r.Bin)
	assert.Equal(t, []string{"-p", "gps"}, r.Args)

	_, err = Parse("   ", time.Second)
	assert.Error(t, err)
}
