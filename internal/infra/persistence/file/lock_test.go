package file_test

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsvc/fieldsvc/internal/infra/persistence/file"
)

const lockPath = "/home/var/lock"

func TestAcquireLock_Exclusive(t *testing.T) {
	fs := afero.NewMemMapFs()

	release, ok, err := file.AcquireLock(fs, lockPath, "start", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	info, err := file.ReadLock(fs, lockPath)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), info.PID)
	assert.Equal(t, "start", info.Owner)

	// Held by a live process (this one): second attempt fails without error
	_, ok, err = file.AcquireLock(fs, lockPath, "finalize:7", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, release())
	require.NoError(t, release(), "release is idempotent")

	_, ok, err = file.AcquireLock(fs, lockPath, "finalize:7", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquireLock_TakesOverExpired(t *testing.T) {
	fs := afero.NewMemMapFs()
	stale := file.LockInfo{
		PID:        os.Getpid(),
		Owner:      "start",
		AcquiredAt: time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		ExpiresAt:  time.Now().Add(-time.Minute).UTC().Format(time.RFC3339),
		Hostname:   "elsewhere",
	}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, lockPath, data, 0o644))

	release, ok, err := file.AcquireLock(fs, lockPath, "start", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	info, err := file.ReadLock(fs, lockPath)
	require.NoError(t, err)
	assert.NotEqual(t, "elsewhere", info.Hostname)
}

func TestAcquireLock_CorruptFileIsExpired(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, lockPath, []byte("locked"), 0o644))

	release, ok, err := file.AcquireLock(fs, lockPath, "start", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, release())
}
