package file_test

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsvc/fieldsvc/internal/infra/persistence/file"
)

func TestProcessLock_PerKey(t *testing.T) {
	fs := afero.NewMemMapFs()
	pl := file.NewProcessLock(fs, "/home/var/lock", time.Minute)

	assert.Equal(t, "/home/var/lock/finalize-12.lock", pl.Path("finalize:12"))

	release, ok, err := pl.TryLock("finalize:12")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = pl.TryLock("finalize:12")
	require.NoError(t, err)
	assert.False(t, ok, "same key is held")

	otherRelease, ok, err := pl.TryLock("start")
	require.NoError(t, err)
	assert.True(t, ok, "different key is independent")
	require.NoError(t, otherRelease())

	info, err := file.ReadLock(fs, pl.Path("finalize:12"))
	require.NoError(t, err)
	assert.Equal(t, "finalize:12", info.Owner)

	require.NoError(t, release())
	exists, err := afero.Exists(fs, pl.Path("finalize:12"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestProcessLock_DefaultTTL(t *testing.T) {
	fs := afero.NewMemMapFs()
	pl := file.NewProcessLock(fs, "/lock", 0)

	release, ok, err := pl.TryLock("start")
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	info, err := file.ReadLock(fs, pl.Path("start"))
	require.NoError(t, err)
	acquired, err := time.Parse(time.RFC3339, info.AcquiredAt)
	require.NoError(t, err)
	expires, err := time.Parse(time.RFC3339, info.ExpiresAt)
	require.NoError(t, err)
	assert.Equal(t, file.DefaultLockTTL, expires.Sub(acquired))
}
