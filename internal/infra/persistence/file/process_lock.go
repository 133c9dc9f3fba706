package file

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// ProcessLock hands out one lock file per key inside a directory, so two
// fieldsvc processes cannot submit the same action at once
type ProcessLock struct {
	fs  afero.Fs
	dir string
	ttl time.Duration
}

// NewProcessLock creates a process lock rooted at dir (usually <home>/var/lock)
func NewProcessLock(fs afero.Fs, dir string, ttl time.Duration) *ProcessLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &ProcessLock{fs: fs, dir: dir, ttl: ttl}
}

// TryLock takes the lock file for key. ok is false when another live
// process holds it.
func (l *ProcessLock) TryLock(key string) (func() error, bool, error) {
	return AcquireLock(l.fs, l.Path(key), key, l.ttl)
}

// Path returns the lock file used for key
func (l *ProcessLock) Path(key string) string {
	name := strings.NewReplacer(":", "-", "/", "-", string(filepath.Separator), "-").Replace(key)
	return filepath.Join(l.dir, name+".lock")
}
