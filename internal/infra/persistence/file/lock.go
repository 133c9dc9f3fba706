package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/afero"
)

// DefaultLockTTL bounds how long a crashed process can hold a lock
const DefaultLockTTL = 2 * time.Minute

// LockInfo is the content of a lock file
type LockInfo struct {
	PID        int    `json:"pid"`
	Owner      string `json:"owner"`       // Operation holding the lock
	AcquiredAt string `json:"acquired_at"` // UTC RFC3339
	ExpiresAt  string `json:"expires_at"`  // UTC RFC3339
	Hostname   string `json:"hostname"`
}

// AcquireLock tries to take an exclusive lock file. It returns the release
// function and true on success, or false when another live holder owns it.
// An expired or corrupt lock, or one held by a dead process on this host,
// is taken over.
func AcquireLock(fs afero.Fs, lockPath, owner string, ttl time.Duration) (func() error, bool, error) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}

	now := time.Now().UTC()
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	info := LockInfo{
		PID:        os.Getpid(),
		Owner:      owner,
		AcquiredAt: now.Format(time.RFC3339),
		ExpiresAt:  now.Add(ttl).Format(time.RFC3339),
		Hostname:   hostname,
	}

	existing, err := ReadLock(fs, lockPath)
	switch {
	case err == nil:
		if !isLockExpired(existing, hostname) {
			return nil, false, nil
		}
		fs.Remove(lockPath)
	case !os.IsNotExist(err):
		// Unreadable lock content counts as expired
		fs.Remove(lockPath)
	}

	data, err := json.Marshal(info)
	if err != nil {
		return nil, false, fmt.Errorf("failed to serialize lock info: %w", err)
	}

	if err := fs.MkdirAll(parentDir(lockPath), 0o755); err != nil {
		return nil, false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := fs.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to create lock file: %w", err)
	}

	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if writeErr != nil {
		fs.Remove(lockPath)
		return nil, false, fmt.Errorf("failed to write lock data: %w", writeErr)
	}
	if closeErr != nil {
		fs.Remove(lockPath)
		return nil, false, fmt.Errorf("failed to close lock file: %w", closeErr)
	}

	release := func() error {
		err := fs.Remove(lockPath)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return release, true, nil
}

// ReadLock reads and parses a lock file
func ReadLock(fs afero.Fs, lockPath string) (*LockInfo, error) {
	data, err := afero.ReadFile(fs, lockPath)
	if err != nil {
		return nil, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func isLockExpired(info *LockInfo, hostname string) bool {
	expires, err := time.Parse(time.RFC3339, info.ExpiresAt)
	if err != nil {
		return true
	}
	if info.Hostname == hostname && !isProcessRunning(info.PID) {
		return true
	}
	return time.Now().UTC().After(expires)
}

func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 checks existence; EPERM still means the process exists
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if os.IsPathSeparator(path[i]) {
			if i == 0 {
				return path[:1]
			}
			return path[:i]
		}
	}
	return "."
}
