package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/fieldsvc/fieldsvc/internal/domain/repository"
	"github.com/fieldsvc/fieldsvc/internal/infra/persistence/file"
	"github.com/fieldsvc/fieldsvc/internal/pkg/ids"
)

// Warner receives notices about skipped journal lines
type Warner interface {
	Warn(format string, args ...interface{})
}

// JournalRepositoryImpl implements repository.JournalRepository on an
// NDJSON file
type JournalRepositoryImpl struct {
	fs          afero.Fs
	journalPath string
	warn        Warner
}

// NewJournalRepositoryImpl creates a new NDJSON-based journal repository
func NewJournalRepositoryImpl(fs afero.Fs, journalPath string, warn Warner) *JournalRepositoryImpl {
	return &JournalRepositoryImpl{
		fs:          fs,
		journalPath: journalPath,
		warn:        warn,
	}
}

// Append adds a new record, filling in the id and timestamp when empty
func (r *JournalRepositoryImpl) Append(ctx context.Context, record *repository.JournalRecord) error {
	now := time.Now().UTC()
	if record.Timestamp == "" {
		record.Timestamp = now.Format(time.RFC3339Nano)
	}
	if record.ID == "" {
		record.ID = ids.NewULID(now)
	}

	if err := file.AppendNDJSONLine(r.fs, r.journalPath, record); err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}

// Load retrieves all journal records. Corrupted lines are skipped.
func (r *JournalRepositoryImpl) Load(ctx context.Context) ([]*repository.JournalRecord, error) {
	f, err := r.fs.Open(r.journalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []*repository.JournalRecord{}, nil
		}
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	defer f.Close()

	records := []*repository.JournalRecord{}
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec repository.JournalRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			if r.warn != nil {
				r.warn.Warn("skipping corrupted journal line %d: %v", lineNum, err)
			}
			continue
		}
		records = append(records, &rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}
	return records, nil
}

// Tail retrieves the last n records. n <= 0 returns everything.
func (r *JournalRepositoryImpl) Tail(ctx context.Context, n int) ([]*repository.JournalRecord, error) {
	all, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n >= len(all) {
		return all, nil
	}
	return all[len(all)-n:], nil
}

// FindByEngagement retrieves records for one engagement
func (r *JournalRepositoryImpl) FindByEngagement(ctx context.Context, engagementID int64) ([]*repository.JournalRecord, error) {
	all, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}

	result := []*repository.JournalRecord{}
	for _, rec := range all {
		if rec.EngagementID == engagementID {
			result = append(result, rec)
		}
	}
	return result, nil
}
