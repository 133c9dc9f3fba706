package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
	"github.com/fieldsvc/fieldsvc/internal/domain/repository"
)

// MockEngagementCache is an in-memory EngagementCache
type MockEngagementCache struct {
	mu          sync.RWMutex
	engagements map[int64]*engagement.Engagement
	records     map[int64][]engagement.StageRecord

	// SaveErr, when set, is returned by Save
	SaveErr error
}

// NewMockEngagementCache creates a new mock engagement cache
func NewMockEngagementCache() *MockEngagementCache {
	return &MockEngagementCache{
		engagements: make(map[int64]*engagement.Engagement),
		records:     make(map[int64][]engagement.StageRecord),
	}
}

func clone(e *engagement.Engagement) *engagement.Engagement {
	var end *time.Time
	if e.EndedAt() != nil {
		t := *e.EndedAt()
		end = &t
	}
	return engagement.ReconstructEngagement(e.ID(), e.Order(), e.Stage(), e.Status(), e.StartedAt(), end)
}

func (m *MockEngagementCache) Save(ctx context.Context, e *engagement.Engagement) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.engagements[e.ID()] = clone(e)
	return nil
}

func (m *MockEngagementCache) FindByID(ctx context.Context, id int64) (*engagement.Engagement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.engagements[id]
	if !exists {
		return nil, fmt.Errorf("engagement %d: %w", id, repository.ErrNotCached)
	}
	return clone(e), nil
}

func (m *MockEngagementCache) FindActive(ctx context.Context) (*engagement.Engagement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *engagement.Engagement
	for _, e := range m.engagements {
		if !e.IsActive() {
			continue
		}
		if found == nil || e.StartedAt().After(found.StartedAt()) {
			found = e
		}
	}
	if found == nil {
		return nil, repository.ErrNotCached
	}
	return clone(found), nil
}

func (m *MockEngagementCache) ReplaceRecords(ctx context.Context, engagementID int64, records []engagement.StageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[engagementID] = append([]engagement.StageRecord(nil), records...)
	return nil
}

func (m *MockEngagementCache) Records(ctx context.Context, engagementID int64) ([]engagement.StageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]engagement.StageRecord(nil), m.records[engagementID]...), nil
}

// MockHistoryRepository is an in-memory HistoryRepository
type MockHistoryRepository struct {
	mu   sync.RWMutex
	snap *repository.HistorySnapshot
}

// NewMockHistoryRepository creates a new mock history repository
func NewMockHistoryRepository() *MockHistoryRepository {
	return &MockHistoryRepository{}
}

func (m *MockHistoryRepository) SaveSnapshot(ctx context.Context, snap *repository.HistorySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *snap
	cp.Entries = append([]engagement.Summary(nil), snap.Entries...)
	m.snap = &cp
	return nil
}

func (m *MockHistoryRepository) LatestSnapshot(ctx context.Context) (*repository.HistorySnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.snap == nil {
		return nil, repository.ErrNotCached
	}
	cp := *m.snap
	return &cp, nil
}

// MockJournalRepository is an in-memory JournalRepository
type MockJournalRepository struct {
	mu      sync.RWMutex
	records []*repository.JournalRecord
}

// NewMockJournalRepository creates a new mock journal repository
func NewMockJournalRepository() *MockJournalRepository {
	return &MockJournalRepository{}
}

func (m *MockJournalRepository) Append(ctx context.Context, record *repository.JournalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *record
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("J%04d", len(m.records)+1)
	}
	if cp.Timestamp == "" {
		cp.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	m.records = append(m.records, &cp)
	return nil
}

func (m *MockJournalRepository) Load(ctx context.Context) ([]*repository.JournalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]*repository.JournalRecord(nil), m.records...), nil
}

func (m *MockJournalRepository) Tail(ctx context.Context, n int) ([]*repository.JournalRecord, error) {
	all, _ := m.Load(ctx)
	if n <= 0 || n >= len(all) {
		return all, nil
	}
	return all[len(all)-n:], nil
}

func (m *MockJournalRepository) FindByEngagement(ctx context.Context, engagementID int64) ([]*repository.JournalRecord, error) {
	all, _ := m.Load(ctx)
	var out []*repository.JournalRecord
	for _, r := range all {
		if r.EngagementID == engagementID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Operations returns "operation:outcome" pairs in order, for assertions
func (m *MockJournalRepository) Operations() []string {
	all, _ := m.Load(context.Background())
	out := make([]string, 0, len(all))
	for _, r := range all {
		out = append(out, r.Operation+":"+r.Outcome)
	}
	return out
}

// ByOperation returns the records of one operation sorted by id
func (m *MockJournalRepository) ByOperation(op string) []*repository.JournalRecord {
	all, _ := m.Load(context.Background())
	var out []*repository.JournalRecord
	for _, r := range all {
		if r.Operation == op {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
