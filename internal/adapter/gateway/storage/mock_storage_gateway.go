package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
)

// MockStorageGateway is an in-memory evidence archive for tests
type MockStorageGateway struct {
	mu       sync.RWMutex
	evidence map[string]*output.Evidence
	nextID   int
	failSave error
}

// NewMockStorageGateway creates a new mock storage gateway
func NewMockStorageGateway() *MockStorageGateway {
	return &MockStorageGateway{evidence: make(map[string]*output.Evidence), nextID: 1}
}

// FailSaves makes every SaveEvidence call fail with err
func (g *MockStorageGateway) FailSaves(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failSave = err
}

// SaveEvidence stores a photo in memory
func (g *MockStorageGateway) SaveEvidence(ctx context.Context, req output.SaveEvidenceRequest) (*output.EvidenceMetadata, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failSave != nil {
		return nil, g.failSave
	}

	id := fmt.Sprintf("mock-evidence-%d", g.nextID)
	g.nextID++

	ev := &output.Evidence{
		ID:      id,
		Content: req.Content,
		Metadata: output.EvidenceMetadata{
			ID:           id,
			EngagementID: req.EngagementID,
			Kind:         req.Kind,
			Stage:        req.Stage,
			StoragePath:  "mock://evidence/" + id,
			ContentType:  req.ContentType,
			Size:         int64(len(req.Content)),
			UploadedAt:   time.Now(),
			Metadata:     req.Metadata,
		},
	}
	g.evidence[id] = ev
	return &ev.Metadata, nil
}

// LoadEvidence returns a stored photo
func (g *MockStorageGateway) LoadEvidence(ctx context.Context, evidenceID string) (*output.Evidence, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ev, ok := g.evidence[evidenceID]
	if !ok {
		return nil, errEvidenceNotFound(evidenceID)
	}
	return ev, nil
}

// ListEvidence lists photos of an engagement
func (g *MockStorageGateway) ListEvidence(ctx context.Context, engagementID int64) ([]*output.EvidenceMetadata, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	list := []*output.EvidenceMetadata{}
	for _, ev := range g.evidence {
		if ev.Metadata.EngagementID == engagementID {
			meta := ev.Metadata
			list = append(list, &meta)
		}
	}
	return list, nil
}

// Count returns the number of stored photos
func (g *MockStorageGateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.evidence)
}
