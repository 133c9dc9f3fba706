package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
	"github.com/fieldsvc/fieldsvc/internal/infra/persistence/file"
)

var errStopWalk = errors.New("stop walk")

// LocalStorageGateway archives evidence on the local filesystem
// Directory structure: <baseDir>/<engagementID>/<evidenceID>/
//   - content: photo bytes
//   - metadata.json: evidence metadata
type LocalStorageGateway struct {
	fs      afero.Fs
	baseDir string
	now     func() time.Time
}

// NewLocalStorageGateway creates a local evidence archive
func NewLocalStorageGateway(afs afero.Fs, baseDir string) (*LocalStorageGateway, error) {
	if err := afs.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create evidence directory: %w", err)
	}
	return &LocalStorageGateway{fs: afs, baseDir: baseDir, now: time.Now}, nil
}

var _ output.EvidenceStorageGateway = (*LocalStorageGateway)(nil)

// SaveEvidence stores a photo and its metadata
func (g *LocalStorageGateway) SaveEvidence(ctx context.Context, req output.SaveEvidenceRequest) (*output.EvidenceMetadata, error) {
	now := g.now()
	evidenceID := generateEvidenceID(req.Content, now)
	dir := filepath.Join(g.baseDir, engagementDir(req.EngagementID), evidenceID)

	contentPath := filepath.Join(dir, "content")
	if err := file.WriteFileAtomic(g.fs, contentPath, req.Content, 0o644); err != nil {
		return nil, fmt.Errorf("write evidence content: %w", err)
	}

	metadata := output.EvidenceMetadata{
		ID:           evidenceID,
		EngagementID: req.EngagementID,
		Kind:         req.Kind,
		Stage:        req.Stage,
		StoragePath:  contentPath,
		ContentType:  req.ContentType,
		Size:         int64(len(req.Content)),
		UploadedAt:   now,
		Metadata:     req.Metadata,
	}
	metadataJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := file.WriteFileAtomic(g.fs, filepath.Join(dir, "metadata.json"), metadataJSON, 0o644); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	return &metadata, nil
}

// LoadEvidence retrieves an archived photo by id
func (g *LocalStorageGateway) LoadEvidence(ctx context.Context, evidenceID string) (*output.Evidence, error) {
	if ok, _ := afero.DirExists(g.fs, g.baseDir); !ok {
		return nil, errEvidenceNotFound(evidenceID)
	}

	var found string
	err := afero.Walk(g.fs, g.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && info.Name() == evidenceID {
			found = path
			return errStopWalk
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return nil, fmt.Errorf("search evidence: %w", err)
	}
	if found == "" {
		return nil, errEvidenceNotFound(evidenceID)
	}

	metadata, err := g.readMetadata(filepath.Join(found, "metadata.json"))
	if err != nil {
		return nil, err
	}
	content, err := afero.ReadFile(g.fs, filepath.Join(found, "content"))
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	return &output.Evidence{ID: evidenceID, Content: content, Metadata: *metadata}, nil
}

// ListEvidence lists photos archived for an engagement
func (g *LocalStorageGateway) ListEvidence(ctx context.Context, engagementID int64) ([]*output.EvidenceMetadata, error) {
	dir := filepath.Join(g.baseDir, engagementDir(engagementID))
	if ok, _ := afero.DirExists(g.fs, dir); !ok {
		return []*output.EvidenceMetadata{}, nil
	}

	entries, err := afero.ReadDir(g.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read evidence directory: %w", err)
	}

	list := []*output.EvidenceMetadata{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		metadata, err := g.readMetadata(filepath.Join(dir, entry.Name(), "metadata.json"))
		if err != nil {
			// Skip evidence with missing or invalid metadata
			continue
		}
		list = append(list, metadata)
	}
	return list, nil
}

func (g *LocalStorageGateway) readMetadata(path string) (*output.EvidenceMetadata, error) {
	data, err := afero.ReadFile(g.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var metadata output.EvidenceMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &metadata, nil
}
