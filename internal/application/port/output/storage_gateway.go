package output

import (
	"context"
	"time"
)

// EvidenceStorageGateway archives photo evidence outside the backend.
// Supports local filesystem and S3.
type EvidenceStorageGateway interface {
	// SaveEvidence stores a photo
	SaveEvidence(ctx context.Context, req SaveEvidenceRequest) (*EvidenceMetadata, error)

	// LoadEvidence retrieves a stored photo by id
	LoadEvidence(ctx context.Context, evidenceID string) (*Evidence, error)

	// ListEvidence lists photos archived for an engagement
	ListEvidence(ctx context.Context, engagementID int64) ([]*EvidenceMetadata, error)
}

// SaveEvidenceRequest is one photo to archive
type SaveEvidenceRequest struct {
	EngagementID int64
	Kind         EvidenceKind
	Stage        string
	Content      []byte
	ContentType  string
	Metadata     map[string]string
}

// EvidenceKind tells which action produced the photo
type EvidenceKind string

const (
	EvidenceKindStage    EvidenceKind = "stage"
	EvidenceKindFinalize EvidenceKind = "finalize"
)

// Evidence is an archived photo
type Evidence struct {
	ID       string
	Content  []byte
	Metadata EvidenceMetadata
}

// EvidenceMetadata describes an archived photo
type EvidenceMetadata struct {
	ID           string            `json:"id"`
	EngagementID int64             `json:"engagement_id"`
	Kind         EvidenceKind      `json:"kind"`
	Stage        string            `json:"stage,omitempty"`
	StoragePath  string            `json:"storage_path"` // Path or s3://bucket/key
	ContentType  string            `json:"content_type"`
	Size         int64             `json:"size"`
	UploadedAt   time.Time         `json:"uploaded_at"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}
