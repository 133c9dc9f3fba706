package storage

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
)

// Options select and configure an evidence archive
type Options struct {
	Type     string // none, local or s3
	LocalDir string
	S3       S3Config
}

// New builds the configured archive. Type "none" returns nil.
func New(ctx context.Context, afs afero.Fs, opts Options) (output.EvidenceStorageGateway, error) {
	switch opts.Type {
	case "", "none":
		return nil, nil
	case "local":
		return NewLocalStorageGateway(afs, opts.LocalDir)
	case "s3":
		return NewS3StorageGateway(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("unknown storage type %q", opts.Type)
	}
}
