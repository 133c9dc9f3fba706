package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
)

// S3StorageGateway archives evidence in S3
// Key structure: <prefix>/evidence/<engagementID>/<evidenceID>/
//   - content: photo bytes (evidence metadata also set as object metadata)
//   - metadata.json: evidence metadata
type S3StorageGateway struct {
	client     S3API
	bucketName string
	prefix     string
	now        func() time.Time
}

// S3Config holds S3 storage gateway configuration
type S3Config struct {
	BucketName string
	Prefix     string
	Region     string // Uses the default chain when empty
}

// NewS3StorageGateway creates an S3 archive using the default AWS
// credential chain
func NewS3StorageGateway(ctx context.Context, cfg S3Config) (*S3StorageGateway, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	}
	return NewS3StorageGatewayWithClient(s3.NewFromConfig(awsCfg), cfg.BucketName, cfg.Prefix), nil
}

// NewS3StorageGatewayWithClient creates an S3 archive with a custom client
func NewS3StorageGatewayWithClient(client S3API, bucketName, prefix string) *S3StorageGateway {
	return &S3StorageGateway{
		client:     client,
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
		now:        time.Now,
	}
}

var _ output.EvidenceStorageGateway = (*S3StorageGateway)(nil)

// SaveEvidence uploads a photo and its metadata
func (g *S3StorageGateway) SaveEvidence(ctx context.Context, req output.SaveEvidenceRequest) (*output.EvidenceMetadata, error) {
	now := g.now()
	evidenceID := generateEvidenceID(req.Content, now)
	contentKey := g.buildKey("evidence", engagementDir(req.EngagementID), evidenceID, "content")

	objMetadata := map[string]string{
		"evidence-id":   evidenceID,
		"engagement-id": strconv.FormatInt(req.EngagementID, 10),
		"kind":          string(req.Kind),
		"stage":         req.Stage,
		"uploaded-at":   now.UTC().Format(time.RFC3339),
	}
	for k, v := range req.Metadata {
		objMetadata[k] = v
	}

	if _, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucketName),
		Key:         aws.String(contentKey),
		Body:        bytes.NewReader(req.Content),
		ContentType: aws.String(req.ContentType),
		Metadata:    objMetadata,
	}); err != nil {
		return nil, fmt.Errorf("upload to S3: %w", err)
	}

	metadata := output.EvidenceMetadata{
		ID:           evidenceID,
		EngagementID: req.EngagementID,
		Kind:         req.Kind,
		Stage:        req.Stage,
		StoragePath:  fmt.Sprintf("s3://%s/%s", g.bucketName, contentKey),
		ContentType:  req.ContentType,
		Size:         int64(len(req.Content)),
		UploadedAt:   now,
		Metadata:     req.Metadata,
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	if _, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucketName),
		Key:         aws.String(g.buildKey("evidence", engagementDir(req.EngagementID), evidenceID, "metadata.json")),
		Body:        bytes.NewReader(metadataJSON),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return nil, fmt.Errorf("upload metadata to S3: %w", err)
	}

	return &metadata, nil
}

// LoadEvidence downloads an archived photo by id
func (g *S3StorageGateway) LoadEvidence(ctx context.Context, evidenceID string) (*output.Evidence, error) {
	keys, err := g.listKeys(ctx, g.buildKey("evidence")+"/")
	if err != nil {
		return nil, err
	}

	var metadataKey string
	for _, key := range keys {
		if strings.HasSuffix(key, "/"+evidenceID+"/metadata.json") {
			metadataKey = key
			break
		}
	}
	if metadataKey == "" {
		return nil, errEvidenceNotFound(evidenceID)
	}

	metadata, err := g.readMetadata(ctx, metadataKey)
	if err != nil {
		return nil, err
	}

	contentKey := strings.TrimSuffix(metadataKey, "metadata.json") + "content"
	content, err := g.download(ctx, contentKey)
	if err != nil {
		return nil, fmt.Errorf("download content from S3: %w", err)
	}

	return &output.Evidence{ID: evidenceID, Content: content, Metadata: *metadata}, nil
}

// ListEvidence lists photos archived for an engagement
func (g *S3StorageGateway) ListEvidence(ctx context.Context, engagementID int64) ([]*output.EvidenceMetadata, error) {
	keys, err := g.listKeys(ctx, g.buildKey("evidence", engagementDir(engagementID))+"/")
	if err != nil {
		return nil, err
	}

	list := []*output.EvidenceMetadata{}
	for _, key := range keys {
		if !strings.HasSuffix(key, "metadata.json") {
			continue
		}
		metadata, err := g.readMetadata(ctx, key)
		if err != nil {
			// Skip evidence with unreadable metadata
			continue
		}
		list = append(list, metadata)
	}
	return list, nil
}

func (g *S3StorageGateway) listKeys(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys  []string
		token *string
	)
	for {
		out, err := g.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(g.bucketName),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list S3 objects: %w", err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			return keys, nil
		}
		token = out.NextContinuationToken
	}
}

func (g *S3StorageGateway) readMetadata(ctx context.Context, key string) (*output.EvidenceMetadata, error) {
	data, err := g.download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download metadata from S3: %w", err)
	}
	var metadata output.EvidenceMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &metadata, nil
}

func (g *S3StorageGateway) download(ctx context.Context, key string) ([]byte, error) {
	obj, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer obj.Body.Close()
	return io.ReadAll(obj.Body)
}

// buildKey joins key parts under the configured prefix
func (g *S3StorageGateway) buildKey(parts ...string) string {
	if g.prefix != "" {
		parts = append([]string{g.prefix}, parts...)
	}
	return path.Join(parts...)
}
