// Package mirror copies downloaded spectra to an S3-compatible bucket.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// FITSContentType is the media type stored with uploaded spectra.
const FITSContentType = "application/fits"

// Config describes the target bucket.
type Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Validate reports missing required fields.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("mirror endpoint is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("mirror bucket is required")
	}
	return nil
}

// objectStore is the subset of *minio.Client used here.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Mirror uploads files to one bucket under a fixed prefix.
type Mirror struct {
	store  objectStore
	bucket string
	prefix string
	region string
}

// New connects a Mirror to the configured endpoint. No request is made
// until EnsureBucket or Publish.
func New(cfg Config) (*Mirror, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("mirror client: %w", err)
	}

	return newMirror(client, cfg), nil
}

func newMirror(store objectStore, cfg Config) *Mirror {
	return &Mirror{
		store:  store,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		region: cfg.Region,
	}
}

// EnsureBucket creates the bucket if it does not exist.
func (m *Mirror) EnsureBucket(ctx context.Context) error {
	exists, err := m.store.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.store.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", m.bucket, err)
	}
	return nil
}

// Publish uploads the file at filePath under ObjectKey(prefix, filePath).
func (m *Mirror) Publish(ctx context.Context, filePath string) error {
	key := ObjectKey(m.prefix, filePath)
	_, err := m.store.FPutObject(ctx, m.bucket, key, filePath, minio.PutObjectOptions{
		ContentType: contentType(filePath),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// ObjectKey returns the object name for a local file: the file's base name
// under prefix, always with forward slashes.
func ObjectKey(prefix, filePath string) string {
	name := filepath.Base(filePath)
	prefix = strings.Trim(filepath.ToSlash(prefix), "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func contentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".fits", ".fit", ".fts":
		return FITSContentType
	default:
		return "application/octet-stream"
	}
}
