//go:build gcp

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCS stores each collection document as one Cloud Storage object.
// Object writes become visible only when the writer is closed successfully.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// GCSConfig holds configuration for NewGCS.
type GCSConfig struct {
	Bucket string
	Prefix string // optional object prefix
}

// NewGCS creates a GCS-backed store (application default credentials).
func NewGCS(ctx context.Context, cfg GCSConfig) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCS{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *GCS) object(path string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.prefix + path)
}

// Write uploads the full document to path.
func (s *GCS) Write(ctx context.Context, path string, r io.Reader) (int64, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("buffer document: %w", err)
	}
	w := s.object(path).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := io.Copy(w, bytes.NewReader(body)); err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("gcs write %q: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("gcs close %q: %w", path, err)
	}
	return int64(len(body)), nil
}

// Read streams the object stored at path.
func (s *GCS) Read(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	rd, err := s.object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return nil, 0, fmt.Errorf("gcs read %q: %w", path, err)
	}
	return rd, rd.Attrs.Size, nil
}

// Ping checks that the bucket is reachable.
func (s *GCS) Ping(ctx context.Context) error {
	_, err := s.client.Bucket(s.bucket).Attrs(ctx)
	return err
}

// Close closes the GCS client.
func (s *GCS) Close() error {
	return s.client.Close()
}
