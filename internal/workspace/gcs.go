package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// gcsStore backs the workspace with a single GCS bucket, keyed by the
// sanitized path as the object name. Grounded on the teacher's
// internal/platform/gcp/bucket.go BucketService, narrowed from its
// multi-category CDN-aware surface to the plain get/put this spec needs.
type gcsStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string) (Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("workspace: GCS bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("workspace: new GCS client: %w", err)
	}
	return &gcsStore{client: client, bucket: bucket}, nil
}

func (s *gcsStore) Read(ctx context.Context, path string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(path).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("workspace: gcs read %q: %w", path, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *gcsStore) Write(ctx context.Context, path string, content []byte, mimeType string) (bool, error) {
	created, _ := func() (bool, error) {
		ok, err := s.Exists(ctx, path)
		return !ok, err
	}()

	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	if mimeType != "" {
		w.ContentType = mimeType
	}
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return false, fmt.Errorf("workspace: gcs write %q: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return false, fmt.Errorf("workspace: gcs close writer %q: %w", path, err)
	}
	return created, nil
}

func (s *gcsStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(path).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
