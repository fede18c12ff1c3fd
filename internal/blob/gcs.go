package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"engram/internal/domain"
)

// GCSStore stores blobs in a Google Cloud Storage bucket, named by content
// hash. URIs use the gs:// scheme. Credentials come from the ambient
// environment (Application Default Credentials).
type GCSStore struct {
	bucket string
	client *storage.Client
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, &domain.StorageError{Operation: "gcs init", Cause: err}
	}
	return &GCSStore{bucket: bucket, client: client}, nil
}

func (s *GCSStore) Save(ctx context.Context, content string) (string, error) {
	name := contentAddress(content)

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/x-ndjson"
	if _, err := io.WriteString(w, content); err != nil {
		w.Close()
		return "", &domain.StorageError{Operation: "gcs save", Cause: err}
	}
	if err := w.Close(); err != nil {
		return "", &domain.StorageError{Operation: "gcs save", Cause: err}
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, name), nil
}

func (s *GCSStore) Read(ctx context.Context, uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", &domain.StorageError{
			Operation: "gcs read",
			Cause:     fmt.Errorf("invalid URI scheme for GCS store: %s", uri),
		}
	}
	bucket, name, ok := strings.Cut(rest, "/")
	if !ok {
		return "", &domain.StorageError{
			Operation: "gcs read",
			Cause:     fmt.Errorf("invalid GCS URI: %s", uri),
		}
	}

	r, err := s.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		return "", &domain.StorageError{Operation: "gcs read", Cause: err}
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", &domain.StorageError{Operation: "gcs read", Cause: err}
	}
	return string(data), nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
