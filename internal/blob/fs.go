package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"engram/internal/domain"
)

// FSStore stores blobs as files under a base directory, named by content
// hash. URIs use the file:// scheme.
type FSStore struct {
	basePath string
}

func NewFSStore(basePath string) *FSStore {
	return &FSStore{basePath: basePath}
}

func (s *FSStore) Save(ctx context.Context, content string) (string, error) {
	path := filepath.Join(s.basePath, contentAddress(content))

	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return "", &domain.StorageError{Operation: "blob save", Cause: err}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", &domain.StorageError{Operation: "blob save", Cause: err}
	}
	return "file://" + path, nil
}

func (s *FSStore) Read(ctx context.Context, uri string) (string, error) {
	path, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return "", &domain.StorageError{
			Operation: "blob read",
			Cause:     fmt.Errorf("invalid URI scheme for file store: %s", uri),
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &domain.StorageError{Operation: "blob read", Cause: err}
	}
	return string(data), nil
}
