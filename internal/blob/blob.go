// Package blob provides content-addressed blob storage for archives.
// Saving the same content twice yields the same URI; the scheme of the
// returned URI identifies the backend (file://, gs://).
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Store is the blob/archive store contract.
type Store interface {
	// Save persists content and returns its content-addressed URI.
	Save(ctx context.Context, content string) (string, error)
	// Read returns the content previously stored at uri.
	Read(ctx context.Context, uri string) (string, error)
}

// contentAddress returns the hex SHA-256 of content, used as the object
// name by every backend.
func contentAddress(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
