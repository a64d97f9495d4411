// Package blob provides object storage for image bytes. A Store is bound to
// one container; object URLs follow the {endpoint}/{container}/{key}
// convention, so the canonical URL of a blob is re-derivable from its key.
package blob

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Store defines the contract for binary object storage.
type Store interface {
	// Put stores an object with overwrite-allowed semantics and returns its
	// canonical URL. Storing the same key twice is not an error.
	Put(ctx context.Context, key string, data []byte) (string, error)

	// Get returns the object bytes. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes an object. No error if it doesn't exist.
	Delete(ctx context.Context, key string) error

	// List returns every object key in the container.
	List(ctx context.Context) ([]string, error)

	// Exists checks whether an object is present.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns the canonical URL for a key without touching the store.
	URL(key string) string

	// Container returns the container name the store is bound to.
	Container() string
}

// KeyFromURL extracts the object key (the final path segment) from a
// canonical or tokened URL.
func KeyFromURL(rawURL string) string {
	s := rawURL
	if idx := strings.IndexByte(s, '?'); idx >= 0 {
		s = s[:idx]
	}
	if idx := strings.LastIndexByte(s, '/'); idx >= 0 {
		s = s[idx+1:]
	}
	return s
}
