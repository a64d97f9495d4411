package search

import (
	"context"

	"picsync/internal/models"
)

// Index defines the contract for the vector search index. This interface
// enables mocking for the core and gc packages.
type Index interface {
	// EnsureSchema creates the document class if missing.
	EnsureSchema(ctx context.Context) error

	// Upsert merge-or-inserts documents; returns identifiers of the ones
	// that failed. Partial failure does not abort the batch.
	Upsert(ctx context.Context, docs []*models.Document) []string

	// DeleteBySids removes documents by their owning image sids, resolving
	// the derived primary keys with an index scan.
	DeleteBySids(ctx context.Context, sids []string) error

	// Delete removes one document by primary key.
	Delete(ctx context.Context, id string) error

	// Search returns the k nearest documents to the vector.
	Search(ctx context.Context, vector []float32, k int) ([]*models.Document, error)

	// ListAll returns every document's id, sid, and imgPath.
	ListAll(ctx context.Context) ([]*models.Document, error)
}

// Verify that *Client implements Index at compile time
var _ Index = (*Client)(nil)
