// Package ingest normalizes heterogeneous image references into owned,
// addressable blobs: it classifies an incoming path by origin and, when the
// origin is not durable, downloads, validates, and re-uploads the bytes into
// the object store under a canonical name.
package ingest

import (
	"strings"

	"picsync/internal/token"
)

// PathKind is the classified origin of a candidate image path.
type PathKind int

const (
	// PathOwned is a durable object-store URL in our container with no
	// access grant attached. Used as-is.
	PathOwned PathKind = iota

	// PathTransient is a generated-image URL carrying a signed-expiry
	// marker. The generating service's storage is ephemeral, so the bytes
	// must be copied into permanent storage before the record is durable.
	PathTransient

	// PathExternal is any other absolute URL (web search result,
	// user-supplied link). Downloaded and ingested.
	PathExternal
)

func (k PathKind) String() string {
	switch k {
	case PathOwned:
		return "owned"
	case PathTransient:
		return "transient"
	case PathExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Classify inspects a candidate path structurally, without network calls,
// and decides its origin. The single classification point shared by the
// ingestion workflow, the listing token-append logic, and the reconciler.
func Classify(imgPath, container string) PathKind {
	if token.HasGrant(imgPath) {
		return PathTransient
	}
	if strings.Contains(imgPath, "/"+container+"/") {
		return PathOwned
	}
	return PathExternal
}

// NeedsIngestion reports whether the classified path requires a
// copy-into-storage step before the record is durable.
func (k PathKind) NeedsIngestion() bool {
	return k == PathTransient || k == PathExternal
}
