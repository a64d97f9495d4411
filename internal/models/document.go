package models

import "github.com/google/uuid"

// docNamespace is the fixed namespace for deriving index document IDs.
// Weaviate object IDs must be UUIDs, so the document id is a UUIDv5 of the
// image sid: deterministic, re-derivable, and stable across upserts.
var docNamespace = uuid.MustParse("7b1f1e1e-9c4a-4a6b-8a2f-3d5c6e7f8a90")

// Document is an index entry for one image. Derived from an Image row, never
// authoritative. Documents written out-of-band by an external indexer may
// carry an empty SID and are matched by ImgPath instead.
type Document struct {
	ID      string    `json:"id"`
	SID     string    `json:"sid"`
	ImgPath string    `json:"imgPath"`
	Title   string    `json:"title"`
	Vector  []float32 `json:"imageVector,omitempty"`
}

// DocumentID derives the index document id for an image sid.
func DocumentID(sid string) string {
	return uuid.NewSHA1(docNamespace, []byte(sid)).String()
}

// NewDocument builds the index document for an image with its embedding.
func NewDocument(img *Image, vector []float32) *Document {
	return &Document{
		ID:      DocumentID(img.SID),
		SID:     img.SID,
		ImgPath: img.ImgPath,
		Title:   img.Title,
		Vector:  vector,
	}
}
