// Package models defines the core data structures shared across picsync:
// catalog categories, images, and search index documents.
package models

// UploadBucket is the reserved category sid for images uploaded without a
// category. Rows under it are excluded from category listings.
const UploadBucket = "file-upload"

// Category is a catalog of learning images owned by a user.
type Category struct {
	SID        string `json:"sid"`
	Topic      string `json:"topic"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
	// ImgNum is the count of non-deleted images under this category.
	// It is denormalized and recomputed at read time, never trusted as stored.
	ImgNum     int    `json:"imgNum"`
	Owner      string `json:"owner"`
	DeleteFlag int    `json:"deleteFlag"`

	// PreviewURLs carries up to three live image URLs for listings.
	// Derived, not persisted.
	PreviewURLs []string `json:"previewUrls,omitempty"`
}
