package core

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path"
	"strings"

	"github.com/google/uuid"

	"picsync/internal/ingest"
	"picsync/internal/models"
	"picsync/internal/store"
	"picsync/internal/token"
)

// DefaultSearchK is the result count used when the caller passes k <= 0.
const DefaultSearchK = 3

// AddImages resolves and inserts images under an existing category. Sources
// whose canonical path already exists among the category's live rows are
// skipped as duplicates; ingest failures are collected per source.
func (s *Service) AddImages(ctx context.Context, categoryID, owner string, sources []ImageSource) (*BatchResult, error) {
	exists, err := s.meta.CategoryExists(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	result := &BatchResult{}
	for _, src := range sources {
		imgPath, err := s.resolve(ctx, src.URL, false)
		if err != nil {
			s.logger.Warn("source failed", "url", src.URL, "error", err)
			result.Failed = append(result.Failed, Failure{URL: src.URL, Reason: failureReason(err)})
			continue
		}
		dup, err := s.meta.ImagePathExists(ctx, categoryID, imgPath)
		if err != nil {
			return nil, err
		}
		if dup {
			result.Failed = append(result.Failed, Failure{URL: src.URL, Reason: "duplicate path"})
			continue
		}
		result.Created = append(result.Created, &models.Image{
			SID:        uuid.NewString(),
			CategoryID: categoryID,
			Title:      src.Title,
			ImgPath:    imgPath,
			Owner:      owner,
		})
	}

	if len(result.Created) > 0 {
		if err := s.meta.CreateImages(ctx, result.Created); err != nil {
			return nil, fmt.Errorf("create images: %w", err)
		}
		s.indexImages(ctx, result.Created)
	}
	return result, nil
}

// GetImage returns one image row.
func (s *Service) GetImage(ctx context.Context, sid string) (*models.Image, error) {
	return s.meta.GetImage(ctx, sid)
}

// ListImages returns a category's images with read grants appended to owned
// paths.
func (s *Service) ListImages(ctx context.Context, categoryID string) ([]*models.Image, error) {
	imgs, err := s.meta.ListImages(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	for _, img := range imgs {
		img.ImgPath = s.readURL(img.ImgPath)
	}
	return imgs, nil
}

// UpdateImage changes an image's title and/or source URL. A new transient
// URL is re-ingested under a fresh generated name so the old and new blobs
// never collide; when the canonical path changes, the old owned blob is
// deleted and the index document is rewritten.
func (s *Service) UpdateImage(ctx context.Context, sid, title, srcURL string) (*models.Image, error) {
	img, err := s.meta.GetImage(ctx, sid)
	if err != nil {
		return nil, err
	}
	if title != "" {
		img.Title = title
	}

	oldPath := img.ImgPath
	if srcURL != "" {
		imgPath, err := s.resolve(ctx, srcURL, true)
		if err != nil {
			return nil, fmt.Errorf("resolve source: %w", err)
		}
		img.ImgPath = imgPath
	}

	if err := s.meta.UpdateImage(ctx, img); err != nil {
		return nil, fmt.Errorf("update image: %w", err)
	}

	if img.ImgPath != oldPath {
		s.deleteOwnedBlob(ctx, oldPath)
	}
	s.indexImages(ctx, []*models.Image{img})
	return img, nil
}

// SoftDeleteImage flags one image as deleted and removes its index
// document. The flag flip commits even when the index delete fails.
func (s *Service) SoftDeleteImage(ctx context.Context, sid string) error {
	if err := s.meta.SoftDeleteImage(ctx, sid); err != nil {
		return fmt.Errorf("soft delete image: %w", err)
	}
	s.dropFromIndex(ctx, []string{sid})
	return nil
}

// HardDeleteImage removes the row, its owned blob, and its index document.
func (s *Service) HardDeleteImage(ctx context.Context, sid string) error {
	img, err := s.meta.GetImage(ctx, sid)
	if err != nil {
		return err
	}
	if err := s.meta.HardDeleteImage(ctx, sid); err != nil {
		return fmt.Errorf("hard delete image: %w", err)
	}
	s.deleteOwnedBlob(ctx, img.ImgPath)
	s.dropFromIndex(ctx, []string{sid})
	return nil
}

// Search embeds the query text, asks the index for the k nearest documents,
// and re-joins them against live metadata rows, so soft-deleted images never
// surface even while their documents linger in the index. Owned result
// paths carry a read grant.
func (s *Service) Search(ctx context.Context, query string, k int) ([]*models.Image, error) {
	if k <= 0 {
		k = DefaultSearchK
	}
	vector := s.embedder.EmbedText(ctx, query)
	if len(vector) == 0 {
		return nil, fmt.Errorf("embedding unavailable for query %q", query)
	}

	docs, err := s.index.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	paths := make([]string, 0, len(docs))
	for _, doc := range docs {
		paths = append(paths, doc.ImgPath)
	}
	imgs, err := s.meta.ImagesByPaths(ctx, paths)
	if err != nil {
		return nil, err
	}

	// Preserve the index's ranking order.
	byPath := make(map[string]*models.Image, len(imgs))
	for _, img := range imgs {
		byPath[img.ImgPath] = img
	}
	ranked := make([]*models.Image, 0, len(imgs))
	for _, doc := range docs {
		img, ok := byPath[doc.ImgPath]
		if !ok {
			continue
		}
		img.ImgPath = s.readURL(img.ImgPath)
		ranked = append(ranked, img)
	}
	return ranked, nil
}

// UploadFile is one raw payload to store in the reserved upload bucket.
type UploadFile struct {
	Name string
	Data []byte
}

// UploadFiles stores raw payloads under the reserved upload bucket,
// validating each as a structurally sound image. Duplicate names and
// invalid payloads are reported per file.
func (s *Service) UploadFiles(ctx context.Context, owner string, files []UploadFile) (*BatchResult, error) {
	result := &BatchResult{}
	for _, f := range files {
		if err := validatePayload(f.Data); err != nil {
			result.Failed = append(result.Failed, Failure{URL: f.Name, Reason: err.Error()})
			continue
		}
		key := path.Base(strings.TrimSpace(f.Name))
		if key == "" || key == "." || key == "/" {
			result.Failed = append(result.Failed, Failure{URL: f.Name, Reason: "invalid file name"})
			continue
		}
		dup, err := s.meta.ImagePathExists(ctx, models.UploadBucket, s.blobs.URL(key))
		if err != nil {
			return nil, err
		}
		if dup {
			result.Failed = append(result.Failed, Failure{URL: f.Name, Reason: "duplicate path"})
			continue
		}
		url, err := s.blobs.Put(ctx, key, f.Data)
		if err != nil {
			s.logger.Warn("upload failed", "key", key, "error", err)
			result.Failed = append(result.Failed, Failure{URL: f.Name, Reason: err.Error()})
			continue
		}
		result.Created = append(result.Created, &models.Image{
			SID:        uuid.NewString(),
			CategoryID: models.UploadBucket,
			Title:      strings.TrimSuffix(key, path.Ext(key)),
			ImgPath:    url,
			Owner:      owner,
		})
	}

	if len(result.Created) > 0 {
		if err := s.meta.CreateImages(ctx, result.Created); err != nil {
			return nil, fmt.Errorf("create upload rows: %w", err)
		}
		s.indexImages(ctx, result.Created)
	}
	return result, nil
}

// Grant mints a standalone access grant for the configured container.
func (s *Service) Grant(perms token.Permissions) (string, error) {
	return s.issuer.Grant(s.blobs.Container(), perms)
}

// GrantURL appends a grant to an owned URL, or returns it unchanged.
func (s *Service) GrantURL(rawURL string, perms token.Permissions) (string, error) {
	if ingest.Classify(rawURL, s.blobs.Container()) != ingest.PathOwned {
		return rawURL, nil
	}
	return s.issuer.Append(rawURL, s.blobs.Container(), perms)
}

// validatePayload applies the same structural checks ingest applies to
// downloads: a minimum byte size and a decodable image header.
func validatePayload(data []byte) error {
	if len(data) < ingest.MinImageBytes {
		return fmt.Errorf("payload too small: %d bytes", len(data))
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("not a valid image: %w", err)
	}
	return nil
}
