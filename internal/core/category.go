package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"picsync/internal/models"
)

// previewCount is how many live image URLs a category listing carries.
const previewCount = 3

// CreateCategory resolves every source, writes the category and its
// surviving image rows in one transaction, and then upserts the index
// documents. Sources that fail to ingest are reported in the result and do
// not abort the batch; the category is created even if every source failed.
func (s *Service) CreateCategory(ctx context.Context, cat *models.Category, sources []ImageSource) (*BatchResult, error) {
	if cat.SID == "" {
		cat.SID = uuid.NewString()
	}
	if cat.SID == models.UploadBucket {
		return nil, fmt.Errorf("category id %q is reserved", models.UploadBucket)
	}

	result := &BatchResult{}
	for _, src := range sources {
		imgPath, err := s.resolve(ctx, src.URL, false)
		if err != nil {
			s.logger.Warn("source failed", "url", src.URL, "error", err)
			result.Failed = append(result.Failed, Failure{URL: src.URL, Reason: failureReason(err)})
			continue
		}
		result.Created = append(result.Created, &models.Image{
			SID:        uuid.NewString(),
			CategoryID: cat.SID,
			Title:      src.Title,
			ImgPath:    imgPath,
			Owner:      cat.Owner,
		})
	}

	if err := s.meta.CreateCategory(ctx, cat, result.Created); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.indexImages(ctx, result.Created)
	return result, nil
}

// GetCategory returns one category with its recomputed image count.
func (s *Service) GetCategory(ctx context.Context, sid string) (*models.Category, error) {
	return s.meta.GetCategory(ctx, sid)
}

// CategoryExists reports whether a live category with the sid exists.
func (s *Service) CategoryExists(ctx context.Context, sid string) (bool, error) {
	return s.meta.CategoryExists(ctx, sid)
}

// CountCategories returns the number of live categories for an owner.
func (s *Service) CountCategories(ctx context.Context, owner string) (int, error) {
	return s.meta.CountCategories(ctx, owner)
}

// ListCategories returns a page of live categories, each decorated with up
// to three preview URLs. Owned preview paths get a read grant so callers
// can fetch them directly.
func (s *Service) ListCategories(ctx context.Context, owner string, page, perPage int) ([]*models.Category, error) {
	cats, err := s.meta.ListCategories(ctx, owner, page, perPage)
	if err != nil {
		return nil, err
	}
	for _, cat := range cats {
		paths, err := s.meta.PreviewPaths(ctx, cat.SID, previewCount)
		if err != nil {
			s.logger.Warn("failed to load previews", "category", cat.SID, "error", err)
			continue
		}
		for _, p := range paths {
			cat.PreviewURLs = append(cat.PreviewURLs, s.readURL(p))
		}
	}
	return cats, nil
}

// UpdateCategory updates a category's mutable fields.
func (s *Service) UpdateCategory(ctx context.Context, cat *models.Category) error {
	return s.meta.UpdateCategory(ctx, cat)
}

// SoftDeleteCategory flags the category and all of its images as deleted in
// one transaction, then removes the images' index documents. The flag flip
// commits even when the index is unreachable; the reconciler finishes the
// job later.
func (s *Service) SoftDeleteCategory(ctx context.Context, sid string) error {
	sids, err := s.meta.SoftDeleteCategory(ctx, sid)
	if err != nil {
		return fmt.Errorf("soft delete category: %w", err)
	}
	s.dropFromIndex(ctx, sids)
	return nil
}

// HardDeleteCategory removes the category, its image rows, their owned
// blobs, and their index documents immediately.
func (s *Service) HardDeleteCategory(ctx context.Context, sid string) error {
	imgs, err := s.meta.ListImages(ctx, sid)
	if err != nil {
		return err
	}
	if err := s.meta.HardDeleteCategory(ctx, sid); err != nil {
		return fmt.Errorf("hard delete category: %w", err)
	}
	sids := make([]string, 0, len(imgs))
	for _, img := range imgs {
		s.deleteOwnedBlob(ctx, img.ImgPath)
		sids = append(sids, img.SID)
	}
	s.dropFromIndex(ctx, sids)
	return nil
}
