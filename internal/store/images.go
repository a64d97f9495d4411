package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"picsync/internal/models"
)

// insertImage inserts one image row inside an existing transaction.
func insertImage(ctx context.Context, tx *sql.Tx, img *models.Image) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO images (sid, category_id, title, img_path, owner, delete_flag)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		img.SID, img.CategoryID, img.Title, img.ImgPath, img.Owner, img.DeleteFlag)
	if err != nil {
		return fmt.Errorf("insert image %s: %w", img.SID, err)
	}
	return nil
}

// CreateImages inserts image rows in a single transaction.
func (s *Store) CreateImages(ctx context.Context, imgs []*models.Image) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, img := range imgs {
		if err := insertImage(ctx, tx, img); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit images: %w", err)
	}
	return nil
}

// GetImage returns an image row by sid.
func (s *Store) GetImage(ctx context.Context, sid string) (*models.Image, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT sid, category_id, title, img_path, owner, delete_flag
		 FROM images WHERE sid = ?`, sid)

	img := &models.Image{}
	err := row.Scan(&img.SID, &img.CategoryID, &img.Title, &img.ImgPath,
		&img.Owner, &img.DeleteFlag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get image %s: %w", sid, err)
	}
	return img, nil
}

// ListImages returns a category's non-deleted images. The reserved upload
// bucket lists all of its rows regardless of the delete flag, so pending
// uploads stay visible until reconciled.
func (s *Store) ListImages(ctx context.Context, categoryID string) ([]*models.Image, error) {
	query := `SELECT sid, category_id, title, img_path, owner, delete_flag
	          FROM images WHERE category_id = ? AND delete_flag = 0 ORDER BY sid`
	if categoryID == uploadBucketSid {
		query = `SELECT sid, category_id, title, img_path, owner, delete_flag
		         FROM images WHERE category_id = ? ORDER BY sid`
	}

	rows, err := s.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	return scanImages(rows)
}

// PreviewPaths returns up to limit live image paths for a category, used by
// category listings.
func (s *Store) PreviewPaths(ctx context.Context, categoryID string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT img_path FROM images
		 WHERE category_id = ? AND delete_flag = 0
		 ORDER BY sid LIMIT ?`, categoryID, limit)
	if err != nil {
		return nil, fmt.Errorf("preview paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// UpdateImage rewrites an image's fields. The canonical path only changes
// through this explicit update path, never silently.
func (s *Store) UpdateImage(ctx context.Context, img *models.Image) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE images SET category_id = ?, title = ?, img_path = ?, owner = ?, delete_flag = ?
		 WHERE sid = ?`,
		img.CategoryID, img.Title, img.ImgPath, img.Owner, img.DeleteFlag, img.SID)
	if err != nil {
		return fmt.Errorf("update image %s: %w", img.SID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteImage flips the delete flag on one image.
func (s *Store) SoftDeleteImage(ctx context.Context, sid string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE images SET delete_flag = 1 WHERE sid = ?`, sid)
	if err != nil {
		return fmt.Errorf("soft-delete image %s: %w", sid, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDeleteImage removes one image row.
func (s *Store) HardDeleteImage(ctx context.Context, sid string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE sid = ?`, sid)
	if err != nil {
		return fmt.Errorf("hard-delete image %s: %w", sid, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ImagePathExists reports whether a non-deleted image with the same path
// already exists under the category. Enforces the dedup invariant before
// insert; a duplicate is a no-op for the caller, not an error.
func (s *Store) ImagePathExists(ctx context.Context, categoryID, imgPath string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM images
		 WHERE category_id = ? AND img_path = ? AND delete_flag = 0`,
		categoryID, imgPath).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check image path: %w", err)
	}
	return n > 0, nil
}

// ImagesByPaths returns the non-deleted images whose path is in the given
// set. Used to re-join search results against the source of truth: a
// soft-deleted image never comes back from here even if its index document
// still exists.
func (s *Store) ImagesByPaths(ctx context.Context, paths []string) ([]*models.Image, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	query := `SELECT sid, category_id, title, img_path, owner, delete_flag
	          FROM images WHERE delete_flag != 1 AND img_path IN (?` +
		repeatParam(len(paths)-1) + `)`
	args := make([]any, len(paths))
	for i, p := range paths {
		args[i] = p
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("images by paths: %w", err)
	}
	defer rows.Close()

	return scanImages(rows)
}

// AllPaths returns the distinct img_path values of every image row,
// regardless of delete flag. The reconciler runs this after hard-deleting
// flagged rows, so the result is the authoritative live set; including
// still-flagged rows means a blob is never removed while its row exists.
func (s *Store) AllPaths(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT img_path FROM images`)
	if err != nil {
		return nil, fmt.Errorf("list image paths: %w", err)
	}
	defer rows.Close()

	paths := make(map[string]bool)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths[p] = true
	}
	return paths, rows.Err()
}

func scanImages(rows *sql.Rows) ([]*models.Image, error) {
	var imgs []*models.Image
	for rows.Next() {
		img := &models.Image{}
		if err := rows.Scan(&img.SID, &img.CategoryID, &img.Title, &img.ImgPath,
			&img.Owner, &img.DeleteFlag); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		imgs = append(imgs, img)
	}
	return imgs, rows.Err()
}

// repeatParam returns ",?" repeated n times for IN clauses.
func repeatParam(n int) string {
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		out = append(out, ",?"...)
	}
	return string(out)
}
