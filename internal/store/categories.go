package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"picsync/internal/models"
)

// uploadBucketSid mirrors models.UploadBucket; kept as a local constant so
// SQL in this package reads without the import cycle risk of a helper.
const uploadBucketSid = models.UploadBucket

// liveImgNum recomputes the non-deleted image count for a category. The
// stored img_num column is denormalized and not trusted at read time.
const liveImgNum = `(SELECT COUNT(*) FROM images i WHERE i.category_id = c.sid AND i.delete_flag = 0)`

// CreateCategory inserts a category and its images in a single transaction.
// The image slice may be smaller than requested when ingestion failed for
// some items; the category still commits.
func (s *Store) CreateCategory(ctx context.Context, cat *models.Category, imgs []*models.Image) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO categories (sid, topic, title, difficulty, img_num, owner, delete_flag)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cat.SID, cat.Topic, cat.Title, cat.Difficulty, len(imgs), cat.Owner, cat.DeleteFlag,
	)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	cat.ImgNum = len(imgs)

	for _, img := range imgs {
		if err := insertImage(ctx, tx, img); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit category: %w", err)
	}
	return nil
}

// GetCategory returns a category by sid with its recomputed image count.
// Soft-deleted categories are still returned; callers filter by DeleteFlag.
func (s *Store) GetCategory(ctx context.Context, sid string) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT c.sid, c.topic, c.title, c.difficulty, `+liveImgNum+`, c.owner, c.delete_flag
		 FROM categories c WHERE c.sid = ?`, sid)

	cat := &models.Category{}
	err := row.Scan(&cat.SID, &cat.Topic, &cat.Title, &cat.Difficulty,
		&cat.ImgNum, &cat.Owner, &cat.DeleteFlag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category %s: %w", sid, err)
	}
	return cat, nil
}

// CategoryExists reports whether a live (non-deleted) category exists.
func (s *Store) CategoryExists(ctx context.Context, sid string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE sid = ? AND delete_flag = 0`, sid).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check category %s: %w", sid, err)
	}
	return n > 0, nil
}

// ListCategories returns one page of a user's live categories, excluding the
// reserved upload bucket. Image counts are recomputed per row.
func (s *Store) ListCategories(ctx context.Context, owner string, page, perPage int) ([]*models.Category, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 6
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.sid, c.topic, c.title, c.difficulty, `+liveImgNum+`, c.owner, c.delete_flag
		 FROM categories c
		 WHERE c.delete_flag = 0 AND c.owner = ? AND c.sid != ?
		 ORDER BY c.sid
		 LIMIT ? OFFSET ?`,
		owner, uploadBucketSid, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []*models.Category
	for rows.Next() {
		cat := &models.Category{}
		if err := rows.Scan(&cat.SID, &cat.Topic, &cat.Title, &cat.Difficulty,
			&cat.ImgNum, &cat.Owner, &cat.DeleteFlag); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, cat)
	}
	return cats, rows.Err()
}

// CountCategories returns the number of a user's live categories.
func (s *Store) CountCategories(ctx context.Context, owner string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE delete_flag = 0 AND owner = ? AND sid != ?`,
		owner, uploadBucketSid).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// UpdateCategory rewrites a category's editable fields.
func (s *Store) UpdateCategory(ctx context.Context, cat *models.Category) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET topic = ?, title = ?, difficulty = ?, owner = ?, delete_flag = ?
		 WHERE sid = ?`,
		cat.Topic, cat.Title, cat.Difficulty, cat.Owner, cat.DeleteFlag, cat.SID)
	if err != nil {
		return fmt.Errorf("update category %s: %w", cat.SID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteCategory flips the delete flag on a category and all its images
// in one transaction, and returns the sids of the affected images so the
// caller can issue index deletes. The row-level flip commits even if those
// index deletes later fail; the reconciler restores consistency.
func (s *Store) SoftDeleteCategory(ctx context.Context, sid string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE categories SET delete_flag = 1 WHERE sid = ?`, sid)
	if err != nil {
		return nil, fmt.Errorf("soft-delete category %s: %w", sid, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT sid FROM images WHERE category_id = ? AND delete_flag = 0`, sid)
	if err != nil {
		return nil, fmt.Errorf("list category images: %w", err)
	}
	var imageSids []string
	for rows.Next() {
		var imgSid string
		if err := rows.Scan(&imgSid); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan image sid: %w", err)
		}
		imageSids = append(imageSids, imgSid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE images SET delete_flag = 1 WHERE category_id = ?`, sid); err != nil {
		return nil, fmt.Errorf("soft-delete category images: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit soft delete: %w", err)
	}
	return imageSids, nil
}

// HardDeleteCategory removes a category row; the foreign key cascades to its
// images. This is an explicit operation, distinct from soft delete.
func (s *Store) HardDeleteCategory(ctx context.Context, sid string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE sid = ?`, sid)
	if err != nil {
		return fmt.Errorf("hard-delete category %s: %w", sid, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDeleteFlagged removes every row with delete_flag=1 from both tables.
// This is the only place hard deletes originate in the reconciler flow.
func (s *Store) HardDeleteFlagged(ctx context.Context) (int64, error) {
	var total int64

	res, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE delete_flag = 1`)
	if err != nil {
		return 0, fmt.Errorf("hard-delete flagged images: %w", err)
	}
	n, _ := res.RowsAffected()
	total += n

	res, err = s.db.ExecContext(ctx, `DELETE FROM categories WHERE delete_flag = 1`)
	if err != nil {
		return total, fmt.Errorf("hard-delete flagged categories: %w", err)
	}
	n, _ = res.RowsAffected()
	total += n

	return total, nil
}
