package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picsync/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Initialize())
	t.Cleanup(func() { s.Close() })
	return s
}

func testCategory(sid string) *models.Category {
	return &models.Category{
		SID:        sid,
		Topic:      "animals",
		Title:      "Cats",
		Difficulty: "easy",
		Owner:      "alice",
	}
}

func testImage(sid, categoryID, path string) *models.Image {
	return &models.Image{
		SID:        sid,
		CategoryID: categoryID,
		Title:      "img " + sid,
		ImgPath:    path,
		Owner:      "alice",
	}
}

func TestStore_CreateGetCategory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	imgs := []*models.Image{
		testImage("i1", "c1", "http://host/images/a.jpg"),
		testImage("i2", "c1", "http://host/images/b.jpg"),
	}
	require.NoError(t, s.CreateCategory(ctx, testCategory("c1"), imgs))

	got, err := s.GetCategory(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Cats", got.Title)
	assert.Equal(t, 2, got.ImgNum)

	_, err = s.GetCategory(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ImgNumIsRecomputed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	imgs := []*models.Image{
		testImage("i1", "c1", "http://host/images/a.jpg"),
		testImage("i2", "c1", "http://host/images/b.jpg"),
	}
	require.NoError(t, s.CreateCategory(ctx, testCategory("c1"), imgs))
	require.NoError(t, s.SoftDeleteImage(ctx, "i1"))

	got, err := s.GetCategory(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ImgNum)
}

func TestStore_SoftDeleteImageVisibility(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateCategory(ctx, testCategory("c1"),
		[]*models.Image{testImage("i1", "c1", "http://host/images/a.jpg")}))
	require.NoError(t, s.SoftDeleteImage(ctx, "i1"))

	// Flagged rows disappear from listings but are still fetchable by sid.
	imgs, err := s.ListImages(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, imgs)

	img, err := s.GetImage(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, 1, img.DeleteFlag)
}

func TestStore_SoftDeleteCategoryCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	imgs := []*models.Image{
		testImage("i1", "c1", "http://host/images/a.jpg"),
		testImage("i2", "c1", "http://host/images/b.jpg"),
	}
	require.NoError(t, s.CreateCategory(ctx, testCategory("c1"), imgs))

	sids, err := s.SoftDeleteCategory(ctx, "c1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"i1", "i2"}, sids)

	cats, err := s.ListCategories(ctx, "alice", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, cats)

	_, err = s.SoftDeleteCategory(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_HardDeleteFlagged(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateCategory(ctx, testCategory("c1"),
		[]*models.Image{testImage("i1", "c1", "http://host/images/a.jpg")}))
	require.NoError(t, s.CreateCategory(ctx, testCategory("c2"),
		[]*models.Image{testImage("i2", "c2", "http://host/images/b.jpg")}))

	_, err := s.SoftDeleteCategory(ctx, "c1")
	require.NoError(t, err)

	n, err := s.HardDeleteFlagged(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Survivors untouched.
	got, err := s.GetCategory(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ImgNum)

	// Running again is a no-op.
	n, err = s.HardDeleteFlagged(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_ImagePathExistsIgnoresDeleted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateCategory(ctx, testCategory("c1"),
		[]*models.Image{testImage("i1", "c1", "http://host/images/a.jpg")}))

	dup, err := s.ImagePathExists(ctx, "c1", "http://host/images/a.jpg")
	require.NoError(t, err)
	assert.True(t, dup)

	require.NoError(t, s.SoftDeleteImage(ctx, "i1"))

	// A soft-deleted row no longer blocks re-adding the same path.
	dup, err = s.ImagePathExists(ctx, "c1", "http://host/images/a.jpg")
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestStore_AllPathsIncludesFlaggedRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateCategory(ctx, testCategory("c1"), []*models.Image{
		testImage("i1", "c1", "http://host/images/a.jpg"),
		testImage("i2", "c1", "http://host/images/b.jpg"),
	}))
	require.NoError(t, s.SoftDeleteImage(ctx, "i1"))

	// A blob stays referenced while its row exists, flagged or not; only the
	// reconciler's hard delete releases it.
	paths, err := s.AllPaths(ctx)
	require.NoError(t, err)
	assert.True(t, paths["http://host/images/a.jpg"])
	assert.True(t, paths["http://host/images/b.jpg"])
}

func TestStore_ListCategoriesExcludesUploadBucket(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateCategory(ctx, testCategory("c1"), nil))

	cats, err := s.ListCategories(ctx, "alice", 1, 10)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "c1", cats[0].SID)

	count, err := s.CountCategories(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStore_UploadBucketListsFlaggedRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateImages(ctx, []*models.Image{
		testImage("u1", models.UploadBucket, "http://host/images/up.jpg"),
	}))
	require.NoError(t, s.SoftDeleteImage(ctx, "u1"))

	imgs, err := s.ListImages(ctx, models.UploadBucket)
	require.NoError(t, err)
	assert.Len(t, imgs, 1)
}

func TestStore_ImagesByPathsSkipsDeleted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateCategory(ctx, testCategory("c1"), []*models.Image{
		testImage("i1", "c1", "http://host/images/a.jpg"),
		testImage("i2", "c1", "http://host/images/b.jpg"),
	}))
	require.NoError(t, s.SoftDeleteImage(ctx, "i1"))

	imgs, err := s.ImagesByPaths(ctx,
		[]string{"http://host/images/a.jpg", "http://host/images/b.jpg"})
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	assert.Equal(t, "i2", imgs[0].SID)

	imgs, err = s.ImagesByPaths(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, imgs)
}

func TestStore_UpdateImage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateCategory(ctx, testCategory("c1"),
		[]*models.Image{testImage("i1", "c1", "http://host/images/a.jpg")}))

	img, err := s.GetImage(ctx, "i1")
	require.NoError(t, err)
	img.Title = "renamed"
	img.ImgPath = "http://host/images/new.jpg"
	require.NoError(t, s.UpdateImage(ctx, img))

	got, err := s.GetImage(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, "http://host/images/new.jpg", got.ImgPath)

	err = s.UpdateImage(ctx, testImage("missing", "c1", "x"))
	assert.ErrorIs(t, err, ErrNotFound)
}
