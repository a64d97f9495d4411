package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picsync/internal/blob"
)

// testPNG renders an incompressible image so the encoded payload clears the
// minimum size check.
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	seed := uint32(12345)
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			seed = seed*1664525 + 1013904223
			img.Set(x, y, color.RGBA{uint8(seed), uint8(seed >> 8), uint8(seed >> 16), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.GreaterOrEqual(t, buf.Len(), MinImageBytes)
	return buf.Bytes()
}

func newTestIngester(t *testing.T) (*Ingester, *blob.MemStore) {
	t.Helper()
	store := blob.NewMemStore("http://localhost:9000", "images")
	return New(store, nil), store
}

func TestClassify(t *testing.T) {
	assert.Equal(t, PathTransient,
		Classify("https://gen.example.com/img.png?se=1735689600&sig=abc", "images"))
	assert.Equal(t, PathOwned,
		Classify("http://localhost:9000/images/cat.jpg", "images"))
	assert.Equal(t, PathExternal,
		Classify("https://upload.wikimedia.org/cat.jpg", "images"))

	assert.False(t, PathOwned.NeedsIngestion())
	assert.True(t, PathTransient.NeedsIngestion())
	assert.True(t, PathExternal.NeedsIngestion())
}

func TestIngester_IngestStoresImage(t *testing.T) {
	ctx := context.Background()
	payload := testPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	ing, store := newTestIngester(t)
	res, err := ing.Ingest(ctx, srv.URL+"/photos/cat.png", false)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/images/cat.png", res.URL)
	assert.NotEmpty(t, res.Bytes)

	stored, err := store.Get(ctx, "cat.png")
	require.NoError(t, err)
	assert.Equal(t, res.Bytes, stored)
}

func TestIngester_IngestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	payload := testPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	ing, store := newTestIngester(t)
	first, err := ing.Ingest(ctx, srv.URL+"/cat.png", false)
	require.NoError(t, err)
	second, err := ing.Ingest(ctx, srv.URL+"/cat.png", false)
	require.NoError(t, err)

	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, 1, store.Len())
}

func TestIngester_NameFromContentDisposition(t *testing.T) {
	ctx := context.Background()
	payload := testPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="served.png"`)
		w.Write(payload)
	}))
	defer srv.Close()

	ing, _ := newTestIngester(t)
	res, err := ing.Ingest(ctx, srv.URL+"/ignored.png", false)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/images/served.png", res.URL)
}

func TestIngester_RenameGeneratesUniqueKeys(t *testing.T) {
	ctx := context.Background()
	payload := testPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	ing, store := newTestIngester(t)
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		res, err := ing.Ingest(ctx, fmt.Sprintf("%s/same.png?se=1&sig=x%d", srv.URL, i), true)
		require.NoError(t, err)
		assert.False(t, seen[res.URL], "duplicate key %s", res.URL)
		seen[res.URL] = true
	}
	assert.Equal(t, 10, store.Len())
}

func TestIngester_RejectsUndersizedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tiny"))
	}))
	defer srv.Close()

	ing, store := newTestIngester(t)
	_, err := ing.Ingest(context.Background(), srv.URL+"/cat.png", false)

	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, KindValidation, ie.Kind)
	assert.Zero(t, store.Len())
}

func TestIngester_RejectsNonImagePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("<html>not an image</html>"), 100))
	}))
	defer srv.Close()

	ing, store := newTestIngester(t)
	_, err := ing.Ingest(context.Background(), srv.URL+"/page", false)

	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, KindValidation, ie.Kind)
	assert.Zero(t, store.Len())
}

func TestIngester_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	ing, _ := newTestIngester(t)
	_, err := ing.Ingest(context.Background(), srv.URL+"/secret.png", false)

	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, KindAuthorization, ie.Kind)
}

func TestIngester_TransientFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ing, _ := newTestIngester(t)
	_, err := ing.Ingest(context.Background(), srv.URL+"/cat.png", false)

	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, KindTransient, ie.Kind)
}

func TestDestName(t *testing.T) {
	assert.Equal(t, "a.png", destName("", "http://host/dir/a.png"))
	assert.Equal(t, "a.png", destName("", "http://host/dir/a.png?se=1&sig=x"))
	assert.Equal(t, "served.jpg", destName(`attachment; filename=served.jpg`, "http://host/x"))
	assert.Equal(t, "image", destName("", "http://host/"))
}
