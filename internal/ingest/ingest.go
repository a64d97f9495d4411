package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"picsync/internal/blob"
	"picsync/internal/token"
)

// MinImageBytes is the smallest payload accepted as a real image. Anything
// under it is a placeholder or an error page, rejected rather than stored.
const MinImageBytes = 1024

// maxImageBytes bounds the download; catalog images are modest.
const maxImageBytes = 32 << 20

// filenamePattern extracts the filename from a Content-Disposition header.
var filenamePattern = regexp.MustCompile(`filename="?([^";]+)"?`)

// Result is a successful ingestion: the canonical object-store URL and the
// stored bytes, returned so callers can reuse them without re-downloading.
type Result struct {
	URL   string
	Bytes []byte
}

// Ingester downloads source images and writes them into the object store.
type Ingester struct {
	blobs  blob.Store
	http   *http.Client
	logger *slog.Logger

	// rename collision guard: two renames inside the same microsecond get
	// a counter suffix instead of the same key.
	mu        sync.Mutex
	lastStamp string
	seq       int
}

// New creates an Ingester writing into the given object store.
func New(blobs blob.Store, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		blobs:  blobs,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Ingest fetches the source URL, validates that the payload decodes as an
// image, and uploads it under a canonical name with overwrite semantics.
// With rename=false the source filename is reused (idempotent by key); with
// rename=true a timestamp-derived unique name is synthesized so a blob still
// referenced by the old index document is not overwritten mid-transition.
// All failures are typed *Error values.
func (g *Ingester) Ingest(ctx context.Context, srcURL string, rename bool) (*Result, error) {
	data, name, err := g.fetch(ctx, srcURL)
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, validationErr(srcURL, fmt.Errorf("payload is not a decodable image: %w", err))
	}

	if rename {
		name = g.uniqueName(path.Ext(name))
	}

	encoded, err := reencode(img, format)
	if err != nil {
		// Fall back to the verified original bytes for formats we decode
		// but do not re-encode.
		encoded = data
	}

	url, err := g.blobs.Put(ctx, name, encoded)
	if err != nil {
		return nil, transientErr(srcURL, fmt.Errorf("upload %s: %w", name, err))
	}

	g.logger.Debug("ingested image", "source", srcURL, "key", name, "bytes", len(encoded))
	return &Result{URL: url, Bytes: encoded}, nil
}

// fetch downloads the source bytes and derives the destination filename.
func (g *Ingester) fetch(ctx context.Context, srcURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, "", validationErr(srcURL, err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, "", transientErr(srcURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, "", authErr(srcURL, fmt.Errorf("source returned %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, "", transientErr(srcURL, fmt.Errorf("source returned %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", transientErr(srcURL, err)
	}
	if len(data) < MinImageBytes {
		return nil, "", validationErr(srcURL, fmt.Errorf("payload too small (%d bytes)", len(data)))
	}

	return data, destName(resp.Header.Get("Content-Disposition"), srcURL), nil
}

// destName derives the destination key from the Content-Disposition header
// when present, otherwise from the URL's final path segment with any query
// (grant markers included) stripped.
func destName(contentDisposition, srcURL string) string {
	if m := filenamePattern.FindStringSubmatch(contentDisposition); m != nil {
		return m[1]
	}
	name := token.Strip(srcURL)
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" {
		name = "image"
	}
	return name
}

// uniqueName synthesizes a destination key from a high-resolution timestamp.
// Two calls inside the same microsecond get distinct keys via a sequence
// suffix.
func (g *Ingester) uniqueName(ext string) string {
	t := time.Now().UTC()
	stamp := t.Format("20060102150405") + fmt.Sprintf("%06d", t.Nanosecond()/1000)

	g.mu.Lock()
	if stamp == g.lastStamp {
		g.seq++
		stamp = fmt.Sprintf("%s-%d", stamp, g.seq)
	} else {
		g.lastStamp = stamp
		g.seq = 0
	}
	g.mu.Unlock()

	if ext == "" {
		ext = ".png"
	}
	return stamp + ext
}

// reencode writes the decoded image back out in its original format,
// normalizing whatever the source served into a clean encoding.
func reencode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, err
		}
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("no encoder for format %q", format)
	}
	return buf.Bytes(), nil
}
