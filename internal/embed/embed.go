// Package embed calls an external vectorization service to produce
// fixed-length float vectors for text and images. The service fetches image
// URLs itself, so access-controlled URLs must carry a read grant before
// submission; that is the caller's job, not this package's.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Embedder generates vector embeddings. A failed call yields an empty
// vector instead of an error so one bad item degrades only its own index
// entry; callers decide whether to index or skip an empty vector.
type Embedder interface {
	// EmbedText vectorizes a query or caption string.
	EmbedText(ctx context.Context, text string) []float32

	// EmbedImage vectorizes the image at the given URL. The URL must be
	// reachable by the service (grant-suffixed when access-controlled).
	EmbedImage(ctx context.Context, imageURL string) []float32

	// Dimensions returns the fixed vector length of this deployment.
	Dimensions() int
}

// Client is an HTTP Embedder.
type Client struct {
	endpoint string
	apiKey   string
	dims     int
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates an embedding client. dims is the deployment's fixed
// vector dimensionality (e.g. 1024).
func NewClient(endpoint, apiKey string, dims int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		dims:     dims,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// vectorResponse is the service's reply payload.
type vectorResponse struct {
	Vector []float32 `json:"vector"`
}

// EmbedText vectorizes text. Returns an empty vector on any failure.
func (c *Client) EmbedText(ctx context.Context, text string) []float32 {
	return c.vectorize(ctx, "/vectorize/text", map[string]string{"text": text})
}

// EmbedImage vectorizes the image behind the URL. Returns an empty vector
// on any failure.
func (c *Client) EmbedImage(ctx context.Context, imageURL string) []float32 {
	return c.vectorize(ctx, "/vectorize/image", map[string]string{"url": imageURL})
}

// Dimensions returns the configured vector length.
func (c *Client) Dimensions() int {
	return c.dims
}

func (c *Client) vectorize(ctx context.Context, path string, payload map[string]string) []float32 {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("embed: build request", "path", path, "error", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("embed: request failed", "path", path, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("embed: non-200 response",
			"path", path, "status", resp.StatusCode, "body", string(snippet))
		return nil
	}

	var vr vectorResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		c.logger.Warn("embed: malformed response", "path", path, "error", err)
		return nil
	}
	if len(vr.Vector) != c.dims {
		c.logger.Warn("embed: unexpected vector length",
			"path", path, "got", len(vr.Vector), "want", c.dims)
	}
	return vr.Vector
}

var _ Embedder = (*Client)(nil)

// Mock is a deterministic Embedder for tests. Vectors are derived from the
// input string so equal inputs embed equally.
type Mock struct {
	Dims int
	// Fail makes every call return an empty vector.
	Fail bool
	// TextCalls and ImageCalls record inputs in order.
	TextCalls  []string
	ImageCalls []string
}

// NewMock creates a mock embedder with the given dimensionality.
func NewMock(dims int) *Mock {
	return &Mock{Dims: dims}
}

func (m *Mock) EmbedText(_ context.Context, text string) []float32 {
	m.TextCalls = append(m.TextCalls, text)
	if m.Fail {
		return nil
	}
	return m.vectorFor(text)
}

func (m *Mock) EmbedImage(_ context.Context, imageURL string) []float32 {
	m.ImageCalls = append(m.ImageCalls, imageURL)
	if m.Fail {
		return nil
	}
	return m.vectorFor(imageURL)
}

func (m *Mock) Dimensions() int {
	return m.Dims
}

func (m *Mock) vectorFor(s string) []float32 {
	vec := make([]float32, m.Dims)
	var acc uint32
	for _, b := range []byte(s) {
		acc = acc*31 + uint32(b)
	}
	for i := range vec {
		acc = acc*1664525 + 1013904223
		vec[i] = float32(acc%1000) / 1000
	}
	return vec
}

var _ Embedder = (*Mock)(nil)
