package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_EmbedText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vectorize/text", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Api-Key"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "cats", payload["text"])

		json.NewEncoder(w).Encode(map[string]any{"vector": []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 3, nil)
	vec := c.EmbedText(context.Background(), "cats")
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestClient_EmbedImageFailureYieldsEmptyVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 3, nil)
	assert.Empty(t, c.EmbedImage(context.Background(), "http://host/images/a.jpg"))
}

func TestClient_MalformedResponseYieldsEmptyVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 3, nil)
	assert.Empty(t, c.EmbedText(context.Background(), "cats"))
}

func TestClient_UnreachableYieldsEmptyVector(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", 3, nil)
	assert.Empty(t, c.EmbedText(context.Background(), "cats"))
}

func TestMock_Deterministic(t *testing.T) {
	m := NewMock(8)

	a := m.EmbedText(context.Background(), "cats")
	b := m.EmbedText(context.Background(), "cats")
	c := m.EmbedText(context.Background(), "dogs")

	assert.Len(t, a, 8)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, []string{"cats", "cats", "dogs"}, m.TextCalls)
}
