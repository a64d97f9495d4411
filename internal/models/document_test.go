package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDocumentID_Deterministic(t *testing.T) {
	a := DocumentID("image-1")
	b := DocumentID("image-1")
	c := DocumentID("image-2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// Index object ids must be parseable UUIDs.
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestNewDocument(t *testing.T) {
	img := &Image{SID: "i1", Title: "cat", ImgPath: "http://host/images/a.jpg"}
	doc := NewDocument(img, []float32{0.1, 0.2})

	assert.Equal(t, DocumentID("i1"), doc.ID)
	assert.Equal(t, "i1", doc.SID)
	assert.Equal(t, "cat", doc.Title)
	assert.Equal(t, "http://host/images/a.jpg", doc.ImgPath)
	assert.Equal(t, []float32{0.1, 0.2}, doc.Vector)
}
