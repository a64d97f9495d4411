package search

import (
	"context"
	"fmt"
	"sort"

	"picsync/internal/models"
)

// MockIndex is an in-memory Index for testing.
type MockIndex struct {
	// Docs stores documents by derived id.
	Docs map[string]*models.Document
	// FailIDs marks document ids whose upsert should fail.
	FailIDs map[string]bool
	// Err can be set to make scan/search methods return an error.
	Err error
	// DeletedSids records DeleteBySids calls in order.
	DeletedSids []string
}

// NewMockIndex creates an empty MockIndex.
func NewMockIndex() *MockIndex {
	return &MockIndex{
		Docs:    make(map[string]*models.Document),
		FailIDs: make(map[string]bool),
	}
}

// Add seeds a document directly into the mock store.
func (m *MockIndex) Add(doc *models.Document) {
	m.Docs[doc.ID] = doc
}

func (m *MockIndex) EnsureSchema(context.Context) error {
	return m.Err
}

func (m *MockIndex) Upsert(_ context.Context, docs []*models.Document) []string {
	var failed []string
	for _, doc := range docs {
		if m.FailIDs[doc.ID] {
			if doc.SID != "" {
				failed = append(failed, doc.SID)
			} else {
				failed = append(failed, doc.ImgPath)
			}
			continue
		}
		m.Docs[doc.ID] = doc
	}
	return failed
}

func (m *MockIndex) DeleteBySids(_ context.Context, sids []string) error {
	if m.Err != nil {
		return m.Err
	}
	want := make(map[string]bool, len(sids))
	for _, sid := range sids {
		want[sid] = true
	}
	for id, doc := range m.Docs {
		if want[doc.SID] {
			delete(m.Docs, id)
		}
	}
	m.DeletedSids = append(m.DeletedSids, sids...)
	return nil
}

func (m *MockIndex) Delete(_ context.Context, id string) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.Docs, id)
	return nil
}

// Search ranks stored documents by dot product with the query vector.
func (m *MockIndex) Search(_ context.Context, vector []float32, k int) ([]*models.Document, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	type scored struct {
		doc   *models.Document
		score float64
	}
	var ranked []scored
	for _, doc := range m.Docs {
		ranked = append(ranked, scored{doc, dot(vector, doc.Vector)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].doc.ID < ranked[j].doc.ID
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	docs := make([]*models.Document, 0, k)
	for _, r := range ranked[:k] {
		docs = append(docs, r.doc)
	}
	return docs, nil
}

func (m *MockIndex) ListAll(context.Context) ([]*models.Document, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	docs := make([]*models.Document, 0, len(m.Docs))
	for _, doc := range m.Docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// HasSid reports whether any stored document carries the sid.
func (m *MockIndex) HasSid(sid string) bool {
	for _, doc := range m.Docs {
		if doc.SID == sid {
			return true
		}
	}
	return false
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

var _ Index = (*MockIndex)(nil)

// String implements fmt.Stringer for test failure output.
func (m *MockIndex) String() string {
	return fmt.Sprintf("MockIndex(%d docs)", len(m.Docs))
}
