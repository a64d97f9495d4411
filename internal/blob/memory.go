package blob

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store used by tests and the reconciler's own
// test fixtures.
type MemStore struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	endpoint  string
	container string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(endpoint, container string) *MemStore {
	return &MemStore{
		objects:   make(map[string][]byte),
		endpoint:  strings.TrimRight(endpoint, "/"),
		container: container,
	}
}

func (s *MemStore) Put(_ context.Context, key string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = cp
	return s.URL(key), nil
}

func (s *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (s *MemStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MemStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *MemStore) URL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.container, key)
}

func (s *MemStore) Container() string {
	return s.container
}

// Len returns the number of stored objects.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

var _ Store = (*MemStore)(nil)
