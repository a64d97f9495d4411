package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSStore implements Store on the local filesystem. Intended for development
// and single-node deployments; the canonical URL uses the configured public
// endpoint, not a file:// path, so records stay portable across backends.
type FSStore struct {
	root      string
	endpoint  string
	container string
}

// NewFSStore creates a filesystem-backed store rooted at dir. Objects live
// directly under {dir}/{container}.
func NewFSStore(dir, endpoint, container string) (*FSStore, error) {
	root := filepath.Join(dir, container)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create container dir: %w", err)
	}
	return &FSStore{
		root:      root,
		endpoint:  strings.TrimRight(endpoint, "/"),
		container: container,
	}, nil
}

// validKey rejects keys that would escape the container directory.
func validKey(key string) error {
	if key == "" || key == "." || key == ".." ||
		strings.ContainsAny(key, "/\\") {
		return fmt.Errorf("invalid object key: %q", key)
	}
	return nil
}

// Put writes the object via a temp file and atomic rename. Overwrites are
// allowed: uploads are idempotent by key.
func (s *FSStore) Put(_ context.Context, key string, data []byte) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.root, ".put-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write object data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(s.root, key)); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename object: %w", err)
	}

	return s.URL(key), nil
}

// Get reads the object bytes. Returns ErrNotFound if absent.
func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.root, key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the object. Missing objects are not an error.
func (s *FSStore) Delete(_ context.Context, key string) error {
	if err := validKey(key); err != nil {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// List returns all object keys by scanning the container directory.
func (s *FSStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list container: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		keys = append(keys, e.Name())
	}
	return keys, nil
}

// Exists checks whether the object is present.
func (s *FSStore) Exists(_ context.Context, key string) (bool, error) {
	if err := validKey(key); err != nil {
		return false, nil
	}
	_, err := os.Stat(filepath.Join(s.root, key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat object %s: %w", key, err)
	}
	return true, nil
}

// URL returns the canonical URL for a key.
func (s *FSStore) URL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.container, key)
}

// Container returns the container name.
func (s *FSStore) Container() string {
	return s.container
}

var _ Store = (*FSStore)(nil)
