// Package store provides SQLite-based persistence for the catalog metadata:
// category and image rows with soft-delete flags. The metadata store is the
// sole owner of the category/image graph; the object store and the search
// index are derived projections.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a referenced category or image row is missing.
var ErrNotFound = errors.New("record not found")

// Store represents the SQLite database store
type Store struct {
	db *sql.DB
}

// New creates a new store connection
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Initialize creates the database schema
func (s *Store) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		sid TEXT PRIMARY KEY,
		topic TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		img_num INTEGER NOT NULL DEFAULT 0,
		owner TEXT NOT NULL DEFAULT '',
		delete_flag INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS images (
		sid TEXT PRIMARY KEY,
		category_id TEXT REFERENCES categories(sid) ON DELETE CASCADE,
		title TEXT NOT NULL DEFAULT '',
		img_path TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL DEFAULT '',
		delete_flag INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_images_category ON images(category_id);
	CREATE INDEX IF NOT EXISTS idx_images_path ON images(category_id, img_path);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	// The reserved bucket for unattached uploads must always exist so image
	// rows under it satisfy the foreign key.
	_, err := s.db.Exec(
		`INSERT INTO categories (sid, title) VALUES (?, 'Uploads') ON CONFLICT(sid) DO NOTHING`,
		uploadBucketSid,
	)
	if err != nil {
		return fmt.Errorf("failed to seed upload bucket: %w", err)
	}
	return nil
}
