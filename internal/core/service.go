// Package core implements the synchronization workflows that keep the
// metadata store, the object store, and the search index consistent. The
// local transaction in the metadata store is the source of truth; blob and
// index writes around it are best-effort, and the gc reconciler cleans up
// whatever they leave behind.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"picsync/internal/blob"
	"picsync/internal/embed"
	"picsync/internal/ingest"
	"picsync/internal/models"
	"picsync/internal/search"
	"picsync/internal/store"
	"picsync/internal/token"
)

// ImageSource is one requested image in a batch operation.
type ImageSource struct {
	Title string
	URL   string
}

// Failure records why one source in a batch could not be ingested.
type Failure struct {
	URL    string
	Reason string
}

// BatchResult reports a partially successful batch operation. A batch only
// fails as a whole when the local transaction fails; individual source
// failures are collected here.
type BatchResult struct {
	Created []*models.Image
	Failed  []Failure
}

// Service ties the stores together. All clients are injected; Service holds
// no global state.
type Service struct {
	meta     *store.Store
	blobs    blob.Store
	index    search.Index
	embedder embed.Embedder
	issuer   *token.Issuer
	ingester *ingest.Ingester
	logger   *slog.Logger
}

// New constructs a Service over explicitly provided clients.
func New(meta *store.Store, blobs blob.Store, index search.Index, embedder embed.Embedder, issuer *token.Issuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		meta:     meta,
		blobs:    blobs,
		index:    index,
		embedder: embedder,
		issuer:   issuer,
		ingester: ingest.New(blobs, logger),
		logger:   logger,
	}
}

// resolve turns a requested source URL into the canonical path stored in the
// metadata store: transient and external URLs are ingested into the object
// store, owned URLs are stripped of any access grant.
func (s *Service) resolve(ctx context.Context, srcURL string, rename bool) (string, error) {
	if ingest.Classify(srcURL, s.blobs.Container()).NeedsIngestion() {
		res, err := s.ingester.Ingest(ctx, srcURL, rename)
		if err != nil {
			return "", err
		}
		return res.URL, nil
	}
	return token.Strip(srcURL), nil
}

// readURL returns a URL the embedding service (or any reader) can fetch:
// owned paths get a short read-only grant appended, everything else is
// already reachable.
func (s *Service) readURL(imgPath string) string {
	if ingest.Classify(imgPath, s.blobs.Container()) != ingest.PathOwned {
		return imgPath
	}
	granted, err := s.issuer.Append(imgPath, s.blobs.Container(), token.ReadOnly)
	if err != nil {
		s.logger.Warn("failed to append access grant", "path", imgPath, "error", err)
		return imgPath
	}
	return granted
}

// indexImages embeds and upserts documents for the given rows. Runs after
// the local transaction has committed; failures are logged, never returned,
// and the reconciler converges the index later.
func (s *Service) indexImages(ctx context.Context, imgs []*models.Image) {
	if len(imgs) == 0 {
		return
	}
	docs := make([]*models.Document, 0, len(imgs))
	for _, img := range imgs {
		vector := s.embedder.EmbedImage(ctx, s.readURL(img.ImgPath))
		docs = append(docs, models.NewDocument(img, vector))
	}
	if failed := s.index.Upsert(ctx, docs); len(failed) > 0 {
		s.logger.Warn("index upsert incomplete", "failed", failed)
	}
}

// dropFromIndex removes the documents for the given sids, tolerating index
// unavailability.
func (s *Service) dropFromIndex(ctx context.Context, sids []string) {
	if len(sids) == 0 {
		return
	}
	if err := s.index.DeleteBySids(ctx, sids); err != nil {
		s.logger.Warn("index delete incomplete", "sids", sids, "error", err)
	}
}

// deleteOwnedBlob removes the backing object of an owned path, best-effort.
func (s *Service) deleteOwnedBlob(ctx context.Context, imgPath string) {
	if ingest.Classify(imgPath, s.blobs.Container()) != ingest.PathOwned {
		return
	}
	key := blob.KeyFromURL(imgPath)
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete blob", "key", key, "error", err)
	}
}

// failureReason flattens an ingest error into a stable human-readable tag.
func failureReason(err error) string {
	var ie *ingest.Error
	if errors.As(err, &ie) {
		return fmt.Sprintf("%s: %v", ie.Kind, ie.Err)
	}
	return err.Error()
}
