// Package gc implements the scheduled reconciliation job that restores
// cross-store consistency: it hard-deletes soft-deleted rows, then removes
// orphaned blobs and orphaned index documents no longer referenced by the
// metadata store. Every other component is allowed to fail uncleanly and
// leave an orphan behind, because this job guarantees eventual cleanup.
package gc

import (
	"context"
	"fmt"
	"log/slog"

	"picsync/internal/blob"
	"picsync/internal/search"
	"picsync/internal/store"
)

// Result contains the outcome of a reconciliation run.
type Result struct {
	RowsDeleted  int64
	LivePaths    int
	BlobsScanned int
	BlobsDeleted int
	DocsScanned  int
	DocsDeleted  int

	// PassErrors collects per-pass failures; a failed pass never blocks the
	// remaining passes.
	PassErrors []string
}

// Reconciler diffs the metadata store against the object store and the
// search index on a fixed schedule.
type Reconciler struct {
	meta   *store.Store
	blobs  blob.Store
	index  search.Index
	logger *slog.Logger
}

// New creates a Reconciler over the three stores.
func New(meta *store.Store, blobs blob.Store, index search.Index, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{meta: meta, blobs: blobs, index: index, logger: logger}
}

// Run executes one reconciliation. The passes are sequential and
// independent; all of them are idempotent, so a late or repeated invocation
// is safe. Orphans are only ever removed; missing index documents for live
// rows are not backfilled here.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	result := &Result{}

	// Pass 1: hard-delete every row flagged for deletion. The only place
	// hard deletes originate on the scheduled path.
	deleted, err := r.meta.HardDeleteFlagged(ctx)
	if err != nil {
		r.logger.Warn("reconcile: hard-delete pass failed", "error", err)
		result.PassErrors = append(result.PassErrors, fmt.Sprintf("hard-delete: %v", err))
	}
	result.RowsDeleted = deleted

	// Pass 2: recompute the authoritative live path set. Without it the
	// orphan passes cannot run safely.
	live, err := r.meta.AllPaths(ctx)
	if err != nil {
		return result, fmt.Errorf("recompute live paths: %w", err)
	}
	result.LivePaths = len(live)

	r.sweepBlobs(ctx, live, result)
	r.sweepIndex(ctx, live, result)

	r.logger.Info("reconcile complete",
		"rows_deleted", result.RowsDeleted,
		"live_paths", result.LivePaths,
		"blobs_scanned", result.BlobsScanned,
		"blobs_deleted", result.BlobsDeleted,
		"docs_scanned", result.DocsScanned,
		"docs_deleted", result.DocsDeleted,
		"pass_errors", len(result.PassErrors),
	)

	return result, nil
}

// sweepBlobs deletes every blob whose canonical URL is not referenced by an
// image row.
func (r *Reconciler) sweepBlobs(ctx context.Context, live map[string]bool, result *Result) {
	keys, err := r.blobs.List(ctx)
	if err != nil {
		r.logger.Warn("reconcile: list blobs failed", "error", err)
		result.PassErrors = append(result.PassErrors, fmt.Sprintf("list blobs: %v", err))
		return
	}
	result.BlobsScanned = len(keys)

	for _, key := range keys {
		if live[r.blobs.URL(key)] {
			continue
		}
		if err := r.blobs.Delete(ctx, key); err != nil {
			r.logger.Warn("reconcile: failed to delete blob", "key", key, "error", err)
			continue
		}
		result.BlobsDeleted++
	}
}

// sweepIndex deletes every index document whose imgPath is not referenced by
// an image row. Matching is by path, not sid: documents created out-of-band
// by an external indexer have no sid and no owning row, and documents whose
// row was hard-deleted before the synchronous delete path ran are caught
// here too.
func (r *Reconciler) sweepIndex(ctx context.Context, live map[string]bool, result *Result) {
	docs, err := r.index.ListAll(ctx)
	if err != nil {
		r.logger.Warn("reconcile: list index documents failed", "error", err)
		result.PassErrors = append(result.PassErrors, fmt.Sprintf("list index: %v", err))
		return
	}
	result.DocsScanned = len(docs)

	for _, doc := range docs {
		if live[doc.ImgPath] {
			continue
		}
		if err := r.index.Delete(ctx, doc.ID); err != nil {
			r.logger.Warn("reconcile: failed to delete document",
				"id", doc.ID, "sid", doc.SID, "error", err)
			continue
		}
		result.DocsDeleted++
	}
}
