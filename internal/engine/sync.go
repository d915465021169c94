// Package engine orchestrates the disk↔store synchronization passes: sync
// (disk into the version store) and flatten (store back onto disk).
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corrander/vellum/internal/apperr"
	"github.com/corrander/vellum/internal/loader"
	"github.com/corrander/vellum/internal/storage"
	"github.com/corrander/vellum/internal/store"
)

// Stages a SyncError can originate from.
const (
	StageLoad  = "load"
	StageStore = "store"
)

// SyncError is one per-document failure inside a sync batch.
type SyncError struct {
	Name   string `json:"name"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// SyncSummary is the sole artifact a sync batch hands to its caller.
type SyncSummary struct {
	Created   []string    `json:"created"`
	Updated   []string    `json:"updated"`
	Unchanged []string    `json:"unchanged"`
	Errors    []SyncError `json:"errors"`
}

// EventCallback is invoked after each store mutation with the outcome and
// the document name.
type EventCallback func(outcome store.Outcome, name string)

// Engine drives sync and flatten passes over one workspace.
type Engine struct {
	loader *loader.Loader
	db     *store.DB
	fs     storage.Provider
	logger *slog.Logger
	notify EventCallback
}

// New creates an Engine. cb may be nil.
func New(l *loader.Loader, db *store.DB, fs storage.Provider, logger *slog.Logger, cb EventCallback) *Engine {
	return &Engine{loader: l, db: db, fs: fs, logger: logger, notify: cb}
}

// Sync runs one load → compare → upsert batch. Per-file load failures
// and per-document store failures are folded into the summary without
// halting the batch. A ConsistencyError aborts immediately: the summary
// built so far is returned alongside the error, and every document
// already committed stays fully versioned. Cancelling ctx mid-batch
// likewise yields a partial summary.
func (e *Engine) Sync(ctx context.Context) (*SyncSummary, error) {
	// Refuse to layer new history on a corrupted baseline.
	if err := e.db.VerifyIntegrity(); err != nil {
		return nil, err
	}

	docs, loadErrs := e.loader.Load(ctx)
	summary := &SyncSummary{}
	for _, le := range loadErrs {
		summary.Errors = append(summary.Errors, SyncError{Name: le.Path, Stage: StageLoad, Reason: le.Reason})
	}

	for _, doc := range docs {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		res, err := e.db.Upsert(doc, "")
		if err != nil {
			if apperr.IsConsistency(err) {
				return summary, err
			}
			summary.Errors = append(summary.Errors, SyncError{Name: doc.Name, Stage: StageStore, Reason: err.Error()})
			continue
		}

		switch res.Outcome {
		case store.OutcomeCreated:
			summary.Created = append(summary.Created, doc.Name)
		case store.OutcomeUpdated:
			summary.Updated = append(summary.Updated, doc.Name)
		case store.OutcomeUnchanged:
			summary.Unchanged = append(summary.Unchanged, doc.Name)
		}
		if e.notify != nil && res.Outcome != store.OutcomeUnchanged {
			e.notify(res.Outcome, doc.Name)
		}
	}

	e.logger.Info("sync: batch complete",
		slog.Int("created", len(summary.Created)),
		slog.Int("updated", len(summary.Updated)),
		slog.Int("unchanged", len(summary.Unchanged)),
		slog.Int("errors", len(summary.Errors)))
	return summary, nil
}

// SyncFile loads and upserts a single workspace-relative path. Used by
// the watcher for incremental updates between full batches.
func (e *Engine) SyncFile(rel string) (store.UpsertResult, error) {
	doc, err := e.loader.LoadFile(rel)
	if err != nil {
		return store.UpsertResult{}, err
	}
	res, err := e.db.Upsert(*doc, "")
	if err != nil {
		return store.UpsertResult{}, fmt.Errorf("engine: sync %s: %w", rel, err)
	}
	if e.notify != nil && res.Outcome != store.OutcomeUnchanged {
		e.notify(res.Outcome, doc.Name)
	}
	return res, nil
}
