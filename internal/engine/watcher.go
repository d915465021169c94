package engine

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher over the configured document roots and
// keeps the store current until ctx is cancelled. Writes and creates
// upsert the touched file; removes and renames never delete store rows
// (there is no deletion path), but they schedule a debounced full sync so
// that a file reappearing under a new path is picked up. New directories
// created at runtime are added to the watch list.
func Watch(ctx context.Context, e *Engine, roots []string, ext string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	workspace := e.fs.Root()
	for _, root := range roots {
		if err := addDirsRecursive(w, filepath.Join(workspace, root)); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.String("workspace", workspace))

	// resyncTimer debounces the full-sync pass after renames and removes.
	var resyncTimer *time.Timer
	var resyncCh <-chan time.Time

	scheduleResync := func() {
		if resyncTimer == nil {
			resyncTimer = time.NewTimer(500 * time.Millisecond)
			resyncCh = resyncTimer.C
		} else {
			resyncTimer.Reset(500 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if resyncTimer != nil {
				resyncTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-resyncCh:
			if _, err := e.Sync(ctx); err != nil {
				logger.Error("watcher: resync failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories join the watch list; a resync picks up
			// anything already inside them.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					scheduleResync()
					continue
				}
			}

			if !strings.HasSuffix(absPath, ext) {
				continue
			}

			rel, relErr := filepath.Rel(workspace, absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				res, syncErr := e.SyncFile(rel)
				if syncErr != nil {
					logger.Warn("watcher: sync failed", slog.String("path", rel), slog.String("error", syncErr.Error()))
					continue
				}
				logger.Debug("watcher: synced",
					slog.String("path", rel),
					slog.String("outcome", string(res.Outcome)),
					slog.Int("version", res.Version))

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Disk removal does not remove the document from the
				// store. If this was a move, the new path arrives as a
				// separate Create; the resync catches anything missed.
				logger.Debug("watcher: file gone, store row kept", slog.String("path", rel))
				scheduleResync()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
