package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/theaibuilders/ai-builders-tutorial/internal/models"
	"github.com/theaibuilders/ai-builders-tutorial/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of EventCreated, EventUpdated, EventDeleted.
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

// watcher holds the state shared by the event loop helpers.
type watcher struct {
	db     *DB
	src    storage.Source
	ex     Extractor
	root   string
	logger *slog.Logger
	cb     EventCallback
}

func (w *watcher) emit(kind, path string) {
	if w.cb != nil {
		w.cb(kind, path)
	}
}

// Watch starts an fsnotify watcher on the content root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass that removes stale
// index entries whose files no longer exist on disk.
func Watch(ctx context.Context, db *DB, src storage.Source, ex Extractor, root string, logger *slog.Logger, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, root); err != nil {
		return err
	}
	w := &watcher{db: db, src: src, ex: ex, root: root, logger: logger, cb: cb}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if hiddenName(info.Name()) {
						continue
					}
					if addErr := addDirsRecursive(fw, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					w.indexDir(absPath)
					continue
				}
			}

			if models.KindOf(absPath) == "" {
				continue
			}
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := EventUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = EventCreated
				}
				if w.index(rel) {
					logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
					w.emit(kind, rel)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.Delete(rel); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				w.emit(EventDeleted, rel)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the old path only; the new path
				// arrives as a separate Create when it stays inside a
				// watched directory.
				if delErr := db.Delete(rel); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("path", rel))
					w.emit(EventDeleted, rel)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// index reads and indexes one file, reporting whether it succeeded.
func (w *watcher) index(rel string) bool {
	data, err := w.src.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return false
	}
	meta := models.FileMeta{Path: rel, Kind: models.KindOf(rel), UpdatedAt: time.Now()}
	if err := indexFile(w.db, w.ex, meta, data); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return false
	}
	return true
}

// reconcile does a lightweight sync using batch lookups: index entries
// without a file are removed and unindexed or changed files are indexed.
func (w *watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.src.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]models.FileMeta, len(metas))
	for _, m := range metas {
		disk[m.Path] = m
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := w.db.Delete(p); delErr == nil {
				w.logger.Debug("reconcile: removed stale", slog.String("path", p))
				w.emit(EventDeleted, p)
			}
		}
	}

	for p, m := range disk {
		if checksums[p] == m.Checksum {
			continue
		}
		data, readErr := w.src.Read(p)
		if readErr != nil {
			continue
		}
		if idxErr := indexFile(w.db, w.ex, m, data); idxErr == nil {
			w.logger.Debug("reconcile: indexed new", slog.String("path", p))
			w.emit(EventCreated, p)
		}
	}
}

// indexDir indexes the tutorial files found in a newly created directory.
func (w *watcher) indexDir(dirPath string) {
	_ = filepath.WalkDir(dirPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || models.KindOf(p) == "" {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if w.index(rel) {
			w.logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			w.emit(EventCreated, rel)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && hiddenName(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

func hiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}
