// Package watch turns file-system activity in a vault into debounced change
// notifications.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/propindex/internal/storage"
)

// DefaultDebounce is used when Watch is given a non-positive delay.
const DefaultDebounce = 300 * time.Millisecond

// ChangeCallback receives the vault-relative paths touched since the last
// notification, sorted and de-duplicated. A removed or renamed directory is
// reported by its own path.
type ChangeCallback func(paths []string)

// Watch starts an fsnotify watcher on the vault root and calls cb once per
// burst of note changes, after debounce has passed without further events.
// It blocks until ctx is cancelled.
//
// New directories created at runtime are added to the watch list. Hidden
// directories are ignored.
func Watch(ctx context.Context, vaultRoot string, debounce time.Duration, logger *slog.Logger, cb ChangeCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot), slog.Duration("debounce", debounce))

	var timer *time.Timer
	var fire <-chan time.Time
	pending := make(map[string]struct{})

	schedule := func(rel string) {
		pending[rel] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]struct{})
			logger.Debug("watcher: changes settled", slog.Int("paths", len(paths)))
			if cb != nil {
				cb(paths)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, relevant := classify(w, vaultRoot, ev, logger)
			if relevant {
				schedule(rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// classify decides whether ev can change the facet tree and returns its
// vault-relative path.
func classify(w *fsnotify.Watcher, vaultRoot string, ev fsnotify.Event, logger *slog.Logger) (string, bool) {
	absPath := ev.Name
	rel, err := filepath.Rel(vaultRoot, absPath)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if hiddenPath(rel) {
		return "", false
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
			if addErr := addDirsRecursive(w, absPath); addErr != nil {
				logger.Warn("watcher: add new dir failed",
					slog.String("path", absPath),
					slog.String("error", addErr.Error()))
			} else {
				logger.Debug("watcher: watching new dir", slog.String("path", absPath))
			}
			// A directory moved into the vault may already hold notes.
			return rel, true
		}
	}

	if storage.IsNote(absPath) {
		return rel, ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
	}

	// Removing or renaming a directory drops every note below it.
	return rel, ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0
}

func hiddenPath(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if storage.IsHidden(seg) {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && storage.IsHidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
