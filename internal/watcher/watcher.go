// Package watcher forces a corpus refresh shortly after fixture files change,
// so edits are served without waiting for the scan throttle.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/szibis/mock-exporter/internal/logging"
)

// DefaultDebounce coalesces bursts of events, e.g. an editor's
// write-rename-chmod sequence, into one refresh.
const DefaultDebounce = 500 * time.Millisecond

// RefreshFunc rescans the corpus; force bypasses the throttle.
type RefreshFunc func(force bool) error

// Config holds watcher configuration.
type Config struct {
	Dir       string
	Recursive bool
	Debounce  time.Duration
}

// Watcher triggers RefreshFunc on filesystem changes below Dir.
type Watcher struct {
	cfg     Config
	refresh RefreshFunc
	fsw     *fsnotify.Watcher
}

// New creates a watcher and registers Dir (and its subdirectories when
// Recursive is set).
func New(cfg Config, refresh RefreshFunc) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{cfg: cfg, refresh: refresh, fsw: fsw}
	if err := w.addTree(cfg.Dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	if !w.cfg.Recursive {
		if err := w.fsw.Add(root); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Run processes events until ctx is cancelled, then closes the underlying
// watcher. It always returns nil after cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.cfg.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	logging.Info("watching fixture directory", logging.F(
		"dir", w.cfg.Dir,
		"recursive", w.cfg.Recursive,
		"debounce", w.cfg.Debounce.String(),
	))

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if w.cfg.Recursive && ev.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						logging.Warn("failed to watch new directory", logging.F("path", ev.Name, "error", err.Error()))
					}
				}
			}
			watchEventsTotal.Inc()
			timer.Reset(w.cfg.Debounce)

		case <-timer.C:
			watchRefreshesTotal.Inc()
			if err := w.refresh(true); err != nil {
				logging.Warn("refresh after fixture change failed", logging.F("error", err.Error()))
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logging.Warn("fixture watcher error", logging.F("error", err.Error()))
		}
	}
}
