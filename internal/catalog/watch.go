package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/avatars/internal/models"
	"github.com/starford/avatars/internal/storage"
)

// RebuildCallback is called after each watcher-driven rebuild. err is the
// build error, in which case the previous sidecar is left untouched.
type RebuildCallback func(c *models.Catalog, err error)

const rebuildDebounce = 200 * time.Millisecond

// Watch rebuilds the catalog of dir whenever a Markdown file in it, or the
// base instructions file, changes. Bursts of events are coalesced. It
// returns when ctx is cancelled.
func Watch(ctx context.Context, b *Builder, dir, basePath string, logger *slog.Logger, cb RebuildCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return err
	}

	if err := w.Add(absDir); err != nil {
		return err
	}
	if baseDir := filepath.Dir(absBase); baseDir != absDir {
		if err := w.Add(baseDir); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.String("dir", absDir), slog.String("base", absBase))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(rebuildDebounce)
			timerCh = timer.C
		} else {
			timer.Reset(rebuildDebounce)
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

		case <-timerCh:
			c, buildErr := b.Generate(dir, basePath)
			if buildErr != nil {
				logger.Warn("watcher: rebuild failed", slog.String("error", buildErr.Error()))
			} else {
				logger.Debug("watcher: rebuilt", slog.Int("personas", len(c.Personas)))
			}
			if cb != nil {
				cb(c, buildErr)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, absDir, absBase) {
				continue
			}
			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func relevant(ev fsnotify.Event, dir, base string) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if ev.Name == base {
		return true
	}
	return filepath.Dir(ev.Name) == dir && filepath.Ext(ev.Name) == storage.MarkdownExt
}
