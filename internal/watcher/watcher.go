// Package watcher reloads the endpoint file when it is edited on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/switchyard/internal/logger"
)

const defaultSettle = 200 * time.Millisecond

// Reloader re-reads a file and reports whether its content changed.
type Reloader interface {
	Reload() (bool, error)
}

// FileWatcher watches one file through its parent directory, so atomic
// replacements (write temp + rename) are seen as well as in-place writes.
type FileWatcher struct {
	path   string
	target Reloader
	logger logger.Logger
	settle time.Duration
}

func New(path string, target Reloader, log logger.Logger) *FileWatcher {
	return &FileWatcher{
		path:   filepath.Clean(path),
		target: target,
		logger: log,
		settle: defaultSettle,
	}
}

// Run blocks until ctx is done. Bursts of events are coalesced into one
// reload once the file has been quiet for the settle period.
func (fw *FileWatcher) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	dir := filepath.Dir(fw.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	fw.logger.Info("watching endpoint file", logger.String("path", fw.path))

	var pending <-chan time.Time
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != fw.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			fw.logger.Debug("endpoint file event", logger.String("op", ev.Op.String()))
			pending = time.After(fw.settle)

		case <-pending:
			pending = nil
			changed, err := fw.target.Reload()
			if err != nil {
				fw.logger.Warn("failed to reload endpoint file", logger.Error(err))
				continue
			}
			if changed {
				fw.logger.Info("endpoint file changed on disk")
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fw.logger.Warn("watch error", logger.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}
