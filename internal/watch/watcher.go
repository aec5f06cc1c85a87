// Package watch submits documents dropped into an intake directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"doc-recognizer/internal/jobs"
	"doc-recognizer/internal/resolve"
)

// Submitter admits one document as a job.
type Submitter interface {
	Submit(req jobs.SubmitRequest) (string, error)
}

// Watcher turns file-create events in one directory into job submissions.
type Watcher struct {
	dir       string
	submitter Submitter
	languages []string
	logger    *slog.Logger

	// settle delays reading a new file so the producer can finish writing.
	settle time.Duration
}

// NewWatcher builds a hot-folder watcher submitting with the given languages.
func NewWatcher(dir string, submitter Submitter, languages []string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:       dir,
		submitter: submitter,
		languages: append([]string(nil), languages...),
		logger:    logger.With("component", "watcher"),
		settle:    200 * time.Millisecond,
	}
}

// Run watches the intake directory until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching intake directory", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			w.handleCreate(ctx, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// handleCreate classifies and submits one newly created file. Unclassifiable
// or unreadable files are logged and skipped, never fatal for the watcher.
func (w *Watcher) handleCreate(ctx context.Context, path string) {
	class, err := resolve.ClassifyPath(path)
	if err != nil {
		w.logger.Debug("ignoring unclassifiable file", "path", path)
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(w.settle):
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("cannot read intake file", "path", path, "error", err)
		return
	}

	jobID, err := w.submitter.Submit(jobs.SubmitRequest{
		Name:         filepath.Base(path),
		Content:      content,
		ContentClass: class,
		Languages:    w.languages,
	})
	if err != nil {
		w.logger.Warn("intake submission rejected", "path", path, "error", err)
		return
	}
	w.logger.Info("intake file submitted", "path", path, "job", jobID)
}
