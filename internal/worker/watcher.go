package worker

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/bull/pdfchat/internal/extract"
	"github.com/bull/pdfchat/internal/queue"
)

// WatchUploads enqueues files dropped directly into the upload directory,
// bypassing the HTTP API. Runs until ctx is cancelled.
//
// Editors and copy tools often emit several events per file; enqueueing each
// Create/Write is acceptable because the queue does not deduplicate anyway
// and reprocessing is the documented behavior for duplicate uploads.
func WatchUploads(ctx context.Context, dir string, q *queue.Queue, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	logger.Info("watching upload directory", "dir", dir)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !extract.Supported(event.Name) {
				continue
			}

			job := queue.UploadJob{
				Filename:    filepath.Base(event.Name),
				StoragePath: event.Name,
			}
			jobID, err := q.Enqueue(ctx, job)
			if err != nil {
				logger.Error("failed to enqueue watched file", "file", event.Name, "error", err)
				continue
			}
			logger.Info("enqueued watched file", "file", event.Name, "job", jobID)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}
