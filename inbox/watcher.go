package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

var audioExtensions = map[string]bool{
	".wav":  true,
	".webm": true,
	".ogg":  true,
	".mp3":  true,
	".m4a":  true,
	".flac": true,
}

func (i *Inbox) watchFiles(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-i.watcher.Events:
			if !ok {
				return
			}

			if err := i.handleFSEvent(event); err != nil {
				slog.Error("Failed to handle file system event",
					"error", err,
					"event", event)
			}

		case err, ok := <-i.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "error", err)
		}
	}
}

// handleFSEvent queues newly created audio files. Writers should create
// files under a .tmp name and rename them into place.
func (i *Inbox) handleFSEvent(event fsnotify.Event) error {
	if strings.HasSuffix(event.Name, ".tmp") || !event.Has(fsnotify.Create) {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(event.Name))
	if !audioExtensions[ext] {
		return nil
	}

	if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
		return nil
	}

	return i.enqueue(event.Name)
}

func (i *Inbox) enqueue(path string) error {
	job := Job{
		ID:        uuid.New().String(),
		FilePath:  path,
		Timestamp: time.Now(),
	}

	select {
	case i.queue <- job:
		slog.Info("Queued new audio file for processing",
			"jobID", job.ID,
			"file", filepath.Base(path))
	default:
		return fmt.Errorf("job queue is full")
	}

	return nil
}
