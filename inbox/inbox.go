// Package inbox translates audio files dropped into a watched directory.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bosley/polyglot/pipeline"
	"github.com/fsnotify/fsnotify"
)

// Configuration for the inbox
type Config struct {
	// Directory to watch for new recordings
	Dir string

	// Number of worker goroutines for processing
	Workers int

	// Pending files before new ones are rejected
	QueueSize int

	SourceLang string
	TargetLang string
}

type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Publisher receives every completed translation.
type Publisher interface {
	Publish(kind, id string, payload any)
}

// Job represents a file waiting for the worker pool
type Job struct {
	ID        string
	FilePath  string
	Timestamp time.Time
}

type Inbox struct {
	config    Config
	processor Processor
	publisher Publisher

	// File system watcher
	watcher *fsnotify.Watcher

	// Processing queue
	queue   chan Job
	workers sync.WaitGroup
}

// New creates the inbox directory if needed. publisher may be nil.
func New(cfg Config, processor Processor, publisher Publisher) (*Inbox, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create inbox directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Inbox{
		config:    cfg,
		processor: processor,
		publisher: publisher,
		watcher:   watcher,
		queue:     make(chan Job, cfg.QueueSize),
	}, nil
}

// Run watches the directory until ctx is cancelled, then waits for jobs
// already in progress. Queued jobs are dropped; their files stay in the
// directory unprocessed.
func (i *Inbox) Run(ctx context.Context) error {
	defer i.watcher.Close()

	if err := i.watcher.Add(i.config.Dir); err != nil {
		return fmt.Errorf("failed to watch inbox directory: %w", err)
	}
	slog.Info("Started watching inbox",
		"path", i.config.Dir,
		"workers", i.config.Workers,
		"targetLang", i.config.TargetLang)

	for n := 0; n < i.config.Workers; n++ {
		i.workers.Add(1)
		go i.worker(ctx)
	}

	i.watchFiles(ctx)

	close(i.queue)
	i.workers.Wait()
	return nil
}
