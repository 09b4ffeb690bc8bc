package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bosley/polyglot/pipeline"
)

const sidecarSuffix = ".translation.json"

// Record is written next to each processed file.
type Record struct {
	File         string    `json:"file"`
	Original     string    `json:"original,omitempty"`
	Translated   string    `json:"translated,omitempty"`
	DetectedLang string    `json:"detected_lang,omitempty"`
	Error        string    `json:"error,omitempty"`
	Kind         string    `json:"kind,omitempty"`
	ProcessedAt  time.Time `json:"processedAt"`
}

func (i *Inbox) worker(ctx context.Context) {
	slog.Debug("Worker starting")
	defer func() {
		slog.Debug("Worker shutting down")
		i.workers.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Worker context cancelled")
			return

		case job, ok := <-i.queue:
			if !ok {
				slog.Debug("Worker queue closed")
				return
			}
			if ctx.Err() != nil {
				slog.Debug("Dropping queued job after shutdown", "file", job.FilePath, "jobID", job.ID)
				return
			}

			if err := i.processJob(ctx, job); err != nil {
				slog.Error("Failed to process inbox file",
					"error", err,
					"file", job.FilePath,
					"jobID", job.ID)
			}
		}
	}
}

func (i *Inbox) processJob(ctx context.Context, job Job) error {
	slog.Info("Processing audio file", "file", job.FilePath, "jobID", job.ID)

	data, err := os.ReadFile(job.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("Audio file not found (likely processed or deleted)", "file", job.FilePath)
			return nil
		}
		return fmt.Errorf("failed to read audio file: %w", err)
	}

	record := Record{File: filepath.Base(job.FilePath)}
	res, err := i.processor.Process(ctx, pipeline.Request{
		Audio:      data,
		SourceLang: i.config.SourceLang,
		TargetLang: i.config.TargetLang,
	})
	record.ProcessedAt = time.Now().UTC()

	if err != nil {
		record.Error = err.Error()
		record.Kind = pipeline.KindOf(err).String()
		if werr := writeRecord(job.FilePath, record); werr != nil {
			return fmt.Errorf("failed to write error record: %w", werr)
		}
		return fmt.Errorf("translation failed: %w", err)
	}

	record.Original = res.Original
	record.Translated = res.Translated
	record.DetectedLang = res.DetectedLang
	if err := writeRecord(job.FilePath, record); err != nil {
		return fmt.Errorf("failed to write translation record: %w", err)
	}

	slog.Info("Inbox file translated",
		"file", record.File,
		"jobID", job.ID,
		"detectedLang", res.DetectedLang,
		"processingTime", time.Since(job.Timestamp).Seconds())

	if i.publisher != nil {
		i.publisher.Publish("translation", job.ID, record)
	}
	return nil
}

// writeRecord writes the sidecar through a temporary file so readers never
// see a partial record.
func writeRecord(audioPath string, record Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}

	path := SidecarPath(audioPath)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// SidecarPath names the record written for audioPath.
func SidecarPath(audioPath string) string {
	return audioPath + sidecarSuffix
}
