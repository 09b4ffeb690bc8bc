package scribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/bosley/polyglot/audio"
)

// Whisper runs a local whisper.cpp executable.
type Whisper struct {
	// Path to whisper executable
	Path string

	// Path to whisper model
	Model string

	// Directory for the temporary WAV handed to whisper
	TempDir string
}

func NewWhisper(path, model string) *Whisper {
	return &Whisper{Path: path, Model: model}
}

func (w *Whisper) Transcribe(ctx context.Context, wf audio.Waveform, hint string) (Transcript, error) {
	if len(wf.Samples) == 0 {
		return Transcript{}, ErrUnintelligible
	}
	if wf.SampleRate != audio.TargetSampleRate {
		return Transcript{}, fmt.Errorf("%w: whisper requires %d Hz audio, got %d",
			ErrService, audio.TargetSampleRate, wf.SampleRate)
	}

	data, err := wf.EncodeWAV()
	if err != nil {
		return Transcript{}, fmt.Errorf("%w: %w", ErrService, err)
	}

	file, err := os.CreateTemp(w.TempDir, "polyglot_*_whisper.wav")
	if err != nil {
		return Transcript{}, fmt.Errorf("%w: failed to create temp file: %w", ErrService, err)
	}
	defer os.Remove(file.Name())

	if _, err := file.Write(data); err != nil {
		file.Close()
		return Transcript{}, fmt.Errorf("%w: failed to write temp file: %w", ErrService, err)
	}
	if err := file.Close(); err != nil {
		return Transcript{}, fmt.Errorf("%w: failed to close temp file: %w", ErrService, err)
	}

	language := languageHint(hint)
	if language == "" {
		language = "auto"
	}

	cmd := exec.CommandContext(ctx, w.Path,
		"--model", w.Model,
		"--language", strings.SplitN(language, "-", 2)[0],
		"--no-timestamps",
		file.Name())

	slog.Debug("Executing whisper command",
		"command", cmd.String(),
		"args", cmd.Args)

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			slog.Debug("Whisper command failed",
				"stderr", string(exitErr.Stderr),
				"exitCode", exitErr.ExitCode())
		}
		return Transcript{}, fmt.Errorf("%w: whisper execution failed: %w", ErrService, err)
	}

	slog.Debug("Whisper command output received",
		"outputLength", len(output))

	text := extractText(string(output))
	if text == "" {
		return Transcript{}, ErrUnintelligible
	}

	return Transcript{
		Text:       text,
		Language:   languageHint(hint),
		Confidence: 1.0,
	}, nil
}

// extractText joins whisper's output lines, dropping non-speech markers
// such as [BLANK_AUDIO] or (music).
func extractText(output string) string {
	var builder strings.Builder
	lines := strings.Split(output, "\n")

	for _, line := range lines {
		text := strings.TrimSpace(line)

		// Skip empty lines
		if text == "" {
			continue
		}

		// Skip blank audio and other bracketed markers
		if isMarker(text) {
			continue
		}

		if builder.Len() > 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(text)
	}

	return strings.TrimSpace(builder.String())
}

func isMarker(text string) bool {
	return (strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]")) ||
		(strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")"))
}
