package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// ErrUnsupportedFormat is returned when input audio cannot be decoded.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Runner executes an external program with stdin and returns its stdout.
type Runner func(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error)

// ExecRunner runs the program through os/exec.
func ExecRunner(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

// Normalizer converts arbitrary uploaded audio into mono PCM16 at SampleRate.
type Normalizer struct {
	FFmpegPath string
	SampleRate int
	Run        Runner
}

func NewNormalizer(ffmpegPath string) *Normalizer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Normalizer{
		FFmpegPath: ffmpegPath,
		SampleRate: TargetSampleRate,
		Run:        ExecRunner,
	}
}

// Normalize decodes blob. WAV input already in the target shape skips ffmpeg.
func (n *Normalizer) Normalize(ctx context.Context, blob []byte) (Waveform, error) {
	if len(blob) == 0 {
		return Waveform{}, fmt.Errorf("%w: empty input", ErrUnsupportedFormat)
	}

	rate := n.SampleRate
	if rate <= 0 {
		rate = TargetSampleRate
	}

	if IsWAV(blob) {
		wf, err := DecodeWAV(blob)
		if err == nil && wf.Channels == 1 && wf.SampleRate == rate {
			slog.Debug("Input already normalized", "samples", len(wf.Samples), "sampleRate", rate)
			return wf, nil
		}
	}

	run := n.Run
	if run == nil {
		run = ExecRunner
	}

	out, err := run(ctx, n.FFmpegPath, []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	}, blob)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Waveform{}, fmt.Errorf("audio conversion interrupted: %w", ctxErr)
		}
		return Waveform{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if len(out) < 2 {
		return Waveform{}, fmt.Errorf("%w: no audio decoded", ErrUnsupportedFormat)
	}

	wf := FromPCM(out, rate, 1)
	slog.Debug("Audio normalized",
		"inputBytes", len(blob),
		"samples", len(wf.Samples),
		"durationSeconds", wf.Duration().Seconds())
	return wf, nil
}
