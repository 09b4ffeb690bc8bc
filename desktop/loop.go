// Package desktop runs the listen, translate and speak loop against a local
// microphone and speaker.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bosley/polyglot/audio"
	"github.com/bosley/polyglot/pipeline"
)

// Listener blocks until one utterance has been captured.
type Listener interface {
	Listen(ctx context.Context) (audio.Waveform, error)
}

// Speaker blocks until text has been spoken.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type Outcome int

const (
	Spoken Outcome = iota
	Skipped
	Unintelligible
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Spoken:
		return "spoken"
	case Skipped:
		return "skipped"
	case Unintelligible:
		return "unintelligible"
	default:
		return "failed"
	}
}

// Iteration is the result of one pass through the loop.
type Iteration struct {
	Outcome      Outcome
	Stage        pipeline.Stage
	Original     string
	Translated   string
	DetectedLang string
	Err          error
}

type Config struct {
	SourceLang string
	TargetLang string

	// Consecutive failed iterations before Run gives up, zero never gives up
	MaxConsecutiveFailures int
}

type Loop struct {
	cfg      Config
	listener Listener
	pipeline *pipeline.Pipeline
	speaker  Speaker
}

func NewLoop(cfg Config, listener Listener, p *pipeline.Pipeline, speaker Speaker) *Loop {
	return &Loop{
		cfg:      cfg,
		listener: listener,
		pipeline: p,
		speaker:  speaker,
	}
}

// Run repeats Step until ctx is cancelled or the failure budget is spent.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("Desktop loop started",
		"sourceLang", l.cfg.SourceLang,
		"targetLang", l.cfg.TargetLang)

	failures := 0
	for {
		if ctx.Err() != nil {
			slog.Info("Desktop loop stopped")
			return nil
		}

		it := l.Step(ctx)
		if ctx.Err() != nil {
			slog.Info("Desktop loop stopped")
			return nil
		}

		switch it.Outcome {
		case Spoken:
			failures = 0
			slog.Info("Utterance translated",
				"original", it.Original,
				"translated", it.Translated,
				"detectedLang", it.DetectedLang)
		case Skipped:
			slog.Debug("Utterance skipped", "original", it.Original, "stage", it.Stage)
		case Unintelligible:
			slog.Info("Could not understand audio")
		case Failed:
			failures++
			slog.Error("Iteration failed",
				"stage", it.Stage,
				"error", it.Err,
				"consecutiveFailures", failures)
			if l.cfg.MaxConsecutiveFailures > 0 && failures >= l.cfg.MaxConsecutiveFailures {
				return fmt.Errorf("giving up after %d consecutive failures: %w", failures, it.Err)
			}
		}
	}
}

// Step captures, translates and speaks one utterance.
func (l *Loop) Step(ctx context.Context) (it Iteration) {
	defer func() {
		if r := recover(); r != nil {
			it = Iteration{
				Outcome: Failed,
				Stage:   it.Stage,
				Err:     fmt.Errorf("panic: %v", r),
			}
		}
	}()

	it.Stage = pipeline.StageCapture
	wf, err := l.listener.Listen(ctx)
	if errors.Is(err, audio.ErrNoSpeech) {
		it.Outcome = Skipped
		return it
	}
	if err != nil {
		return failed(it, err)
	}

	it.Stage = pipeline.StageTranscribe
	tr, err := l.pipeline.Transcribe(ctx, wf, l.cfg.SourceLang)
	if err != nil {
		if pipeline.KindOf(err) == pipeline.UnintelligibleAudio {
			it.Outcome = Unintelligible
			return it
		}
		return failed(it, err)
	}
	it.Original = tr.Text
	if isSilence(tr.Text) {
		it.Outcome = Skipped
		return it
	}

	it.Stage = pipeline.StageTranslate
	res, err := l.pipeline.Resolve(ctx, tr.Text, l.cfg.SourceLang, l.cfg.TargetLang)
	if err != nil {
		return failed(it, err)
	}
	it.Translated = res.Translated
	it.DetectedLang = res.DetectedLang
	if res.ShortCircuit || strings.TrimSpace(res.Translated) == "" {
		it.Outcome = Skipped
		return it
	}

	it.Stage = pipeline.StageSpeak
	if err := l.speaker.Speak(ctx, res.Translated); err != nil {
		return failed(it, err)
	}
	it.Outcome = Spoken
	return it
}

func failed(it Iteration, err error) Iteration {
	it.Outcome = Failed
	it.Err = err
	return it
}

// isSilence matches transcripts recognizers emit for background noise.
func isSilence(text string) bool {
	text = strings.TrimSpace(text)
	return text == "" || text == "..." || text == "…"
}
