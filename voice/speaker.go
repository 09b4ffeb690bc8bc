package voice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Speaker speaks text in one language. The voice is chosen on first use and
// kept for the lifetime of the speaker.
type Speaker struct {
	engine   Engine
	player   Player
	voiceID  string
	language string

	initMu      sync.Mutex
	initialized bool
	voice       Voice

	mu     sync.Mutex
	closed bool
}

func NewSpeaker(engine Engine, player Player, voiceID, language string) *Speaker {
	return &Speaker{
		engine:   engine,
		player:   player,
		voiceID:  voiceID,
		language: language,
	}
}

// init selects the voice once. A failed attempt is retried on the next call.
func (s *Speaker) init(ctx context.Context) (Voice, error) {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.initialized {
		return s.voice, nil
	}

	voices, err := s.engine.Voices(ctx)
	if err != nil {
		return Voice{}, fmt.Errorf("failed to list voices: %w", err)
	}
	v, err := SelectVoice(voices, s.voiceID, s.language)
	if err != nil {
		return Voice{}, err
	}
	s.voice = v
	s.initialized = true
	slog.Info("Speaker voice selected", "voice", v.ID, "name", v.Name, "language", s.language)
	return v, nil
}

// Speak renders text and returns once playback has finished. Blank text is
// ignored.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	v, err := s.init(ctx)
	if err != nil {
		return err
	}

	wf, err := s.engine.Render(ctx, v, text)
	if err != nil {
		return fmt.Errorf("failed to render speech: %w", err)
	}
	if err := s.player.Play(ctx, wf); err != nil {
		return fmt.Errorf("failed to play speech: %w", err)
	}
	return nil
}

// Voice returns the selected voice, selecting it if needed.
func (s *Speaker) Voice(ctx context.Context) (Voice, error) {
	return s.init(ctx)
}

func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if closer, ok := s.engine.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
