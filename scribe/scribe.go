// Package scribe turns speech into text.
package scribe

import (
	"context"
	"errors"

	"github.com/bosley/polyglot/audio"
	"github.com/bosley/polyglot/lang"
)

var (
	// ErrUnintelligible means the backend heard audio but produced no text.
	ErrUnintelligible = errors.New("could not understand audio")

	// ErrService covers transport, quota and backend failures.
	ErrService = errors.New("speech recognition service error")
)

// Transcript is the text recognized from one utterance
type Transcript struct {
	Text       string  `json:"text"`
	Language   string  `json:"language,omitempty"`
	Confidence float32 `json:"confidence"`
}

// Transcriber converts a waveform to text. An empty or "auto" hint lets the
// backend pick the language.
type Transcriber interface {
	Transcribe(ctx context.Context, wf audio.Waveform, hint string) (Transcript, error)
}

func languageHint(hint string) string {
	if lang.IsAuto(hint) {
		return ""
	}
	return hint
}
