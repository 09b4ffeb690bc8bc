// Package translate detects the language of text and translates it.
package translate

import (
	"context"
	"errors"
)

var (
	// ErrService wraps every translation backend failure.
	ErrService = errors.New("translation service error")

	// ErrUndetermined is returned when the detector has no usable guess.
	ErrUndetermined = errors.New("language could not be determined")
)

// Translator converts text from src to dst. src may be "auto" and is passed
// to the backend unchanged.
type Translator interface {
	Translate(ctx context.Context, text, src, dst string) (string, error)
}

// Detector guesses the language code of text.
type Detector interface {
	Detect(text string) (string, error)
}
