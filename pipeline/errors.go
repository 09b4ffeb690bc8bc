package pipeline

import (
	"errors"
	"fmt"

	"github.com/bosley/polyglot/audio"
	"github.com/bosley/polyglot/scribe"
	"github.com/bosley/polyglot/translate"
)

type Kind int

const (
	Unexpected Kind = iota
	InvalidRequest
	UnintelligibleAudio
	TranscriptionService
	TranslationService
	UnsupportedAudioFormat
)

func (k Kind) String() string {
	switch k {
	case InvalidRequest:
		return "InvalidRequest"
	case UnintelligibleAudio:
		return "UnintelligibleAudio"
	case TranscriptionService:
		return "TranscriptionServiceError"
	case TranslationService:
		return "TranslationServiceError"
	case UnsupportedAudioFormat:
		return "UnsupportedAudioFormat"
	default:
		return "UnexpectedError"
	}
}

// Stage names the step of the chain an error came from.
type Stage string

const (
	StageValidate   Stage = "validate"
	StageNormalize  Stage = "normalize"
	StageCapture    Stage = "capture"
	StageTranscribe Stage = "transcribe"
	StageDetect     Stage = "detect"
	StageTranslate  Stage = "translate"
	StageSpeak      Stage = "speak"
)

// Error is the only error type returned by the pipeline.
type Error struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err, or Unexpected if it is not a pipeline error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return Unexpected
}

// Invalid builds an InvalidRequest error.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: InvalidRequest, Stage: StageValidate, Err: fmt.Errorf(format, args...)}
}

// Classify wraps err in an *Error for stage. Existing pipeline errors are
// returned unchanged.
func Classify(stage Stage, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	kind := Unexpected
	switch {
	case errors.Is(err, audio.ErrUnsupportedFormat):
		kind = UnsupportedAudioFormat
	case errors.Is(err, scribe.ErrUnintelligible):
		kind = UnintelligibleAudio
	case errors.Is(err, scribe.ErrService):
		kind = TranscriptionService
	case errors.Is(err, translate.ErrService):
		kind = TranslationService
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}
