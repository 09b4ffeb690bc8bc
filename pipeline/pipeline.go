// Package pipeline chains normalization, transcription, language detection
// and translation. The desktop loop and the HTTP service both drive it.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bosley/polyglot/audio"
	"github.com/bosley/polyglot/lang"
	"github.com/bosley/polyglot/scribe"
	"github.com/bosley/polyglot/translate"
)

// Normalizer decodes uploaded audio.
type Normalizer interface {
	Normalize(ctx context.Context, blob []byte) (audio.Waveform, error)
}

type Request struct {
	Audio      []byte
	SourceLang string
	TargetLang string
}

type Result struct {
	Original     string
	Translated   string
	DetectedLang string
	SourceLang   string
	TargetLang   string

	// ShortCircuit is set when the detected language already matched the
	// target and the translator was not called.
	ShortCircuit bool
}

type Pipeline struct {
	normalizer  Normalizer
	transcriber scribe.Transcriber
	detector    translate.Detector
	translator  translate.Translator
}

func New(normalizer Normalizer, transcriber scribe.Transcriber, detector translate.Detector, translator translate.Translator) *Pipeline {
	return &Pipeline{
		normalizer:  normalizer,
		transcriber: transcriber,
		detector:    detector,
		translator:  translator,
	}
}

func (p *Pipeline) Normalize(ctx context.Context, blob []byte) (audio.Waveform, error) {
	wf, err := p.normalizer.Normalize(ctx, blob)
	if err != nil {
		return audio.Waveform{}, Classify(StageNormalize, err)
	}
	return wf, nil
}

// Transcribe passes src to the recognizer as a hint unless it is auto.
func (p *Pipeline) Transcribe(ctx context.Context, wf audio.Waveform, src string) (scribe.Transcript, error) {
	hint := src
	if lang.IsAuto(src) {
		hint = ""
	}
	tr, err := p.transcriber.Transcribe(ctx, wf, hint)
	if err != nil {
		return scribe.Transcript{}, Classify(StageTranscribe, err)
	}
	return tr, nil
}

// Detect returns the language of text. When detection fails the fallback
// code is returned and ok is false.
func (p *Pipeline) Detect(text, fallback string) (code string, ok bool) {
	if p.detector == nil {
		return fallback, false
	}
	code, err := p.detector.Detect(text)
	if err != nil {
		slog.Debug("Language detection failed, using fallback", "fallback", fallback, "error", err)
		return fallback, false
	}
	return code, true
}

// Translate calls the translator with src unchanged, auto included.
func (p *Pipeline) Translate(ctx context.Context, text, src, dst string) (string, error) {
	out, err := p.translator.Translate(ctx, text, src, dst)
	if err != nil {
		return "", Classify(StageTranslate, err)
	}
	return out, nil
}

// Resolve detects the language of transcript and translates it to dst. When
// detection succeeds and the detected language equals dst the transcript is
// returned as the translation. The fallback code never short-circuits.
func (p *Pipeline) Resolve(ctx context.Context, transcript, src, dst string) (Result, error) {
	res := Result{
		Original:   transcript,
		SourceLang: src,
		TargetLang: dst,
	}

	code, detected := p.Detect(transcript, src)
	res.DetectedLang = code
	if detected && code == dst {
		res.Translated = transcript
		res.ShortCircuit = true
		return res, nil
	}

	translated, err := p.Translate(ctx, transcript, src, dst)
	if err != nil {
		return Result{}, err
	}
	res.Translated = translated
	return res, nil
}

// Process runs the full service chain for one uploaded clip.
func (p *Pipeline) Process(ctx context.Context, req Request) (Result, error) {
	if len(req.Audio) == 0 {
		return Result{}, Invalid("empty audio")
	}
	if strings.TrimSpace(req.TargetLang) == "" {
		return Result{}, Invalid("missing target language")
	}
	if req.SourceLang == "" {
		req.SourceLang = lang.Auto
	}

	wf, err := p.Normalize(ctx, req.Audio)
	if err != nil {
		return Result{}, err
	}

	tr, err := p.Transcribe(ctx, wf, req.SourceLang)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(tr.Text) == "" {
		return Result{}, Classify(StageTranscribe, scribe.ErrUnintelligible)
	}

	return p.Resolve(ctx, tr.Text, req.SourceLang, req.TargetLang)
}
