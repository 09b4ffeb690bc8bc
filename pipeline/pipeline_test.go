package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bosley/polyglot/audio"
	"github.com/bosley/polyglot/scribe"
	"github.com/bosley/polyglot/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWave = audio.Waveform{Samples: []int16{1, 2, 3}, SampleRate: audio.TargetSampleRate, Channels: 1}

type stubNormalizer struct{ err error }

func (s stubNormalizer) Normalize(context.Context, []byte) (audio.Waveform, error) {
	return testWave, s.err
}

type stubTranscriber struct {
	text string
	err  error
	hint *string
}

func (s stubTranscriber) Transcribe(_ context.Context, _ audio.Waveform, hint string) (scribe.Transcript, error) {
	if s.hint != nil {
		*s.hint = hint
	}
	return scribe.Transcript{Text: s.text}, s.err
}

type stubDetector struct {
	code string
	err  error
}

func (s stubDetector) Detect(string) (string, error) { return s.code, s.err }

type stubTranslator struct {
	calls int
	src   string
	err   error
}

func (s *stubTranslator) Translate(_ context.Context, text, src, dst string) (string, error) {
	s.calls++
	s.src = src
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("[%s] %s", dst, text), nil
}

func TestProcess(t *testing.T) {
	var hint string
	tr := &stubTranslator{}
	p := New(stubNormalizer{}, stubTranscriber{text: "hello there", hint: &hint}, stubDetector{code: "en"}, tr)

	res, err := p.Process(context.Background(), Request{Audio: []byte("x"), SourceLang: "en", TargetLang: "fr"})
	require.NoError(t, err)

	assert.Equal(t, Result{
		Original:     "hello there",
		Translated:   "[fr] hello there",
		DetectedLang: "en",
		SourceLang:   "en",
		TargetLang:   "fr",
	}, res)
	assert.Equal(t, "en", hint)
	assert.Equal(t, 1, tr.calls)
}

func TestProcessShortCircuit(t *testing.T) {
	tr := &stubTranslator{}
	p := New(stubNormalizer{}, stubTranscriber{text: "bonjour"}, stubDetector{code: "fr"}, tr)

	res, err := p.Process(context.Background(), Request{Audio: []byte("x"), TargetLang: "fr"})
	require.NoError(t, err)

	assert.Equal(t, "bonjour", res.Original)
	assert.Equal(t, "bonjour", res.Translated)
	assert.True(t, res.ShortCircuit)
	assert.Zero(t, tr.calls)
}

func TestProcessAutoPassesThrough(t *testing.T) {
	hint := "unset"
	tr := &stubTranslator{}
	p := New(stubNormalizer{}, stubTranscriber{text: "hola", hint: &hint}, stubDetector{code: "es"}, tr)

	res, err := p.Process(context.Background(), Request{Audio: []byte("x"), TargetLang: "en"})
	require.NoError(t, err)

	assert.Empty(t, hint)
	assert.Equal(t, "auto", tr.src)
	assert.Equal(t, "auto", res.SourceLang)
	assert.Equal(t, "es", res.DetectedLang)
}

func TestDetectionFailureFallsBack(t *testing.T) {
	tr := &stubTranslator{}
	p := New(stubNormalizer{}, stubTranscriber{text: "ok"}, stubDetector{err: translate.ErrUndetermined}, tr)

	res, err := p.Process(context.Background(), Request{Audio: []byte("x"), SourceLang: "de", TargetLang: "de"})
	require.NoError(t, err)
	assert.Equal(t, "de", res.DetectedLang)
	assert.False(t, res.ShortCircuit)
	assert.Equal(t, "[de] ok", res.Translated)
	assert.Equal(t, 1, tr.calls)

	res, err = p.Process(context.Background(), Request{Audio: []byte("x"), TargetLang: "de"})
	require.NoError(t, err)
	assert.Equal(t, "auto", res.DetectedLang)
	assert.Equal(t, 2, tr.calls)
}

func TestProcessErrors(t *testing.T) {
	tests := []struct {
		name        string
		req         Request
		normalizer  stubNormalizer
		transcriber stubTranscriber
		translator  *stubTranslator
		kind        Kind
		stage       Stage
	}{
		{
			name: "no audio",
			req:  Request{TargetLang: "fr"},
			kind: InvalidRequest, stage: StageValidate,
		},
		{
			name: "no target",
			req:  Request{Audio: []byte("x"), TargetLang: " "},
			kind: InvalidRequest, stage: StageValidate,
		},
		{
			name:       "bad format",
			normalizer: stubNormalizer{err: fmt.Errorf("%w: garbage", audio.ErrUnsupportedFormat)},
			kind:       UnsupportedAudioFormat, stage: StageNormalize,
		},
		{
			name:        "unintelligible",
			transcriber: stubTranscriber{err: scribe.ErrUnintelligible},
			kind:        UnintelligibleAudio, stage: StageTranscribe,
		},
		{
			name:        "blank transcript",
			transcriber: stubTranscriber{text: "  "},
			kind:        UnintelligibleAudio, stage: StageTranscribe,
		},
		{
			name:        "recognizer down",
			transcriber: stubTranscriber{err: fmt.Errorf("%w: 503", scribe.ErrService)},
			kind:        TranscriptionService, stage: StageTranscribe,
		},
		{
			name:        "translator down",
			transcriber: stubTranscriber{text: "hello"},
			translator:  &stubTranslator{err: fmt.Errorf("%w: timeout", translate.ErrService)},
			kind:        TranslationService, stage: StageTranslate,
		},
		{
			name:        "unknown failure",
			transcriber: stubTranscriber{err: errors.New("segfault")},
			kind:        Unexpected, stage: StageTranscribe,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.req.TargetLang == "" && tt.req.Audio == nil && tt.kind != InvalidRequest {
				tt.req = Request{Audio: []byte("x"), TargetLang: "fr"}
			}
			if tt.translator == nil {
				tt.translator = &stubTranslator{}
			}
			p := New(tt.normalizer, tt.transcriber, stubDetector{code: "en"}, tt.translator)

			_, err := p.Process(context.Background(), tt.req)
			require.Error(t, err)

			var pe *Error
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, tt.stage, pe.Stage)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestClassifyKeepsPipelineErrors(t *testing.T) {
	inner := Invalid("bad %s", "thing")
	out := Classify(StageTranslate, fmt.Errorf("wrapped: %w", inner))
	assert.Same(t, inner, out)
	assert.Equal(t, "validate: bad thing", out.Error())
	assert.Equal(t, Unexpected, KindOf(errors.New("plain")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "TranslationServiceError", TranslationService.String())
	assert.Equal(t, "UnexpectedError", Kind(99).String())
}
