package main

import (
	"fmt"

	"github.com/bosley/polyglot/audio"
	"github.com/bosley/polyglot/config"
	"github.com/bosley/polyglot/pipeline"
	"github.com/bosley/polyglot/scribe"
	"github.com/bosley/polyglot/translate"
	"github.com/bosley/polyglot/voice"
)

func newPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	transcriber, err := newTranscriber(cfg)
	if err != nil {
		return nil, err
	}
	translator, err := newTranslator(cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.New(
		audio.NewNormalizer(cfg.FFmpegPath),
		transcriber,
		translate.WhatlangDetector{},
		translator,
	), nil
}

func newTranscriber(cfg *config.Config) (scribe.Transcriber, error) {
	switch cfg.Transcriber {
	case "google":
		return scribe.NewGoogle(cfg.GoogleSpeechKey), nil
	case "whisper":
		return scribe.NewWhisper(cfg.WhisperPath, cfg.WhisperModel), nil
	case "openai":
		return scribe.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIBaseURL), nil
	}
	return nil, fmt.Errorf("unknown transcriber %q", cfg.Transcriber)
}

func newTranslator(cfg *config.Config) (translate.Translator, error) {
	switch cfg.Translator {
	case "google":
		return translate.NewGoogle(), nil
	case "openai":
		return translate.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	}
	return nil, fmt.Errorf("unknown translator %q", cfg.Translator)
}

func newSynth(cfg *config.Config) (voice.Engine, error) {
	switch cfg.Synth {
	case "espeak":
		return voice.NewEspeak(cfg.EspeakPath), nil
	case "openai":
		return voice.NewOpenAIEngine(cfg.OpenAIKey, cfg.OpenAIBaseURL), nil
	}
	return nil, fmt.Errorf("unknown synthesizer %q", cfg.Synth)
}
