package scribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/bosley/polyglot/audio"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAI transcribes through the hosted whisper-1 model.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.Whisper1,
	}
}

func (o *OpenAI) Transcribe(ctx context.Context, wf audio.Waveform, hint string) (Transcript, error) {
	if len(wf.Samples) == 0 {
		return Transcript{}, ErrUnintelligible
	}

	data, err := wf.EncodeWAV()
	if err != nil {
		return Transcript{}, fmt.Errorf("%w: %w", ErrService, err)
	}

	// whisper-1 takes ISO-639-1 codes only
	language := strings.SplitN(languageHint(hint), "-", 2)[0]

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: "utterance.wav",
		Reader:   bytes.NewReader(data),
		Language: language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return Transcript{}, fmt.Errorf("%w: %w", ErrService, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return Transcript{}, ErrUnintelligible
	}

	return Transcript{
		Text:       text,
		Language:   languageHint(hint),
		Confidence: 1.0,
	}, nil
}
