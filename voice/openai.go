package voice

import (
	"context"
	"fmt"
	"io"

	"github.com/bosley/polyglot/audio"
	openai "github.com/sashabaranov/go-openai"
)

var openAIVoices = []openai.SpeechVoice{
	openai.VoiceAlloy,
	openai.VoiceEcho,
	openai.VoiceFable,
	openai.VoiceOnyx,
	openai.VoiceNova,
	openai.VoiceShimmer,
}

// OpenAIEngine synthesizes speech with the OpenAI TTS API.
type OpenAIEngine struct {
	client *openai.Client
	model  openai.SpeechModel
}

func NewOpenAIEngine(apiKey, baseURL string) *OpenAIEngine {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEngine{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.TTSModel1,
	}
}

func (o *OpenAIEngine) Voices(context.Context) ([]Voice, error) {
	voices := make([]Voice, 0, len(openAIVoices))
	for _, v := range openAIVoices {
		voices = append(voices, Voice{ID: string(v), Name: string(v), Multilingual: true})
	}
	return voices, nil
}

func (o *OpenAIEngine) Render(ctx context.Context, v Voice, text string) (audio.Waveform, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          openai.SpeechVoice(v.ID),
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("failed to create speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("failed to read speech: %w", err)
	}
	wf, err := audio.DecodeWAV(data)
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("failed to decode speech: %w", err)
	}
	return wf, nil
}
