package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bosley/polyglot/audio"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIEngineRender(t *testing.T) {
	wav, err := audio.Waveform{Samples: []int16{5, 6, 7, 8}, SampleRate: 24000, Channels: 1}.EncodeWAV()
	require.NoError(t, err)

	var got openai.CreateSpeechRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(wav)
	}))
	defer srv.Close()

	e := NewOpenAIEngine("test", srv.URL+"/v1")
	voices, err := e.Voices(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, voices)
	assert.True(t, voices[0].Multilingual)

	wf, err := e.Render(context.Background(), voices[0], "hello")
	require.NoError(t, err)

	assert.Equal(t, openai.SpeechVoice(voices[0].ID), got.Voice)
	assert.Equal(t, openai.SpeechResponseFormatWav, got.ResponseFormat)
	assert.Equal(t, "hello", got.Input)
	assert.Equal(t, 24000, wf.SampleRate)
	assert.Equal(t, []int16{5, 6, 7, 8}, wf.Samples)
}

func TestOpenAIEngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIEngine("test", srv.URL+"/v1").Render(context.Background(), Voice{ID: "alloy"}, "hi")
	assert.ErrorContains(t, err, "failed to create speech")
}
