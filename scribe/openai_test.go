package scribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAI("sk-test", srv.URL+"/v1")
}

func TestOpenAITranscribe(t *testing.T) {
	var gotLanguage, gotModel, gotPath string
	o := newOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotLanguage = r.FormValue("language")
		gotModel = r.FormValue("model")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":" hola mundo "}`))
	})

	tr, err := o.Transcribe(context.Background(), testWave, "zh-cn")
	require.NoError(t, err)
	assert.Equal(t, "hola mundo", tr.Text)
	assert.Equal(t, "/v1/audio/transcriptions", gotPath)
	assert.Equal(t, "zh", gotLanguage)
	assert.Equal(t, "whisper-1", gotModel)
}

func TestOpenAIOutcomes(t *testing.T) {
	blank := newOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":""}`))
	})
	_, err := blank.Transcribe(context.Background(), testWave, "")
	assert.ErrorIs(t, err, ErrUnintelligible)

	broken := newOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
	})
	_, err = broken.Transcribe(context.Background(), testWave, "")
	assert.ErrorIs(t, err, ErrService)
}
