package scribe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bosley/polyglot/audio"
	"github.com/bosley/polyglot/lang"
)

const googleSpeechURL = "https://www.google.com/speech-api/v2/recognize"

// Google uses the Speech API v2 endpoint that Chrome's web speech support talks to.
type Google struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewGoogle(key string) *Google {
	return &Google{
		Endpoint: googleSpeechURL,
		Key:      key,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type googleResponse struct {
	Result []struct {
		Alternative []struct {
			Transcript string  `json:"transcript"`
			Confidence float32 `json:"confidence"`
		} `json:"alternative"`
		Final bool `json:"final"`
	} `json:"result"`
}

func (g *Google) Transcribe(ctx context.Context, wf audio.Waveform, hint string) (Transcript, error) {
	if len(wf.Samples) == 0 {
		return Transcript{}, ErrUnintelligible
	}

	query := url.Values{}
	query.Set("client", "chromium")
	query.Set("key", g.Key)
	query.Set("pFilter", "0")
	if language := lang.BCP47(languageHint(hint)); language != "" {
		query.Set("lang", language)
	}

	// audio/l16 is big-endian linear PCM
	body := make([]byte, len(wf.Samples)*2)
	for i, sample := range wf.Samples {
		binary.BigEndian.PutUint16(body[i*2:], uint16(sample))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint+"?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		return Transcript{}, fmt.Errorf("%w: %w", ErrService, err)
	}
	req.Header.Set("Content-Type", fmt.Sprintf("audio/l16; rate=%d", wf.SampleRate))

	resp, err := g.Client.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("%w: %w", ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Transcript{}, fmt.Errorf("%w: google http %d: %s", ErrService, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	// The endpoint streams one JSON object per line; the first is usually an
	// empty result.
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var parsed googleResponse
		if err := json.Unmarshal([]byte(line), &parsed); err != nil {
			return Transcript{}, fmt.Errorf("%w: failed to decode response: %w", ErrService, err)
		}
		for _, result := range parsed.Result {
			for _, alt := range result.Alternative {
				if text := strings.TrimSpace(alt.Transcript); text != "" {
					return Transcript{
						Text:       text,
						Language:   languageHint(hint),
						Confidence: alt.Confidence,
					}, nil
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Transcript{}, fmt.Errorf("%w: failed to read response: %w", ErrService, err)
	}

	return Transcript{}, ErrUnintelligible
}
