package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bosley/polyglot/lang"
)

const googleTranslateURL = "https://translate.googleapis.com/translate_a/single"

// Google calls the public web translate endpoint.
type Google struct {
	Endpoint string
	Client   *http.Client
}

func NewGoogle() *Google {
	return &Google{
		Endpoint: googleTranslateURL,
		Client:   &http.Client{Timeout: 20 * time.Second},
	}
}

func (g *Google) Translate(ctx context.Context, text, src, dst string) (string, error) {
	form := url.Values{}
	form.Set("client", "gtx")
	form.Set("sl", googleCode(src))
	form.Set("tl", googleCode(dst))
	form.Set("dt", "t")
	form.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.Endpoint+"?"+form.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrService, err)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %w", ErrService, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: google http %d: %s", ErrService, resp.StatusCode, truncate(string(body), 256))
	}

	translated, err := parseGoogle(body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrService, err)
	}
	return translated, nil
}

// parseGoogle joins the translated sentences from a response shaped like
// [[["Bonjour","Hello",null,null,10],...],null,"en",...].
func parseGoogle(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty response")
	}

	var sentences [][]any
	if err := json.Unmarshal(payload[0], &sentences); err != nil {
		return "", fmt.Errorf("unexpected response shape: %w", err)
	}

	var builder strings.Builder
	for _, sentence := range sentences {
		if len(sentence) == 0 {
			continue
		}
		if s, ok := sentence[0].(string); ok {
			builder.WriteString(s)
		}
	}
	if builder.Len() == 0 {
		return "", fmt.Errorf("empty translation")
	}
	return builder.String(), nil
}

func googleCode(code string) string {
	if lang.IsAuto(code) {
		return lang.Auto
	}
	return lang.BCP47(code)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
