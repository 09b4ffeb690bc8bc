// Package voice renders translated text to speech and plays it.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bosley/polyglot/audio"
	"golang.org/x/text/language"
)

var (
	ErrNoVoices = errors.New("no voices available")
	ErrClosed   = errors.New("speaker closed")
)

type Voice struct {
	ID        string
	Name      string
	Languages []string

	// Multilingual voices speak any language the engine supports.
	Multilingual bool
}

func (v Voice) String() string {
	if len(v.Languages) == 0 {
		return fmt.Sprintf("%s (%s)", v.ID, v.Name)
	}
	return fmt.Sprintf("%s (%s) [%s]", v.ID, v.Name, strings.Join(v.Languages, ", "))
}

// Engine turns text into audio with one of its voices.
type Engine interface {
	Voices(ctx context.Context) ([]Voice, error)
	Render(ctx context.Context, v Voice, text string) (audio.Waveform, error)
}

// Player blocks until the waveform has been played.
type Player interface {
	Play(ctx context.Context, wf audio.Waveform) error
}

// SelectVoice picks the voice to speak lang with. An explicit id (or voice
// name) wins; otherwise the closest language match is used, then the first
// multilingual voice, then the first voice.
func SelectVoice(voices []Voice, id, lang string) (Voice, error) {
	if len(voices) == 0 {
		return Voice{}, ErrNoVoices
	}

	if id != "" {
		for _, v := range voices {
			if v.ID == id || strings.EqualFold(v.Name, id) {
				return v, nil
			}
		}
		slog.Warn("Configured voice not found, selecting by language", "voice", id, "language", lang)
	}

	if v, ok := matchLanguage(voices, lang); ok {
		return v, nil
	}

	for _, v := range voices {
		if v.Multilingual {
			return v, nil
		}
	}

	slog.Warn("No voice matches language, using first voice",
		"language", lang,
		"voice", voices[0].ID)
	return voices[0], nil
}

func matchLanguage(voices []Voice, lang string) (Voice, bool) {
	if lang == "" {
		return Voice{}, false
	}
	want, err := language.Parse(lang)
	if err != nil {
		return Voice{}, false
	}

	var tags []language.Tag
	var owners []int
	for i, v := range voices {
		for _, code := range v.Languages {
			tag, err := language.Parse(code)
			if err != nil {
				continue
			}
			tags = append(tags, tag)
			owners = append(owners, i)
		}
	}
	if len(tags) == 0 {
		return Voice{}, false
	}

	_, index, confidence := language.NewMatcher(tags).Match(want)
	if confidence < language.High {
		return Voice{}, false
	}
	return voices[owners[index]], true
}
