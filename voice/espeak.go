package voice

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/bosley/polyglot/audio"
)

// Espeak drives the espeak-ng command line synthesizer.
type Espeak struct {
	Path string
	Run  audio.Runner
}

func NewEspeak(path string) *Espeak {
	if path == "" {
		path = "espeak-ng"
	}
	return &Espeak{Path: path, Run: audio.ExecRunner}
}

func (e *Espeak) Voices(ctx context.Context) ([]Voice, error) {
	out, err := e.run(ctx, []string{"--voices"}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list espeak voices: %w", err)
	}
	return parseEspeakVoices(out), nil
}

func (e *Espeak) Render(ctx context.Context, v Voice, text string) (audio.Waveform, error) {
	args := []string{"--stdout", "--stdin"}
	if v.ID != "" {
		args = append([]string{"-v", v.ID}, args...)
	}

	out, err := e.run(ctx, args, []byte(text))
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("failed to run espeak: %w", err)
	}
	wf, err := audio.DecodeWAV(out)
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("failed to decode espeak output: %w", err)
	}
	return wf, nil
}

func (e *Espeak) run(ctx context.Context, args []string, stdin []byte) ([]byte, error) {
	run := e.Run
	if run == nil {
		run = audio.ExecRunner
	}
	return run(ctx, e.Path, args, stdin)
}

// parseEspeakVoices reads the table printed by --voices:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US            (en 2)(en-r 5)
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 || fields[0] == "Pty" {
			continue
		}

		v := Voice{
			ID:        fields[1],
			Name:      strings.ReplaceAll(fields[3], "_", " "),
			Languages: []string{fields[1]},
		}
		others := strings.Join(fields[5:], " ")
		for _, group := range strings.Split(others, ")") {
			group = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(group), "("))
			if code, _, ok := strings.Cut(group, " "); ok && code != "" {
				v.Languages = append(v.Languages, code)
			}
		}
		voices = append(voices, v)
	}
	return voices
}
