package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GOOGLE_SPEECH_KEY", "k")
	t.Setenv("POLYGLOT_ALLOWED_ORIGINS", "http://localhost:3000")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ModeServe, cfg.Mode)
	assert.Equal(t, "localhost:5000", cfg.Addr)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 8, cfg.MaxConcurrent)
	assert.Equal(t, "auto", cfg.SourceLang)
	assert.Equal(t, "google", cfg.Transcriber)
	assert.Equal(t, -1, cfg.DeviceID)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("POLYGLOT_ADDR", ":9000")
	t.Setenv("POLYGLOT_MAX_CONCURRENT", "3")
	t.Setenv("POLYGLOT_REQUEST_TIMEOUT", "5s")
	t.Setenv("POLYGLOT_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load([]string{
		"-addr", ":9100",
		"-transcriber", "openai",
		"-translator", "openai",
		"-log-level", "debug",
		"-rate-limit", "30",
	})
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, 3, cfg.MaxConcurrent)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 30, cfg.RateLimit)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestLoadIgnoresMalformedEnvNumbers(t *testing.T) {
	t.Setenv("GOOGLE_SPEECH_KEY", "k")
	t.Setenv("POLYGLOT_ALLOWED_ORIGINS", "*")
	t.Setenv("POLYGLOT_MAX_CONCURRENT", "lots")
	t.Setenv("POLYGLOT_SILENCE", "long")
	t.Setenv("POLYGLOT_THRESHOLD", "high")

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxConcurrent)
	assert.Equal(t, time.Second, cfg.SilenceDuration)
	assert.Equal(t, 2.22, cfg.Threshold)

	out := logs.String()
	assert.Contains(t, out, "Ignoring malformed environment value")
	assert.Contains(t, out, "key=POLYGLOT_MAX_CONCURRENT")
	assert.Contains(t, out, "key=POLYGLOT_SILENCE")
	assert.Contains(t, out, "key=POLYGLOT_THRESHOLD")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
		want string
	}{
		{name: "bad mode", args: []string{"-mode", "gui"}, want: "invalid mode"},
		{name: "bad log level", args: []string{"-log-level", "loud"}, want: "invalid log level"},
		{name: "google key", env: map[string]string{"GOOGLE_SPEECH_KEY": ""}, want: "GOOGLE_SPEECH_KEY is required"},
		{name: "whisper paths", args: []string{"-transcriber", "whisper", "-whisper", "/bin/whisper"}, want: "-model are required"},
		{name: "openai translator", env: map[string]string{"GOOGLE_SPEECH_KEY": "k", "OPENAI_API_KEY": ""}, args: []string{"-translator", "openai"}, want: "openai translator"},
		{name: "unknown translator", env: map[string]string{"GOOGLE_SPEECH_KEY": "k"}, args: []string{"-translator", "deepl"}, want: "invalid translator"},
		{name: "half tls", env: map[string]string{"GOOGLE_SPEECH_KEY": "k"}, args: []string{"-cert", "c.pem"}, want: "-cert and -key"},
		{name: "desktop needs target", env: map[string]string{"GOOGLE_SPEECH_KEY": "k"}, args: []string{"-mode", "desktop", "-target", "auto"}, want: "requires a target language"},
		{name: "inbox needs target", env: map[string]string{"GOOGLE_SPEECH_KEY": "k"}, args: []string{"-inbox", "in", "-target", ""}, want: "inbox requires"},
		{name: "openai synth", env: map[string]string{"GOOGLE_SPEECH_KEY": "k", "OPENAI_API_KEY": ""}, args: []string{"-mode", "desktop", "-synth", "openai"}, want: "openai synthesizer"},
		{name: "unknown flag", args: []string{"-nope"}, want: "flag provided but not defined"},
		{name: "serve needs origins", env: map[string]string{"GOOGLE_SPEECH_KEY": "k", "POLYGLOT_ALLOWED_ORIGINS": ""}, want: "requires -origins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadModesWithoutBackends(t *testing.T) {
	cfg, err := Load([]string{"-mode", "devices"})
	require.NoError(t, err)
	assert.Equal(t, ModeDevices, cfg.Mode)

	cfg, err = Load([]string{"-mode", "voices"})
	require.NoError(t, err)
	assert.Equal(t, "espeak", cfg.Synth)

	cfg, err = Load([]string{"-play", "out.wav"})
	require.NoError(t, err)
	assert.Equal(t, "out.wav", cfg.PlayFile)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLoadDesktopNeedsNoOrigins(t *testing.T) {
	t.Setenv("GOOGLE_SPEECH_KEY", "k")
	t.Setenv("POLYGLOT_ALLOWED_ORIGINS", "")

	cfg, err := Load([]string{"-mode", "desktop"})
	require.NoError(t, err)
	assert.Empty(t, cfg.AllowedOrigins)
}
