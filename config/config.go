package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bosley/polyglot/lang"
	"github.com/joho/godotenv"
)

const (
	ModeServe   = "serve"
	ModeDesktop = "desktop"
	ModeDevices = "devices"
	ModeVoices  = "voices"
)

// Config holds the configuration for every mode
type Config struct {
	Mode     string
	PlayFile string
	LogLevel string

	// HTTP service
	Addr           string
	CertFile       string
	KeyFile        string
	AllowedOrigins []string
	MaxUploadBytes int64
	RequestTimeout time.Duration
	MaxConcurrent  int
	RateLimit      int

	// Directory watched for audio files in serve mode, disabled when empty
	InboxDir     string
	InboxWorkers int

	// Languages for the desktop loop and the inbox
	SourceLang string
	TargetLang string

	// Backends
	Transcriber string
	Translator  string
	Synth       string

	WhisperPath     string
	WhisperModel    string
	GoogleSpeechKey string
	OpenAIKey       string
	OpenAIBaseURL   string
	OpenAIModel     string
	FFmpegPath      string
	EspeakPath      string

	// Desktop audio
	DeviceID               int
	Voice                  string
	CalibrationDuration    time.Duration
	SilenceDuration        time.Duration
	PhraseLimit            time.Duration
	ListenTimeout          time.Duration
	Threshold              float64
	MaxConsecutiveFailures int
}

// Load reads .env, then the environment, then args. Flags win.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	cfg := &Config{
		Mode:                   getEnv("POLYGLOT_MODE", ModeServe),
		LogLevel:               getEnv("POLYGLOT_LOG_LEVEL", "info"),
		Addr:                   getEnv("POLYGLOT_ADDR", "localhost:5000"),
		CertFile:               getEnv("POLYGLOT_CERT", ""),
		KeyFile:                getEnv("POLYGLOT_KEY", ""),
		MaxUploadBytes:         int64(getEnvInt("POLYGLOT_MAX_UPLOAD_BYTES", 10<<20)),
		RequestTimeout:         getEnvDuration("POLYGLOT_REQUEST_TIMEOUT", 60*time.Second),
		MaxConcurrent:          getEnvInt("POLYGLOT_MAX_CONCURRENT", 8),
		RateLimit:              getEnvInt("POLYGLOT_RATE_LIMIT", 0),
		InboxDir:               getEnv("POLYGLOT_INBOX", ""),
		InboxWorkers:           getEnvInt("POLYGLOT_INBOX_WORKERS", 2),
		SourceLang:             getEnv("POLYGLOT_SOURCE_LANG", lang.Auto),
		TargetLang:             getEnv("POLYGLOT_TARGET_LANG", "fr"),
		Transcriber:            getEnv("POLYGLOT_TRANSCRIBER", "google"),
		Translator:             getEnv("POLYGLOT_TRANSLATOR", "google"),
		Synth:                  getEnv("POLYGLOT_SYNTH", "espeak"),
		WhisperPath:            getEnv("WHISPER_PATH", ""),
		WhisperModel:           getEnv("WHISPER_MODEL", ""),
		GoogleSpeechKey:        getEnv("GOOGLE_SPEECH_KEY", ""),
		OpenAIKey:              getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:          getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:            getEnv("OPENAI_MODEL", ""),
		FFmpegPath:             getEnv("FFMPEG_PATH", "ffmpeg"),
		EspeakPath:             getEnv("ESPEAK_PATH", "espeak-ng"),
		DeviceID:               getEnvInt("POLYGLOT_DEVICE", -1),
		Voice:                  getEnv("POLYGLOT_VOICE", ""),
		CalibrationDuration:    getEnvDuration("POLYGLOT_CALIBRATION", time.Second),
		SilenceDuration:        getEnvDuration("POLYGLOT_SILENCE", time.Second),
		PhraseLimit:            getEnvDuration("POLYGLOT_PHRASE_LIMIT", 15*time.Second),
		ListenTimeout:          getEnvDuration("POLYGLOT_LISTEN_TIMEOUT", 0),
		Threshold:              getEnvFloat("POLYGLOT_THRESHOLD", 2.22),
		MaxConsecutiveFailures: getEnvInt("POLYGLOT_MAX_FAILURES", 0),
	}
	origins := getEnv("POLYGLOT_ALLOWED_ORIGINS", "")

	fs := flag.NewFlagSet("polyglot", flag.ContinueOnError)
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Mode: serve, desktop, devices or voices")
	fs.StringVar(&cfg.PlayFile, "play", "", "Play a WAV file through the output device and exit")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address (host:port)")
	fs.StringVar(&cfg.CertFile, "cert", cfg.CertFile, "Path to server certificate file")
	fs.StringVar(&cfg.KeyFile, "key", cfg.KeyFile, "Path to server key file")
	fs.StringVar(&origins, "origins", origins, "Comma separated origins allowed by CORS, required in serve mode (* allows all)")
	fs.Int64Var(&cfg.MaxUploadBytes, "max-upload", cfg.MaxUploadBytes, "Maximum upload size in bytes")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Per request processing timeout")
	fs.IntVar(&cfg.MaxConcurrent, "max-concurrent", cfg.MaxConcurrent, "Translations processed at once")
	fs.IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Translate requests per minute per IP (0 disables)")
	fs.StringVar(&cfg.InboxDir, "inbox", cfg.InboxDir, "Directory to watch for audio files in serve mode")
	fs.IntVar(&cfg.InboxWorkers, "inbox-workers", cfg.InboxWorkers, "Number of inbox worker goroutines")
	fs.StringVar(&cfg.SourceLang, "source", cfg.SourceLang, "Source language code or auto")
	fs.StringVar(&cfg.TargetLang, "target", cfg.TargetLang, "Target language code")
	fs.StringVar(&cfg.Transcriber, "transcriber", cfg.Transcriber, "Speech recognition backend: google, whisper or openai")
	fs.StringVar(&cfg.Translator, "translator", cfg.Translator, "Translation backend: google or openai")
	fs.StringVar(&cfg.Synth, "synth", cfg.Synth, "Speech synthesis backend: espeak or openai")
	fs.StringVar(&cfg.WhisperPath, "whisper", cfg.WhisperPath, "Path to whisper executable")
	fs.StringVar(&cfg.WhisperModel, "model", cfg.WhisperModel, "Path to whisper model file")
	fs.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "Path to ffmpeg executable")
	fs.StringVar(&cfg.EspeakPath, "espeak", cfg.EspeakPath, "Path to espeak-ng executable")
	fs.IntVar(&cfg.DeviceID, "device", cfg.DeviceID, "Audio input device ID to use (-1 for the default device)")
	fs.StringVar(&cfg.Voice, "voice", cfg.Voice, "Voice ID or name for speech synthesis")
	fs.DurationVar(&cfg.CalibrationDuration, "calibrate", cfg.CalibrationDuration, "Ambient noise calibration before each utterance")
	fs.DurationVar(&cfg.SilenceDuration, "silence", cfg.SilenceDuration, "Silence that ends an utterance")
	fs.DurationVar(&cfg.PhraseLimit, "phrase-limit", cfg.PhraseLimit, "Maximum utterance length")
	fs.DurationVar(&cfg.ListenTimeout, "listen-timeout", cfg.ListenTimeout, "Wait for speech before restarting (0 waits forever)")
	fs.Float64Var(&cfg.Threshold, "threshold", cfg.Threshold, "Speech energy ratio over background noise")
	fs.IntVar(&cfg.MaxConsecutiveFailures, "max-failures", cfg.MaxConsecutiveFailures, "Consecutive failures before the desktop loop exits (0 never exits)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.AllowedOrigins = splitList(origins)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.Mode {
	case ModeServe, ModeDesktop, ModeDevices, ModeVoices:
	default:
		return fmt.Errorf("invalid mode: %s (must be serve, desktop, devices or voices)", c.Mode)
	}

	if c.PlayFile != "" || c.Mode == ModeDevices {
		return nil
	}
	if c.Mode == ModeVoices {
		return c.validateSynth()
	}

	if err := c.validatePipeline(); err != nil {
		return err
	}

	if c.Mode == ModeServe {
		if (c.CertFile == "") != (c.KeyFile == "") {
			return errors.New("both -cert and -key are required for TLS")
		}
		if c.MaxUploadBytes <= 0 {
			return errors.New("max upload size must be positive")
		}
		if c.InboxDir != "" && lang.IsAuto(c.TargetLang) {
			return errors.New("inbox requires a target language")
		}
		if len(c.AllowedOrigins) == 0 {
			return errors.New("serve mode requires -origins or POLYGLOT_ALLOWED_ORIGINS")
		}
		return nil
	}

	if lang.IsAuto(c.TargetLang) {
		return errors.New("desktop mode requires a target language")
	}
	return c.validateSynth()
}

func (c *Config) validatePipeline() error {
	switch c.Transcriber {
	case "google":
		if c.GoogleSpeechKey == "" {
			return errors.New("GOOGLE_SPEECH_KEY is required for the google transcriber")
		}
	case "whisper":
		if c.WhisperPath == "" || c.WhisperModel == "" {
			return errors.New("both -whisper and -model are required for the whisper transcriber")
		}
	case "openai":
		if c.OpenAIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai transcriber")
		}
	default:
		return fmt.Errorf("invalid transcriber: %s (must be google, whisper or openai)", c.Transcriber)
	}

	switch c.Translator {
	case "google":
	case "openai":
		if c.OpenAIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai translator")
		}
	default:
		return fmt.Errorf("invalid translator: %s (must be google or openai)", c.Translator)
	}
	return nil
}

func (c *Config) validateSynth() error {
	switch c.Synth {
	case "espeak":
	case "openai":
		if c.OpenAIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai synthesizer")
		}
	default:
		return fmt.Errorf("invalid synthesizer: %s (must be espeak or openai)", c.Synth)
	}
	return nil
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.Atoi(value)
		if err == nil {
			return n
		}
		slog.Warn("Ignoring malformed environment value", "key", key, "value", value, "error", err)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
		slog.Warn("Ignoring malformed environment value", "key", key, "value", value, "error", err)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
		slog.Warn("Ignoring malformed environment value", "key", key, "value", value, "error", err)
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
