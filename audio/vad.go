package audio

import (
	"errors"
	"log/slog"
	"math"
	"time"
)

const (
	defaultVADThreshold         = 2.22
	defaultBackgroundBufferSize = 50
	defaultSilenceDuration      = 1 * time.Second
	defaultPhraseLimit          = 15 * time.Second
	minBackgroundNoise          = 1.0
)

// ErrNoSpeech is returned when no utterance starts within the listen timeout.
var ErrNoSpeech = errors.New("no speech detected")

type SegmenterConfig struct {
	// Energy ratio over the background level that counts as speech
	Threshold float64

	// Trailing silence that ends an utterance
	SilenceDuration time.Duration

	// Hard cap on utterance length, zero disables
	PhraseLimit time.Duration

	// How long to wait for speech to begin, zero waits forever
	ListenTimeout time.Duration

	// Utterances with less speech than this are dropped
	MinUtterance time.Duration

	BackgroundBufferSize int
}

func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		Threshold:            defaultVADThreshold,
		SilenceDuration:      defaultSilenceDuration,
		PhraseLimit:          defaultPhraseLimit,
		MinUtterance:         250 * time.Millisecond,
		BackgroundBufferSize: defaultBackgroundBufferSize,
	}
}

// Segmenter splits a stream of PCM16 chunks into utterances using an energy
// ratio against a rolling background-noise estimate.
type Segmenter struct {
	cfg        SegmenterConfig
	sampleRate int

	backgroundNoise  float64
	backgroundBuffer []float64

	calibrationSum    float64
	calibrationChunks int

	speaking  bool
	utterance []int16
	silent    int // samples since the last speech chunk
	waited    int // samples seen before speech started
}

func NewSegmenter(cfg SegmenterConfig, sampleRate int) *Segmenter {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultVADThreshold
	}
	if cfg.SilenceDuration <= 0 {
		cfg.SilenceDuration = defaultSilenceDuration
	}
	if cfg.BackgroundBufferSize <= 0 {
		cfg.BackgroundBufferSize = defaultBackgroundBufferSize
	}
	return &Segmenter{
		cfg:              cfg,
		sampleRate:       sampleRate,
		backgroundBuffer: make([]float64, 0, cfg.BackgroundBufferSize),
	}
}

// Calibrate feeds an ambient-noise chunk. The background level becomes the
// average amplitude of every chunk seen since the last Reset.
func (s *Segmenter) Calibrate(chunk []int16) {
	if len(chunk) == 0 {
		return
	}
	s.calibrationSum += chunkAmplitude(chunk)
	s.calibrationChunks++
	s.backgroundNoise = s.calibrationSum / float64(s.calibrationChunks)
	s.backgroundBuffer = append(s.backgroundBuffer[:0], s.backgroundNoise)
}

func (s *Segmenter) BackgroundNoise() float64 {
	return s.backgroundNoise
}

// Reset drops any partial utterance and calibration totals, keeping the
// current background estimate.
func (s *Segmenter) Reset() {
	s.speaking = false
	s.utterance = nil
	s.silent = 0
	s.waited = 0
	s.calibrationSum = 0
	s.calibrationChunks = 0
}

// Push consumes one chunk. It returns a complete utterance once trailing
// silence or the phrase limit ends it, nil while more audio is needed, and
// ErrNoSpeech when the listen timeout passes without speech.
func (s *Segmenter) Push(chunk []int16) ([]int16, error) {
	if len(chunk) == 0 {
		return nil, nil
	}

	amplitude := chunkAmplitude(chunk)
	noise := math.Max(s.backgroundNoise, minBackgroundNoise)
	ratio := amplitude / noise
	isSpeech := ratio > s.cfg.Threshold

	if !s.speaking {
		if isSpeech {
			s.speaking = true
			s.silent = 0
			s.waited = 0
			s.utterance = append(make([]int16, 0, len(chunk)*16), chunk...)
			slog.Debug("Speech detected",
				"chunkAmplitude", amplitude,
				"backgroundNoise", s.backgroundNoise,
				"ratio", ratio)
			return nil, nil
		}

		s.updateBackgroundNoise(amplitude)
		s.waited += len(chunk)
		if s.cfg.ListenTimeout > 0 && s.duration(s.waited) >= s.cfg.ListenTimeout {
			s.waited = 0
			return nil, ErrNoSpeech
		}
		return nil, nil
	}

	s.utterance = append(s.utterance, chunk...)
	if isSpeech {
		s.silent = 0
	} else {
		s.silent += len(chunk)
	}

	switch {
	case s.cfg.PhraseLimit > 0 && s.duration(len(s.utterance)) >= s.cfg.PhraseLimit:
		slog.Debug("Phrase limit reached", "durationSeconds", s.duration(len(s.utterance)).Seconds())
	case s.duration(s.silent) >= s.cfg.SilenceDuration:
		slog.Debug("Extended silence detected", "totalSamples", len(s.utterance))
	default:
		return nil, nil
	}

	utterance := s.utterance
	speech := s.duration(len(utterance) - s.silent)
	s.speaking = false
	s.utterance = nil
	s.silent = 0

	if speech < s.cfg.MinUtterance {
		slog.Debug("Dropping short utterance", "durationSeconds", speech.Seconds())
		return nil, nil
	}
	return utterance, nil
}

func (s *Segmenter) updateBackgroundNoise(amplitude float64) {
	if len(s.backgroundBuffer) >= s.cfg.BackgroundBufferSize {
		s.backgroundBuffer = s.backgroundBuffer[1:]
	}
	s.backgroundBuffer = append(s.backgroundBuffer, amplitude)

	var sum float64
	for _, a := range s.backgroundBuffer {
		sum += a
	}
	s.backgroundNoise = sum / float64(len(s.backgroundBuffer))
}

func (s *Segmenter) duration(samples int) time.Duration {
	if s.sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(s.sampleRate)
}

func chunkAmplitude(chunk []int16) float64 {
	var totalAmplitude float64
	for _, sample := range chunk {
		totalAmplitude += math.Abs(float64(sample))
	}
	return totalAmplitude / float64(len(chunk))
}
