package device

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bosley/polyglot/audio"
	"github.com/gordonklaus/portaudio"
)

const defaultCalibrationDuration = 1 * time.Second

type MicrophoneConfig struct {
	DeviceID            int // PortAudio device index, negative for the default input
	CalibrationDuration time.Duration
	Segmenter           audio.SegmenterConfig
}

// Microphone captures one utterance per Listen call.
type Microphone struct {
	cfg    MicrophoneConfig
	stream *portaudio.Stream
	buffer []int16
	seg    *audio.Segmenter
}

// OpenMicrophone opens a blocking mono input stream at the transcription rate.
// PortAudio must be initialized.
func OpenMicrophone(cfg MicrophoneConfig) (*Microphone, error) {
	if cfg.CalibrationDuration <= 0 {
		cfg.CalibrationDuration = defaultCalibrationDuration
	}

	params, err := inputParameters(cfg.DeviceID, audio.TargetSampleRate)
	if err != nil {
		return nil, err
	}

	buffer := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenStream(params, buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	return &Microphone{
		cfg:    cfg,
		stream: stream,
		buffer: buffer,
		seg:    audio.NewSegmenter(cfg.Segmenter, audio.TargetSampleRate),
	}, nil
}

// Listen calibrates against ambient noise and then blocks until an utterance
// ends. The stream only runs while Listen does, so synthesized speech played
// between calls is never captured.
func (m *Microphone) Listen(ctx context.Context) (audio.Waveform, error) {
	if err := m.stream.Start(); err != nil {
		return audio.Waveform{}, fmt.Errorf("failed to start audio stream: %w", err)
	}
	defer func() {
		if err := m.stream.Stop(); err != nil {
			slog.Error("Failed to stop audio stream", "error", err)
		}
	}()

	m.seg.Reset()
	if err := m.calibrate(ctx); err != nil {
		return audio.Waveform{}, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return audio.Waveform{}, err
		}
		if err := m.read(); err != nil {
			return audio.Waveform{}, err
		}

		utterance, err := m.seg.Push(m.buffer)
		if err != nil {
			return audio.Waveform{}, err
		}
		if utterance != nil {
			wf := audio.Waveform{Samples: utterance, SampleRate: audio.TargetSampleRate, Channels: 1}
			slog.Info("Utterance captured", "durationSeconds", wf.Duration().Seconds())
			return wf, nil
		}
	}
}

func (m *Microphone) calibrate(ctx context.Context) error {
	slog.Debug("Calibrating background noise")

	chunks := int(m.cfg.CalibrationDuration.Seconds() * audio.TargetSampleRate / framesPerBuffer)
	if chunks < 1 {
		chunks = 1
	}
	for i := 0; i < chunks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.read(); err != nil {
			return err
		}
		m.seg.Calibrate(m.buffer)
	}

	slog.Debug("Background noise calibration complete", "averageAmplitude", m.seg.BackgroundNoise())
	return nil
}

func (m *Microphone) read() error {
	err := m.stream.Read()
	if err != nil && err != portaudio.InputOverflowed {
		return fmt.Errorf("failed to read audio stream: %w", err)
	}
	return nil
}

func (m *Microphone) Close() error {
	return m.stream.Close()
}
