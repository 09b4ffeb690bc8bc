package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/youpy/go-wav"
)

const (
	TargetSampleRate = 16000 // Rate every transcriber is fed with
	bitsPerSample    = 16    // Using int16 for samples
	readChunk        = 4096
)

// Waveform is decoded, uncompressed PCM16 audio.
type Waveform struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Duration reports how long the waveform plays for.
func (w Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 || w.Channels <= 0 {
		return 0
	}
	frames := len(w.Samples) / w.Channels
	return time.Duration(frames) * time.Second / time.Duration(w.SampleRate)
}

// PCM returns the samples as little-endian 16-bit PCM.
func (w Waveform) PCM() []byte {
	out := make([]byte, len(w.Samples)*2)
	for i, sample := range w.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}

// FromPCM builds a waveform from little-endian 16-bit PCM. A trailing odd byte is dropped.
func FromPCM(data []byte, sampleRate, channels int) Waveform {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return Waveform{Samples: samples, SampleRate: sampleRate, Channels: channels}
}

// EncodeWAV wraps the waveform in a RIFF/WAVE container.
func (w Waveform) EncodeWAV() ([]byte, error) {
	if w.Channels < 1 || w.Channels > 2 {
		return nil, fmt.Errorf("unsupported channel count %d", w.Channels)
	}
	if w.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", w.SampleRate)
	}

	frames := len(w.Samples) / w.Channels
	samples := make([]wav.Sample, frames)
	for i := range samples {
		for c := 0; c < w.Channels; c++ {
			samples[i].Values[c] = int(w.Samples[i*w.Channels+c])
		}
	}

	var buf bytes.Buffer
	writer := wav.NewWriter(&buf, uint32(frames), uint16(w.Channels), uint32(w.SampleRate), bitsPerSample)
	if err := writer.WriteSamples(samples); err != nil {
		return nil, fmt.Errorf("failed to write WAV samples: %w", err)
	}
	return buf.Bytes(), nil
}

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// DecodeWAV reads a PCM16 WAV file. Other sample formats are rejected with ErrUnsupportedFormat.
func DecodeWAV(data []byte) (Waveform, error) {
	if !IsWAV(data) {
		return Waveform{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrUnsupportedFormat)
	}

	reader := wav.NewReader(bytes.NewReader(data))
	format, err := reader.Format()
	if err != nil {
		return Waveform{}, fmt.Errorf("%w: failed to read WAV format: %v", ErrUnsupportedFormat, err)
	}
	if format.AudioFormat != wav.AudioFormatPCM || format.BitsPerSample != bitsPerSample {
		return Waveform{}, fmt.Errorf("%w: WAV format %d with %d bits per sample",
			ErrUnsupportedFormat, format.AudioFormat, format.BitsPerSample)
	}
	channels := int(format.NumChannels)
	if channels < 1 || channels > 2 {
		return Waveform{}, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
	}

	wf := Waveform{SampleRate: int(format.SampleRate), Channels: channels}
	for {
		samples, err := reader.ReadSamples(readChunk)
		for _, sample := range samples {
			for c := 0; c < channels; c++ {
				wf.Samples = append(wf.Samples, int16(sample.Values[c]))
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return Waveform{}, fmt.Errorf("%w: failed to read WAV samples: %v", ErrUnsupportedFormat, err)
		}
		if len(samples) == 0 {
			break
		}
	}

	return wf, nil
}
