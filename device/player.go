package device

import (
	"context"
	"fmt"
	"os"

	"github.com/bosley/polyglot/audio"
	"github.com/gordonklaus/portaudio"
)

// Player writes waveforms to the default output device.
type Player struct{}

// Play blocks until the waveform has finished playing or ctx is done.
// PortAudio must be initialized.
func (Player) Play(ctx context.Context, wf audio.Waveform) error {
	if len(wf.Samples) == 0 {
		return nil
	}
	if wf.Channels < 1 || wf.SampleRate <= 0 {
		return fmt.Errorf("invalid waveform: %d channels at %d Hz", wf.Channels, wf.SampleRate)
	}

	out := make([]int16, framesPerBuffer*wf.Channels)
	stream, err := portaudio.OpenDefaultStream(0, wf.Channels, float64(wf.SampleRate), framesPerBuffer, out)
	if err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	for offset := 0; offset < len(wf.Samples); {
		if err := ctx.Err(); err != nil {
			stream.Abort()
			return err
		}
		n := copy(out, wf.Samples[offset:])
		// Fill remaining buffer with silence if needed
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		if err := stream.Write(); err != nil && err != portaudio.OutputUnderflowed {
			return fmt.Errorf("failed to write audio stream: %w", err)
		}
		offset += n
	}

	// Stop drains pending buffers before returning.
	return stream.Stop()
}

// PlayFile plays a PCM16 WAV file.
func PlayFile(ctx context.Context, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to open audio file: %w", err)
	}
	wf, err := audio.DecodeWAV(data)
	if err != nil {
		return err
	}
	return Player{}.Play(ctx, wf)
}
