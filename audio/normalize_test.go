package audio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRun struct {
	name  string
	args  []string
	stdin []byte
	calls int
}

func (r *recordedRun) runner(out []byte, err error) Runner {
	return func(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
		r.calls++
		r.name = name
		r.args = args
		r.stdin = stdin
		return out, err
	}
}

func TestNormalizeSkipsFFmpegForTargetWAV(t *testing.T) {
	wf := Waveform{Samples: []int16{10, 20, 30}, SampleRate: TargetSampleRate, Channels: 1}
	data, err := wf.EncodeWAV()
	require.NoError(t, err)

	rec := &recordedRun{}
	n := NewNormalizer("")
	n.Run = rec.runner(nil, errors.New("should not run"))

	got, err := n.Normalize(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, wf, got)
	assert.Zero(t, rec.calls)
}

func TestNormalizeConvertsThroughFFmpeg(t *testing.T) {
	rec := &recordedRun{}
	n := NewNormalizer("/usr/bin/ffmpeg")
	n.Run = rec.runner([]byte{0x01, 0x00, 0xff, 0xff}, nil)

	blob := []byte("\x1aE\xdf\xa3webm-ish")
	got, err := n.Normalize(context.Background(), blob)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, "/usr/bin/ffmpeg", rec.name)
	assert.Equal(t, blob, rec.stdin)
	assert.Contains(t, rec.args, "pipe:0")
	assert.Contains(t, rec.args, "16000")
	assert.Equal(t, Waveform{Samples: []int16{1, -1}, SampleRate: TargetSampleRate, Channels: 1}, got)
}

func TestNormalizeResamplesForeignWAV(t *testing.T) {
	stereo := Waveform{Samples: []int16{1, 2, 3, 4}, SampleRate: 44100, Channels: 2}
	data, err := stereo.EncodeWAV()
	require.NoError(t, err)

	rec := &recordedRun{}
	n := NewNormalizer("")
	n.Run = rec.runner([]byte{0x02, 0x00}, nil)

	got, err := n.Normalize(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, []int16{2}, got.Samples)
}

func TestNormalizeFailures(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
		out  []byte
		err  error
	}{
		{name: "empty input", blob: nil},
		{name: "decoder failure", blob: []byte("garbage"), err: errors.New("exit status 1: Invalid data found")},
		{name: "nothing decoded", blob: []byte("garbage"), out: []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer("")
			n.Run = (&recordedRun{}).runner(tt.out, tt.err)

			_, err := n.Normalize(context.Background(), tt.blob)
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
		})
	}
}

func TestNormalizeCancelledIsNotFormatError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := NewNormalizer("")
	n.Run = (&recordedRun{}).runner(nil, context.Canceled)

	_, err := n.Normalize(ctx, []byte("anything"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, err, context.Canceled)
}
