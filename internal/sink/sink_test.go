// ABOUTME: Tests for recording sinks
// ABOUTME: Reads raw PCM back through the raw source and WAVE through go-audio
package sink

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Resonate-Protocol/pcmbridge/internal/source"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawRoundTrip(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1, 0.25}
	for _, bits := range []uint32{8, 16, 24, 32} {
		format := audio.MustFormat(16000, 2, bits)
		t.Run(format.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "take.pcm")
			s, err := Create(path, format)
			require.NoError(t, err)
			require.NoError(t, s.WriteFloat32s(samples))
			assert.Equal(t, uint64(3), s.FramesWritten())
			require.NoError(t, s.Close())
			require.NoError(t, s.Close())

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, int64(3*format.BytesPerFrame()), info.Size())

			src, err := source.NewRaw(path, format)
			require.NoError(t, err)
			defer src.Close()

			got := make([]float32, 8)
			n, err := src.Read(got)
			require.NoError(t, err)
			require.Equal(t, 3, n)

			step := 1 / float64(audio.MaxSampleValue(bits))
			for i, want := range samples {
				assert.InDelta(t, want, got[i], step, "sample %d", i)
			}
			_, err = src.Read(got)
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestRawEightBitIsOffsetBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.raw")
	s, err := NewRaw(path, audio.MustFormat(8000, 1, 8))
	require.NoError(t, err)
	require.NoError(t, s.WriteFloat32s([]float32{0, 1, -1}))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{128, 255, 1}, data)
}

func TestRawRejectsPartialFrameAndClosedWrites(t *testing.T) {
	s, err := NewRaw(filepath.Join(t.TempDir(), "take.raw"), audio.MustFormat(8000, 2, 16))
	require.NoError(t, err)

	err = s.WriteFloat32s([]float32{0, 0, 0})
	assert.ErrorIs(t, err, audio.ErrWrite)
	assert.Zero(t, s.FramesWritten())

	require.NoError(t, s.Close())
	err = s.WriteFloat32s([]float32{0, 0})
	assert.ErrorIs(t, err, audio.ErrInvalidState)
}

func TestRawMissingParent(t *testing.T) {
	_, err := NewRaw(filepath.Join(t.TempDir(), "missing", "take.raw"), audio.MustFormat(8000, 1, 16))
	assert.ErrorIs(t, err, audio.ErrPathResolution)
}

func TestCreateWAVENegotiatesFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.wav")
	s, err := Create(path, audio.MustFormat(22050, 1, 24))
	require.NoError(t, err)
	require.NoError(t, s.WriteFloat32s([]float32{0.5, -0.5}))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 22050, int(d.SampleRate))
	assert.Equal(t, 24, int(d.BitDepth))
	assert.Len(t, buf.Data, 2)
}

func TestCreateWAVERejectsEightBitWithoutTouchingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.wav")
	require.NoError(t, os.WriteFile(path, []byte("earlier"), 0o644))

	_, err := Create(path, audio.MustFormat(44100, 1, 8))
	assert.ErrorIs(t, err, audio.ErrFormatNegotiation)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "earlier", string(got))
}
