// ABOUTME: WAVE encoder tests
// ABOUTME: Reads files back with go-audio's decoder to check headers and samples
package wavfile

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decode reads back a WAVE file
func decode(t *testing.T, path string) (*wav.Decoder, []int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	d := wav.NewDecoder(f)
	require.True(t, d.IsValidFile(), "not a valid WAVE file")
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	return d, buf.Data
}

func TestSaveHalfScaleMono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "half.wav")
	samples := make([]float64, 44100)
	for i := range samples {
		samples[i] = 0.5
	}

	require.NoError(t, Save(path, samples, Options{SampleRate: 44100, Channels: 1, BitsPerSample: 16}))

	d, data := decode(t, path)
	assert.Equal(t, uint32(44100), d.SampleRate)
	assert.Equal(t, uint16(1), d.NumChans)
	assert.Equal(t, uint16(16), d.BitDepth)
	assert.Equal(t, uint16(1), d.WavAudioFormat)
	require.Len(t, data, 44100)
	for i, v := range data {
		if v != 16384 {
			t.Fatalf("sample %d = %d, want 16384", i, v)
		}
	}
}

func TestSineRoundTrip(t *testing.T) {
	for _, bits := range []uint32{16, 24, 32} {
		t.Run(audio.MustFormat(48000, 2, bits).String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sine.wav")
			const frames = 4800
			samples := make([]float64, frames*2)
			for i := 0; i < frames; i++ {
				v := 0.8 * math.Sin(2*math.Pi*440*float64(i)/48000)
				samples[i*2] = v
				samples[i*2+1] = -v
			}
			require.NoError(t, Save(path, samples, Options{SampleRate: 48000, BitsPerSample: bits}))

			d, data := decode(t, path)
			assert.Equal(t, uint16(2), d.NumChans)
			require.Len(t, data, len(samples))
			max := float64(audio.MaxSampleValue(bits))
			for i, v := range data {
				want := samples[i] * max
				if math.Abs(float64(v)-want) > 1 {
					t.Fatalf("sample %d = %d, want %v within 1 LSB", i, v, want)
				}
			}
		})
	}
}

func TestSaveEmptyProducesValidContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	require.NoError(t, Save(path, []float64{}, Options{}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(44), info.Size())

	d, data := decode(t, path)
	assert.Equal(t, uint32(44100), d.SampleRate)
	assert.Equal(t, uint16(2), d.NumChans)
	assert.Empty(t, data)
	assert.Zero(t, d.PCMLen())
}

func TestSaveSampleTypes(t *testing.T) {
	tests := []struct {
		name    string
		samples any
		want    []int
	}{
		{"float64", []float64{1, -1}, []int{32767, -32767}},
		{"float32", []float32{0.5, -0.5}, []int{16384, -16384}},
		{"int", []int{100, -100}, []int{100, -100}},
		{"int16", []int16{-32768, 32767}, []int{-32768, 32767}},
		{"clamped", []float64{2, -2}, []int{32767, -32767}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.name+".wav")
			require.NoError(t, Save(path, tt.samples, Options{Channels: 1}))
			_, data := decode(t, path)
			assert.Equal(t, tt.want, data)
		})
	}
}

func TestSaveRejectsUnsupportedType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	err := Save(path, []string{"a"}, Options{})
	assert.ErrorIs(t, err, audio.ErrWrite)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file may be created for rejected input")
}

func TestSaveRejectsInvalidFormat(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "x.wav"), []float64{0}, Options{BitsPerSample: 12})
	assert.ErrorIs(t, err, audio.ErrInvalidFormat)

	err = Save(filepath.Join(t.TempDir(), "x.wav"), []float64{0}, Options{SampleRate: -1})
	assert.ErrorIs(t, err, audio.ErrInvalidFormat)
}

func TestSaveRejectsEightBit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.wav")
	err := Save(path, []float64{0, 0}, Options{BitsPerSample: 8})
	assert.ErrorIs(t, err, audio.ErrFormatNegotiation)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "rejected save must not create a file")
}

func TestSaveRejectedFormatKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keep.wav")
	require.NoError(t, os.WriteFile(path, []byte("previous take"), 0o644))

	err := Save(path, []float64{0, 0}, Options{BitsPerSample: 8})
	assert.ErrorIs(t, err, audio.ErrFormatNegotiation)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous take", string(got))
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, CheckFormat(audio.MustFormat(48000, 2, 24)))
	assert.ErrorIs(t, CheckFormat(audio.MustFormat(48000, 2, 8)), audio.ErrFormatNegotiation)
	assert.ErrorIs(t, CheckFormat(audio.MustFormat(44100.5, 1, 16)), audio.ErrFormatNegotiation)
	assert.ErrorIs(t, CheckFormat(audio.Format{}), audio.ErrInvalidFormat)
}

func TestOpenMissingParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.wav")
	_, err := Open(path, audio.MustFormat(44100, 2, 16))
	require.ErrorIs(t, err, audio.ErrPathResolution)

	var aerr *audio.Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "resolve", aerr.Op)
	assert.NotEqual(t, audio.NoStatus, aerr.Code, "errno should be carried")
}

func TestOpenRejectsDirectoryTarget(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir, audio.MustFormat(44100, 2, 16))
	assert.ErrorIs(t, err, audio.ErrPathResolution)

	info, statErr := os.Stat(dir)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestOpenReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.wav")
	require.NoError(t, os.WriteFile(path, make([]byte, 1000), 0o644))

	require.NoError(t, Save(path, []int{1, 2}, Options{}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(44+4), info.Size())
}

func TestProtocolOrder(t *testing.T) {
	format := audio.MustFormat(44100, 2, 16)
	e, err := Open(filepath.Join(t.TempDir(), "p.wav"), format)
	require.NoError(t, err)

	assert.ErrorIs(t, e.WriteFloats([]float64{0, 0}), audio.ErrInvalidState, "write before negotiation")

	err = e.NegotiateClientFormat(audio.MustFormat(48000, 2, 16))
	assert.ErrorIs(t, err, audio.ErrFormatNegotiation)
	_, ok := e.ClientDescription()
	assert.False(t, ok)

	require.NoError(t, e.NegotiateClientFormat(format))
	desc, ok := e.ClientDescription()
	require.True(t, ok)
	assert.Equal(t, format.Description(), desc)

	assert.ErrorIs(t, e.WriteFloats([]float64{0, 0, 0}), audio.ErrWrite, "partial frame")
	assert.Zero(t, e.FramesWritten())

	require.NoError(t, e.WriteFloats(nil))
	require.NoError(t, e.WriteFloat32s([]float32{0.1, 0.2, 0.3, 0.4}))
	require.NoError(t, e.WriteInts([]int{5, 6}))
	assert.Equal(t, uint64(3), e.FramesWritten())

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.ErrorIs(t, e.WriteInts([]int{1, 2}), audio.ErrInvalidState)

	_, data := decode(t, e.Path())
	assert.Len(t, data, 6)
}

func TestDataChunkMatchesPacking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.wav")
	ints := []int{-8388608, 8388607, 0, -1, 12345, -54321}
	require.NoError(t, Save(path, ints, Options{SampleRate: 8000, BitsPerSample: 24}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	want, err := audio.AppendPCM(nil, ints, 24)
	require.NoError(t, err)
	assert.Equal(t, want, raw[44:])
}
