// ABOUTME: Tests for the format descriptor
// ABOUTME: Covers validation, derived layout and immutability
package audio

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormat(t *testing.T) {
	tests := []struct {
		name          string
		rate          float64
		channels      uint32
		bits          uint32
		wantErr       bool
		bytesPerFrame uint32
	}{
		{"cd stereo", 44100, 2, 16, false, 4},
		{"mono 16", 44100, 1, 16, false, 2},
		{"hi-res 24", 96000, 2, 24, false, 6},
		{"8 bit", 8000, 1, 8, false, 1},
		{"32 bit 6ch", 48000, 6, 32, false, 24},
		{"zero channels", 44100, 0, 16, true, 0},
		{"zero rate", 0, 2, 16, true, 0},
		{"negative rate", -44100, 2, 16, true, 0},
		{"nan rate", math.NaN(), 2, 16, true, 0},
		{"inf rate", math.Inf(1), 2, 16, true, 0},
		{"odd bit depth", 44100, 2, 12, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFormat(tt.rate, tt.channels, tt.bits)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidFormat))
				assert.True(t, f.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rate, f.SampleRate())
			assert.Equal(t, tt.channels, f.Channels())
			assert.Equal(t, tt.bits, f.BitsPerSample())
			assert.Equal(t, tt.bytesPerFrame, f.BytesPerFrame())
			assert.Equal(t, uint32(1), f.FramesPerPacket())
		})
	}
}

func TestFormatComparable(t *testing.T) {
	a := MustFormat(44100, 2, 16)
	b := MustFormat(44100, 2, 16)
	c := MustFormat(48000, 2, 16)
	assert.True(t, a == b)
	assert.False(t, a == c)
}

func TestFormatWithChannels(t *testing.T) {
	f := MustFormat(44100, 2, 16)
	mono, err := f.WithChannels(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), mono.BytesPerFrame())
	assert.Equal(t, uint32(4), f.BytesPerFrame(), "original must be unchanged")

	_, err = f.WithChannels(0)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "44100Hz stereo 16-bit", MustFormat(44100, 2, 16).String())
	assert.Equal(t, "8000Hz mono 8-bit", MustFormat(8000, 1, 8).String())
	assert.Equal(t, "48000Hz 6ch 24-bit", MustFormat(48000, 6, 24).String())
}

func TestMustFormatPanics(t *testing.T) {
	assert.Panics(t, func() { MustFormat(44100, 0, 16) })
}
