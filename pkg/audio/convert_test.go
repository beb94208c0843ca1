// ABOUTME: Tests for sample conversion functions
// ABOUTME: Covers float scaling, 24-bit packing and PCM byte layout
package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatToInt(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		bits     uint32
		expected int
	}{
		{"zero", 0, 16, 0},
		{"half 16", 0.5, 16, 16384},
		{"neg half 16", -0.5, 16, -16384},
		{"full scale", 1.0, 16, 32767},
		{"neg full scale", -1.0, 16, -32767},
		{"clamp high", 1.7, 16, 32767},
		{"clamp low", -3, 16, -32767},
		{"half 24", 0.5, 24, 4194304},
		{"half 8", 0.5, 8, 64},
		{"full 32", 1.0, 32, math.MaxInt32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FloatToInt(tt.input, tt.bits))
		})
	}
}

func TestIntToFloatInverse(t *testing.T) {
	for _, v := range []float64{-1, -0.25, 0, 0.3, 0.999} {
		got := IntToFloat(FloatToInt(v, 16), 16)
		assert.InDelta(t, v, got, 1.0/32767)
	}
}

func TestAppendPCMLayout(t *testing.T) {
	b, err := AppendPCM(nil, []int{1, -1, 16384}, 16)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0xFF, 0xFF, 0x00, 0x40}, b)

	b, err = AppendPCM(nil, []int{0, -128, 127}, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x00, 0xFF}, b)

	b, err = AppendPCM(nil, []int{-2}, 24)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFE, 0xFF, 0xFF}, b)

	_, err = AppendPCM(nil, []int{0}, 12)
	assert.Error(t, err)
}

func TestDecodePCMInverse(t *testing.T) {
	samples := []int{0, 100, -100, 127, -128}
	for _, bits := range []uint32{8, 16, 24, 32} {
		b, err := AppendPCM(nil, samples, bits)
		require.NoError(t, err)
		back, err := DecodePCM(nil, b, bits)
		require.NoError(t, err)
		assert.Equal(t, samples, back, "bits=%d", bits)
	}
}

func TestPCM24BitExtremes(t *testing.T) {
	tests := []struct {
		name   string
		sample int
		packed []byte
	}{
		{"zero", 0, []byte{0, 0, 0}},
		{"positive", 0x123456, []byte{0x56, 0x34, 0x12}},
		{"minus one", -1, []byte{0xFF, 0xFF, 0xFF}},
		{"max", 8388607, []byte{0xFF, 0xFF, 0x7F}},
		{"min", -8388608, []byte{0x00, 0x00, 0x80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := AppendPCM(nil, []int{tt.sample}, 24)
			require.NoError(t, err)
			assert.Equal(t, tt.packed, b)

			back, err := DecodePCM(nil, b, 24)
			require.NoError(t, err)
			assert.Equal(t, []int{tt.sample}, back)
		})
	}
}

func TestDecodePCMAppendsAndIgnoresPartialSample(t *testing.T) {
	got, err := DecodePCM([]int{7}, []byte{0x01, 0x00, 0xFF}, 16)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 1}, got)

	_, err = DecodePCM(nil, []byte{0}, 12)
	assert.Error(t, err)
}

func TestFloat32LE(t *testing.T) {
	src := []float32{0, 0.5, -1, 0.25}
	buf := make([]byte, len(src)*4)
	PutFloat32LE(buf, src)

	dst := make([]float32, len(src))
	Float32FromLE(dst, buf)
	assert.Equal(t, src, dst)

	// 0.5 is 0x3F000000
	assert.Equal(t, []byte{0, 0, 0, 0x3F}, buf[4:8])
}
