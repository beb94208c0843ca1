// ABOUTME: Sample conversion and packing helpers
// ABOUTME: Scales float samples to integers and packs little-endian PCM
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MaxSampleValue returns 2^(bits-1) - 1
func MaxSampleValue(bits uint32) int {
	return 1<<(bits-1) - 1
}

// FloatToInt scales a sample in [-1.0, 1.0] to the integer range of bits.
// Out of range input is clamped; the result is round(sample * max).
func FloatToInt(sample float64, bits uint32) int {
	if sample > 1.0 {
		sample = 1.0
	} else if sample < -1.0 {
		sample = -1.0
	}
	return int(math.Round(sample * float64(MaxSampleValue(bits))))
}

// IntToFloat maps an integer sample back to [-1.0, 1.0]
func IntToFloat(sample int, bits uint32) float64 {
	return float64(sample) / float64(MaxSampleValue(bits))
}

// AppendPCM packs interleaved integer samples as little-endian PCM.
// 8-bit samples are stored offset-binary as WAVE requires.
func AppendPCM(dst []byte, samples []int, bits uint32) ([]byte, error) {
	switch bits {
	case 8:
		for _, s := range samples {
			dst = append(dst, byte(s+128))
		}
	case 16:
		for _, s := range samples {
			dst = binary.LittleEndian.AppendUint16(dst, uint16(int16(s)))
		}
	case 24:
		for _, s := range samples {
			dst = append(dst, byte(s), byte(s>>8), byte(s>>16))
		}
	case 32:
		for _, s := range samples {
			dst = binary.LittleEndian.AppendUint32(dst, uint32(int32(s)))
		}
	default:
		return dst, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24, 32)", bits)
	}
	return dst, nil
}

// DecodePCM appends the integer samples of little-endian PCM data to dst.
// It is the inverse of AppendPCM; a trailing partial sample is ignored.
func DecodePCM(dst []int, data []byte, bits uint32) ([]int, error) {
	switch bits {
	case 8:
		for _, b := range data {
			dst = append(dst, int(b)-128)
		}
	case 16:
		for i := 0; i+2 <= len(data); i += 2 {
			dst = append(dst, int(int16(binary.LittleEndian.Uint16(data[i:]))))
		}
	case 24:
		for i := 0; i+3 <= len(data); i += 3 {
			// Shift into the top of an int32 so the sign bit extends
			v := int32(uint32(data[i])<<8|uint32(data[i+1])<<16|uint32(data[i+2])<<24) >> 8
			dst = append(dst, int(v))
		}
	case 32:
		for i := 0; i+4 <= len(data); i += 4 {
			dst = append(dst, int(int32(binary.LittleEndian.Uint32(data[i:]))))
		}
	default:
		return dst, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24, 32)", bits)
	}
	return dst, nil
}

// PutFloat32LE writes src into dst as little-endian float32. dst must hold len(src)*4 bytes.
// Safe for real-time callbacks: no allocation.
func PutFloat32LE(dst []byte, src []float32) {
	for i, s := range src {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(s))
	}
}

// Float32FromLE reads len(dst) little-endian float32 values from src.
// Safe for real-time callbacks: no allocation.
func Float32FromLE(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
}
