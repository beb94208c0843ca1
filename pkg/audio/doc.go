// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, StreamDescription, the error taxonomy and sample conversions
// Package audio provides the value types shared by the streaming and file paths.
//
// This package defines:
//   - Format: immutable description of a PCM stream (rate, channels, bit depth)
//   - StreamDescription: fixed 40-byte layout of the native stream descriptor
//   - Error: typed failures carrying the operation name and native status code
//
// It also provides sample conversions:
//   - float ↔ integer scaling with rounding and clamping
//   - little-endian packing of 8/16/24/32-bit integer samples
//   - float32 ↔ little-endian byte buffers for device callbacks
//
// Example:
//
//	format, err := audio.NewFormat(44100, 2, 16)
//	if err != nil {
//	    return err
//	}
//	v := audio.FloatToInt(0.5, format.BitsPerSample()) // 16384
package audio
