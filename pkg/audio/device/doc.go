// ABOUTME: Audio device backends
// ABOUTME: malgo, oto and PortAudio implementations of the device boundary
// Package device provides the boundary between streaming sessions and the
// platform audio subsystem.
//
// A Backend opens a Device for a Config; the Device runs a Callback on the
// platform's real-time thread between Activate and Deactivate.
//
// Backends:
//   - Malgo: miniaudio via malgo, playback and capture (default)
//   - Oto: playback only
//   - PortAudio: playback and capture, requires -tags portaudio
//   - Manual: driven explicitly by Pump/Feed, for tests and offline rendering
//   - Null: ticks at the period rate, discarding output
//
// Example:
//
//	backend := device.NewMalgo(zerolog.Nop())
//	dev, err := backend.Open(device.Config{
//	    Direction: device.Output,
//	    Format:    audio.MustFormat(44100, 2, 16),
//	    Quantum:   1024,
//	})
//	err = dev.Activate(func(out []float32) { clear(out) })
package device
