//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package device

import (
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/rs/zerolog"
)

const portAudioDisabled = "PortAudio support not enabled (build with -tags portaudio)"

// PortAudio backend (stub)
type PortAudio struct{}

// NewPortAudio creates a PortAudio backend
func NewPortAudio(zerolog.Logger) *PortAudio {
	return &PortAudio{}
}

func (p *PortAudio) Name() string { return "portaudio" }

func (p *PortAudio) Open(Config) (Device, error) {
	return nil, audio.Errorf(audio.KindDeviceUnavailable, "portaudio.Open", portAudioDisabled)
}

func (p *PortAudio) DefaultDevice(Direction) (Ref, error) {
	return Ref{}, audio.Errorf(audio.KindDeviceUnavailable, "portaudio.DefaultDevice", portAudioDisabled)
}
