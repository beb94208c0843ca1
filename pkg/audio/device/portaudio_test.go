//go:build portaudio

// ABOUTME: PortAudio backend tests
// ABOUTME: Only built with the portaudio tag
package device

import (
	"testing"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/assert"
)

func TestPortAudioErrorsKeepCode(t *testing.T) {
	err := wrapPortAudio(audio.KindDeviceUnavailable, "portaudio.OpenStream", portaudio.InvalidDevice)
	assert.ErrorIs(t, err, audio.ErrDeviceUnavailable)
	assert.Equal(t, int(portaudio.InvalidDevice), audio.StatusCode(err))
	assert.NotEqual(t, audio.NoStatus, audio.StatusCode(err))
}
