// ABOUTME: Sine tone generator
// ABOUTME: Produces an endless phase-continuous sine on every channel
package source

import (
	"math"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
)

// Tone generates a sine wave. It never returns io.EOF.
type Tone struct {
	format    audio.Format
	frequency float64
	amplitude float64
	frame     uint64
}

// NewTone creates a sine generator. amplitude is clamped to [0, 1].
func NewTone(frequency, amplitude float64, format audio.Format) *Tone {
	return &Tone{
		format:    format,
		frequency: frequency,
		amplitude: max(0, min(amplitude, 1)),
	}
}

func (t *Tone) Format() audio.Format { return t.format }

func (t *Tone) Read(dst []float32) (int, error) {
	channels := int(t.format.Channels())
	frames := len(dst) / channels
	rate := t.format.SampleRate()

	for i := 0; i < frames; i++ {
		phase := 2 * math.Pi * t.frequency * float64(t.frame+uint64(i)) / rate
		v := float32(t.amplitude * math.Sin(phase))
		for ch := 0; ch < channels; ch++ {
			dst[i*channels+ch] = v
		}
	}
	t.frame += uint64(frames)
	return frames, nil
}

func (t *Tone) Title() string { return "Test Tone" }

func (t *Tone) Close() error { return nil }
