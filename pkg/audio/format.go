// ABOUTME: Format descriptor for PCM streams
// ABOUTME: Validated once at construction and immutable afterwards
package audio

import (
	"fmt"
	"math"
)

// Format describes an interleaved PCM stream.
// The zero value is invalid; construct with NewFormat.
type Format struct {
	sampleRate      float64
	channels        uint32
	bitsPerSample   uint32
	bytesPerFrame   uint32
	framesPerPacket uint32
}

// NewFormat validates the parameters and derives the frame layout
func NewFormat(sampleRate float64, channels, bitsPerSample uint32) (Format, error) {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) || sampleRate <= 0 {
		return Format{}, Errorf(KindInvalidFormat, "NewFormat", "sample rate must be positive, got %v", sampleRate)
	}
	if channels == 0 {
		return Format{}, Errorf(KindInvalidFormat, "NewFormat", "channel count must be at least 1")
	}
	switch bitsPerSample {
	case 8, 16, 24, 32:
	default:
		return Format{}, Errorf(KindInvalidFormat, "NewFormat",
			"unsupported bit depth: %d (supported: 8, 16, 24, 32)", bitsPerSample)
	}

	return Format{
		sampleRate:      sampleRate,
		channels:        channels,
		bitsPerSample:   bitsPerSample,
		bytesPerFrame:   channels * bitsPerSample / 8,
		framesPerPacket: 1,
	}, nil
}

// MustFormat is NewFormat for constant inputs; it panics on invalid parameters
func MustFormat(sampleRate float64, channels, bitsPerSample uint32) Format {
	f, err := NewFormat(sampleRate, channels, bitsPerSample)
	if err != nil {
		panic(err)
	}
	return f
}

func (f Format) SampleRate() float64     { return f.sampleRate }
func (f Format) Channels() uint32        { return f.channels }
func (f Format) BitsPerSample() uint32   { return f.bitsPerSample }
func (f Format) BytesPerFrame() uint32   { return f.bytesPerFrame }
func (f Format) FramesPerPacket() uint32 { return f.framesPerPacket }

// IsZero reports whether f was never constructed
func (f Format) IsZero() bool {
	return f.channels == 0
}

// MaxSampleValue returns the largest positive integer sample for the bit depth
func (f Format) MaxSampleValue() int {
	return MaxSampleValue(f.bitsPerSample)
}

// WithChannels returns a copy of f with a different channel count
func (f Format) WithChannels(channels uint32) (Format, error) {
	return NewFormat(f.sampleRate, channels, f.bitsPerSample)
}

func (f Format) String() string {
	return fmt.Sprintf("%gHz %s %d-bit", f.sampleRate, channelName(f.channels), f.bitsPerSample)
}

func channelName(channels uint32) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}
