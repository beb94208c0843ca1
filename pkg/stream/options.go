// ABOUTME: Functional options for opening streaming sessions
// ABOUTME: Format, device selection, ring sizing and logging
package stream

import (
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/device"
	"github.com/rs/zerolog"
)

// Default ring sizes in quanta. Input gets more headroom because the
// application drains it less predictably than it fills an output ring.
const (
	DefaultOutputQuanta = 4
	DefaultInputQuanta  = 32
)

type options struct {
	format       audio.Format
	ref          device.Ref
	bufferQuanta int
	log          zerolog.Logger
}

// Option configures a session at open time
type Option func(*options)

// WithFormat sets the stream format. The default is 44100 Hz 16-bit,
// stereo for output and mono for input.
func WithFormat(f audio.Format) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithDevice selects a device instead of the platform default
func WithDevice(ref device.Ref) Option {
	return func(o *options) {
		o.ref = ref
	}
}

// WithBufferQuanta sizes the ring at n device quanta
func WithBufferQuanta(n int) Option {
	return func(o *options) {
		o.bufferQuanta = n
	}
}

// WithLogger sets the logger for lifecycle events
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func defaultOptions(dir device.Direction) options {
	o := options{
		bufferQuanta: DefaultOutputQuanta,
		log:          zerolog.Nop(),
	}
	if dir == device.Input {
		o.format = audio.MustFormat(44100, 1, 16)
		o.bufferQuanta = DefaultInputQuanta
	} else {
		o.format = audio.MustFormat(44100, 2, 16)
	}
	return o
}
