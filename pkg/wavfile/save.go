// ABOUTME: One-shot WAVE save
// ABOUTME: Runs the full encoder protocol for an in-memory sample buffer
package wavfile

import (
	"errors"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
)

// Options describes the container Save creates. Zero fields take defaults.
type Options struct {
	SampleRate    float64 // default 44100
	Channels      uint32  // default 2
	BitsPerSample uint32  // default 16
}

func (o Options) withDefaults() Options {
	if o.SampleRate == 0 {
		o.SampleRate = 44100
	}
	if o.Channels == 0 {
		o.Channels = 2
	}
	if o.BitsPerSample == 0 {
		o.BitsPerSample = 16
	}
	return o
}

// Save writes samples to a new WAVE file at path. samples may be []float64
// or []float32 in [-1, 1], or []int or []int16 at the target depth. An
// empty buffer produces a valid container with no sample data.
func Save(path string, samples any, opts Options) (err error) {
	opts = opts.withDefaults()
	format, err := audio.NewFormat(opts.SampleRate, opts.Channels, opts.BitsPerSample)
	if err != nil {
		return err
	}

	// Open replaces path, so reject what negotiation would refuse first
	if err := CheckFormat(format); err != nil {
		return err
	}

	write, n, err := batchWriter(samples)
	if err != nil {
		return err
	}

	enc, err := Open(path, format)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := enc.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err := enc.NegotiateClientFormat(format); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return write(enc)
}

func batchWriter(samples any) (func(*Encoder) error, int, error) {
	switch s := samples.(type) {
	case nil:
		return nil, 0, nil
	case []float64:
		return func(e *Encoder) error { return e.WriteFloats(s) }, len(s), nil
	case []float32:
		return func(e *Encoder) error { return e.WriteFloat32s(s) }, len(s), nil
	case []int:
		return func(e *Encoder) error { return e.WriteInts(s) }, len(s), nil
	case []int16:
		ints := make([]int, len(s))
		for i, v := range s {
			ints[i] = int(v)
		}
		return func(e *Encoder) error { return e.WriteInts(ints) }, len(s), nil
	default:
		return nil, 0, audio.Errorf(audio.KindWrite, "save", "unsupported sample type %T", samples)
	}
}
