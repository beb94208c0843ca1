// ABOUTME: Recording destinations for input sessions
// ABOUTME: Chooses a WAVE container or headerless PCM by file extension
package sink

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/pcmbridge/internal/handle"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/Resonate-Protocol/pcmbridge/pkg/wavfile"
)

// Sink accepts interleaved float32 frames in [-1, 1]
type Sink interface {
	WriteFloat32s(samples []float32) error
	// FramesWritten returns the frames accepted so far
	FramesWritten() uint64
	// Path is the absolute destination path
	Path() string
	Close() error
}

// Create opens a sink for path in format. .raw and .pcm paths get
// headerless little-endian PCM; anything else is a WAVE file with the
// client format already negotiated. A format the destination cannot hold
// is rejected before any existing file is replaced.
func Create(path string, format audio.Format) (Sink, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".raw", ".pcm":
		return NewRaw(path, format)
	}

	if err := wavfile.CheckFormat(format); err != nil {
		return nil, err
	}
	enc, err := wavfile.Open(path, format)
	if err != nil {
		return nil, err
	}
	if err := enc.NegotiateClientFormat(format); err != nil {
		return nil, errors.Join(err, enc.Close())
	}
	return enc, nil
}

// Raw writes interleaved little-endian integer PCM with no header. 8-bit
// samples are offset-binary, matching WAVE.
type Raw struct {
	path   string
	format audio.Format
	file   *handle.Handle[*os.File]
	w      *bufio.Writer
	frames uint64
	closed bool

	ints  []int
	bytes []byte
}

// NewRaw creates path, replacing any existing file
func NewRaw(path string, format audio.Format) (*Raw, error) {
	if format.IsZero() {
		return nil, audio.Errorf(audio.KindInvalidFormat, "open", "no sample format")
	}
	if path == "" {
		return nil, audio.Errorf(audio.KindPathResolution, "resolve", "empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, audio.Wrap(audio.KindPathResolution, "resolve", err)
	}
	f, err := os.Create(abs)
	if err != nil {
		return nil, audio.Wrap(audio.KindPathResolution, "create", err)
	}
	return &Raw{
		path:   abs,
		format: format,
		file:   handle.New("raw pcm file", f, func(f *os.File) error { return f.Close() }),
		w:      bufio.NewWriter(f),
	}, nil
}

func (r *Raw) Path() string { return r.path }

func (r *Raw) Format() audio.Format { return r.format }

func (r *Raw) FramesWritten() uint64 { return r.frames }

// WriteFloat32s converts samples to the format's depth and appends them.
// len(samples) must be a whole number of frames.
func (r *Raw) WriteFloat32s(samples []float32) error {
	const op = "write"
	if r.closed {
		return audio.Errorf(audio.KindInvalidState, op, "sink closed")
	}
	ch := int(r.format.Channels())
	if len(samples)%ch != 0 {
		return audio.Errorf(audio.KindWrite, op, "%d samples is not a whole number of %d-channel frames", len(samples), ch)
	}
	if len(samples) == 0 {
		return nil
	}

	bits := r.format.BitsPerSample()
	r.ints = r.ints[:0]
	for _, s := range samples {
		r.ints = append(r.ints, audio.FloatToInt(float64(s), bits))
	}
	var err error
	if r.bytes, err = audio.AppendPCM(r.bytes[:0], r.ints, bits); err != nil {
		return audio.Wrap(audio.KindFormatNegotiation, op, err)
	}
	if _, err := r.w.Write(r.bytes); err != nil {
		return audio.Wrap(audio.KindWrite, op, err)
	}
	r.frames += uint64(len(samples) / ch)
	return nil
}

// Close flushes buffered samples and closes the file. Closing twice is a no-op.
func (r *Raw) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if err := r.w.Flush(); err != nil {
		errs = append(errs, audio.Wrap(audio.KindWrite, "flush", err))
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, audio.Wrap(audio.KindWrite, "close", err))
	}
	return errors.Join(errs...)
}
