// ABOUTME: WAVE encoder session
// ABOUTME: Open, negotiate, write and close protocol over go-audio's wav encoder
package wavfile

import (
	"errors"
	"math"
	"os"
	"path/filepath"

	"github.com/Resonate-Protocol/pcmbridge/internal/handle"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavePCM is the WAVE format tag for integer PCM
const wavePCM = 1

var errPoisoned = errors.New("encoder unusable after failed write")

// Encoder writes one WAVE file. It is not safe for concurrent use.
type Encoder struct {
	path   string
	format audio.Format

	file *handle.Handle[*os.File]
	wav  *handle.Handle[*wav.Encoder]

	client     audio.StreamDescription
	negotiated bool
	poisoned   bool
	closed     bool
	frames     uint64
	wrote      bool

	buf     goaudio.IntBuffer
	scratch []int
}

// Open creates path, replacing any existing file, as a WAVE container for
// format. The parent directory must already exist.
func Open(path string, format audio.Format) (*Encoder, error) {
	if format.IsZero() {
		return nil, audio.Errorf(audio.KindInvalidFormat, "open", "no container format")
	}
	if format.SampleRate() != math.Trunc(format.SampleRate()) {
		return nil, audio.Errorf(audio.KindFormatNegotiation, "open",
			"WAVE requires an integral sample rate, got %v", format.SampleRate())
	}

	abs, err := resolve(path)
	if err != nil {
		return nil, err
	}

	// Best effort: a stale file must not survive, but its absence is fine
	_ = os.Remove(abs)

	f, err := os.Create(abs)
	if err != nil {
		return nil, audio.Wrap(audio.KindPathResolution, "create", err)
	}

	e := &Encoder{
		path:   abs,
		format: format,
		file: handle.New("file", f, func(f *os.File) error {
			return f.Close()
		}),
	}
	enc := wav.NewEncoder(f, int(format.SampleRate()), int(format.BitsPerSample()), int(format.Channels()), wavePCM)
	e.wav = handle.New("wav encoder", enc, func(enc *wav.Encoder) error {
		return enc.Close()
	})
	e.buf = goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: int(format.Channels()),
			SampleRate:  int(format.SampleRate()),
		},
		SourceBitDepth: int(format.BitsPerSample()),
	}
	return e, nil
}

func resolve(path string) (string, error) {
	if path == "" {
		return "", audio.Errorf(audio.KindPathResolution, "resolve", "empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", audio.Wrap(audio.KindPathResolution, "resolve", err)
	}

	parent := filepath.Dir(abs)
	info, err := os.Stat(parent)
	if err != nil {
		return "", audio.Wrap(audio.KindPathResolution, "resolve", err)
	}
	if !info.IsDir() {
		return "", audio.Errorf(audio.KindPathResolution, "resolve", "parent %s is not a directory", parent)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return "", audio.Errorf(audio.KindPathResolution, "resolve", "%s is a directory", abs)
	}
	return abs, nil
}

// Path returns the absolute destination path
func (e *Encoder) Path() string { return e.path }

// Format returns the container format
func (e *Encoder) Format() audio.Format { return e.format }

// FramesWritten returns the frames accepted so far
func (e *Encoder) FramesWritten() uint64 { return e.frames }

// ClientDescription returns the negotiated client stream description
func (e *Encoder) ClientDescription() (audio.StreamDescription, bool) {
	return e.client, e.negotiated
}

// NegotiateClientFormat declares the layout of samples the caller will
// write. The container offers no conversion, so client must match the
// container format.
func (e *Encoder) NegotiateClientFormat(client audio.Format) error {
	const op = "negotiate"
	if err := e.usable(op); err != nil {
		return err
	}
	if client != e.format {
		return audio.Errorf(audio.KindFormatNegotiation, op,
			"client format %s differs from container format %s", client, e.format)
	}
	if err := CheckFormat(client); err != nil {
		return err
	}

	e.client = client.Description()
	e.negotiated = true
	return nil
}

// CheckFormat reports whether format can be negotiated for a WAVE
// container. Callers that must not replace an existing file use it before
// Open.
func CheckFormat(format audio.Format) error {
	const op = "negotiate"
	if format.IsZero() {
		return audio.Errorf(audio.KindInvalidFormat, op, "no container format")
	}
	if format.SampleRate() != math.Trunc(format.SampleRate()) {
		return audio.Errorf(audio.KindFormatNegotiation, op,
			"WAVE requires an integral sample rate, got %v", format.SampleRate())
	}
	switch format.BitsPerSample() {
	case 16, 24, 32:
	default:
		return audio.Errorf(audio.KindFormatNegotiation, op,
			"WAVE PCM encoding does not support %d-bit samples", format.BitsPerSample())
	}
	return nil
}

// WriteFloats converts samples in [-1, 1] to the negotiated integer depth and
// writes them. len(samples) must be a whole number of frames.
func (e *Encoder) WriteFloats(samples []float64) error {
	if err := e.checkBatch("write", len(samples)); err != nil || len(samples) == 0 {
		return err
	}
	bits := e.format.BitsPerSample()
	ints := e.grow(len(samples))
	for i, s := range samples {
		ints[i] = audio.FloatToInt(s, bits)
	}
	return e.write(ints)
}

// WriteFloat32s is WriteFloats for float32 samples
func (e *Encoder) WriteFloat32s(samples []float32) error {
	if err := e.checkBatch("write", len(samples)); err != nil || len(samples) == 0 {
		return err
	}
	bits := e.format.BitsPerSample()
	ints := e.grow(len(samples))
	for i, s := range samples {
		ints[i] = audio.FloatToInt(float64(s), bits)
	}
	return e.write(ints)
}

// WriteInts writes integer samples already scaled to the negotiated depth
func (e *Encoder) WriteInts(samples []int) error {
	if err := e.checkBatch("write", len(samples)); err != nil || len(samples) == 0 {
		return err
	}
	return e.write(samples)
}

func (e *Encoder) grow(n int) []int {
	if cap(e.scratch) < n {
		e.scratch = make([]int, n)
	}
	return e.scratch[:n]
}

func (e *Encoder) usable(op string) error {
	switch {
	case e.closed:
		return audio.Errorf(audio.KindInvalidState, op, "encoder closed")
	case e.poisoned:
		return audio.Wrap(audio.KindInvalidState, op, errPoisoned)
	}
	return nil
}

func (e *Encoder) checkBatch(op string, n int) error {
	if err := e.usable(op); err != nil {
		return err
	}
	if !e.negotiated {
		return audio.Errorf(audio.KindInvalidState, op, "client format not negotiated")
	}
	if ch := int(e.format.Channels()); n%ch != 0 {
		return audio.Errorf(audio.KindWrite, op, "%d samples is not a whole number of %d-channel frames", n, ch)
	}
	return nil
}

func (e *Encoder) write(samples []int) error {
	enc, err := e.wav.MustGet()
	if err != nil {
		return audio.Wrap(audio.KindInvalidState, "write", err)
	}
	e.buf.Data = samples
	err = enc.Write(&e.buf)
	e.buf.Data = nil
	if err != nil {
		e.poisoned = true
		return audio.Wrap(audio.KindWrite, "write", err)
	}
	e.wrote = true
	e.frames += uint64(len(samples) / int(e.format.Channels()))
	return nil
}

// Close finalizes the container header and closes the file. A file with no
// batches is still a valid zero-length container. Closing twice is a no-op.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	if enc, err := e.wav.MustGet(); err == nil && !e.wrote && !e.poisoned {
		// go-audio emits the header on first write; finalizing without it
		// would patch sizes into an empty file
		e.buf.Data = nil
		if err := enc.Write(&e.buf); err != nil {
			errs = append(errs, audio.Wrap(audio.KindWrite, "close", err))
		}
	}
	if err := e.wav.Close(); err != nil {
		errs = append(errs, audio.Wrap(audio.KindWrite, "finalize", err))
	}
	if err := e.file.Close(); err != nil {
		errs = append(errs, audio.Wrap(audio.KindWrite, "close", err))
	}
	return errors.Join(errs...)
}
