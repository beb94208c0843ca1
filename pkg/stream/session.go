// ABOUTME: Streaming session state machine and real-time callbacks
// ABOUTME: Bridges blocking application reads and writes to a device through a ring buffer
package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/pcmbridge/internal/handle"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/device"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/ringbuf"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrStopped is returned by Write and Read interrupted by Stop
	ErrStopped = errors.New("session stopped")
	// ErrClosed is returned by operations on a closed session
	ErrClosed = errors.New("session closed")
)

// State of a session
type State int32

const (
	Stopped State = iota
	Running
	Closed
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time snapshot of session counters.
// FramesIn counts frames entering the ring, FramesOut frames leaving it.
type Stats struct {
	FramesIn  uint64
	FramesOut uint64
	Overruns  uint64
	Underruns uint64
	Buffered  int
	Capacity  int
	State     State
}

// Session streams PCM frames to or from one device
type Session struct {
	id      uuid.UUID
	dir     device.Direction
	format  audio.Format
	quantum int
	ref     device.Ref
	log     zerolog.Logger

	ring *ringbuf.Ring
	dev  *handle.Handle[device.Device]

	mu    sync.Mutex // serializes lifecycle transitions
	state atomic.Int32

	// epoch is canceled on Stop and Close so blocked calls can return
	epoch       context.Context
	cancelEpoch context.CancelCauseFunc

	framesIn  atomic.Uint64
	framesOut atomic.Uint64
}

// OpenOutput opens a playback session whose device callback requests
// quantum frames per period
func OpenOutput(backend device.Backend, quantum int, opts ...Option) (*Session, error) {
	return open(backend, device.Output, quantum, opts)
}

// OpenInput opens a capture session whose device callback delivers
// quantum frames per period
func OpenInput(backend device.Backend, quantum int, opts ...Option) (*Session, error) {
	return open(backend, device.Input, quantum, opts)
}

func open(backend device.Backend, dir device.Direction, quantum int, opts []Option) (*Session, error) {
	op := "stream.OpenOutput"
	if dir == device.Input {
		op = "stream.OpenInput"
	}

	if backend == nil {
		return nil, audio.Errorf(audio.KindDeviceUnavailable, op, "no audio backend")
	}
	if quantum <= 0 {
		return nil, audio.Errorf(audio.KindInvalidFormat, op, "invalid quantum: %d, must be greater than 0", quantum)
	}

	o := defaultOptions(dir)
	for _, opt := range opts {
		opt(&o)
	}
	if o.format.IsZero() {
		return nil, audio.Errorf(audio.KindInvalidFormat, op, "no stream format")
	}
	if o.bufferQuanta <= 0 {
		return nil, audio.Errorf(audio.KindInvalidFormat, op, "invalid buffer size: %d quanta", o.bufferQuanta)
	}

	ring, err := ringbuf.New(quantum*o.bufferQuanta, int(o.format.Channels()))
	if err != nil {
		return nil, audio.Wrap(audio.KindInvalidFormat, op, err)
	}

	dev, err := backend.Open(device.Config{
		Ref:       o.ref,
		Direction: dir,
		Format:    o.format,
		Quantum:   quantum,
	})
	if err != nil {
		return nil, audio.Wrap(audio.KindDeviceUnavailable, op, err)
	}

	s := &Session{
		id:      uuid.New(),
		dir:     dir,
		format:  o.format,
		quantum: quantum,
		ref:     o.ref,
		ring:    ring,
		dev: handle.New(backend.Name()+" device", dev, func(d device.Device) error {
			return d.Close()
		}),
	}
	s.log = o.log.With().Str("session", s.id.String()).Str("direction", dir.String()).Logger()
	s.epoch, s.cancelEpoch = context.WithCancelCause(context.Background())

	s.log.Info().
		Str("backend", backend.Name()).
		Str("device", o.ref.String()).
		Str("format", o.format.String()).
		Int("quantum", quantum).
		Int("capacity", ring.Capacity()).
		Msg("Session opened")

	return s, nil
}

// ID returns the session identifier
func (s *Session) ID() uuid.UUID { return s.id }

// Format returns the stream format
func (s *Session) Format() audio.Format { return s.format }

// Direction reports whether this is an output or input session
func (s *Session) Direction() device.Direction { return s.dir }

// Quantum returns the frames per device period
func (s *Session) Quantum() int { return s.quantum }

// State returns the current lifecycle state
func (s *Session) State() State { return State(s.state.Load()) }

// Start registers the real-time callback and begins hardware invocation.
// Starting a running session does nothing.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State() {
	case Running:
		return nil
	case Closed:
		return audio.Wrap(audio.KindInvalidState, "stream.Start", ErrClosed)
	}

	dev, err := s.dev.MustGet()
	if err != nil {
		return audio.Wrap(audio.KindInvalidState, "stream.Start", err)
	}

	cb := s.render
	if s.dir == device.Input {
		cb = s.capture
	}
	if err := dev.Activate(cb); err != nil {
		return audio.Wrap(audio.KindDeviceUnavailable, "stream.Start", err)
	}

	s.state.Store(int32(Running))
	s.log.Info().Int("buffered", s.ring.Available()).Msg("Session started")
	return nil
}

// Stop halts hardware invocation. Blocked Write and Read calls return
// ErrStopped with the frames transferred so far. Stopping a stopped
// session does nothing.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State() {
	case Stopped:
		return nil
	case Closed:
		return audio.Wrap(audio.KindInvalidState, "stream.Stop", ErrClosed)
	}
	return s.stopLocked(ErrStopped)
}

func (s *Session) stopLocked(cause error) error {
	dev, err := s.dev.MustGet()
	if err != nil {
		return audio.Wrap(audio.KindInvalidState, "stream.Stop", err)
	}
	if err := dev.Deactivate(); err != nil {
		return audio.Wrap(audio.KindDeviceUnavailable, "stream.Stop", err)
	}

	s.state.Store(int32(Stopped))
	s.interrupt(cause)

	stats := s.Stats()
	s.log.Info().
		Uint64("frames_in", stats.FramesIn).
		Uint64("frames_out", stats.FramesOut).
		Uint64("overruns", stats.Overruns).
		Uint64("underruns", stats.Underruns).
		Msg("Session stopped")
	return nil
}

// interrupt wakes blocked callers and opens a fresh epoch for later ones
func (s *Session) interrupt(cause error) {
	s.cancelEpoch(cause)
	if cause == ErrClosed {
		return
	}
	s.epoch, s.cancelEpoch = context.WithCancelCause(context.Background())
}

// Close stops the session if running and releases the device. Closing a
// closed session does nothing.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == Closed {
		return nil
	}

	var errs []error
	if s.State() == Running {
		if err := s.stopLocked(ErrClosed); err != nil {
			errs = append(errs, err)
		}
	}
	s.state.Store(int32(Closed))
	s.interrupt(ErrClosed)

	if err := s.dev.Close(); err != nil {
		errs = append(errs, audio.Wrap(audio.KindDeviceUnavailable, "stream.Close", err))
	}
	s.log.Info().Msg("Session closed")
	return errors.Join(errs...)
}

// Write enqueues interleaved frames for playback, blocking while the ring
// is full. It may be called before Start to prefill. It returns early with
// the frames written so far when ctx is done or the session stops.
func (s *Session) Write(ctx context.Context, frames []float32) (int, error) {
	const op = "stream.Write"
	if s.dir != device.Output {
		return 0, audio.Errorf(audio.KindInvalidState, op, "write on %s session", s.dir)
	}
	if len(frames)%int(s.format.Channels()) != 0 {
		return 0, audio.Errorf(audio.KindInvalidFormat, op,
			"%d samples is not a whole number of %d-channel frames", len(frames), s.format.Channels())
	}

	wctx, done, err := s.waitContext(ctx, op)
	if err != nil {
		return 0, err
	}
	defer done()

	n, err := s.ring.BlockingEnqueue(wctx, frames)
	s.framesIn.Add(uint64(n))
	return n, s.blockingErr(ctx, wctx, op, err)
}

// Read fills dst with captured interleaved frames, blocking until
// len(dst)/channels frames arrived. It returns early with the frames read
// so far when ctx is done or the session stops. On a stopped session it
// drains what is buffered without blocking and returns ErrStopped if that
// falls short of dst.
func (s *Session) Read(ctx context.Context, dst []float32) (int, error) {
	const op = "stream.Read"
	if s.dir != device.Input {
		return 0, audio.Errorf(audio.KindInvalidState, op, "read on %s session", s.dir)
	}
	ch := int(s.format.Channels())
	if len(dst)%ch != 0 {
		return 0, audio.Errorf(audio.KindInvalidFormat, op,
			"%d samples is not a whole number of %d-channel frames", len(dst), s.format.Channels())
	}

	if s.State() == Stopped {
		// No callback is producing, so waiting could never finish
		n := s.ring.TryDequeue(dst)
		s.framesOut.Add(uint64(n))
		if n == len(dst)/ch {
			return n, nil
		}
		return n, audio.Wrap(audio.KindInvalidState, op, ErrStopped)
	}

	wctx, done, err := s.waitContext(ctx, op)
	if err != nil {
		return 0, err
	}
	defer done()

	n, err := s.ring.BlockingRead(wctx, dst)
	s.framesOut.Add(uint64(n))
	return n, s.blockingErr(ctx, wctx, op, err)
}

// waitContext derives a context that is canceled when ctx is done or the
// current epoch ends
func (s *Session) waitContext(ctx context.Context, op string) (context.Context, func(), error) {
	s.mu.Lock()
	state := s.State()
	epoch := s.epoch
	s.mu.Unlock()

	if state == Closed {
		return nil, nil, audio.Wrap(audio.KindInvalidState, op, ErrClosed)
	}

	wctx, cancel := context.WithCancelCause(ctx)
	stop := context.AfterFunc(epoch, func() {
		cancel(context.Cause(epoch))
	})
	return wctx, func() {
		stop()
		cancel(nil)
	}, nil
}

func (s *Session) blockingErr(ctx, wctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	if cause := context.Cause(wctx); errors.Is(cause, ErrStopped) || errors.Is(cause, ErrClosed) {
		return audio.Wrap(audio.KindInvalidState, op, cause)
	}
	return err
}

// render services one output period on the real-time thread
func (s *Session) render(out []float32) {
	n := s.ring.ReadOrSilence(out)
	s.framesOut.Add(uint64(n))
}

// capture services one input period on the real-time thread
func (s *Session) capture(in []float32) {
	n := s.ring.TryEnqueue(in)
	s.framesIn.Add(uint64(n))
}

// Stats returns a snapshot of the session counters
func (s *Session) Stats() Stats {
	return Stats{
		FramesIn:  s.framesIn.Load(),
		FramesOut: s.framesOut.Load(),
		Overruns:  s.ring.Overruns(),
		Underruns: s.ring.Underruns(),
		Buffered:  s.ring.Available(),
		Capacity:  s.ring.Capacity(),
		State:     s.State(),
	}
}
