// ABOUTME: Lock-free single-producer single-consumer ring buffer of PCM frames
// ABOUTME: Hand-off point between the real-time device callback and application goroutines
package ringbuf

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// DefaultPollInterval is how long blocking calls sleep between attempts
const DefaultPollInterval = time.Millisecond

// cacheLinePad keeps the producer and consumer cursors on separate cache lines
type cacheLinePad [64]byte

// Ring is a fixed-capacity queue of interleaved float32 frames.
//
// Exactly one goroutine may call the producer methods (TryEnqueue,
// BlockingEnqueue) and exactly one the consumer methods (TryDequeue,
// BlockingRead) at any time. The Try* methods never block or allocate and
// are safe to call from a real-time audio callback.
type Ring struct {
	buf      []float32
	capacity uint64 // frames
	channels int
	poll     time.Duration

	_     cacheLinePad
	write atomic.Uint64 // total frames ever written, owned by the producer
	_     cacheLinePad
	read  atomic.Uint64 // total frames ever read, owned by the consumer
	_     cacheLinePad

	overruns  atomic.Uint64
	underruns atomic.Uint64
}

// New allocates a ring holding capacity frames of channels samples each
func New(capacity, channels int) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid capacity: %d, must be greater than 0", capacity)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d, must be greater than 0", channels)
	}
	return &Ring{
		buf:      make([]float32, capacity*channels),
		capacity: uint64(capacity),
		channels: channels,
		poll:     DefaultPollInterval,
	}, nil
}

// SetPollInterval changes the sleep between attempts of the blocking calls.
// Call before either side starts using the ring.
func (r *Ring) SetPollInterval(d time.Duration) {
	if d > 0 {
		r.poll = d
	}
}

// Capacity returns the ring size in frames
func (r *Ring) Capacity() int {
	return int(r.capacity)
}

// Channels returns the number of samples per frame
func (r *Ring) Channels() int {
	return r.channels
}

// Available returns the number of frames ready to be read
func (r *Ring) Available() int {
	// The two cursors are loaded separately and either side may move in
	// between, so the raw difference is clamped to [0, capacity].
	w := r.write.Load()
	rd := r.read.Load()
	if rd >= w {
		return 0
	}
	return int(min(w-rd, r.capacity))
}

// Free returns the number of frames that can be written without dropping
func (r *Ring) Free() int {
	return int(r.capacity) - r.Available()
}

// TryEnqueue copies as many whole frames from frames as fit and returns the
// count written. Frames that do not fit are dropped and counted as overrun.
// Samples past the last whole frame are ignored.
func (r *Ring) TryEnqueue(frames []float32) int {
	n := r.enqueue(frames)
	if dropped := len(frames)/r.channels - n; dropped > 0 {
		r.overruns.Add(uint64(dropped))
	}
	return n
}

func (r *Ring) enqueue(frames []float32) int {
	want := uint64(len(frames) / r.channels)
	if want == 0 {
		return 0
	}

	w := r.write.Load()
	rd := r.read.Load()
	n := min(want, r.capacity-(w-rd))
	if n == 0 {
		return 0
	}

	start := w % r.capacity
	first := min(n, r.capacity-start)
	ch := uint64(r.channels)
	copy(r.buf[start*ch:], frames[:first*ch])
	if first < n {
		copy(r.buf, frames[first*ch:n*ch])
	}

	// Publish after the samples are in place
	r.write.Store(w + n)
	return int(n)
}

// TryDequeue copies up to len(dst)/channels available frames into dst and
// returns the count read. dst beyond the returned frames is left untouched.
func (r *Ring) TryDequeue(dst []float32) int {
	want := uint64(len(dst) / r.channels)
	if want == 0 {
		return 0
	}

	rd := r.read.Load()
	w := r.write.Load()
	n := min(want, w-rd)
	if n == 0 {
		return 0
	}

	start := rd % r.capacity
	first := min(n, r.capacity-start)
	ch := uint64(r.channels)
	copy(dst[:first*ch], r.buf[start*ch:])
	if first < n {
		copy(dst[first*ch:n*ch], r.buf)
	}

	// Release the slots only after the samples were copied out
	r.read.Store(rd + n)
	return int(n)
}

// ReadOrSilence fills dst completely: available frames first, then zeros
// for the shortfall, which is counted as underrun. It returns the frames
// actually read from the ring.
func (r *Ring) ReadOrSilence(dst []float32) int {
	want := len(dst) / r.channels
	n := r.TryDequeue(dst)
	if n < want {
		clear(dst[n*r.channels:])
		r.underruns.Add(uint64(want - n))
	}
	return n
}

// Overruns returns the total frames dropped by TryEnqueue on a full ring
func (r *Ring) Overruns() uint64 {
	return r.overruns.Load()
}

// Underruns returns the total frames ReadOrSilence replaced with silence
func (r *Ring) Underruns() uint64 {
	return r.underruns.Load()
}

// BlockingEnqueue writes every whole frame of frames, waiting for space as
// needed. It returns early with the frames written so far when ctx is done.
// Never call it from a real-time callback.
func (r *Ring) BlockingEnqueue(ctx context.Context, frames []float32) (int, error) {
	total := len(frames) / r.channels
	done := 0
	for done < total {
		n := r.enqueue(frames[done*r.channels : total*r.channels])
		done += n
		if done == total {
			break
		}
		if n == 0 {
			if err := r.wait(ctx); err != nil {
				return done, err
			}
		}
	}
	return done, nil
}

// BlockingRead fills dst with len(dst)/channels frames, waiting for data as
// needed. It returns early with the frames read so far when ctx is done.
// Never call it from a real-time callback.
func (r *Ring) BlockingRead(ctx context.Context, dst []float32) (int, error) {
	total := len(dst) / r.channels
	done := 0
	for done < total {
		n := r.TryDequeue(dst[done*r.channels : total*r.channels])
		done += n
		if done == total {
			break
		}
		if n == 0 {
			if err := r.wait(ctx); err != nil {
				return done, err
			}
		}
	}
	return done, nil
}

func (r *Ring) wait(ctx context.Context) error {
	timer := time.NewTimer(r.poll)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Reset discards all buffered frames and clears the counters. Neither side
// may be active.
func (r *Ring) Reset() {
	r.read.Store(r.write.Load())
	r.overruns.Store(0)
	r.underruns.Store(0)
}
