// ABOUTME: Streaming session package
// ABOUTME: Moves PCM frames between application goroutines and a real-time device callback
// Package stream runs low-latency PCM streams against an audio device.
//
// A Session owns one device and one lock-free ring buffer. For output the
// application writes frames into the ring and the device callback drains
// it, substituting silence on underrun. For input the callback fills the
// ring, dropping frames on overrun, and the application reads them.
//
// Start on a running session and Stop on a stopped session are no-ops.
// Write may prefill the ring before Start and blocks while it is full.
// Read never blocks on a stopped session: it drains what was captured and
// reports ErrStopped when that is not enough.
// Every operation after Close reports an InvalidState error.
//
// Example:
//
//	s, err := stream.OpenOutput(device.NewMalgo(log), 1024)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	if err := s.Start(); err != nil {
//	    return err
//	}
//	_, err = s.Write(ctx, frames)
package stream
