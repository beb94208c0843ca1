// ABOUTME: Sample ring buffer package
// ABOUTME: Real-time safe frame queue shared by a device callback and one application goroutine
// Package ringbuf implements the single-producer/single-consumer frame queue
// used between a hardware audio callback and application code.
//
// Cursors are published with sync/atomic, so a frame is never observed by
// the consumer before its samples are written, and a slot is never reused by
// the producer before the consumer copied it out.
//
// Example:
//
//	r, _ := ringbuf.New(4096, 2)
//	// real-time side
//	n := r.TryDequeue(out)
//	// application side
//	_, err := r.BlockingEnqueue(ctx, frames)
package ringbuf
