// ABOUTME: Shared streaming loops for CLI commands
// ABOUTME: Feeds output sessions from sources, drains input sessions into encoders
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/internal/metrics"
	"github.com/Resonate-Protocol/pcmbridge/internal/sink"
	"github.com/Resonate-Protocol/pcmbridge/internal/source"
	"github.com/Resonate-Protocol/pcmbridge/internal/ui"
	"github.com/Resonate-Protocol/pcmbridge/pkg/stream"
	"github.com/spf13/cobra"
)

// drainPoll is how often playback checks that the ring has emptied
const drainPoll = 10 * time.Millisecond

// play streams src to the configured output device until the source ends,
// limit frames were sent (0 for no limit), or the user interrupts
func (a *app) play(cmd *cobra.Command, src source.Source, limit uint64) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	backend, err := a.backend()
	if err != nil {
		return err
	}
	opts := append(a.sessionOptions(), stream.WithFormat(src.Format()))
	s, err := stream.OpenOutput(backend, a.cfg.Audio.Quantum, opts...)
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			a.log.Error().Err(err).Msg("Failed to close session")
		}
	}()

	if reg := a.startMetrics(ctx); reg != nil {
		reg.MustRegister(metrics.NewSessionCollector(s))
	}

	done := make(chan error, 1)
	go func() { done <- feed(ctx, s, src, limit) }()

	if err := s.Start(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("failed to start output: %w", err)
	}
	err = a.wait(ctx, cancel, cmd, s, src.Title(), done)

	stats := s.Stats()
	a.log.Info().
		Uint64("frames", stats.FramesOut).
		Uint64("underruns", stats.Underruns).
		Msg("Playback finished")
	return err
}

// feed writes src into s one quantum at a time, then waits for the ring to drain
func feed(ctx context.Context, s *stream.Session, src source.Source, limit uint64) error {
	ch := int(s.Format().Channels())
	buf := make([]float32, s.Quantum()*ch)

	var sent uint64
	for limit == 0 || sent < limit {
		want := s.Quantum()
		if limit > 0 {
			want = int(min(uint64(want), limit-sent))
		}
		n, err := src.Read(buf[:want*ch])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read source: %w", err)
		}
		if _, err := s.Write(ctx, buf[:n*ch]); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		sent += uint64(n)
	}

	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()
	for s.Stats().Buffered > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

// capture reads quantum-sized blocks from s into out until limit frames
// were recorded (0 for no limit) or ctx is done
func capture(ctx context.Context, s *stream.Session, out sink.Sink, limit uint64, m *metrics.EncoderMetrics) error {
	ch := int(s.Format().Channels())
	buf := make([]float32, s.Quantum()*ch)

	for limit == 0 || out.FramesWritten() < limit {
		want := s.Quantum()
		if limit > 0 {
			want = int(min(uint64(want), limit-out.FramesWritten()))
		}
		n, readErr := s.Read(ctx, buf[:want*ch])
		if n > 0 {
			err := out.WriteFloat32s(buf[:n*ch])
			if m != nil {
				m.RecordWrite(n, err)
			}
			if err != nil {
				return fmt.Errorf("failed to write recording: %w", err)
			}
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return nil
			}
			return readErr
		}
	}
	return nil
}

// wait blocks until the worker finishes, the user quits the monitor or a
// signal arrives
func (a *app) wait(ctx context.Context, cancel context.CancelFunc, cmd *cobra.Command, s ui.Session, title string, done <-chan error) error {
	if !a.useTUI(cmd) {
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			a.log.Info().Msg("Shutdown signal received")
			return <-done
		}
	}

	mon := ui.NewMonitor(s, title)
	result := make(chan error, 1)
	go func() {
		var err error
		select {
		case err = <-done:
		case <-ctx.Done():
			err = <-done
		}
		result <- err
		mon.Stop()
	}()

	if err := mon.Run(); err != nil {
		cancel()
		<-result
		return fmt.Errorf("monitor failed: %w", err)
	}
	// Quitting the monitor stops the worker
	cancel()
	return <-result
}
