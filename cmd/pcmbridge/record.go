// ABOUTME: Record command
// ABOUTME: Captures the input device into a WAVE or raw PCM file
package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/internal/metrics"
	"github.com/Resonate-Protocol/pcmbridge/internal/sink"
	"github.com/Resonate-Protocol/pcmbridge/pkg/stream"
		"github.com/spf13/cobra"
)

func recordCommand(a *app) *cobra.Command {
	var (
		duration time.Duration
		channels int
	)
	cmd := &cobra.Command{
		Use:   "record <out.wav|out.raw>",
		Short: "Record from the input device into a WAVE or raw PCM file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			format, err := a.cfg.Audio.Format()
			if err != nil {
				return err
			}
			if channels > 0 {
				if format, err = format.WithChannels(uint32(channels)); err != nil {
					return err
				}
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			backend, err := a.backend()
			if err != nil {
				return err
			}
			opts := append(a.sessionOptions(), stream.WithFormat(format))
			s, err := stream.OpenInput(backend, a.cfg.Audio.Quantum, opts...)
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer func() {
				if cerr := s.Close(); cerr != nil {
					a.log.Error().Err(cerr).Msg("Failed to close session")
				}
			}()

			out, err := sink.Create(args[0], format)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := out.Close(); cerr != nil {
					err = errors.Join(err, cerr)
				}
			}()

			var m *metrics.EncoderMetrics
			if reg := a.startMetrics(ctx); reg != nil {
				reg.MustRegister(metrics.NewSessionCollector(s))
				if m, err = metrics.NewEncoderMetrics(reg); err != nil {
					return err
				}
			}

			if err := s.Start(); err != nil {
				return fmt.Errorf("failed to start input: %w", err)
			}

			done := make(chan error, 1)
			go func() { done <- capture(ctx, s, out, framesFor(duration, format.SampleRate()), m) }()
			err = a.wait(ctx, cancel, cmd, s, out.Path(), done)

			stats := s.Stats()
			a.log.Info().
				Str("path", out.Path()).
				Uint64("frames", out.FramesWritten()).
				Uint64("overruns", stats.Overruns).
				Msg("Recording finished")
			return err
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 records until interrupted)")
	cmd.Flags().IntVar(&channels, "channels", 1, "Input channel count")
	return cmd
}
