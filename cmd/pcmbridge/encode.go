// ABOUTME: Offline encode command
// ABOUTME: Renders a sine tone straight into a WAVE file without a device
package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/internal/sink"
	"github.com/Resonate-Protocol/pcmbridge/internal/source"
	"github.com/spf13/cobra"
)

// encodeBlock is the number of frames rendered per encoder write
const encodeBlock = 1024

func encodeToneCommand(a *app) *cobra.Command {
	var (
		freq      float64
		amplitude float64
		duration  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "encode-tone <out.wav>",
		Short: "Write a sine tone to a WAVE file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			format, err := a.cfg.Audio.Format()
			if err != nil {
				return err
			}
			total := framesFor(duration, format.SampleRate())

			enc, err := sink.Create(args[0], format)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := enc.Close(); cerr != nil {
					err = errors.Join(err, cerr)
				}
			}()

			tone := source.NewTone(freq, amplitude, format)
			ch := int(format.Channels())
			buf := make([]float32, encodeBlock*ch)
			for enc.FramesWritten() < total {
				n := int(min(uint64(encodeBlock), total-enc.FramesWritten()))
				if _, err := tone.Read(buf[:n*ch]); err != nil {
					return err
				}
				if err := enc.WriteFloat32s(buf[:n*ch]); err != nil {
					return err
				}
			}

			a.log.Info().Str("path", enc.Path()).Uint64("frames", enc.FramesWritten()).Msg("Tone encoded")
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames (%s) to %s\n", enc.FramesWritten(), format, enc.Path())
			return nil
		},
	}
	cmd.Flags().Float64Var(&freq, "freq", 440, "Tone frequency in Hz")
	cmd.Flags().Float64Var(&amplitude, "amplitude", 0.5, "Tone amplitude (0-1)")
	cmd.Flags().DurationVar(&duration, "duration", time.Second, "Tone length")
	return cmd
}
