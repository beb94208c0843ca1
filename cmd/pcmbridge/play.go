// ABOUTME: Output commands
// ABOUTME: play streams a decoded file, tone streams a generated sine
package main

import (
	"time"

	"github.com/Resonate-Protocol/pcmbridge/internal/source"
	"github.com/spf13/cobra"
)

func playCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "play <file>",
		Short: "Play a WAV, MP3 or FLAC file at its native format",
		Long: "Play a WAV, MP3 or FLAC file at its native format. Headerless .raw and\n" +
			".pcm files are read as little-endian PCM in the configured audio format.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				src source.Source
				err error
			)
			if source.IsRaw(args[0]) {
				format, ferr := a.cfg.Audio.Format()
				if ferr != nil {
					return ferr
				}
				src, err = source.NewRaw(args[0], format)
			} else {
				src, err = source.OpenFile(args[0], a.log)
			}
			if err != nil {
				return err
			}
			defer src.Close()
			return a.play(cmd, src, 0)
		},
	}
}

func toneCommand(a *app) *cobra.Command {
	var (
		freq      float64
		amplitude float64
		duration  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "tone",
		Short: "Play a sine tone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.cfg.Audio.Format()
			if err != nil {
				return err
			}
			tone := source.NewTone(freq, amplitude, format)
			a.log.Info().Float64("frequency", freq).Dur("duration", duration).Msg("Playing tone")
			return a.play(cmd, tone, framesFor(duration, format.SampleRate()))
		},
	}
	cmd.Flags().Float64Var(&freq, "freq", 440, "Tone frequency in Hz")
	cmd.Flags().Float64Var(&amplitude, "amplitude", 0.5, "Tone amplitude (0-1)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 plays until interrupted)")
	return cmd
}

// framesFor converts a duration to a frame count, 0 for no limit
func framesFor(d time.Duration, sampleRate float64) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d.Seconds() * sampleRate)
}
