// ABOUTME: Root cobra command and shared CLI state
// ABOUTME: Loads configuration, applies flag overrides and builds the logger and backend
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/pcmbridge/internal/config"
	"github.com/Resonate-Protocol/pcmbridge/internal/logging"
	"github.com/Resonate-Protocol/pcmbridge/internal/metrics"
	"github.com/Resonate-Protocol/pcmbridge/internal/version"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/device"
	"github.com/Resonate-Protocol/pcmbridge/pkg/stream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// defaultTUILog receives logs while the monitor owns the terminal
const defaultTUILog = "pcmbridge.log"

type app struct {
	configPath  string
	backendName string
	deviceName  string
	deviceID    string
	logLevel    string
	metricsAddr string
	noTUI       bool

	cfg       *config.Config
	log       zerolog.Logger
	logCloser io.Closer
	registry  *prometheus.Registry
}

func rootCommand() *cobra.Command {
	a := &app{log: zerolog.Nop()}

	root := &cobra.Command{
		Use:           "pcmbridge",
		Short:         "Stream PCM audio to and from devices and encode WAVE files",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default: ./pcmbridge.yaml if present)")
	flags.StringVar(&a.backendName, "backend", "", "Audio backend: malgo, oto, portaudio or null")
	flags.StringVar(&a.deviceName, "device", "", "Device name (default: system default)")
	flags.StringVar(&a.deviceID, "device-id", "", "Backend device ID, takes precedence over --device")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flags.BoolVar(&a.noTUI, "no-tui", false, "Disable the live monitor, log to stderr instead")

	root.AddCommand(
		playCommand(a),
		toneCommand(a),
		recordCommand(a),
		encodeToneCommand(a),
		devicesCommand(a),
		versionCommand(),
	)
	return root
}

// setup loads config, applies flags and builds the logger
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Device.Backend = a.backendName
	}
	if flags.Changed("device") {
		cfg.Device.Name = a.deviceName
	}
	if flags.Changed("device-id") {
		cfg.Device.ID = a.deviceID
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Enabled = a.metricsAddr != ""
		cfg.Metrics.Address = a.metricsAddr
	}
	if a.useTUI(cmd) && cfg.Logging.Output == "" {
		// The monitor owns the terminal, so logs go to a file
		cfg.Logging.Output = defaultTUILog
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	a.cfg = cfg

	log, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	a.log, a.logCloser = log, closer
	return nil
}

// useTUI reports whether cmd shows the live monitor
func (a *app) useTUI(cmd *cobra.Command) bool {
	if a.noTUI {
		return false
	}
	switch cmd.Name() {
	case "play", "tone", "record":
		return true
	}
	return false
}

func (a *app) backend() (device.Backend, error) {
	switch a.cfg.Device.Backend {
	case "malgo":
		return device.NewMalgo(a.log), nil
	case "oto":
		return device.NewOto(a.log), nil
	case "portaudio":
		return device.NewPortAudio(a.log), nil
	case "null":
		return device.Null{}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", a.cfg.Device.Backend)
	}
}

func (a *app) deviceRef() device.Ref {
	return device.Ref{ID: a.cfg.Device.ID, Name: a.cfg.Device.Name}
}

func (a *app) sessionOptions() []stream.Option {
	opts := []stream.Option{
		stream.WithDevice(a.deviceRef()),
		stream.WithLogger(a.log),
	}
	if a.cfg.Audio.BufferQuanta > 0 {
		opts = append(opts, stream.WithBufferQuanta(a.cfg.Audio.BufferQuanta))
	}
	return opts
}

// startMetrics serves the registry when metrics are enabled. The returned
// registry is nil otherwise.
func (a *app) startMetrics(ctx context.Context) *prometheus.Registry {
	if !a.cfg.Metrics.Enabled {
		return nil
	}
	a.registry = prometheus.NewRegistry()
	go func() {
		if err := metrics.Serve(ctx, a.cfg.Metrics.Address, a.registry, a.log); err != nil {
			a.log.Error().Err(err).Msg("Metrics endpoint failed")
		}
	}()
	return a.registry
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
