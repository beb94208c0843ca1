// ABOUTME: Configuration loading and validation
// ABOUTME: Reads optional YAML through viper with PCMBRIDGE_ environment overrides
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. PCMBRIDGE_AUDIO_SAMPLE_RATE
const EnvPrefix = "PCMBRIDGE"

// Config is the complete application configuration
type Config struct {
	Audio   AudioConfig   `mapstructure:"audio" yaml:"audio"`
	Device  DeviceConfig  `mapstructure:"device" yaml:"device"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// AudioConfig describes stream format and buffering
type AudioConfig struct {
	SampleRate   int `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels     int `mapstructure:"channels" yaml:"channels"`
	BitDepth     int `mapstructure:"bit_depth" yaml:"bit_depth"`
	Quantum      int `mapstructure:"quantum" yaml:"quantum"`             // frames per device period
	BufferQuanta int `mapstructure:"buffer_quanta" yaml:"buffer_quanta"` // 0 uses the session default
}

// DeviceConfig selects the audio backend and device
type DeviceConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Name    string `mapstructure:"name" yaml:"name"`
	ID      string `mapstructure:"id" yaml:"id"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
}

// Backends lists the accepted device.backend values
var Backends = []string{"malgo", "oto", "portaudio", "null"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.channels", 2)
	v.SetDefault("audio.bit_depth", 16)
	v.SetDefault("audio.quantum", 1024)
	v.SetDefault("audio.buffer_quanta", 0)
	v.SetDefault("device.backend", "malgo")
	v.SetDefault("device.name", "")
	v.SetDefault("device.id", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "127.0.0.1:9464")
}

// Default returns the configuration used when no file or overrides exist
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads path, or pcmbridge.yaml from the working and user config
// directories when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("pcmbridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "pcmbridge"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Save writes c to path as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Device.Validate(); err != nil {
		return fmt.Errorf("device config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if _, err := a.Format(); err != nil {
		return err
	}
	if a.Quantum < 16 || a.Quantum > 16384 {
		return fmt.Errorf("quantum must be between 16 and 16384 frames, got %d", a.Quantum)
	}
	if a.BufferQuanta < 0 {
		return fmt.Errorf("buffer_quanta cannot be negative, got %d", a.BufferQuanta)
	}
	return nil
}

// Format returns the configured stream format
func (a *AudioConfig) Format() (audio.Format, error) {
	if a.SampleRate <= 0 || a.Channels <= 0 || a.BitDepth <= 0 {
		return audio.Format{}, fmt.Errorf("sample_rate, channels and bit_depth must be positive, got %d/%d/%d",
			a.SampleRate, a.Channels, a.BitDepth)
	}
	return audio.NewFormat(float64(a.SampleRate), uint32(a.Channels), uint32(a.BitDepth))
}

// Validate validates device configuration
func (d *DeviceConfig) Validate() error {
	for _, b := range Backends {
		if d.Backend == b {
			return nil
		}
	}
	return fmt.Errorf("backend must be one of %s, got %q", strings.Join(Backends, ", "), d.Backend)
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	switch strings.ToLower(l.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of trace, debug, info, warn, error, got %q", l.Level)
	}
	if l.Format != "console" && l.Format != "json" {
		return fmt.Errorf("format must be console or json, got %q", l.Format)
	}
	return nil
}

// Validate validates metrics configuration
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("address cannot be empty when metrics are enabled")
	}
	return nil
}
