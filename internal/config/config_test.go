// ABOUTME: Tests for configuration loading
// ABOUTME: Covers defaults, YAML files, env overrides, validation and save
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, 1024, cfg.Audio.Quantum)
	assert.Equal(t, "malgo", cfg.Device.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)

	f, err := cfg.Audio.Format()
	require.NoError(t, err)
	assert.Equal(t, audio.MustFormat(44100, 2, 16), f)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pcmbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
audio:
  sample_rate: 48000
  channels: 1
  quantum: 256
device:
  backend: "null"
logging:
  level: debug
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	assert.Equal(t, 1, cfg.Audio.Channels)
	assert.Equal(t, 16, cfg.Audio.BitDepth, "unset keys keep defaults")
	assert.Equal(t, 256, cfg.Audio.Quantum)
	assert.Equal(t, "null", cfg.Device.Backend)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PCMBRIDGE_AUDIO_QUANTUM", "512")
	t.Setenv("PCMBRIDGE_DEVICE_BACKEND", "oto")

	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audio:\n  quantum: 128\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Audio.Quantum)
	assert.Equal(t, "oto", cfg.Device.Backend)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audio:\n  bit_depth: 12\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "audio config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero channels", func(c *Config) { c.Audio.Channels = 0 }, "audio config"},
		{"tiny quantum", func(c *Config) { c.Audio.Quantum = 4 }, "quantum"},
		{"negative buffer", func(c *Config) { c.Audio.BufferQuanta = -1 }, "buffer_quanta"},
		{"unknown backend", func(c *Config) { c.Device.Backend = "jack" }, "backend"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "format"},
		{"metrics without address", func(c *Config) { c.Metrics = MetricsConfig{Enabled: true} }, "address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Audio.SampleRate = 96000
	cfg.Audio.BitDepth = 24
	cfg.Metrics = MetricsConfig{Enabled: true, Address: ":9000"}

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
