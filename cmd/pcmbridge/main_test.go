// ABOUTME: CLI tests
// ABOUTME: Runs commands end to end against the null backend and temp files
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Resonate-Protocol/pcmbridge/internal/version"
	"github.com/Resonate-Protocol/pcmbridge/pkg/wavfile"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := rootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version.String())

	out, err = run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "version "+version.Version)
}

func TestEncodeTone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	out, err := run(t, "encode-tone", path, "--duration", "500ms", "--freq", "1000", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 22050 frames")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	d := wav.NewDecoder(f)
	require.True(t, d.IsValidFile())
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, uint32(44100), d.SampleRate)
	assert.Len(t, buf.Data, 22050*2)
}

func TestEncodeToneBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "tone.wav")
	_, err := run(t, "encode-tone", path, "--log-level", "error")
	assert.Error(t, err)
}

func TestTonePlaysOnNullBackend(t *testing.T) {
	_, err := run(t, "tone", "--backend", "null", "--no-tui", "--duration", "50ms", "--log-level", "error")
	require.NoError(t, err)
}

func TestPlayFileOnNullBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "low.wav")
	samples := make([]float32, 2205*2)
	require.NoError(t, wavfile.Save(path, samples, wavfile.Options{SampleRate: 22050}))

	_, err := run(t, "play", path, "--backend", "null", "--no-tui", "--log-level", "error")
	require.NoError(t, err)
}

func TestPlayMissingFile(t *testing.T) {
	_, err := run(t, "play", filepath.Join(t.TempDir(), "nope.wav"), "--backend", "null", "--no-tui", "--log-level", "error")
	assert.Error(t, err)
}

func TestRecordFromNullBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.wav")
	_, err := run(t, "record", path, "--backend", "null", "--no-tui", "--duration", "50ms", "--log-level", "error")
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	d := wav.NewDecoder(f)
	require.True(t, d.IsValidFile())
	assert.Equal(t, uint16(1), d.NumChans)
}

func TestDevicesCommand(t *testing.T) {
	out, err := run(t, "devices", "--backend", "null", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: null")
	assert.Contains(t, out, "output: Null")
}

func TestDeviceFlagsSelectNameAndID(t *testing.T) {
	out, err := run(t, "devices", "--backend", "null", "--device", "USB Audio", "--device-id", "hw:2,0", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, `selected: name="USB Audio" id="hw:2,0"`)

	out, err = run(t, "devices", "--backend", "null", "--device-id", "hw:2,0", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, `selected: name="" id="hw:2,0"`)

	out, err = run(t, "devices", "--backend", "null", "--log-level", "error")
	require.NoError(t, err)
	assert.NotContains(t, out, "selected:")
}

func TestRecordRawFromNullBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.raw")
	_, err := run(t, "record", path, "--backend", "null", "--no-tui", "--duration", "50ms", "--log-level", "error")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size()%2, "mono 16-bit frames are two bytes")
}

func TestPlayRawOnNullBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.pcm")
	require.NoError(t, os.WriteFile(path, make([]byte, 441*4), 0o644))

	_, err := run(t, "play", path, "--backend", "null", "--no-tui", "--log-level", "error")
	require.NoError(t, err)
}

func TestInvalidBackendFlag(t *testing.T) {
	_, err := run(t, "devices", "--backend", "jack")
	assert.ErrorContains(t, err, "backend")
}
