// ABOUTME: Tests for session and encoder metrics
// ABOUTME: Compares collected values against expected exposition text
package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/device"
	"github.com/Resonate-Protocol/pcmbridge/pkg/stream"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	id    uuid.UUID
	stats stream.Stats
}

func (f *fakeSource) ID() uuid.UUID               { return f.id }
func (f *fakeSource) Direction() device.Direction { return device.Output }
func (f *fakeSource) Stats() stream.Stats         { return f.stats }

func TestSessionCollector(t *testing.T) {
	src := &fakeSource{
		id: uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		stats: stream.Stats{
			FramesIn: 4096, FramesOut: 4000, Underruns: 96,
			Buffered: 96, Capacity: 4096, State: stream.Running,
		},
	}
	c := NewSessionCollector(src)

	expected := `
# HELP pcmbridge_frames_total Frames that entered (in) or left (out) the session ring buffer
# TYPE pcmbridge_frames_total counter
pcmbridge_frames_total{direction="in",session="6ba7b810-9dad-11d1-80b4-00c04fd430c8",stream="output"} 4096
pcmbridge_frames_total{direction="out",session="6ba7b810-9dad-11d1-80b4-00c04fd430c8",stream="output"} 4000
# HELP pcmbridge_underrun_frames_total Output frames replaced with silence because the ring buffer was empty
# TYPE pcmbridge_underrun_frames_total counter
pcmbridge_underrun_frames_total{session="6ba7b810-9dad-11d1-80b4-00c04fd430c8",stream="output"} 96
# HELP pcmbridge_session_running 1 while the device callback is active
# TYPE pcmbridge_session_running gauge
pcmbridge_session_running{session="6ba7b810-9dad-11d1-80b4-00c04fd430c8",stream="output"} 1
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"pcmbridge_frames_total", "pcmbridge_underrun_frames_total", "pcmbridge_session_running")
	require.NoError(t, err)
	assert.Equal(t, 7, testutil.CollectAndCount(c))

	// Values track the session between scrapes
	src.stats.State = stream.Stopped
	src.stats.Overruns = 5
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	count, err := testutil.GatherAndCount(reg, "pcmbridge_overrun_frames_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEncoderMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewEncoderMetrics(reg)
	require.NoError(t, err)

	m.RecordWrite(1024, nil)
	m.RecordWrite(512, nil)
	m.RecordWrite(0, errors.New("disk full"))

	assert.Equal(t, 1536.0, testutil.ToFloat64(m.framesWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writeErrors))

	_, err = NewEncoderMetrics(reg)
	assert.Error(t, err, "duplicate registration must fail")
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	reg := prometheus.NewRegistry()
	m, err := NewEncoderMetrics(reg)
	require.NoError(t, err)
	m.RecordWrite(10, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- Serve(ctx, addr, reg, zerolog.Nop()) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, body, "pcmbridge_encoder_frames_written_total 10")

	cancel()
	assert.NoError(t, <-errc)
}
