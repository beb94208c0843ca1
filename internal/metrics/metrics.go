// ABOUTME: Prometheus metrics for streaming sessions
// ABOUTME: Collects session counters on scrape and serves the /metrics endpoint
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/device"
	"github.com/Resonate-Protocol/pcmbridge/pkg/stream"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// StatsSource is the part of a session the collector reads
type StatsSource interface {
	ID() uuid.UUID
	Direction() device.Direction
	Stats() stream.Stats
}

// SessionCollector exports one session's counters. Values are read from
// the session on every scrape, never from the real-time callback.
type SessionCollector struct {
	src StatsSource

	frames    *prometheus.Desc
	overruns  *prometheus.Desc
	underruns *prometheus.Desc
	buffered  *prometheus.Desc
	capacity  *prometheus.Desc
	running   *prometheus.Desc
}

// NewSessionCollector creates a collector for src
func NewSessionCollector(src StatsSource) *SessionCollector {
	labels := prometheus.Labels{
		"session": src.ID().String(),
		"stream":  src.Direction().String(),
	}
	return &SessionCollector{
		src: src,
		frames: prometheus.NewDesc("pcmbridge_frames_total",
			"Frames that entered (in) or left (out) the session ring buffer",
			[]string{"direction"}, labels),
		overruns: prometheus.NewDesc("pcmbridge_overrun_frames_total",
			"Captured frames dropped because the ring buffer was full", nil, labels),
		underruns: prometheus.NewDesc("pcmbridge_underrun_frames_total",
			"Output frames replaced with silence because the ring buffer was empty", nil, labels),
		buffered: prometheus.NewDesc("pcmbridge_buffered_frames",
			"Frames currently held in the ring buffer", nil, labels),
		capacity: prometheus.NewDesc("pcmbridge_buffer_capacity_frames",
			"Ring buffer capacity in frames", nil, labels),
		running: prometheus.NewDesc("pcmbridge_session_running",
			"1 while the device callback is active", nil, labels),
	}
}

// Describe implements prometheus.Collector
func (c *SessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.frames
	ch <- c.overruns
	ch <- c.underruns
	ch <- c.buffered
	ch <- c.capacity
	ch <- c.running
}

// Collect implements prometheus.Collector
func (c *SessionCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	running := 0.0
	if s.State == stream.Running {
		running = 1
	}
	ch <- prometheus.MustNewConstMetric(c.frames, prometheus.CounterValue, float64(s.FramesIn), "in")
	ch <- prometheus.MustNewConstMetric(c.frames, prometheus.CounterValue, float64(s.FramesOut), "out")
	ch <- prometheus.MustNewConstMetric(c.overruns, prometheus.CounterValue, float64(s.Overruns))
	ch <- prometheus.MustNewConstMetric(c.underruns, prometheus.CounterValue, float64(s.Underruns))
	ch <- prometheus.MustNewConstMetric(c.buffered, prometheus.GaugeValue, float64(s.Buffered))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity))
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, running)
}

// EncoderMetrics counts frames written to files
type EncoderMetrics struct {
	framesWritten prometheus.Counter
	writeErrors   prometheus.Counter
}

// NewEncoderMetrics creates and registers encoder counters
func NewEncoderMetrics(registry prometheus.Registerer) (*EncoderMetrics, error) {
	m := &EncoderMetrics{
		framesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcmbridge_encoder_frames_written_total",
			Help: "Frames written to WAVE files",
		}),
		writeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcmbridge_encoder_write_errors_total",
			Help: "Failed WAVE encoder writes",
		}),
	}
	for _, c := range []prometheus.Collector{m.framesWritten, m.writeErrors} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordWrite counts one encoder batch
func (m *EncoderMetrics) RecordWrite(frames int, err error) {
	if err != nil {
		m.writeErrors.Inc()
		return
	}
	m.framesWritten.Add(float64(frames))
}

// Serve exposes gatherer on addr at /metrics until ctx is done
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Metrics endpoint listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
