// ABOUTME: Hardware-free device backends
// ABOUTME: Manual devices are pumped by the caller; null devices tick on a timer
package device

import (
	"sync"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
)

// Manual opens devices whose periods are driven explicitly through Pump and
// Feed. It stands in for hardware in tests and offline rendering.
type Manual struct {
	// FailOpen makes Open return a DeviceUnavailable error
	FailOpen bool
	// FailActivate makes Activate on opened devices fail
	FailActivate bool

	mu      sync.Mutex
	devices []*ManualDevice
}

func (m *Manual) Name() string { return "manual" }

func (m *Manual) Open(cfg Config) (Device, error) {
	if m.FailOpen {
		return nil, audio.Errorf(audio.KindDeviceUnavailable, "manual.Open", "device %s unavailable", cfg.Ref)
	}
	if err := cfg.Validate(); err != nil {
		return nil, audio.Wrap(audio.KindDeviceUnavailable, "manual.Open", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	d := &ManualDevice{cfg: cfg, failActivate: m.FailActivate}
	m.devices = append(m.devices, d)
	return d, nil
}

func (m *Manual) DefaultDevice(Direction) (Ref, error) {
	return Ref{ID: "manual", Name: "Manual"}, nil
}

// Devices returns every device opened so far
func (m *Manual) Devices() []*ManualDevice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ManualDevice(nil), m.devices...)
}

// Last returns the most recently opened device, or nil
func (m *Manual) Last() *ManualDevice {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.devices) == 0 {
		return nil
	}
	return m.devices[len(m.devices)-1]
}

// ManualDevice runs its callback only when Pump or Feed is called
type ManualDevice struct {
	cfg          Config
	failActivate bool

	mu     sync.Mutex
	cb     Callback
	closed bool
}

// Config returns the configuration the device was opened with
func (d *ManualDevice) Config() Config {
	return d.cfg
}

func (d *ManualDevice) Activate(cb Callback) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return audio.Errorf(audio.KindInvalidState, "manual.Activate", "device closed")
	}
	if d.failActivate {
		return audio.Errorf(audio.KindDeviceUnavailable, "manual.Activate", "device refused to start")
	}
	d.cb = cb
	return nil
}

func (d *ManualDevice) Deactivate() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = nil
	return nil
}

func (d *ManualDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = nil
	d.closed = true
	return nil
}

// Active reports whether a callback is registered
func (d *ManualDevice) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cb != nil
}

// Closed reports whether Close was called
func (d *ManualDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Pump runs one output period into dst. It returns false, leaving dst
// untouched, when the device is not active.
func (d *ManualDevice) Pump(dst []float32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cb == nil {
		return false
	}
	d.cb(dst)
	return true
}

// Feed delivers one captured input period. It returns false when the
// device is not active.
func (d *ManualDevice) Feed(samples []float32) bool {
	return d.Pump(samples)
}

// Null opens devices that run their callback on a timer at the nominal
// period rate. Output is discarded and input is silence.
type Null struct{}

func (Null) Name() string { return "null" }

func (Null) Open(cfg Config) (Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, audio.Wrap(audio.KindDeviceUnavailable, "null.Open", err)
	}
	period := time.Duration(float64(cfg.Quantum) / cfg.Format.SampleRate() * float64(time.Second))
	return &nullDevice{
		period: max(period, time.Millisecond),
		buf:    make([]float32, cfg.Quantum*int(cfg.Format.Channels())),
	}, nil
}

func (Null) DefaultDevice(Direction) (Ref, error) {
	return Ref{ID: "null", Name: "Null"}, nil
}

type nullDevice struct {
	period time.Duration
	buf    []float32

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	closed bool
}

func (d *nullDevice) Activate(cb Callback) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return audio.Errorf(audio.KindInvalidState, "null.Activate", "device closed")
	}
	if d.stop != nil {
		return nil
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.run(cb, d.stop, d.done)
	return nil
}

func (d *nullDevice) run(cb Callback, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			clear(d.buf)
			cb(d.buf)
		}
	}
}

func (d *nullDevice) Deactivate() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.halt()
	return nil
}

func (d *nullDevice) halt() {
	if d.stop == nil {
		return
	}
	close(d.stop)
	<-d.done
	d.stop, d.done = nil, nil
}

func (d *nullDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.halt()
	d.closed = true
	return nil
}

var (
	_ Backend = (*Manual)(nil)
	_ Backend = Null{}
	_ Device  = (*ManualDevice)(nil)
	_ Device  = (*nullDevice)(nil)
)
