// ABOUTME: Oto-based device backend
// ABOUTME: Playback only; oto pulls samples through an io.Reader on its mixer goroutine
package device

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/internal/handle"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"
)

// quiescePoll is how often Deactivate checks for a finished Read
const quiescePoll = 100 * time.Microsecond

// Oto opens playback devices through oto. oto allows a single context per
// process, so every device opened by one Oto shares its first format.
type Oto struct {
	log zerolog.Logger

	mu       sync.Mutex
	ctx      *oto.Context
	rate     int
	channels int
}

// NewOto creates an oto backend
func NewOto(log zerolog.Logger) *Oto {
	return &Oto{log: log.With().Str("backend", "oto").Logger()}
}

func (o *Oto) Name() string { return "oto" }

// Open prepares a paused player that will render through the registered callback
func (o *Oto) Open(cfg Config) (Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, audio.Wrap(audio.KindDeviceUnavailable, "oto.Open", err)
	}
	if cfg.Direction == Input {
		return nil, audio.Errorf(audio.KindDeviceUnavailable, "oto.Open", "oto supports playback only")
	}
	if !cfg.Ref.IsDefault() {
		return nil, audio.Errorf(audio.KindDeviceUnavailable, "oto.Open",
			"oto plays on the system default device only, got %s", cfg.Ref)
	}

	desc := cfg.Format.FloatDescription()
	rate := int(desc.SampleRate)
	channels := int(desc.ChannelsPerFrame)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ctx == nil {
		period := time.Duration(float64(cfg.Quantum) / cfg.Format.SampleRate() * float64(time.Second))
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: channels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   period,
		})
		if err != nil {
			return nil, audio.Wrap(audio.KindDeviceUnavailable, "oto.NewContext", err)
		}
		<-ready
		o.ctx = ctx
		o.rate = rate
		o.channels = channels
		o.log.Info().Int("sample_rate", rate).Int("channels", channels).Msg("Oto context initialized")
	} else if o.rate != rate || o.channels != channels {
		// oto cannot reinitialize its context
		return nil, audio.Errorf(audio.KindDeviceUnavailable, "oto.Open",
			"oto context already running at %dHz %dch, requested %dHz %dch", o.rate, o.channels, rate, channels)
	}

	d := &otoDevice{
		channels:   channels,
		frameBytes: int(desc.BytesPerFrame),
		scratch:    make([]float32, cfg.Quantum*scratchQuanta*channels),
	}
	player := o.ctx.NewPlayer(d)
	player.SetBufferSize(cfg.Quantum * d.frameBytes)
	d.player = handle.New("oto player", player, func(p *oto.Player) error {
		return p.Close()
	})
	return d, nil
}

// DefaultDevice always resolves to the system default; oto cannot choose devices
func (o *Oto) DefaultDevice(dir Direction) (Ref, error) {
	if dir == Input {
		return Ref{}, audio.Errorf(audio.KindDeviceUnavailable, "oto.DefaultDevice", "oto supports playback only")
	}
	return Ref{}, nil
}

type otoDevice struct {
	channels   int
	frameBytes int
	player     *handle.Handle[*oto.Player]
	cb         atomic.Pointer[Callback]
	inRead     atomic.Int32 // nonzero while Read may hold a callback
	scratch    []float32    // touched only by oto's reader goroutine
}

func (d *otoDevice) Activate(cb Callback) error {
	p, err := d.player.MustGet()
	if err != nil {
		return audio.Wrap(audio.KindInvalidState, "oto.Activate", err)
	}
	d.cb.Store(&cb)
	p.Play()
	return nil
}

func (d *otoDevice) Deactivate() error {
	p, err := d.player.MustGet()
	if err != nil {
		return audio.Wrap(audio.KindInvalidState, "oto.Deactivate", err)
	}
	p.Pause()
	d.quiesce()
	return nil
}

// quiesce unregisters the callback and waits out a Read that already loaded it.
// Pause alone does not wait for oto's reader goroutine.
func (d *otoDevice) quiesce() {
	d.cb.Store(nil)
	for d.inRead.Load() != 0 {
		time.Sleep(quiescePoll)
	}
}

func (d *otoDevice) Close() error {
	d.quiesce()
	if err := d.player.Close(); err != nil {
		return audio.Wrap(audio.KindDeviceUnavailable, "oto.Player.Close", err)
	}
	return nil
}

// Read is called by oto's mixer. It renders whole frames and emits silence
// while no callback is registered.
func (d *otoDevice) Read(p []byte) (int, error) {
	frames := len(p) / d.frameBytes
	size := frames * d.frameBytes

	d.inRead.Add(1)
	defer d.inRead.Add(-1)

	cb := d.cb.Load()
	if cb == nil {
		clear(p[:size])
		return size, nil
	}

	chunk := len(d.scratch) / d.channels
	for off := 0; off < frames; {
		n := min(frames-off, chunk)
		buf := d.scratch[:n*d.channels]
		(*cb)(buf)
		audio.PutFloat32LE(p[off*d.frameBytes:], buf)
		off += n
	}
	return size, nil
}

var _ Backend = (*Oto)(nil)
var _ Device = (*otoDevice)(nil)
