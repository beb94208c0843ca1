// ABOUTME: Malgo-based device backend
// ABOUTME: Uses miniaudio via malgo for callback-driven playback and capture
package device

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Resonate-Protocol/pcmbridge/internal/handle"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// scratchQuanta is how many quanta of float32 scratch a device keeps for
// periods larger than requested. Larger periods are serviced in chunks.
const scratchQuanta = 4

// Malgo opens devices through miniaudio
type Malgo struct {
	log zerolog.Logger
}

// NewMalgo creates a malgo backend
func NewMalgo(log zerolog.Logger) *Malgo {
	return &Malgo{log: log.With().Str("backend", "malgo").Logger()}
}

func (m *Malgo) Name() string { return "malgo" }

func deviceType(dir Direction) malgo.DeviceType {
	if dir == Input {
		return malgo.Capture
	}
	return malgo.Playback
}

// Open initializes a miniaudio context and device for cfg. The device is
// not started until Activate.
func (m *Malgo) Open(cfg Config) (Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, audio.Wrap(audio.KindDeviceUnavailable, "malgo.Open", err)
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, wrapMalgo(audio.KindDeviceUnavailable, "malgo.InitContext", err)
	}

	desc := cfg.Format.FloatDescription()
	d := &malgoDevice{
		dir:        cfg.Direction,
		channels:   int(desc.ChannelsPerFrame),
		frameBytes: int(desc.BytesPerFrame),
		log:        m.log,
	}
	d.scratch = make([]float32, cfg.Quantum*scratchQuanta*d.channels)
	d.handles.Add(handle.New("malgo context", ctx, func(c *malgo.AllocatedContext) error {
		err := c.Uninit()
		c.Free()
		return err
	}))

	deviceConfig := malgo.DefaultDeviceConfig(deviceType(cfg.Direction))
	deviceConfig.SampleRate = uint32(desc.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.Quantum)
	deviceConfig.Alsa.NoMMap = 1

	if !cfg.Ref.IsDefault() {
		info, err := findMalgoDevice(ctx, cfg.Direction, cfg.Ref)
		if err != nil {
			_ = d.handles.Close()
			return nil, err
		}
		d.info = info
	}

	switch cfg.Direction {
	case Input:
		deviceConfig.Capture.Format = malgo.FormatF32
		deviceConfig.Capture.Channels = desc.ChannelsPerFrame
		if !cfg.Ref.IsDefault() {
			deviceConfig.Capture.DeviceID = d.info.ID.Pointer()
		}
	default:
		deviceConfig.Playback.Format = malgo.FormatF32
		deviceConfig.Playback.Channels = desc.ChannelsPerFrame
		if !cfg.Ref.IsDefault() {
			deviceConfig.Playback.DeviceID = d.info.ID.Pointer()
		}
	}

	dev, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: d.onData,
	})
	if err != nil {
		_ = d.handles.Close()
		return nil, wrapMalgo(audio.KindDeviceUnavailable, "malgo.InitDevice", err)
	}
	d.device = handle.New("malgo device", dev, func(dv *malgo.Device) error {
		dv.Uninit()
		return nil
	})
	d.handles.Add(d.device)

	m.log.Info().
		Str("device", cfg.Ref.String()).
		Str("direction", cfg.Direction.String()).
		Str("format", cfg.Format.String()).
		Int("quantum", cfg.Quantum).
		Msg("Audio device opened")

	return d, nil
}

// DefaultDevice asks miniaudio which device it flags as default for dir
func (m *Malgo) DefaultDevice(dir Direction) (Ref, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return Ref{}, wrapMalgo(audio.KindDeviceUnavailable, "malgo.InitContext", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(deviceType(dir))
	if err != nil {
		return Ref{}, wrapMalgo(audio.KindDeviceUnavailable, "malgo.Devices", err)
	}
	for _, info := range infos {
		if info.IsDefault != 0 {
			return Ref{ID: info.ID.String(), Name: info.Name()}, nil
		}
	}
	// No device flagged; miniaudio still resolves the zero Ref to a default
	return Ref{}, nil
}

func findMalgoDevice(ctx *malgo.AllocatedContext, dir Direction, ref Ref) (malgo.DeviceInfo, error) {
	infos, err := ctx.Devices(deviceType(dir))
	if err != nil {
		return malgo.DeviceInfo{}, wrapMalgo(audio.KindDeviceUnavailable, "malgo.Devices", err)
	}
	// An ID match wins over a name match
	if ref.ID != "" {
		for _, info := range infos {
			if info.ID.String() == ref.ID {
				return info, nil
			}
		}
	}
	if ref.Name != "" {
		for _, info := range infos {
			if info.Name() == ref.Name {
				return info, nil
			}
		}
	}
	return malgo.DeviceInfo{}, audio.Errorf(audio.KindDeviceUnavailable, "malgo.Devices",
		"%s device not found: %s", dir, ref)
}

// wrapMalgo keeps the miniaudio result code of a failed call
func wrapMalgo(kind audio.Kind, op string, err error) error {
	var res malgo.Result
	if errors.As(err, &res) {
		return audio.WrapStatus(kind, op, int(res), err)
	}
	return audio.Wrap(kind, op, err)
}

type malgoDevice struct {
	dir        Direction
	channels   int
	frameBytes int
	info       malgo.DeviceInfo
	log        zerolog.Logger

	device  *handle.Handle[*malgo.Device]
	handles handle.Group

	cb      atomic.Pointer[Callback]
	scratch []float32 // touched only on the audio thread
}

func (d *malgoDevice) Activate(cb Callback) error {
	dev, err := d.device.MustGet()
	if err != nil {
		return audio.Wrap(audio.KindInvalidState, "malgo.Activate", err)
	}
	d.cb.Store(&cb)
	if err := dev.Start(); err != nil {
		d.cb.Store(nil)
		return wrapMalgo(audio.KindDeviceUnavailable, "malgo.Device.Start", err)
	}
	return nil
}

func (d *malgoDevice) Deactivate() error {
	dev, err := d.device.MustGet()
	if err != nil {
		return audio.Wrap(audio.KindInvalidState, "malgo.Deactivate", err)
	}
	// Stop waits for the in-flight period, so cb is quiescent afterwards
	if err := dev.Stop(); err != nil {
		return wrapMalgo(audio.KindDeviceUnavailable, "malgo.Device.Stop", err)
	}
	d.cb.Store(nil)
	return nil
}

func (d *malgoDevice) Close() error {
	d.cb.Store(nil)
	if err := d.handles.Close(); err != nil {
		return wrapMalgo(audio.KindDeviceUnavailable, "malgo.Close", err)
	}
	d.log.Debug().Msg("Audio device closed")
	return nil
}

// onData runs on the miniaudio thread
func (d *malgoDevice) onData(pOutput, pInput []byte, frameCount uint32) {
	cb := d.cb.Load()
	frames := int(frameCount)
	chunk := len(d.scratch) / d.channels

	if d.dir == Input {
		if cb == nil {
			return
		}
		for off := 0; off < frames; {
			n := min(frames-off, chunk)
			buf := d.scratch[:n*d.channels]
			audio.Float32FromLE(buf, pInput[off*d.frameBytes:])
			(*cb)(buf)
			off += n
		}
		return
	}

	if cb == nil {
		clear(pOutput)
		return
	}
	for off := 0; off < frames; {
		n := min(frames-off, chunk)
		buf := d.scratch[:n*d.channels]
		(*cb)(buf)
		audio.PutFloat32LE(pOutput[off*d.frameBytes:], buf)
		off += n
	}
}

var _ Backend = (*Malgo)(nil)
var _ Device = (*malgoDevice)(nil)

func (d *malgoDevice) String() string {
	return fmt.Sprintf("malgo %s device (%d channels)", d.dir, d.channels)
}
