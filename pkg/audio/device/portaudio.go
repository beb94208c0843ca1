//go:build portaudio

// ABOUTME: PortAudio device backend
// ABOUTME: Cross-platform callback-driven playback and capture using PortAudio
package device

import (
	"errors"
	"sync/atomic"

	"github.com/Resonate-Protocol/pcmbridge/internal/handle"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// PortAudio opens devices through PortAudio
type PortAudio struct {
	log zerolog.Logger
}

// NewPortAudio creates a PortAudio backend
func NewPortAudio(log zerolog.Logger) *PortAudio {
	return &PortAudio{log: log.With().Str("backend", "portaudio").Logger()}
}

func (p *PortAudio) Name() string { return "portaudio" }

func (p *PortAudio) Open(cfg Config) (Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, audio.Wrap(audio.KindDeviceUnavailable, "portaudio.Open", err)
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, wrapPortAudio(audio.KindDeviceUnavailable, "portaudio.Initialize", err)
	}

	d := &portAudioDevice{dir: cfg.Direction}
	d.handles.Add(handle.New("portaudio", struct{}{}, func(struct{}) error {
		return portaudio.Terminate()
	}))

	info, err := findPortAudioDevice(cfg.Direction, cfg.Ref)
	if err != nil {
		_ = d.handles.Close()
		return nil, err
	}

	// The stream exchanges interleaved float32, the layout of FloatDescription
	desc := cfg.Format.FloatDescription()
	params := portaudio.StreamParameters{
		SampleRate:      desc.SampleRate,
		FramesPerBuffer: cfg.Quantum,
	}
	channels := int(desc.ChannelsPerFrame)
	if cfg.Direction == Input {
		params.Input = portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: channels,
			Latency:  info.DefaultLowInputLatency,
		}
	} else {
		params.Output = portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: channels,
			Latency:  info.DefaultLowOutputLatency,
		}
	}

	stream, err := portaudio.OpenStream(params, d.service)
	if err != nil {
		_ = d.handles.Close()
		return nil, wrapPortAudio(audio.KindDeviceUnavailable, "portaudio.OpenStream", err)
	}
	d.stream = handle.New("portaudio stream", stream, func(s *portaudio.Stream) error {
		return s.Close()
	})
	d.handles.Add(d.stream)

	p.log.Info().
		Str("device", info.Name).
		Str("direction", cfg.Direction.String()).
		Str("format", cfg.Format.String()).
		Msg("Audio device opened")

	return d, nil
}

func (p *PortAudio) DefaultDevice(dir Direction) (Ref, error) {
	if err := portaudio.Initialize(); err != nil {
		return Ref{}, wrapPortAudio(audio.KindDeviceUnavailable, "portaudio.Initialize", err)
	}
	defer portaudio.Terminate()

	info, err := findPortAudioDevice(dir, Ref{})
	if err != nil {
		return Ref{}, err
	}
	return Ref{Name: info.Name}, nil
}

func findPortAudioDevice(dir Direction, ref Ref) (*portaudio.DeviceInfo, error) {
	if ref.IsDefault() {
		var info *portaudio.DeviceInfo
		var err error
		if dir == Input {
			info, err = portaudio.DefaultInputDevice()
		} else {
			info, err = portaudio.DefaultOutputDevice()
		}
		if err != nil {
			return nil, wrapPortAudio(audio.KindDeviceUnavailable, "portaudio.DefaultDevice", err)
		}
		return info, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, wrapPortAudio(audio.KindDeviceUnavailable, "portaudio.Devices", err)
	}
	for _, d := range devices {
		if d.Name == ref.Name || d.Name == ref.ID {
			return d, nil
		}
	}
	return nil, audio.Errorf(audio.KindDeviceUnavailable, "portaudio.Devices", "%s device not found: %s", dir, ref)
}

// wrapPortAudio keeps the PaError code of a failed call
func wrapPortAudio(kind audio.Kind, op string, err error) error {
	var pe portaudio.Error
	if errors.As(err, &pe) {
		return audio.WrapStatus(kind, op, int(pe), err)
	}
	return audio.Wrap(kind, op, err)
}

type portAudioDevice struct {
	dir     Direction
	stream  *handle.Handle[*portaudio.Stream]
	handles handle.Group
	cb      atomic.Pointer[Callback]
}

// service runs on the PortAudio callback thread
func (d *portAudioDevice) service(buf []float32) {
	cb := d.cb.Load()
	if cb == nil {
		if d.dir == Output {
			clear(buf)
		}
		return
	}
	(*cb)(buf)
}

func (d *portAudioDevice) Activate(cb Callback) error {
	s, err := d.stream.MustGet()
	if err != nil {
		return audio.Wrap(audio.KindInvalidState, "portaudio.Activate", err)
	}
	d.cb.Store(&cb)
	if err := s.Start(); err != nil {
		d.cb.Store(nil)
		return wrapPortAudio(audio.KindDeviceUnavailable, "portaudio.Stream.Start", err)
	}
	return nil
}

func (d *portAudioDevice) Deactivate() error {
	s, err := d.stream.MustGet()
	if err != nil {
		return audio.Wrap(audio.KindInvalidState, "portaudio.Deactivate", err)
	}
	if err := s.Stop(); err != nil {
		return wrapPortAudio(audio.KindDeviceUnavailable, "portaudio.Stream.Stop", err)
	}
	d.cb.Store(nil)
	return nil
}

func (d *portAudioDevice) Close() error {
	d.cb.Store(nil)
	if err := d.handles.Close(); err != nil {
		return wrapPortAudio(audio.KindDeviceUnavailable, "portaudio.Close", err)
	}
	return nil
}
