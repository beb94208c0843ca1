// ABOUTME: Device boundary consumed by streaming sessions
// ABOUTME: Backends open devices; devices run a registered real-time callback
package device

import (
	"fmt"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
)

// Direction selects playback or capture
type Direction int

const (
	Output Direction = iota
	Input
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Ref identifies a device. The zero value selects the platform default.
type Ref struct {
	ID   string
	Name string
}

// IsDefault reports whether r selects the platform default device
func (r Ref) IsDefault() bool {
	return r.ID == "" && r.Name == ""
}

func (r Ref) String() string {
	switch {
	case r.IsDefault():
		return "default"
	case r.Name != "":
		return r.Name
	default:
		return r.ID
	}
}

// Config describes the device a session needs
type Config struct {
	Ref       Ref
	Direction Direction
	Format    audio.Format
	// Quantum is the preferred number of frames per callback
	Quantum int
}

// Validate checks that a backend can act on c
func (c Config) Validate() error {
	if c.Format.IsZero() {
		return fmt.Errorf("device config has no format")
	}
	if c.Quantum <= 0 {
		return fmt.Errorf("invalid quantum: %d, must be greater than 0", c.Quantum)
	}
	return nil
}

// Callback services one hardware period on the real-time thread.
// For output devices buf must be completely filled; for input devices buf
// holds the captured samples. buf is interleaved float32 and only valid
// for the duration of the call. Implementations must not block, allocate,
// lock or perform I/O.
type Callback func(buf []float32)

// Device is an opened, ownership-tracked audio device
type Device interface {
	// Activate registers cb and starts hardware-driven invocation
	Activate(cb Callback) error
	// Deactivate halts invocation; cb is not called after it returns
	Deactivate() error
	// Close releases the native handle
	Close() error
}

// Backend opens devices of one platform audio API
type Backend interface {
	Name() string
	Open(cfg Config) (Device, error)
	// DefaultDevice resolves the device the platform would pick for dir
	DefaultDevice(dir Direction) (Ref, error)
}

func init() {
	if err := audio.ValidateLayout(); err != nil {
		panic(fmt.Sprintf("device: %v", err))
	}
}
