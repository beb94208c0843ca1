// ABOUTME: Fixed-layout native stream descriptor
// ABOUTME: Mirrors AudioStreamBasicDescription field order, size and alignment
package audio

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"
)

// StreamDescriptionSize is the ABI size of StreamDescription in bytes
const StreamDescriptionSize = 40

// FormatLinearPCM is the 'lpcm' four-character code
const FormatLinearPCM uint32 = 'l'<<24 | 'p'<<16 | 'c'<<8 | 'm'

// Format flags
const (
	FlagIsFloat         uint32 = 1 << 0
	FlagIsBigEndian     uint32 = 1 << 1
	FlagIsSignedInteger uint32 = 1 << 2
	FlagIsPacked        uint32 = 1 << 3
)

// StreamDescription is the binary stream-format descriptor exchanged with
// device and container services. Field order matches the native struct.
type StreamDescription struct {
	SampleRate       float64
	FormatID         uint32
	FormatFlags      uint32
	BytesPerPacket   uint32
	FramesPerPacket  uint32
	BytesPerFrame    uint32
	ChannelsPerFrame uint32
	BitsPerChannel   uint32
	Reserved         uint32
}

var (
	layoutOnce sync.Once
	layoutErr  error
)

// ValidateLayout checks the struct layout against the native ABI.
// The check runs once per process; later calls return the cached result.
func ValidateLayout() error {
	layoutOnce.Do(func() {
		var d StreamDescription
		switch {
		case unsafe.Sizeof(d) != StreamDescriptionSize:
			layoutErr = fmt.Errorf("stream description size %d, want %d", unsafe.Sizeof(d), StreamDescriptionSize)
		case unsafe.Offsetof(d.FormatID) != 8:
			layoutErr = fmt.Errorf("FormatID offset %d, want 8", unsafe.Offsetof(d.FormatID))
		case unsafe.Offsetof(d.ChannelsPerFrame) != 28:
			layoutErr = fmt.Errorf("ChannelsPerFrame offset %d, want 28", unsafe.Offsetof(d.ChannelsPerFrame))
		case unsafe.Offsetof(d.Reserved) != 36:
			layoutErr = fmt.Errorf("Reserved offset %d, want 36", unsafe.Offsetof(d.Reserved))
		case binary.Size(d) != StreamDescriptionSize:
			layoutErr = fmt.Errorf("stream description encodes to %d bytes, want %d", binary.Size(d), StreamDescriptionSize)
		}
	})
	return layoutErr
}

// Description returns the packed signed-integer descriptor for f
func (f Format) Description() StreamDescription {
	return StreamDescription{
		SampleRate:       f.sampleRate,
		FormatID:         FormatLinearPCM,
		FormatFlags:      FlagIsSignedInteger | FlagIsPacked,
		BytesPerPacket:   f.bytesPerFrame * f.framesPerPacket,
		FramesPerPacket:  f.framesPerPacket,
		BytesPerFrame:    f.bytesPerFrame,
		ChannelsPerFrame: f.channels,
		BitsPerChannel:   f.bitsPerSample,
	}
}

// FloatDescription returns the packed float32 descriptor of the samples
// backends exchange with devices and callbacks
func (f Format) FloatDescription() StreamDescription {
	return StreamDescription{
		SampleRate:       f.sampleRate,
		FormatID:         FormatLinearPCM,
		FormatFlags:      FlagIsFloat | FlagIsPacked,
		BytesPerPacket:   f.channels * 4,
		FramesPerPacket:  1,
		BytesPerFrame:    f.channels * 4,
		ChannelsPerFrame: f.channels,
		BitsPerChannel:   32,
	}
}

// Format converts an integer PCM descriptor back to a Format
func (d StreamDescription) Format() (Format, error) {
	if d.FormatID != FormatLinearPCM {
		return Format{}, Errorf(KindFormatNegotiation, "StreamDescription.Format", "format id %#x is not linear PCM", d.FormatID)
	}
	if d.FormatFlags&FlagIsFloat != 0 || d.FormatFlags&FlagIsBigEndian != 0 {
		return Format{}, Errorf(KindFormatNegotiation, "StreamDescription.Format", "flags %#x are not little-endian integer", d.FormatFlags)
	}
	f, err := NewFormat(d.SampleRate, d.ChannelsPerFrame, d.BitsPerChannel)
	if err != nil {
		return Format{}, err
	}
	if f.bytesPerFrame != d.BytesPerFrame || d.FramesPerPacket != 1 {
		return Format{}, Errorf(KindFormatNegotiation, "StreamDescription.Format",
			"inconsistent frame layout: %d bytes/frame, %d frames/packet", d.BytesPerFrame, d.FramesPerPacket)
	}
	return f, nil
}

// MarshalBinary encodes the descriptor in little-endian native layout
func (d StreamDescription) MarshalBinary() ([]byte, error) {
	b := make([]byte, StreamDescriptionSize)
	if _, err := binary.Encode(b, binary.LittleEndian, d); err != nil {
		return nil, err
	}
	return b, nil
}

// UnmarshalBinary decodes a little-endian descriptor
func (d *StreamDescription) UnmarshalBinary(b []byte) error {
	if len(b) != StreamDescriptionSize {
		return fmt.Errorf("stream description must be %d bytes, got %d", StreamDescriptionSize, len(b))
	}
	_, err := binary.Decode(b, binary.LittleEndian, d)
	return err
}
