// ABOUTME: MP3 file source
// ABOUTME: Decodes MP3 to 16-bit stereo with go-mp3
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/pcmbridge/internal/handle"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3 reads an MP3 file. The decoder always outputs 16-bit stereo.
type MP3 struct {
	file    *handle.Handle[*os.File]
	decoder *mp3.Decoder
	format  audio.Format
	title   string
	buf     []byte
}

// NewMP3 opens path and reads the first frame header
func NewMP3(path string) (*MP3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}
	file := handle.New("mp3 file", f, func(f *os.File) error { return f.Close() })

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	format, err := audio.NewFormat(float64(decoder.SampleRate()), 2, 16)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("unsupported MP3 format: %w", err)
	}

	return &MP3{
		file:    file,
		decoder: decoder,
		format:  format,
		title:   titleOf(path),
	}, nil
}

func (s *MP3) Format() audio.Format { return s.format }

func (s *MP3) Read(dst []float32) (int, error) {
	frames := len(dst) / 2
	if frames == 0 {
		return 0, nil
	}
	size := frames * 4
	if cap(s.buf) < size {
		s.buf = make([]byte, size)
	}
	buf := s.buf[:size]

	n, err := io.ReadFull(s.decoder, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("failed to decode MP3: %w", err)
	}
	got := n / 4
	if got == 0 {
		return 0, io.EOF
	}
	for i := 0; i < got*2; i++ {
		v := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		dst[i] = float32(audio.IntToFloat(int(v), 16))
	}
	return got, nil
}

func (s *MP3) Title() string { return s.title }

func (s *MP3) Close() error { return s.file.Close() }
