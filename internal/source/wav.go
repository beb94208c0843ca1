// ABOUTME: WAV file source
// ABOUTME: Decodes integer PCM WAVE files with go-audio
package source

import (
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/pcmbridge/internal/handle"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV reads an integer PCM WAVE file
type WAV struct {
	file    *handle.Handle[*os.File]
	decoder *wav.Decoder
	format  audio.Format
	bits    uint32
	title   string
	buf     goaudio.IntBuffer
}

// NewWAV opens path and positions the decoder at the sample data
func NewWAV(path string) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	file := handle.New("wav file", f, func(f *os.File) error { return f.Close() })

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		_ = file.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}
	if d.WavAudioFormat != 1 {
		_ = file.Close()
		return nil, fmt.Errorf("unsupported WAV encoding %d (integer PCM only)", d.WavAudioFormat)
	}
	if err := d.FwdToPCM(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to locate WAV sample data: %w", err)
	}

	format, err := audio.NewFormat(float64(d.SampleRate), uint32(d.NumChans), containerBits(int(d.BitDepth)))
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("unsupported WAV format: %w", err)
	}

	return &WAV{
		file:    file,
		decoder: d,
		format:  format,
		bits:    uint32(d.BitDepth),
		title:   titleOf(path),
		buf: goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: int(d.NumChans), SampleRate: int(d.SampleRate)},
			SourceBitDepth: int(d.BitDepth),
		},
	}, nil
}

func (s *WAV) Format() audio.Format { return s.format }

func (s *WAV) Read(dst []float32) (int, error) {
	channels := int(s.format.Channels())
	want := len(dst) / channels * channels
	if want == 0 {
		return 0, nil
	}
	if cap(s.buf.Data) < want {
		s.buf.Data = make([]int, want)
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.decoder.PCMBuffer(&s.buf)
	if err != nil {
		return 0, fmt.Errorf("failed to decode WAV: %w", err)
	}
	frames := n / channels
	if frames == 0 {
		return 0, io.EOF
	}
	for i, v := range s.buf.Data[:frames*channels] {
		dst[i] = float32(audio.IntToFloat(v, s.bits))
	}
	return frames, nil
}

func (s *WAV) Title() string { return s.title }

func (s *WAV) Close() error { return s.file.Close() }
