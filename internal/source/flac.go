// ABOUTME: FLAC file source
// ABOUTME: Decodes FLAC frames with mewkiz/flac, carrying partial frames across reads
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/pcmbridge/internal/handle"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

// FLAC reads a FLAC file
type FLAC struct {
	file   *handle.Handle[*os.File]
	stream *flac.Stream
	format audio.Format
	bits   uint32
	title  string

	// current frame and the next sample index within it
	cur *frame.Frame
	pos int
}

// NewFLAC opens path and parses the stream info block
func NewFLAC(path string) (*FLAC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}
	file := handle.New("flac file", f, func(f *os.File) error { return f.Close() })

	stream, err := flac.New(f)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	format, err := audio.NewFormat(float64(info.SampleRate), uint32(info.NChannels), containerBits(int(info.BitsPerSample)))
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("unsupported FLAC format: %w", err)
	}

	return &FLAC{
		file:   file,
		stream: stream,
		format: format,
		bits:   uint32(info.BitsPerSample),
		title:  titleOf(path),
	}, nil
}

func (s *FLAC) Format() audio.Format { return s.format }

func (s *FLAC) Read(dst []float32) (int, error) {
	channels := int(s.format.Channels())
	frames := len(dst) / channels
	done := 0

	for done < frames {
		if s.cur == nil || s.pos >= int(s.cur.BlockSize) {
			fr, err := s.stream.ParseNext()
			if errors.Is(err, io.EOF) {
				if done == 0 {
					return 0, io.EOF
				}
				return done, nil
			}
			if err != nil {
				return done, fmt.Errorf("failed to decode FLAC frame: %w", err)
			}
			s.cur, s.pos = fr, 0
		}

		n := min(frames-done, int(s.cur.BlockSize)-s.pos)
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				v := s.cur.Subframes[ch].Samples[s.pos+i]
				dst[(done+i)*channels+ch] = float32(audio.IntToFloat(int(v), s.bits))
			}
		}
		s.pos += n
		done += n
	}
	return done, nil
}

func (s *FLAC) Title() string { return s.title }

func (s *FLAC) Close() error { return s.file.Close() }
