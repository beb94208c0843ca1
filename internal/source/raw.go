// ABOUTME: Headerless PCM file source
// ABOUTME: Unpacks little-endian integer PCM in a caller-supplied format
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/pcmbridge/internal/handle"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
)

// IsRaw reports whether path names a headerless PCM file (.raw or .pcm)
func IsRaw(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".raw", ".pcm":
		return true
	}
	return false
}

// Raw reads interleaved little-endian integer PCM. The file carries no
// header, so the format comes from the caller.
type Raw struct {
	file   *handle.Handle[*os.File]
	r      *bufio.Reader
	format audio.Format
	title  string

	bytes []byte
	ints  []int
}

// NewRaw opens path as PCM in format
func NewRaw(path string, format audio.Format) (*Raw, error) {
	if format.IsZero() {
		return nil, audio.Errorf(audio.KindInvalidFormat, "source.NewRaw", "raw PCM needs a format")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw PCM file: %w", err)
	}
	return &Raw{
		file:   handle.New("raw pcm file", f, func(f *os.File) error { return f.Close() }),
		r:      bufio.NewReader(f),
		format: format,
		title:  titleOf(path),
	}, nil
}

func (s *Raw) Format() audio.Format { return s.format }

// Read decodes up to len(dst)/channels frames. A trailing partial frame at
// the end of the file is dropped.
func (s *Raw) Read(dst []float32) (int, error) {
	frameBytes := int(s.format.BytesPerFrame())
	frames := len(dst) / int(s.format.Channels())
	if frames == 0 {
		return 0, nil
	}

	need := frames * frameBytes
	if cap(s.bytes) < need {
		s.bytes = make([]byte, need)
	}
	n, err := io.ReadFull(s.r, s.bytes[:need])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("failed to read raw PCM: %w", err)
	}
	got := n / frameBytes
	if got == 0 {
		return 0, io.EOF
	}

	bits := s.format.BitsPerSample()
	if s.ints, err = audio.DecodePCM(s.ints[:0], s.bytes[:got*frameBytes], bits); err != nil {
		return 0, err
	}
	for i, v := range s.ints {
		dst[i] = float32(max(-1, min(1, audio.IntToFloat(v, bits))))
	}
	return got, nil
}

func (s *Raw) Title() string { return s.title }

func (s *Raw) Close() error { return s.file.Close() }
