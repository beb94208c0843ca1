// ABOUTME: PCM sources for output sessions
// ABOUTME: Opens WAV, MP3, FLAC and raw PCM files and decodes them to float32 frames
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/rs/zerolog"
)

// Source produces interleaved float32 frames in [-1, 1]
type Source interface {
	// Format returns the native format of the source
	Format() audio.Format
	// Read fills dst with up to len(dst)/channels frames and returns the
	// frame count. It returns io.EOF once the source is exhausted.
	Read(dst []float32) (int, error)
	// Title is a display name for the source
	Title() string
	Close() error
}

// OpenFile opens a decoded file source selected by extension
func OpenFile(path string, log zerolog.Logger) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var (
		src Source
		err error
	)
	switch ext {
	case ".wav", ".wave":
		src, err = NewWAV(path)
	case ".mp3":
		src, err = NewMP3(path)
	case ".flac":
		src, err = NewFLAC(path)
	case ".raw", ".pcm":
		return nil, fmt.Errorf("raw PCM has no header, open it with NewRaw and an explicit format")
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .wav, .mp3, .flac)", ext)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("title", src.Title()).
		Str("format", src.Format().String()).
		Msg("Loaded audio file")
	return src, nil
}

func titleOf(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// containerBits rounds a decoder bit depth up to a supported format depth
func containerBits(bits int) uint32 {
	switch {
	case bits <= 8:
		return 8
	case bits <= 16:
		return 16
	case bits <= 24:
		return 24
	default:
		return 32
	}
}
