// ABOUTME: Decoder interface definitions
// ABOUTME: Stream interface for files, Decoder interface for packets, and format selection
package decode

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/voicepool/pkg/audio"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidFile       = errors.New("invalid audio file")
)

// Stream reads decoded PCM from an audio file
type Stream interface {
	// Format returns the decoded stream format
	Format() audio.Format

	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with
	// err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (int, error)

	// Rewind seeks back to the first sample
	Rewind() error

	// Close releases file and decoder resources
	Close() error
}

// Decoder decodes packets (uploaded sounds) to float32 PCM
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]float32, error)

	// Close releases decoder resources
	Close() error
}

// Open opens a file stream, choosing the decoder by file extension
func Open(path string) (Stream, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".wav":
		return OpenWAV(path)
	case ".mp3":
		return OpenMP3(path)
	case ".ogg", ".oga":
		return OpenVorbis(path)
	case ".flac":
		return OpenFLAC(path)
	default:
		return nil, fmt.Errorf("%w: %s (supported: .wav, .mp3, .ogg, .flac)", ErrUnsupportedFormat, ext)
	}
}

// NewPacketDecoder returns the packet decoder for format.Codec
func NewPacketDecoder(format audio.Format) (Decoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("%w: codec %q", ErrUnsupportedFormat, format.Codec)
	}
}

// ReadAll drains a stream into memory
func ReadAll(s Stream) ([]float32, error) {
	format := s.Format()
	chunk := make([]float32, 4096*format.Channels)
	var out []float32

	for {
		n, err := s.ReadSamples(chunk)
		out = append(out, chunk[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode failed after %d samples: %w", len(out), err)
		}
		if n == 0 {
			break
		}
	}

	// Drop a trailing partial frame
	out = out[:len(out)-len(out)%format.Channels]
	return out, nil
}
