// ABOUTME: MP3 file stream
// ABOUTME: Decodes MP3 files to float32 samples with go-mp3
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"github.com/Resonate-Protocol/voicepool/pkg/audio"
)

type mp3Stream struct {
	file    *os.File
	decoder *mp3.Decoder
	format  audio.Format
	buf     []byte
}

// OpenMP3 opens an MP3 file. go-mp3 always decodes to 16-bit stereo.
func OpenMP3(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	return &mp3Stream{
		file:    f,
		decoder: decoder,
		format: audio.Format{
			Codec:      "mp3",
			SampleRate: decoder.SampleRate(),
			Channels:   2, // MP3 decoder outputs stereo
			BitDepth:   16,
		},
	}, nil
}

func (s *mp3Stream) Format() audio.Format { return s.format }

func (s *mp3Stream) ReadSamples(dst []float32) (int, error) {
	numBytes := len(dst) * 2
	if cap(s.buf) < numBytes {
		s.buf = make([]byte, numBytes)
	}
	buf := s.buf[:numBytes]

	n, err := io.ReadFull(s.decoder, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("mp3 decode error: %w", err)
	}

	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		dst[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}

	if numSamples == 0 {
		return 0, io.EOF
	}
	return numSamples, nil
}

func (s *mp3Stream) Rewind() error {
	if _, err := s.decoder.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	return nil
}

func (s *mp3Stream) Close() error {
	return s.file.Close()
}
