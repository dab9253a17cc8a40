// ABOUTME: FLAC file stream
// ABOUTME: Decodes FLAC files frame by frame with mewkiz/flac
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"

	"github.com/Resonate-Protocol/voicepool/pkg/audio"
)

type flacStream struct {
	file    *os.File
	stream  *flac.Stream
	format  audio.Format
	pending []float32 // decoded samples not yet handed out
}

// OpenFLAC opens a FLAC file
func OpenFLAC(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	format := audio.Format{
		Codec:      "flac",
		SampleRate: int(info.SampleRate),
		Channels:   int(info.NChannels),
		BitDepth:   int(info.BitsPerSample),
	}
	if err := format.Validate(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	return &flacStream{
		file:   f,
		stream: stream,
		format: format,
	}, nil
}

func (s *flacStream) Format() audio.Format { return s.format }

func (s *flacStream) ReadSamples(dst []float32) (int, error) {
	written := 0

	for written < len(dst) {
		if len(s.pending) == 0 {
			if err := s.parseFrame(); err != nil {
				if err == io.EOF && written > 0 {
					return written, nil
				}
				return written, err
			}
		}

		n := copy(dst[written:], s.pending)
		s.pending = s.pending[n:]
		written += n
	}

	return written, nil
}

// parseFrame decodes the next FLAC frame into the pending buffer
func (s *flacStream) parseFrame() error {
	frame, err := s.stream.ParseNext()
	if err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("flac decode error: %w", err)
	}

	channels := s.format.Channels
	blockSize := int(frame.BlockSize)
	if cap(s.pending) < blockSize*channels {
		s.pending = make([]float32, blockSize*channels)
	}
	s.pending = s.pending[:blockSize*channels]

	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < channels; ch++ {
			s.pending[i*channels+ch] = audio.SampleFromInt(frame.Subframes[ch].Samples[i], s.format.BitDepth)
		}
	}
	return nil
}

func (s *flacStream) Rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	stream, err := flac.New(s.file)
	if err != nil {
		return fmt.Errorf("failed to create new stream: %w", err)
	}
	s.stream = stream
	s.pending = s.pending[:0]
	return nil
}

func (s *flacStream) Close() error {
	return s.file.Close()
}
