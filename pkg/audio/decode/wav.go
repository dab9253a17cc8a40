// ABOUTME: WAV file stream
// ABOUTME: Decodes 8/16/24/32-bit integer PCM WAV files with go-audio/wav
package decode

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/voicepool/pkg/audio"
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag
const wavFormatPCM = 1

type wavStream struct {
	file    *os.File
	decoder *wav.Decoder
	format  audio.Format
	buf     *goaudio.IntBuffer
}

// OpenWAV opens an integer PCM WAV file
func OpenWAV(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	s, err := newWAVStream(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func newWAVStream(f *os.File) (*wavStream, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE file", ErrInvalidFile)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: WAV audio format %d (only integer PCM)", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to locate WAV data chunk: %w", err)
	}

	format := audio.Format{
		Codec:      "wav",
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	return &wavStream{
		file:    f,
		decoder: dec,
		format:  format,
		buf: &goaudio.IntBuffer{
			Format:         dec.Format(),
			Data:           make([]int, 4096),
			SourceBitDepth: int(dec.BitDepth),
		},
	}, nil
}

func (s *wavStream) Format() audio.Format { return s.format }

func (s *wavStream) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if cap(s.buf.Data) < len(dst) {
		s.buf.Data = make([]int, len(dst))
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("wav decode error: %w", err)
	}

	for i := 0; i < n; i++ {
		v := int32(s.buf.Data[i])
		if s.format.BitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		dst[i] = audio.SampleFromInt(v, s.format.BitDepth)
	}

	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (s *wavStream) Rewind() error {
	if err := s.decoder.Rewind(); err != nil {
		return fmt.Errorf("failed to rewind WAV: %w", err)
	}
	return nil
}

func (s *wavStream) Close() error {
	return s.file.Close()
}
