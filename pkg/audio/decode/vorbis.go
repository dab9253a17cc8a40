// ABOUTME: Ogg Vorbis file stream
// ABOUTME: Decodes Ogg Vorbis files with jfreymuth/oggvorbis
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"

	"github.com/Resonate-Protocol/voicepool/pkg/audio"
)

type vorbisStream struct {
	file   *os.File
	reader *oggvorbis.Reader
	format audio.Format
}

// OpenVorbis opens an Ogg Vorbis file
func OpenVorbis(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Ogg file: %w", err)
	}

	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode Ogg Vorbis: %w", err)
	}

	format := audio.Format{
		Codec:      "vorbis",
		SampleRate: reader.SampleRate(),
		Channels:   reader.Channels(),
	}
	if err := format.Validate(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	return &vorbisStream{
		file:   f,
		reader: reader,
		format: format,
	}, nil
}

func (s *vorbisStream) Format() audio.Format { return s.format }

func (s *vorbisStream) ReadSamples(dst []float32) (int, error) {
	// Keep requests frame aligned so channels never split across reads
	want := len(dst) - len(dst)%s.format.Channels
	if want == 0 {
		return 0, nil
	}

	n, err := s.reader.Read(dst[:want])
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	if err == io.EOF {
		err = nil
	}
	return n, err
}

func (s *vorbisStream) Rewind() error {
	if err := s.reader.SetPosition(0); err != nil {
		return fmt.Errorf("failed to rewind Ogg Vorbis: %w", err)
	}
	return nil
}

func (s *vorbisStream) Close() error {
	return s.file.Close()
}
