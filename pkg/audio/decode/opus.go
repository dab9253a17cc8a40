// ABOUTME: Opus audio decoder
// ABOUTME: Decodes Opus packets to float32 samples
package decode

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/Resonate-Protocol/voicepool/pkg/audio"
)

// maxOpusFrame is 120ms at 48kHz, the largest frame Opus can carry
const maxOpusFrame = 5760

// OpusDecoder decodes Opus audio
type OpusDecoder struct {
	decoder *opus.Decoder
	format  audio.Format
	pcm     []float32
}

// NewOpus creates a new Opus decoder
func NewOpus(format audio.Format) (Decoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus decoder: %s", format.Codec)
	}

	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder: dec,
		format:  format,
		pcm:     make([]float32, maxOpusFrame*format.Channels),
	}, nil
}

// Decode converts one Opus packet to float32 samples
func (d *OpusDecoder) Decode(data []byte) ([]float32, error) {
	n, err := d.decoder.DecodeFloat32(data, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	out := make([]float32, n*d.format.Channels)
	copy(out, d.pcm)
	return out, nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}
