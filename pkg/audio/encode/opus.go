// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 20ms float32 frames to Opus packets
package encode

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/Resonate-Protocol/voicepool/pkg/audio"
)

// maxOpusPacket is the largest packet Encode will produce
const maxOpusPacket = 4000

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder   *opus.Encoder
	channels  int
	frameSize int
	data      []byte
}

// NewOpus creates a new Opus encoder
func NewOpus(format audio.Format) (Encoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	return &OpusEncoder{
		encoder:   encoder,
		channels:  format.Channels,
		frameSize: format.SampleRate / 50, // 20ms frame
		data:      make([]byte, maxOpusPacket),
	}, nil
}

// Encode converts one frame of float32 samples to an Opus packet
func (e *OpusEncoder) Encode(samples []float32) ([]byte, error) {
	if len(samples) != e.FrameSamples() {
		return nil, fmt.Errorf("opus frame must be %d samples, got %d", e.FrameSamples(), len(samples))
	}

	n, err := e.encoder.EncodeFloat32(samples, e.data)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	out := make([]byte, n)
	copy(out, e.data[:n])
	return out, nil
}

// FrameSamples returns the interleaved sample count of a 20ms frame
func (e *OpusEncoder) FrameSamples() int {
	return e.frameSize * e.channels
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}
