// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for all audio encoders
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/voicepool/pkg/audio"
)

// Encoder encodes interleaved float32 samples to various formats
type Encoder interface {
	// Encode converts PCM samples to encoded audio data
	Encode(samples []float32) ([]byte, error)

	// FrameSamples returns the number of interleaved samples Encode expects
	// per call, or 0 when any length is accepted
	FrameSamples() int

	// Close releases encoder resources
	Close() error
}

// New returns the encoder for format.Codec
func New(format audio.Format) (Encoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}

// Packets splits samples into encoder-sized frames and encodes each one.
// A trailing partial frame is zero padded.
func Packets(enc Encoder, samples []float32) ([][]byte, error) {
	size := enc.FrameSamples()
	if size == 0 {
		data, err := enc.Encode(samples)
		if err != nil {
			return nil, err
		}
		return [][]byte{data}, nil
	}

	var packets [][]byte
	frame := make([]float32, size)
	for off := 0; off < len(samples); off += size {
		n := copy(frame, samples[off:])
		for i := n; i < size; i++ {
			frame[i] = 0
		}
		data, err := enc.Encode(frame)
		if err != nil {
			return nil, fmt.Errorf("packet %d: %w", off/size, err)
		}
		packets = append(packets, data)
	}
	return packets, nil
}
