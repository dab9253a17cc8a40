// ABOUTME: Audio type definitions
// ABOUTME: Defines PCM formats and float32 sample conversion helpers
package audio

import (
	"fmt"
	"time"
)

// Format describes a PCM stream after decoding
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Validate reports whether the format can be mixed
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", f.Channels)
	}
	return nil
}

// Mono reports whether the stream has a single channel
func (f Format) Mono() bool {
	return f.Channels == 1
}

// Duration returns the play time of the given number of frames
func (f Format) Duration(frames int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Frames returns the number of frames covering d
func (f Format) Frames(d time.Duration) int {
	return int(int64(d) * int64(f.SampleRate) / int64(time.Second))
}

// String renders the format the way log lines print it
func (f Format) String() string {
	name := "stereo"
	if f.Mono() {
		name = "mono"
	}
	if f.Codec == "" {
		return fmt.Sprintf("%dHz %s", f.SampleRate, name)
	}
	return fmt.Sprintf("%s %dHz %s", f.Codec, f.SampleRate, name)
}

// SampleFromInt16 converts an int16 sample to float32 in [-1, 1)
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768.0
}

// SampleFrom24Bit converts 24-bit packed bytes (little-endian) to float32
func SampleFrom24Bit(b [3]byte) float32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return float32(val) / 8388608.0
}

// SampleFromInt converts an integer sample of the given bit depth to float32
func SampleFromInt(sample int32, bitDepth int) float32 {
	switch {
	case bitDepth <= 0:
		return 0
	case bitDepth == 16:
		return float32(sample) / 32768.0
	case bitDepth == 24:
		return float32(sample) / 8388608.0
	}
	return float32(float64(sample) / float64(int64(1)<<(bitDepth-1)))
}

// SampleToInt16 converts a float32 sample to int16 with clipping
func SampleToInt16(sample float32) int16 {
	if sample >= 1 {
		return 32767
	}
	if sample <= -1 {
		return -32768
	}
	return int16(sample * 32767)
}

// SampleTo24Bit converts a float32 sample to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample float32) [3]byte {
	if sample > 1 {
		sample = 1
	} else if sample < -1 {
		sample = -1
	}
	val := int32(sample * 8388607)
	return [3]byte{byte(val), byte(val >> 8), byte(val >> 16)}
}
