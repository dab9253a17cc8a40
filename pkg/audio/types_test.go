// ABOUTME: Tests for audio types
// ABOUTME: Tests format helpers and sample conversion functions
package audio

import (
	"math"
	"testing"
	"time"
)

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected float32
	}{
		{"zero", 0, 0},
		{"half", 16384, 0.5},
		{"negative half", -16384, -0.5},
		{"min", -32768, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %f, got %f", tt.expected, result)
			}
		})
	}
}

func TestSampleToInt16Clips(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int16
	}{
		{"zero", 0, 0},
		{"over", 1.5, 32767},
		{"under", -2, -32768},
		{"half", 0.5, 16383},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleToInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleFrom24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    [3]byte
		expected float32
	}{
		{"zero", [3]byte{0, 0, 0}, 0},
		{"max negative", [3]byte{0x00, 0x00, 0x80}, -1},
		{"half", [3]byte{0x00, 0x00, 0x40}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFrom24Bit(tt.input)
			if result != tt.expected {
				t.Errorf("expected %f, got %f", tt.expected, result)
			}
		})
	}
}

func TestSampleFromInt(t *testing.T) {
	if got := SampleFromInt(1<<15, 16); got != 1 {
		t.Errorf("16-bit full scale: expected 1, got %f", got)
	}
	if got := SampleFromInt(-(1 << 23), 24); got != -1 {
		t.Errorf("24-bit full scale: expected -1, got %f", got)
	}
	if got := SampleFromInt(64, 8); math.Abs(float64(got)-0.5) > 1e-6 {
		t.Errorf("8-bit half scale: expected 0.5, got %f", got)
	}
	if got := SampleFromInt(5, 0); got != 0 {
		t.Errorf("zero bit depth: expected 0, got %f", got)
	}
}

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name      string
		format    Format
		expectErr bool
	}{
		{"mono", Format{SampleRate: 44100, Channels: 1}, false},
		{"stereo", Format{SampleRate: 48000, Channels: 2}, false},
		{"no rate", Format{Channels: 2}, true},
		{"surround", Format{SampleRate: 48000, Channels: 6}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if tt.expectErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestFormatDurationAndFrames(t *testing.T) {
	format := Format{SampleRate: 44100, Channels: 2}

	if d := format.Duration(44100); d != time.Second {
		t.Errorf("expected 1s, got %v", d)
	}
	if n := format.Frames(500 * time.Millisecond); n != 22050 {
		t.Errorf("expected 22050 frames, got %d", n)
	}
	if d := (Format{}).Duration(100); d != 0 {
		t.Errorf("expected zero duration for empty format, got %v", d)
	}
}

func TestFormatString(t *testing.T) {
	format := Format{Codec: "wav", SampleRate: 22050, Channels: 1}
	if s := format.String(); s != "wav 22050Hz mono" {
		t.Errorf("unexpected format string %q", s)
	}
}
