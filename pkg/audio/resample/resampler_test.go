// ABOUTME: Tests for the linear resampler
// ABOUTME: Covers identity, downsampling, pitch and chunked feeding
package resample

import (
	"math"
	"testing"
)

func TestResampleIdentity(t *testing.T) {
	r := New(44100, 44100, 1)

	input := []float32{0, 0.1, 0.2, 0.3, 0.4}
	output := make([]float32, 8)

	consumed, written := r.Resample(input, output)

	// The last frame is held back for interpolation
	if consumed != 4 {
		t.Errorf("expected 4 frames consumed, got %d", consumed)
	}
	if written != 4 {
		t.Fatalf("expected 4 samples written, got %d", written)
	}
	for i := 0; i < written; i++ {
		if output[i] != input[i] {
			t.Errorf("sample %d: expected %v, got %v", i, input[i], output[i])
		}
	}
}

func TestResampleInterpolates(t *testing.T) {
	// Half the input rate: every output frame lands halfway between inputs
	r := New(22050, 44100, 2)

	input := []float32{0, 1, 1, 0, 0, 1}
	output := make([]float32, 8)

	consumed, written := r.Resample(input, output)
	if written != 8 {
		t.Fatalf("expected 8 samples written, got %d", written)
	}
	if consumed != 2 {
		t.Errorf("expected 2 frames consumed, got %d", consumed)
	}

	want := []float32{0, 1, 0.5, 0.5, 1, 0, 0.5, 0.5}
	for i := range want {
		if math.Abs(float64(output[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], output[i])
		}
	}
}

func TestSetRatioPitch(t *testing.T) {
	tests := []struct {
		name  string
		in    int
		out   int
		pitch float64
		want  float64
	}{
		{"identity", 44100, 44100, 1, 1},
		{"octave up", 44100, 44100, 2, 2},
		{"rate and pitch", 22050, 44100, 1.5, 0.75},
		{"invalid pitch", 44100, 44100, 0, 1},
		{"invalid rate", 0, 44100, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(44100, 44100, 1)
			r.SetRatio(tt.in, tt.out, tt.pitch)
			if r.Ratio() != tt.want {
				t.Errorf("expected ratio %v, got %v", tt.want, r.Ratio())
			}
		})
	}
}

func TestResampleChunked(t *testing.T) {
	r := New(44100, 44100, 1)
	r.SetRatio(44100, 44100, 2)

	input := make([]float32, 100)
	for i := range input {
		input[i] = float32(i)
	}

	pos := 0
	var got []float32
	out := make([]float32, 7)
	for pos < len(input)-1 {
		consumed, written := r.Resample(input[pos:], out)
		got = append(got, out[:written]...)
		if consumed == 0 {
			break
		}
		pos += consumed
	}

	// Every other input frame, ending before the held-back last frame
	for i, v := range got {
		if v != float32(i*2) {
			t.Fatalf("sample %d: expected %v, got %v", i, float32(i*2), v)
		}
	}
	if len(got) != 50 {
		t.Errorf("expected 50 samples, got %d", len(got))
	}
}

func TestReset(t *testing.T) {
	r := New(22050, 44100, 1)
	r.Resample([]float32{0, 1, 2}, make([]float32, 3))
	r.Reset()

	output := make([]float32, 1)
	r.Resample([]float32{0.25, 0.75}, output)
	if output[0] != 0.25 {
		t.Errorf("expected reset to start at frame 0, got %v", output[0])
	}
}
