// ABOUTME: Tests for voicepool-ctl argument parsing and upload encoding
// ABOUTME: Uses go-audio/wav fixtures so uploads go through the real decoders
package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, rate, frames int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	data := make([]int, frames)
	for i := range data {
		data[i] = 1000
	}

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func TestParseHandle(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"65538", 65538, false},
		{"0x10002", 0x10002, false},
		{"2:1", 0x10002, false},
		{"0:0", 0, false},
		{"x:1", 0, true},
		{"2:y", 0, true},
		{"-1", 0, true},
		{"hello", 0, true},
	}

	for _, tt := range tests {
		got, err := parseHandle(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseHandle(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseHandle(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseHandle(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestParseVec(t *testing.T) {
	tests := []struct {
		in      string
		want    [3]float64
		wantErr bool
	}{
		{"1,2,3", [3]float64{1, 2, 3}, false},
		{" 0.5, -4.5 ,3", [3]float64{0.5, -4.5, 3}, false},
		{"1,2", [3]float64{}, true},
		{"1,b,3", [3]float64{}, true},
	}

	for _, tt := range tests {
		got, err := parseVec(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseVec(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseVec(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseInterspersed(t *testing.T) {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	volume := fs.Float64("volume", 1, "")
	music := fs.Bool("music", false, "")

	pos, err := parseInterspersed(fs, []string{"theme", "-volume", "0.5", "-music"})
	if err != nil {
		t.Fatalf("parseInterspersed: %v", err)
	}
	if len(pos) != 1 || pos[0] != "theme" {
		t.Errorf("expected [theme], got %v", pos)
	}
	if *volume != 0.5 || !*music {
		t.Errorf("expected flags after positional to parse, got volume=%v music=%v", *volume, *music)
	}
}

func TestOptionalFloat(t *testing.T) {
	if v, err := optionalFloat(""); v != nil || err != nil {
		t.Errorf("expected nil for empty input, got %v %v", v, err)
	}
	if v, err := optionalFloat("2.5"); err != nil || v == nil || *v != 2.5 {
		t.Errorf("expected 2.5, got %v %v", v, err)
	}
	if _, err := optionalFloat("loud"); err == nil {
		t.Error("expected error for non-number")
	}
}

func TestEncodeFilePCM(t *testing.T) {
	path := writeWAV(t, 8000, 800)

	up, err := encodeFile("click", path, "pcm")
	if err != nil {
		t.Fatalf("encodeFile: %v", err)
	}
	if up.Name != "click" || up.Codec != "pcm" {
		t.Errorf("unexpected upload header %+v", up)
	}
	if up.SampleRate != 8000 || up.Channels != 1 || up.BitDepth != 16 {
		t.Errorf("expected 8000Hz mono 16-bit, got %dHz %dch %d-bit", up.SampleRate, up.Channels, up.BitDepth)
	}

	total := 0
	for _, p := range up.Packets {
		total += len(p)
	}
	if total != 800*2 {
		t.Errorf("expected %d PCM bytes, got %d", 800*2, total)
	}
}

func TestEncodeFileOpusResamples(t *testing.T) {
	path := writeWAV(t, 24000, 2400)

	up, err := encodeFile("click", path, "opus")
	if err != nil {
		t.Fatalf("encodeFile: %v", err)
	}
	if up.SampleRate != opusRate {
		t.Errorf("expected upload at %d Hz, got %d", opusRate, up.SampleRate)
	}
	if len(up.Packets) == 0 {
		t.Error("expected opus packets")
	}
}

func TestEncodeFileErrors(t *testing.T) {
	path := writeWAV(t, 8000, 80)

	if _, err := encodeFile("x", path, "aac"); err == nil {
		t.Error("expected error for unsupported codec")
	}
	if _, err := encodeFile("x", filepath.Join(t.TempDir(), "missing.wav"), "pcm"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResampleAll(t *testing.T) {
	in := make([]float32, 1000)
	out := resampleAll(in, 24000, 48000, 1)
	if len(out) < 1990 || len(out) > 2000 {
		t.Errorf("expected about 2000 samples, got %d", len(out))
	}
}
