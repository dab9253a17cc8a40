// ABOUTME: Argument parsing and upload encoding for voicepool-ctl
// ABOUTME: Parses handles and vectors, and turns local audio files into upload packets
package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/Resonate-Protocol/voicepool/internal/server"
	"github.com/Resonate-Protocol/voicepool/pkg/audio"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/decode"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/encode"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/resample"
	"github.com/Resonate-Protocol/voicepool/pkg/protocol"
)

// opusRate is the rate uploads are resampled to before Opus encoding
const opusRate = 48000

// parseInterspersed parses flags that may appear after positional arguments
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// parseHandle accepts a raw handle (decimal or 0x hex) or slot:generation
func parseHandle(s string) (uint32, error) {
	if slot, gen, ok := strings.Cut(s, ":"); ok {
		si, err := strconv.Atoi(slot)
		if err != nil {
			return 0, fmt.Errorf("invalid slot in handle %q: %w", s, err)
		}
		gi, err := strconv.Atoi(gen)
		if err != nil {
			return 0, fmt.Errorf("invalid generation in handle %q: %w", s, err)
		}
		return uint32(server.NewPlayHandle(gi, si)), nil
	}

	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid handle %q: %w", s, err)
	}
	return uint32(v), nil
}

func handleArg(args []string) (uint32, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one <handle> argument")
	}
	return parseHandle(args[0])
}

// parseVec parses "x,y,z"
func parseVec(s string) ([3]float64, error) {
	var v [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z, got %q", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return v, fmt.Errorf("invalid component %q: %w", p, err)
		}
		v[i] = f
	}
	return v, nil
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return &f, nil
}

// encodeFile decodes path and encodes it into upload packets
func encodeFile(name, path, codec string) (protocol.SoundUpload, error) {
	stream, err := decode.Open(path)
	if err != nil {
		return protocol.SoundUpload{}, err
	}
	defer stream.Close()

	samples, err := decode.ReadAll(stream)
	if err != nil {
		return protocol.SoundUpload{}, fmt.Errorf("decode %s: %w", path, err)
	}
	src := stream.Format()

	format := audio.Format{
		Codec:      codec,
		SampleRate: src.SampleRate,
		Channels:   src.Channels,
	}
	switch codec {
	case "pcm":
		format.BitDepth = 16
		if src.BitDepth == 24 {
			format.BitDepth = 24
		}
	case "opus":
		if src.SampleRate != opusRate {
			samples = resampleAll(samples, src.SampleRate, opusRate, src.Channels)
			format.SampleRate = opusRate
		}
	default:
		return protocol.SoundUpload{}, fmt.Errorf("unsupported upload codec %q (pcm or opus)", codec)
	}

	enc, err := encode.New(format)
	if err != nil {
		return protocol.SoundUpload{}, err
	}
	defer enc.Close()

	packets, err := encode.Packets(enc, samples)
	if err != nil {
		return protocol.SoundUpload{}, fmt.Errorf("encode %s: %w", path, err)
	}

	return protocol.SoundUpload{
		Name:       name,
		Codec:      format.Codec,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		BitDepth:   format.BitDepth,
		Packets:    packets,
	}, nil
}

// resampleAll converts a whole clip in one pass
func resampleAll(samples []float32, from, to, channels int) []float32 {
	r := resample.New(from, to, channels)
	out := make([]float32, r.OutputSamplesNeeded(len(samples)))
	_, n := r.Resample(samples, out)
	return out[:n]
}
