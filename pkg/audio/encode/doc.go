// ABOUTME: Audio encoder package for uploading sounds to a voicepool daemon
// ABOUTME: Provides Encoder interface and implementations for PCM, Opus
// Package encode turns float32 PCM into the wire formats accepted by the
// remote sound upload message.
//
// Supports: PCM (16-bit and 24-bit), Opus
//
// Opus encodes exactly one frame per call; use FrameSamples to chunk input.
//
// Example:
//
//	encoder, err := encode.NewPCM(format)
//	data, err := encoder.Encode(samples)
package encode
