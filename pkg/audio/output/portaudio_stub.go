//go:build !portaudio

// ABOUTME: PortAudio stub when the library is not compiled in
// ABOUTME: Lets the portaudio backend fail cleanly without cgo dependencies
package output

import "errors"

// ErrPortAudioDisabled is returned when built without -tags portaudio
var ErrPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudioSink is unavailable in this build
type PortAudioSink struct{}

// NewPortAudioSink always fails in this build
func NewPortAudioSink(m *Mixer) (*PortAudioSink, error) {
	return nil, ErrPortAudioDisabled
}

// Suspend is unavailable in this build
func (s *PortAudioSink) Suspend() error { return ErrPortAudioDisabled }

// Resume is unavailable in this build
func (s *PortAudioSink) Resume() error { return ErrPortAudioDisabled }

// Close is a no-op in this build
func (s *PortAudioSink) Close() error { return nil }
