//go:build portaudio

// ABOUTME: PortAudio-based sink for the software mixer
// ABOUTME: The stream callback pulls interleaved float32 stereo from the Mixer
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSink drives a Mixer from the default PortAudio stream
type PortAudioSink struct {
	stream *portaudio.Stream
	mu     sync.Mutex
}

// NewPortAudioSink opens the default output stream
func NewPortAudioSink(m *Mixer) (*PortAudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, float64(m.SampleRate()), 0, func(out []float32) {
		m.Mix(out)
	})
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start stream: %w", err)
	}

	s := &PortAudioSink{stream: stream}
	m.AttachSink(s)

	log.Printf("Audio output initialized: %dHz stereo float32 (portaudio)", m.SampleRate())
	return s, nil
}

// Suspend stops the stream
func (s *PortAudioSink) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return ErrClosed
	}
	return s.stream.Stop()
}

// Resume restarts the stream
func (s *PortAudioSink) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return ErrClosed
	}
	return s.stream.Start()
}

// Close releases the stream and PortAudio
func (s *PortAudioSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		log.Printf("Warning: portaudio stop error: %v", err)
	}
	if err := s.stream.Close(); err != nil {
		log.Printf("Warning: portaudio close error: %v", err)
	}
	s.stream = nil
	return portaudio.Terminate()
}
