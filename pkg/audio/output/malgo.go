// ABOUTME: Malgo-based sink for the software mixer
// ABOUTME: Uses miniaudio via malgo; the device callback pulls the Mixer directly
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoSink drives a Mixer from a miniaudio playback device
type MalgoSink struct {
	mixer    *Mixer
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	samples  []float32
	mu       sync.Mutex
}

// NewMalgoSink opens the default playback device
func NewMalgoSink(m *Mixer) (*MalgoSink, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	s := &MalgoSink{
		mixer:    m,
		malgoCtx: ctx,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 2
	deviceConfig.SampleRate = uint32(m.SampleRate())
	deviceConfig.Alsa.NoMMap = 1

	onSamples := func(pOutputSample, pInputSamples []byte, frameCount uint32) {
		s.dataCallback(pOutputSample, frameCount)
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		s.freeContext()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		s.freeContext()
		return nil, fmt.Errorf("failed to start device: %w", err)
	}

	s.device = device
	m.AttachSink(s)

	log.Printf("Audio output initialized: %dHz stereo float32 (malgo)", m.SampleRate())
	return s, nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (s *MalgoSink) dataCallback(pOutput []byte, frameCount uint32) {
	total := int(frameCount) * 2
	if cap(s.samples) < total {
		s.samples = make([]float32, total)
	}
	samples := s.samples[:total]

	s.mixer.Mix(samples)

	for i, sample := range samples {
		binary.LittleEndian.PutUint32(pOutput[i*4:], math.Float32bits(sample))
	}
}

// Suspend stops the device
func (s *MalgoSink) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return ErrClosed
	}
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

// Resume restarts the device
func (s *MalgoSink) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return ErrClosed
	}
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

// Close releases device and context
func (s *MalgoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device != nil {
		if err := s.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		s.device.Uninit()
		s.device = nil
	}
	s.freeContext()
	return nil
}

func (s *MalgoSink) freeContext() {
	if s.malgoCtx == nil {
		return
	}
	if err := s.malgoCtx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	s.malgoCtx.Free()
	s.malgoCtx = nil
}
