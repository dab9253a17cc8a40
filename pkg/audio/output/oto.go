// ABOUTME: Oto-based sink for the software mixer
// ABOUTME: Plays the Mixer through an oto player reading float32 stereo
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// oto allows only one context per process
var (
	otoOnce    sync.Once
	otoContext *oto.Context
	otoRate    int
	otoErr     error
)

// OtoSink pulls a Mixer through oto
type OtoSink struct {
	otoCtx *oto.Context
	player *oto.Player
	mu     sync.Mutex
}

// NewOtoSink opens the default output and starts pulling the mixer
func NewOtoSink(m *Mixer) (*OtoSink, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   m.SampleRate(),
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-readyChan

		otoContext = ctx
		otoRate = m.SampleRate()
	})
	if otoErr != nil {
		return nil, otoErr
	}

	// oto doesn't support reinitialization with a new format
	if otoRate != m.SampleRate() {
		log.Printf("Warning: oto context already running at %dHz, mixer wants %dHz", otoRate, m.SampleRate())
	}

	player := otoContext.NewPlayer(m)
	player.Play()

	s := &OtoSink{
		otoCtx: otoContext,
		player: player,
	}
	m.AttachSink(s)

	log.Printf("Audio output initialized: %dHz stereo float32 (oto)", otoRate)
	return s, nil
}

// Suspend pauses the oto context
func (s *OtoSink) Suspend() error {
	if err := s.otoCtx.Suspend(); err != nil {
		return fmt.Errorf("failed to suspend oto: %w", err)
	}
	return nil
}

// Resume resumes the oto context
func (s *OtoSink) Resume() error {
	if err := s.otoCtx.Resume(); err != nil {
		return fmt.Errorf("failed to resume oto: %w", err)
	}
	return nil
}

// Close stops the player. The process-wide context stays alive.
func (s *OtoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player != nil {
		if err := s.player.Close(); err != nil {
			return fmt.Errorf("failed to close oto player: %w", err)
		}
		s.player = nil
	}
	return nil
}
