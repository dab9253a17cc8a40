// ABOUTME: Audio session interruption handling
// ABOUTME: Pause records intent only; resume replays parameters, deferred stops and music
package server

import (
	"log"
	"time"
)

// pausePollInterval is how often the requesting goroutine checks the flag
const pausePollInterval = 5 * time.Millisecond

// BeginInterruption pauses the mixer and waits, bounded, for the audio
// goroutine to acknowledge. Safe from any goroutine except the audio one.
func (s *Server) BeginInterruption() {
	if !s.post(s.pause) {
		return
	}
	if !s.waitPaused(true) {
		log.Printf("Warning: timed out after %v waiting for audio to pause", s.config.PauseTimeout)
	}
}

// EndInterruption resumes the mixer and waits, bounded, for acknowledgement
func (s *Server) EndInterruption() {
	if !s.post(s.resume) {
		return
	}
	if !s.waitPaused(false) {
		log.Printf("Warning: timed out after %v waiting for audio to resume", s.config.PauseTimeout)
	}
}

// Paused reports whether the mixer is paused
func (s *Server) Paused() bool {
	return s.paused.Load()
}

func (s *Server) waitPaused(want bool) bool {
	deadline := time.Now().Add(s.config.PauseTimeout)
	for s.paused.Load() != want {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pausePollInterval)
	}
	return true
}

// pause runs on the audio goroutine
func (s *Server) pause() {
	if s.paused.Load() {
		s.assertf("audio paused twice")
		return
	}

	if err := s.device.Suspend(); err != nil {
		log.Printf("Warning: failed to suspend audio device: %v", err)
	}
	s.paused.Store(true)
	s.logf("Audio paused")
}

// resume runs on the audio goroutine
func (s *Server) resume() {
	if !s.paused.Load() {
		s.assertf("audio resumed while not paused")
		return
	}

	if err := s.device.Resume(); err != nil {
		log.Printf("Warning: failed to resume audio device: %v", err)
	}
	s.paused.Store(false)
	s.applyListener()

	for _, src := range s.sources {
		if !src.valid {
			continue
		}
		src.applyAll()

		// Stops requested while paused
		if !src.wantPlay && src.playing {
			src.stopHardware()
			continue
		}

		// Music and loops that wanted to play during the pause
		if src.wantPlay && !src.playing && !src.awaitingLoad && (src.isMusic || src.looping) {
			src.start()
		}
	}
	s.logf("Audio resumed")
}
