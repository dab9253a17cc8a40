// ABOUTME: Slot availability tracking
// ABOUTME: Recycles finished slots, bumps generations and publishes them for SourceBeginNew
package server

import (
	"fmt"
	"log"
)

// availabilityTag marks the audio goroutine's own brief hold of a client lock
const availabilityTag = "availability"

// updateAvailability refreshes every slot
func (s *Server) updateAvailability() {
	if s.paused.Load() {
		return
	}
	for _, src := range s.sources {
		src.updateAvailability()
	}
}

// updateAvailability recycles the slot if nothing needs it any more
func (src *Source) updateAvailability() {
	s := src.server
	if !src.valid || s.paused.Load() {
		return
	}

	s.availMu.Lock()
	available := src.available
	s.availMu.Unlock()
	if available {
		return
	}

	// A client holds a ticket for this slot
	if !src.lock.tryLock(availabilityTag, s.clock.Now()) {
		return
	}
	defer src.lock.unlock()

	// Commands are still queued for it
	if src.clientQueue.Load() > 0 {
		return
	}

	if src.busy() {
		return
	}

	src.Reset()
	src.bumpGeneration()

	s.availMu.Lock()
	src.available = true
	s.available = append(s.available, src)
	s.availMu.Unlock()
}

// busy reports whether the slot must not be recycled. A slot that wants to
// loop stays busy through momentary silence.
func (src *Source) busy() bool {
	if !src.wantPlay {
		return false
	}
	if src.awaitingLoad || src.looping {
		return true
	}
	if src.streamer != nil && !src.streamer.Finished() {
		return true
	}
	return src.hardwarePlaying()
}

func (src *Source) bumpGeneration() {
	s := src.server
	old := src.Handle()
	next := (int(src.generation.Load()) + 1) % s.config.GenerationModulus
	src.generation.Store(int32(next))

	if src.Handle() == old {
		s.assertf("slot %d generation wrapped onto its previous handle %s", src.index, old)
	}
	s.metrics.recycled.Inc()
}

// validSource resolves a handle on the audio goroutine. The slot is
// refreshed first so a sound that just ended reads as stale.
func (s *Server) validSource(h PlayHandle) *Source {
	if !h.Valid() {
		return nil
	}
	idx := h.Slot()
	if idx < 0 || idx >= len(s.sources) {
		return nil
	}

	src := s.sources[idx]
	src.updateAvailability()
	if int(src.generation.Load()) != h.Generation() {
		s.metrics.staleHandles.Inc()
		return nil
	}
	return src
}

// availableCount returns how many slots are waiting in the available list
func (s *Server) availableCount() int {
	s.availMu.Lock()
	defer s.availMu.Unlock()
	return len(s.available)
}

func (s *Server) assertf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if s.config.StrictAsserts {
		panic(msg)
	}
	log.Printf("Assertion failed: %s", msg)
}
