// ABOUTME: Logic-thread tickets for claiming and commanding pool slots
// ABOUTME: Every command is posted to the audio goroutine; End releases the claim
package server

import (
	"log"

	"github.com/Resonate-Protocol/voicepool/pkg/audio/asset"
)

// Ticket is a logic-thread claim on one slot. Commands issued through it run
// on the audio goroutine in order. Call End exactly once.
type Ticket struct {
	server *Server
	src    *Source
	gen    int
	tag    string
	ended  bool
}

// SourceBeginNew claims an available slot, or returns nil when the pool is
// exhausted. Never blocks on the audio goroutine.
func (s *Server) SourceBeginNew(tag string) *Ticket {
	if s.closed.Load() {
		return nil
	}

	s.availMu.Lock()
	if len(s.available) == 0 {
		s.availMu.Unlock()
		s.metrics.PlayDropped("exhausted")
		return nil
	}
	src := s.available[0]
	s.available = s.available[1:]
	src.available = false
	src.clientQueue.Add(1)
	s.availMu.Unlock()

	// Only a brief availability check or status query can race us here
	if !src.lock.lockBounded(tag, s.config.LockAttempts, s.config.LockRetryDelay, s.clock) {
		log.Printf("Warning: could not lock new slot %d for %q", src.index, tag)
		s.releaseQueue(src)
		s.metrics.PlayDropped("locked")
		return nil
	}

	return &Ticket{
		server: s,
		src:    src,
		gen:    int(src.generation.Load()),
		tag:    tag,
	}
}

// SourceBeginExisting re-claims the slot still playing h. Returns nil when
// the handle is stale or the slot cannot be locked in time.
func (s *Server) SourceBeginExisting(h PlayHandle, tag string) *Ticket {
	src := s.sourceFor(h)
	if src == nil {
		return nil
	}

	if !src.lock.lockBounded(tag, s.config.LockAttempts, s.config.LockRetryDelay, s.clock) {
		log.Printf("Warning: could not lock slot %d for %q", src.index, tag)
		return nil
	}

	s.availMu.Lock()
	available := src.available
	s.availMu.Unlock()

	if available || int(src.generation.Load()) != h.Generation() {
		src.lock.unlock()
		s.metrics.staleHandles.Inc()
		return nil
	}

	src.clientQueue.Add(1)
	return &Ticket{
		server: s,
		src:    src,
		gen:    h.Generation(),
		tag:    tag,
	}
}

// IsSoundPlaying reports whether h still refers to a playback that wants to
// play. Safe from the logic thread.
func (s *Server) IsSoundPlaying(h PlayHandle) bool {
	src := s.sourceFor(h)
	if src == nil {
		return false
	}

	if !src.lock.lockBounded("IsSoundPlaying", s.config.LockAttempts, s.config.LockRetryDelay, s.clock) {
		return false
	}
	defer src.lock.unlock()

	return int(src.generation.Load()) == h.Generation() && src.active.Load()
}

func (s *Server) sourceFor(h PlayHandle) *Source {
	if !h.Valid() || h.Slot() >= len(s.sources) {
		return nil
	}
	src := s.sources[h.Slot()]
	if !src.valid {
		return nil
	}
	return src
}

func (s *Server) releaseQueue(src *Source) {
	if !s.post(func() {
		src.clientQueue.Add(-1)
	}) {
		src.clientQueue.Add(-1)
	}
}

// Handle returns the play handle this ticket addresses
func (t *Ticket) Handle() PlayHandle {
	return NewPlayHandle(t.gen, t.src.index)
}

// Slot returns the claimed slot index
func (t *Ticket) Slot() int {
	return t.src.index
}

// do posts fn for the claimed slot, skipping it if the slot was recycled
func (t *Ticket) do(fn func(src *Source)) bool {
	if t.ended {
		log.Printf("Warning: ticket %q used after End", t.tag)
		return false
	}
	src, gen := t.src, t.gen
	return t.server.post(func() {
		if int(src.generation.Load()) != gen {
			return
		}
		fn(src)
	})
}

// SetGain sets the playback gain
func (t *Ticket) SetGain(gain float64) {
	t.do(func(src *Source) { src.SetGain(gain) })
}

// SetPitch sets the playback pitch
func (t *Ticket) SetPitch(pitch float64) {
	t.do(func(src *Source) { src.SetPitch(pitch) })
}

// SetPosition places the sound; each axis is clamped
func (t *Ticket) SetPosition(x, y, z float64) {
	t.do(func(src *Source) { src.SetPosition(x, y, z) })
}

// SetLooping sets whether the sound repeats
func (t *Ticket) SetLooping(loop bool) {
	t.do(func(src *Source) { src.SetLooping(loop) })
}

// SetPositional toggles 3D placement
func (t *Ticket) SetPositional(positional bool) {
	t.do(func(src *Source) { src.SetPositional(positional) })
}

// SetIsMusic routes the slot through the music volume
func (t *Ticket) SetIsMusic(music bool) {
	t.do(func(src *Source) { src.SetIsMusic(music) })
}

// Stop stops the slot
func (t *Ticket) Stop() {
	t.do(func(src *Source) { src.Stop() })
}

// Play retains sound and starts it on the slot. Returns InvalidHandle if the
// ticket already ended or the server is shutting down.
func (t *Ticket) Play(sound *asset.Sound) PlayHandle {
	if sound == nil || t.ended {
		return InvalidHandle
	}

	lib := t.server.lib
	lib.Retain(sound)

	src, gen := t.src, t.gen
	ok := t.server.post(func() {
		if int(src.generation.Load()) != gen {
			lib.Return(sound)
			return
		}
		// Reclaim slots that finished since the last tick
		t.server.updateAvailability()
		src.Play(sound)
	})
	if !ok {
		lib.Return(sound)
		return InvalidHandle
	}
	return t.Handle()
}

// End releases the claim. The slot may be recycled once queued commands ran.
func (t *Ticket) End() {
	if t.ended {
		return
	}
	t.ended = true
	t.src.lock.unlock()
	t.server.releaseQueue(t.src)
}
