// ABOUTME: Client lock leak detection
// ABOUTME: Logs slots whose ticket has been held past the threshold without reclaiming them
package server

import (
	"log"
	"time"
)

// LockLeak describes a slot held by a client for too long
type LockLeak struct {
	Slot int
	Tag  string
	Held time.Duration
}

// checkLeaks logs and returns slots held longer than LeakThreshold
func (s *Server) checkLeaks(now time.Time) []LockLeak {
	var leaks []LockLeak
	for _, src := range s.sources {
		tag, since, held := src.lock.holder()
		if !held || tag == availabilityTag {
			continue
		}
		if d := now.Sub(since); d > s.config.LeakThreshold {
			leaks = append(leaks, LockLeak{Slot: src.index, Tag: tag, Held: d})
		}
	}

	for _, l := range leaks {
		log.Printf("Warning: slot %d client lock held for %v by %q (missing End?)", l.Slot, l.Held, l.Tag)
		s.metrics.lockLeaks.Inc()
	}
	return leaks
}

// maybeCheckLeaks runs checkLeaks when due
func (s *Server) maybeCheckLeaks(now time.Time) {
	if s.config.LeakCheckInterval <= 0 {
		return
	}
	if now.Sub(s.lastLeakCheck) < s.config.LeakCheckInterval {
		return
	}
	s.lastLeakCheck = now
	s.checkLeaks(now)
}
