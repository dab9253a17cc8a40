// ABOUTME: Adaptive tick interval state machine
// ABOUTME: Idle, Fading or Loading decides how often the audio goroutine wakes
package server

import "time"

// TickState selects the processing interval
type TickState int

const (
	// Idle: nothing time critical pending
	Idle TickState = iota
	// Fading: fades or streams need regular updates
	Fading
	// Loading: sounds are waiting on asset loads
	Loading
)

func (t TickState) String() string {
	switch t {
	case Idle:
		return "idle"
	case Fading:
		return "fading"
	case Loading:
		return "loading"
	default:
		return "unknown"
	}
}

// nextTickState picks the state from pending work, most urgent first
func nextTickState(loading, fading bool) TickState {
	switch {
	case loading:
		return Loading
	case fading:
		return Fading
	default:
		return Idle
	}
}

// interval returns the timer period for a state
func (c Config) interval(state TickState) time.Duration {
	switch state {
	case Loading:
		return c.LoadInterval
	case Fading:
		return c.FadeInterval
	default:
		return c.IdleInterval
	}
}

// computeTickState inspects the server. Audio goroutine only.
func (s *Server) computeTickState() TickState {
	loading := s.lib.HasPendingLoads()
	if !loading {
		for _, src := range s.sources {
			if src.awaitingLoad {
				loading = true
				break
			}
		}
	}
	return nextTickState(loading, len(s.fades) > 0 || len(s.streamers) > 0)
}
