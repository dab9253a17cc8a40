// ABOUTME: Fade processing
// ABOUTME: Linear gain ramps keyed by play handle, stopping faded-out sounds at their end time
package server

import "time"

// FadeRequest ramps one playback's fade multiplier between Start and End
type FadeRequest struct {
	Handle PlayHandle
	Start  time.Time
	End    time.Time
	Out    bool
}

// multiplier returns the fade value at now, clamped to [0, 1]
func (f *FadeRequest) multiplier(now time.Time) float64 {
	total := f.End.Sub(f.Start)
	progress := 1.0
	if total > 0 {
		progress = float64(now.Sub(f.Start)) / float64(total)
	}
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}

	if f.Out {
		return 1 - progress
	}
	return progress
}

// addFade registers a fade. Audio goroutine only.
func (s *Server) addFade(h PlayHandle, duration time.Duration, out bool) {
	src := s.validSource(h)
	if src == nil {
		return
	}

	now := s.clock.Now()
	f := &FadeRequest{
		Handle: h,
		Start:  now,
		End:    now.Add(duration),
		Out:    out,
	}
	s.fades[h] = f

	// Fade-ins start silent right away
	if !out {
		src.SetFade(0)
	}
	s.metrics.fades.Set(float64(len(s.fades)))
}

// processFades advances every fade. Fades whose slot was recycled are dropped.
func (s *Server) processFades(now time.Time) {
	for h, f := range s.fades {
		src := s.validSource(h)
		if src == nil {
			delete(s.fades, h)
			continue
		}

		if !now.Before(f.End) {
			if f.Out {
				src.SetFade(0)
				src.Stop()
			} else {
				src.SetFade(1)
			}
			delete(s.fades, h)
			continue
		}

		src.SetFade(f.multiplier(now))
	}
	s.metrics.fades.Set(float64(len(s.fades)))
}
