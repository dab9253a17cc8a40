// ABOUTME: Real-time sink without a sound card
// ABOUTME: Pulls the Mixer on a ticker so voices advance and finish on headless hosts
package output

import (
	"sync"
	"time"
)

// TickerSink renders the Mixer into a discarded buffer at wall-clock pace
type TickerSink struct {
	mixer  *Mixer
	period time.Duration

	mu        sync.Mutex
	suspended bool
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewTickerSink starts pulling m every period
func NewTickerSink(m *Mixer, period time.Duration) *TickerSink {
	if period <= 0 {
		period = 10 * time.Millisecond
	}

	s := &TickerSink{
		mixer:  m,
		period: period,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	m.AttachSink(s)
	go s.run()
	return s
}

func (s *TickerSink) run() {
	defer close(s.done)

	frames := s.mixer.SampleRate() * int(s.period) / int(time.Second)
	buf := make([]float32, frames*2)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			suspended := s.suspended
			s.mu.Unlock()
			if !suspended {
				s.mixer.Mix(buf)
			}
		}
	}
}

// Suspend stops pulling
func (s *TickerSink) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = true
	return nil
}

// Resume continues pulling
func (s *TickerSink) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = false
	return nil
}

// Close stops the ticker goroutine and waits for it
func (s *TickerSink) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
	return nil
}
