// ABOUTME: Per-slot client lock
// ABOUTME: Bounded try-lock with a diagnostic tag and hold timestamp for leak checks
package server

import (
	"sync"
	"time"
)

// clientLock guards a slot while the logic thread holds a Ticket for it.
// The holder tag is diagnostic only.
type clientLock struct {
	mu sync.Mutex

	infoMu sync.Mutex
	held   bool
	tag    string
	since  time.Time
}

// tryLock makes one non-blocking attempt
func (l *clientLock) tryLock(tag string, now time.Time) bool {
	if !l.mu.TryLock() {
		return false
	}
	l.setHolder(tag, now)
	return true
}

// lockBounded retries up to attempts times, sleeping delay between tries
func (l *clientLock) lockBounded(tag string, attempts int, delay time.Duration, clock Clock) bool {
	for i := 0; i < attempts; i++ {
		if l.tryLock(tag, clock.Now()) {
			return true
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return false
}

func (l *clientLock) unlock() {
	l.infoMu.Lock()
	l.held = false
	l.tag = ""
	l.infoMu.Unlock()

	l.mu.Unlock()
}

func (l *clientLock) setHolder(tag string, now time.Time) {
	l.infoMu.Lock()
	defer l.infoMu.Unlock()
	l.held = true
	l.tag = tag
	l.since = now
}

// holder returns the current holder's tag and when it took the lock
func (l *clientLock) holder() (tag string, since time.Time, held bool) {
	l.infoMu.Lock()
	defer l.infoMu.Unlock()
	return l.tag, l.since, l.held
}
