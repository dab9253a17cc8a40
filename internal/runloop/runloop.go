// ABOUTME: Single-consumer closure queue bound to one goroutine
// ABOUTME: Used for the logic thread that owns assets and embedded by the audio server
package runloop

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// Loop runs posted closures in FIFO order on whichever goroutine drains it.
// Concurrent drains are serialized; InLoop is true only on the draining goroutine.
type Loop struct {
	name string

	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}

	drainMu sync.Mutex
	drainer atomic.Int64 // goroutine id, 0 when idle
}

// New creates a loop
func New(name string) *Loop {
	return &Loop{
		name: name,
		wake: make(chan struct{}, 1),
	}
}

// Name returns the loop's diagnostic name
func (l *Loop) Name() string {
	return l.name
}

// Post queues fn. Returns false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Wake fires after Post. Owners select on it alongside their timers.
func (l *Loop) Wake() <-chan struct{} {
	return l.wake
}

// Len returns the number of queued closures
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// RunPending runs everything queued so far and returns how many ran.
// Closures posted while draining run in the same call.
func (l *Loop) RunPending() int {
	gid := goroutineID()
	if l.drainer.Load() != gid {
		l.drainMu.Lock()
		l.drainer.Store(gid)
		defer func() {
			l.drainer.Store(0)
			l.drainMu.Unlock()
		}()
	}

	ran := 0
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			fn()
			ran++
		}
	}
}

// InLoop reports whether the calling goroutine is draining the loop.
// Used for debug assertions and inline drains.
func (l *Loop) InLoop() bool {
	return l.drainer.Load() == goroutineID()
}

// goroutineID parses the id from the "goroutine N [running]:" stack header
func goroutineID() int64 {
	var buf [64]byte
	b := bytes.TrimPrefix(buf[:runtime.Stack(buf[:], false)], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return -1
	}
	return id
}

// Run drains the queue until ctx is cancelled, then runs what is left
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.RunPending()
			return
		case <-l.wake:
			l.RunPending()
		}
	}
}

// Close rejects further posts. Already queued closures still run.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

// Closed reports whether Close was called
func (l *Loop) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
