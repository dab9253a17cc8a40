// ABOUTME: Sound library bound to an owner run loop
// ABOUTME: Queues loads for the audio thread, hands references home and prunes idle sounds
package asset

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Resonate-Protocol/voicepool/internal/runloop"
	"github.com/Resonate-Protocol/voicepool/pkg/audio"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/decode"
)

// Unloader frees audio-thread resources of a sound being pruned. It must call
// done once the sound no longer has any device state.
type Unloader interface {
	UnloadSound(s *Sound, done func())
}

// Config holds library settings
type Config struct {
	// IdleTTL is how long an unused sound stays loaded. 0 disables pruning.
	IdleTTL time.Duration

	// CacheDir stores downloaded sounds
	CacheDir string

	// HTTPClient fetches remote sounds
	HTTPClient *http.Client
}

// Library owns sounds. Sound lifetime ends on the owner loop only.
type Library struct {
	owner *runloop.Loop
	ttl   time.Duration

	mu       sync.Mutex
	sounds   map[string]*Sound
	pending  []*Sound
	onLoaded []func(*Sound)
	unloader Unloader
	closed   bool

	idle    *cache.Cache
	fetcher *fetcher
	fetches sync.WaitGroup
}

// NewLibrary creates a library whose drops run on owner
func NewLibrary(owner *runloop.Loop, config Config) (*Library, error) {
	f, err := newFetcher(config.CacheDir, config.HTTPClient)
	if err != nil {
		return nil, err
	}

	l := &Library{
		owner:   owner,
		ttl:     config.IdleTTL,
		sounds:  make(map[string]*Sound),
		fetcher: f,
	}

	// No janitor: Prune drives expiry on the owner loop
	l.idle = cache.New(config.IdleTTL, 0)
	l.idle.OnEvicted(l.evicted)

	return l, nil
}

// SetUnloader installs the audio server's unload hook
func (l *Library) SetUnloader(u Unloader) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unloader = u
}

// OnLoaded registers a callback run on the owner loop after each load finishes
func (l *Library) OnLoaded(fn func(*Sound)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onLoaded = append(l.onLoaded, fn)
}

// Load registers a sound and queues it for decoding. Streamed sounds are
// only probed for their format; playback decodes them incrementally.
func (l *Library) Load(name, path string, streamed bool) (*Sound, error) {
	s := newSound(name, path, streamed)
	if err := l.register(s); err != nil {
		return nil, err
	}

	if isRemote(path) {
		l.fetches.Add(1)
		go l.fetchThenQueue(s)
		return s, nil
	}

	l.queue(s)
	return s, nil
}

// AddPCM registers an already decoded sound
func (l *Library) AddPCM(name string, format audio.Format, samples []float32) (*Sound, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format for %s: %w", name, err)
	}

	s := newSound(name, "", false)
	s.format = format
	s.samples = samples
	if err := l.register(s); err != nil {
		return nil, err
	}

	s.loaded.Store(true)
	l.postLoaded(s)
	return s, nil
}

// Get returns the sound registered under name
func (l *Library) Get(name string) (*Sound, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sounds[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s, nil
}

// Sounds returns every registered sound
func (l *Library) Sounds() []*Sound {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*Sound, 0, len(l.sounds))
	for _, s := range l.sounds {
		out = append(out, s)
	}
	return out
}

func (l *Library) register(s *Sound) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLibraryClosed
	}
	if _, ok := l.sounds[s.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, s.Name)
	}
	l.sounds[s.Name] = s
	return nil
}

func (l *Library) queue(s *Sound) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, s)
}

func (l *Library) fetchThenQueue(s *Sound) {
	defer l.fetches.Done()

	local, err := l.fetcher.fetch(s.Path)
	if err != nil {
		log.Printf("Failed to fetch sound %s: %v", s.Name, err)
		s.loadErr = err
		s.failed.Store(true)
		l.postLoaded(s)
		return
	}

	s.Path = local
	l.queue(s)
}

// HasPendingLoads reports whether RunPendingLoads has work
func (l *Library) HasPendingLoads() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending) > 0
}

// RunPendingLoads decodes up to max queued sounds. Called on the audio thread.
// Returns how many loads finished (successfully or not).
func (l *Library) RunPendingLoads(max int) int {
	l.mu.Lock()
	n := len(l.pending)
	if max > 0 && n > max {
		n = max
	}
	batch := make([]*Sound, n)
	copy(batch, l.pending)
	l.pending = l.pending[n:]
	l.mu.Unlock()

	for _, s := range batch {
		if err := decodeSound(s); err != nil {
			log.Printf("Failed to load sound %s: %v", s.Name, err)
			s.loadErr = err
			s.failed.Store(true)
		} else {
			s.loaded.Store(true)
		}
		l.postLoaded(s)
	}
	return n
}

func decodeSound(s *Sound) error {
	stream, err := decode.Open(s.Path)
	if err != nil {
		return err
	}
	defer stream.Close()

	s.format = stream.Format()
	if s.Streamed {
		return nil
	}

	samples, err := decode.ReadAll(stream)
	if err != nil {
		return err
	}
	s.samples = samples
	return nil
}

// postLoaded notifies the owner loop that s finished loading
func (l *Library) postLoaded(s *Sound) {
	l.post(func() {
		if s.Loaded() && l.ttl > 0 && !s.Evicted() {
			l.idle.Set(s.Name, s, cache.DefaultExpiration)
		}

		l.mu.Lock()
		callbacks := append([]func(*Sound){}, l.onLoaded...)
		l.mu.Unlock()

		for _, fn := range callbacks {
			fn(s)
		}
	})
}

// Retain adds a reference. Safe on any thread.
func (l *Library) Retain(s *Sound) *Sound {
	s.refs.Add(1)
	return s
}

// Return hands a reference back to the owner loop, which drops it there.
// Safe on any thread.
func (l *Library) Return(s *Sound) {
	l.post(func() {
		l.drop(s)
	})
}

// drop releases one reference. Owner loop only.
func (l *Library) drop(s *Sound) {
	refs := s.refs.Add(-1)

	switch {
	case refs < 0:
		log.Printf("Warning: sound %s dropped below zero references", s)
	case refs == 0:
		// Final drop
		s.samples = nil
	case refs == 1 && l.ttl > 0 && s.Loaded() && !s.Evicted():
		// Only the library holds it now; start the idle clock
		l.idle.Set(s.Name, s, cache.DefaultExpiration)
	}
}

func (l *Library) post(fn func()) {
	if !l.owner.Post(fn) {
		// Owner loop already gone at shutdown; nothing else can race us
		fn()
	}
}

// Pump runs owner-loop work. Call it from the owner goroutine when the loop
// is not driven by Run.
func (l *Library) Pump() int {
	return l.owner.RunPending()
}

// Prune starts unloading sounds idle past the TTL. Owner loop only.
func (l *Library) Prune() {
	l.idle.DeleteExpired()
}

// evicted runs inside Prune for each expired idle sound
func (l *Library) evicted(name string, v interface{}) {
	s, ok := v.(*Sound)
	if !ok {
		return
	}

	// Back in use since it went idle
	if s.Refs() > 1 {
		return
	}

	l.mu.Lock()
	if cur, ok := l.sounds[name]; ok && cur == s {
		delete(l.sounds, name)
	}
	unloader := l.unloader
	l.mu.Unlock()

	s.evicted.Store(true)
	log.Printf("Pruning idle sound %s", s)

	// Temporary reference for the trip to the audio thread and back
	l.Retain(s)
	finish := func() {
		l.Return(s) // temporary
		l.Return(s) // library's own
	}

	if unloader == nil {
		finish()
		return
	}
	unloader.UnloadSound(s, finish)
}

// Close waits for in-flight downloads and rejects new sounds
func (l *Library) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.fetches.Wait()
}
