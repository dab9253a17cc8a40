// ABOUTME: Sound asset definition
// ABOUTME: Immutable-once-loaded PCM with reference count and last-play timestamp
package asset

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/voicepool/pkg/audio"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/decode"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/output"
)

// Sound is one playable asset. Format and samples are written once before
// Loaded reports true and never change afterwards.
type Sound struct {
	ID       uuid.UUID
	Name     string
	Path     string
	Streamed bool

	format  audio.Format
	samples []float32
	loadErr error

	loaded  atomic.Bool
	failed  atomic.Bool
	evicted atomic.Bool

	lastPlay atomic.Int64
	refs     atomic.Int32

	// Audio thread only
	buffer output.Buffer
}

func newSound(name, path string, streamed bool) *Sound {
	s := &Sound{
		ID:       uuid.New(),
		Name:     name,
		Path:     path,
		Streamed: streamed,
	}
	// The library's own reference
	s.refs.Store(1)
	return s
}

// Loaded reports whether decoding finished successfully
func (s *Sound) Loaded() bool {
	return s.loaded.Load()
}

// Failed reports whether decoding failed
func (s *Sound) Failed() bool {
	return s.failed.Load()
}

// Err returns the load error, if any. Valid once Failed is true.
func (s *Sound) Err() error {
	if !s.failed.Load() {
		return nil
	}
	return s.loadErr
}

// Evicted reports whether the sound was pruned from its library
func (s *Sound) Evicted() bool {
	return s.evicted.Load()
}

// Format returns the decoded format. Valid once Loaded is true.
func (s *Sound) Format() audio.Format {
	return s.format
}

// Samples returns interleaved PCM for preloaded sounds
func (s *Sound) Samples() ([]float32, error) {
	if !s.loaded.Load() {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, s.Name)
	}
	return s.samples, nil
}

// Duration returns the play time of a preloaded sound
func (s *Sound) Duration() time.Duration {
	if !s.loaded.Load() || s.format.Channels == 0 {
		return 0
	}
	return s.format.Duration(len(s.samples) / s.format.Channels)
}

// OpenStream opens a fresh decoder over the sound's file
func (s *Sound) OpenStream() (decode.Stream, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("sound %s has no file to stream", s.Name)
	}
	return decode.Open(s.Path)
}

// Refs returns the current reference count
func (s *Sound) Refs() int32 {
	return s.refs.Load()
}

// LastPlay returns when the sound was last triggered
func (s *Sound) LastPlay() time.Time {
	ns := s.lastPlay.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// TryTrigger records a play at now unless the previous one was less than
// window ago. Returns false when the play should be dropped.
func (s *Sound) TryTrigger(now time.Time, window time.Duration) bool {
	for {
		last := s.lastPlay.Load()
		if last != 0 && now.UnixNano()-last < int64(window) {
			return false
		}
		if s.lastPlay.CompareAndSwap(last, now.UnixNano()) {
			return true
		}
	}
}

// DeviceBuffer returns the cached device buffer. Audio thread only.
func (s *Sound) DeviceBuffer() output.Buffer {
	return s.buffer
}

// SetDeviceBuffer caches a device buffer. Audio thread only.
func (s *Sound) SetDeviceBuffer(buf output.Buffer) {
	s.buffer = buf
}

func (s *Sound) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.ID.String()[:8])
}
