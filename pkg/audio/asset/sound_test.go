// ABOUTME: Tests for sound assets
// ABOUTME: Covers repeat-trigger throttling and load state accessors
package asset

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTryTrigger(t *testing.T) {
	s := newSound("click", "", false)
	base := time.Unix(1000, 0)
	window := 50 * time.Millisecond

	tests := []struct {
		name string
		at   time.Duration
		want bool
	}{
		{"first play", 0, true},
		{"immediate repeat", 10 * time.Millisecond, false},
		{"just inside window", 49 * time.Millisecond, false},
		{"at window", 50 * time.Millisecond, true},
		{"repeat of that", 60 * time.Millisecond, false},
	}

	for _, tt := range tests {
		if got := s.TryTrigger(base.Add(tt.at), window); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
	if !s.LastPlay().Equal(base.Add(50 * time.Millisecond)) {
		t.Errorf("unexpected last play %v", s.LastPlay())
	}
}

func TestTryTriggerConcurrent(t *testing.T) {
	s := newSound("click", "", false)
	now := time.Unix(2000, 0)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.TryTrigger(now, 50*time.Millisecond) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly one trigger to win, got %d", wins.Load())
	}
}

func TestSamplesBeforeLoad(t *testing.T) {
	s := newSound("late", "late.wav", false)

	if _, err := s.Samples(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
	if s.Duration() != 0 {
		t.Errorf("expected zero duration, got %v", s.Duration())
	}
	if !s.LastPlay().IsZero() {
		t.Error("expected zero last play")
	}
	if s.Err() != nil {
		t.Error("expected no error before failure")
	}
}
