// ABOUTME: Tests for play handles, tick states and fade ramps
// ABOUTME: Pure functions that need no audio goroutine
package server

import (
	"math"
	"testing"
	"time"
)

func TestPlayHandlePacking(t *testing.T) {
	tests := []struct {
		gen  int
		slot int
	}{
		{0, 0},
		{1, 0},
		{0, 29},
		{29999, 17},
		{65534, 65535},
	}

	for _, tt := range tests {
		h := NewPlayHandle(tt.gen, tt.slot)
		if h.Generation() != tt.gen || h.Slot() != tt.slot {
			t.Errorf("NewPlayHandle(%d, %d) unpacked to (%d, %d)", tt.gen, tt.slot, h.Generation(), h.Slot())
		}
		if !h.Valid() {
			t.Errorf("handle %s reported invalid", h)
		}
	}

	if InvalidHandle.Valid() {
		t.Error("expected InvalidHandle to be invalid")
	}
	if InvalidHandle.String() != "invalid" {
		t.Errorf("unexpected InvalidHandle string %q", InvalidHandle.String())
	}
}

func TestConfigClampsHandleSpace(t *testing.T) {
	c := Config{PoolSize: 1 << 20, GenerationModulus: 1 << 20}.withDefaults()
	if c.PoolSize != slotMask {
		t.Errorf("expected pool clamped to %d, got %d", slotMask, c.PoolSize)
	}
	if c.GenerationModulus != maxGenerationModulus {
		t.Errorf("expected modulus clamped to %d, got %d", maxGenerationModulus, c.GenerationModulus)
	}

	// The highest generation in the highest slot must not collide with InvalidHandle
	if NewPlayHandle(c.GenerationModulus-1, c.PoolSize-1) == InvalidHandle {
		t.Error("largest handle collides with InvalidHandle")
	}
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.PoolSize != 30 || c.GenerationModulus != 30000 || c.PositionLimit != 500 {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.IdleInterval != 500*time.Millisecond || c.FadeInterval != 50*time.Millisecond || c.LoadInterval != time.Millisecond {
		t.Errorf("unexpected intervals: %v %v %v", c.IdleInterval, c.FadeInterval, c.LoadInterval)
	}
}

func TestNextTickState(t *testing.T) {
	tests := []struct {
		name    string
		loading bool
		fading  bool
		want    TickState
	}{
		{"nothing pending", false, false, Idle},
		{"fades only", false, true, Fading},
		{"loads only", true, false, Loading},
		{"loads win over fades", true, true, Loading},
	}

	c := DefaultConfig()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextTickState(tt.loading, tt.fading)
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	if c.interval(Loading) >= c.interval(Fading) || c.interval(Fading) >= c.interval(Idle) {
		t.Error("expected intervals to shrink with urgency")
	}
}

func TestFadeMultiplier(t *testing.T) {
	start := time.Unix(100, 0)
	out := &FadeRequest{Start: start, End: start.Add(time.Second), Out: true}
	in := &FadeRequest{Start: start, End: start.Add(time.Second), Out: false}

	prev := 2.0
	for ms := 0; ms <= 1000; ms += 100 {
		now := start.Add(time.Duration(ms) * time.Millisecond)
		m := out.multiplier(now)
		if m > prev {
			t.Fatalf("fade-out multiplier rose at %dms: %v > %v", ms, m, prev)
		}
		prev = m

		if got, want := in.multiplier(now), float64(ms)/1000; math.Abs(got-want) > 1e-9 {
			t.Errorf("fade-in at %dms: expected %v, got %v", ms, want, got)
		}
	}

	if out.multiplier(start.Add(2*time.Second)) != 0 {
		t.Error("expected fade-out clamped to 0 past its end")
	}
	if out.multiplier(start.Add(-time.Second)) != 1 {
		t.Error("expected fade-out clamped to 1 before its start")
	}

	instant := &FadeRequest{Start: start, End: start, Out: true}
	if instant.multiplier(start) != 0 {
		t.Error("expected zero-length fade-out to finish immediately")
	}
}

func TestClientLockBounded(t *testing.T) {
	var l clientLock
	clock := NewManualClock(time.Unix(0, 0))

	if !l.lockBounded("first", 3, time.Millisecond, clock) {
		t.Fatal("expected lock on a free slot")
	}
	if tag, _, held := l.holder(); !held || tag != "first" {
		t.Errorf("expected holder first, got %q held=%v", tag, held)
	}

	if l.lockBounded("second", 3, time.Millisecond, clock) {
		t.Fatal("expected bounded lock to give up")
	}

	l.unlock()
	if _, _, held := l.holder(); held {
		t.Error("expected no holder after unlock")
	}
	if !l.tryLock("third", clock.Now()) {
		t.Error("expected tryLock after unlock")
	}
	l.unlock()
}
