// ABOUTME: Audio server configuration
// ABOUTME: Pool size, timer intervals, clamps and streaming buffer settings with defaults
package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StreamConfig sizes streaming sessions
type StreamConfig struct {
	BufferCount  int // buffers kept queued per session
	BufferFrames int // frames per buffer
}

// Config holds audio server configuration
type Config struct {
	PoolSize          int
	GenerationModulus int
	PositionLimit     float64

	// Timer intervals per tick state
	IdleInterval time.Duration
	FadeInterval time.Duration
	LoadInterval time.Duration

	FadeProcessPeriod  time.Duration
	StreamUpdatePeriod time.Duration
	MaxLoadsPerTick    int

	// Interruption handshake
	PauseTimeout time.Duration

	// Client lock acquisition from the logic thread
	LockAttempts   int
	LockRetryDelay time.Duration

	// Leak detection; 0 disables
	LeakCheckInterval time.Duration
	LeakThreshold     time.Duration

	Streaming StreamConfig

	Clock    Clock
	Registry *prometheus.Registry

	Debug bool

	// StrictAsserts panics on programmer errors instead of logging
	StrictAsserts bool
}

// DefaultConfig returns the stock configuration
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.PoolSize <= 0 {
		c.PoolSize = 30
	}
	if c.PoolSize > slotMask {
		c.PoolSize = slotMask
	}
	if c.GenerationModulus <= 1 {
		c.GenerationModulus = 30000
	}
	if c.GenerationModulus > maxGenerationModulus {
		c.GenerationModulus = maxGenerationModulus
	}
	if c.PositionLimit <= 0 {
		c.PositionLimit = 500
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = 500 * time.Millisecond
	}
	if c.FadeInterval <= 0 {
		c.FadeInterval = 50 * time.Millisecond
	}
	if c.LoadInterval <= 0 {
		c.LoadInterval = time.Millisecond
	}
	if c.FadeProcessPeriod <= 0 {
		c.FadeProcessPeriod = 50 * time.Millisecond
	}
	if c.StreamUpdatePeriod <= 0 {
		c.StreamUpdatePeriod = 100 * time.Millisecond
	}
	if c.MaxLoadsPerTick <= 0 {
		c.MaxLoadsPerTick = 4
	}
	if c.PauseTimeout <= 0 {
		c.PauseTimeout = time.Second
	}
	if c.LockAttempts <= 0 {
		c.LockAttempts = 10
	}
	if c.LockRetryDelay <= 0 {
		c.LockRetryDelay = time.Millisecond
	}
	if c.LeakThreshold <= 0 {
		c.LeakThreshold = 5 * time.Second
	}
	if c.Streaming.BufferCount <= 0 {
		c.Streaming.BufferCount = 3
	}
	if c.Streaming.BufferFrames <= 0 {
		c.Streaming.BufferFrames = 8192
	}
	if c.Clock == nil {
		c.Clock = RealClock
	}
	if c.Registry == nil {
		c.Registry = prometheus.NewRegistry()
	}
	return c
}
