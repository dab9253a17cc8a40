// ABOUTME: Configuration for the sound effect system
// ABOUTME: Backend choice, throttling, VR placement and asset pruning with defaults
package sfx

import (
	"time"

	"github.com/Resonate-Protocol/voicepool/internal/server"
)

// Output backends
const (
	BackendOto       = "oto"
	BackendMalgo     = "malgo"
	BackendPortAudio = "portaudio" // needs -tags portaudio
	BackendNone      = "none"      // headless, mixed on a ticker
)

// Config holds sound system configuration
type Config struct {
	// Server configures the voice pool
	Server server.Config

	// ThrottleWindow drops repeat triggers of one sound (default: 50ms)
	ThrottleWindow time.Duration

	// VRMode plays non-positional sounds from VRSoundPosition instead
	VRMode          bool
	VRSoundPosition [3]float64

	// Backend selects the output device (default: oto)
	Backend string

	// SampleRate of the mixer (default: 44100)
	SampleRate int

	// MaxVoices is the device voice limit (default: 64)
	MaxVoices int

	// TickPeriod drives the headless backend (default: 10ms)
	TickPeriod time.Duration

	// AssetTTL unloads sounds unused for this long (default: 10m, negative disables)
	AssetTTL time.Duration

	// PruneInterval is how often Run prunes idle sounds (default: 1m)
	PruneInterval time.Duration

	// CacheDir stores downloaded sounds
	CacheDir string

	// Debug enables debug logging
	Debug bool
}

// DefaultVRSoundPosition sits slightly above and in front of the listener
var DefaultVRSoundPosition = [3]float64{0, 4.5, -3}

func (c Config) withDefaults() Config {
	if c.ThrottleWindow <= 0 {
		c.ThrottleWindow = 50 * time.Millisecond
	}
	if c.VRSoundPosition == ([3]float64{}) {
		c.VRSoundPosition = DefaultVRSoundPosition
	}
	if c.Backend == "" {
		c.Backend = BackendOto
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
	if c.MaxVoices <= 0 {
		c.MaxVoices = 64
	}
	if c.TickPeriod <= 0 {
		c.TickPeriod = 10 * time.Millisecond
	}
	if c.AssetTTL == 0 {
		c.AssetTTL = 10 * time.Minute
	} else if c.AssetTTL < 0 {
		c.AssetTTL = 0
	}
	if c.PruneInterval <= 0 {
		c.PruneInterval = time.Minute
	}
	if c.Debug {
		c.Server.Debug = true
	}
	return c
}
