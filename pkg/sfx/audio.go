// ABOUTME: Logic-thread facade over the audio server
// ABOUTME: Throttled play calls, handle-based stop and fade, global mixer parameters
package sfx

import (
	"time"

	"github.com/Resonate-Protocol/voicepool/internal/server"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/asset"
)

// PlayHandle identifies one playback
type PlayHandle = server.PlayHandle

// InvalidHandle is returned when a sound was dropped
const InvalidHandle = server.InvalidHandle

// Audio is the only audio API the logic thread calls
type Audio struct {
	srv      *server.Server
	clock    server.Clock
	throttle time.Duration
	vr       bool
	vrPos    [3]float64
}

// NewAudio creates the facade for srv
func NewAudio(srv *server.Server, config Config) *Audio {
	config = config.withDefaults()
	return &Audio{
		srv:      srv,
		clock:    srv.Config().Clock,
		throttle: config.ThrottleWindow,
		vr:       config.VRMode,
		vrPos:    config.VRSoundPosition,
	}
}

// Server returns the underlying audio server
func (a *Audio) Server() *server.Server {
	return a.srv
}

// trigger applies the repeat throttle
func (a *Audio) trigger(sound *asset.Sound) bool {
	if sound == nil {
		return false
	}
	if !sound.TryTrigger(a.clock.Now(), a.throttle) {
		a.srv.Metrics().PlayDropped("throttled")
		return false
	}
	return true
}

// PlaySound plays sound at volume without 3D placement. Returns InvalidHandle
// when the sound was throttled or no voice was free.
func (a *Audio) PlaySound(sound *asset.Sound, volume float64) PlayHandle {
	if !a.trigger(sound) {
		return InvalidHandle
	}

	tk := a.srv.SourceBeginNew("PlaySound")
	if tk == nil {
		return InvalidHandle
	}
	defer tk.End()

	tk.SetGain(volume)
	if a.vr {
		// Headsets get a fixed point in front of the listener
		tk.SetPositional(true)
		tk.SetPosition(a.vrPos[0], a.vrPos[1], a.vrPos[2])
	} else {
		tk.SetPositional(false)
	}
	return tk.Play(sound)
}

// PlaySoundAtPosition plays sound at a world position
func (a *Audio) PlaySoundAtPosition(sound *asset.Sound, volume, x, y, z float64) PlayHandle {
	if !a.trigger(sound) {
		return InvalidHandle
	}

	tk := a.srv.SourceBeginNew("PlaySoundAtPosition")
	if tk == nil {
		return InvalidHandle
	}
	defer tk.End()

	tk.SetGain(volume)
	tk.SetPositional(true)
	tk.SetPosition(x, y, z)
	return tk.Play(sound)
}

// PlayMusic plays sound on the music channel. Music is never throttled and
// ignores the global sound pitch.
func (a *Audio) PlayMusic(sound *asset.Sound, volume float64, loop bool) PlayHandle {
	if sound == nil {
		return InvalidHandle
	}

	tk := a.srv.SourceBeginNew("PlayMusic")
	if tk == nil {
		return InvalidHandle
	}
	defer tk.End()

	tk.SetIsMusic(true)
	tk.SetGain(volume)
	tk.SetPositional(false)
	tk.SetLooping(loop)
	return tk.Play(sound)
}

// StopSound stops a playback. Stale handles are ignored.
func (a *Audio) StopSound(h PlayHandle) {
	a.srv.PushStopSound(h)
}

// FadeSoundOut ramps a playback to silence over d, then stops it
func (a *Audio) FadeSoundOut(h PlayHandle, d time.Duration) {
	a.srv.PushFade(h, d, true)
}

// FadeSoundIn ramps a playback from silence to full over d
func (a *Audio) FadeSoundIn(h PlayHandle, d time.Duration) {
	a.srv.PushFade(h, d, false)
}

// IsSoundPlaying reports whether h still wants to play
func (a *Audio) IsSoundPlaying(h PlayHandle) bool {
	return a.srv.IsSoundPlaying(h)
}

// SetSoundVolume sets the effect volume (0-3)
func (a *Audio) SetSoundVolume(v float64) {
	a.srv.SetSoundVolume(v)
}

// SetMusicVolume sets the music volume (0-3)
func (a *Audio) SetMusicVolume(v float64) {
	a.srv.SetMusicVolume(v)
}

// SetSoundPitch sets the pitch of every effect
func (a *Audio) SetSoundPitch(p float64) {
	a.srv.SetSoundPitch(p)
}

// SetListenerPosition moves the listener
func (a *Audio) SetListenerPosition(x, y, z float64) {
	a.srv.SetListenerPosition(x, y, z)
}

// SetListenerOrientation points the listener
func (a *Audio) SetListenerOrientation(forward, up [3]float64) {
	a.srv.SetListenerOrientation(forward, up)
}

// Reset stops everything
func (a *Audio) Reset() {
	a.srv.Reset()
}

// BeginInterruption pauses audio for an OS audio session interruption
func (a *Audio) BeginInterruption() {
	a.srv.BeginInterruption()
}

// EndInterruption resumes after BeginInterruption
func (a *Audio) EndInterruption() {
	a.srv.EndInterruption()
}
