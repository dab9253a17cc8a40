// ABOUTME: Hardware source wrapping one output voice
// ABOUTME: Records playback intent and applies it to the voice unless the mixer is paused
package server

import (
	"log"
	"math"
	"sync/atomic"

	"github.com/Resonate-Protocol/voicepool/pkg/audio/asset"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/output"
)

// Source is one slot of the voice pool. Fields without atomics are owned by
// the audio goroutine.
type Source struct {
	server *Server
	index  int
	voice  output.Voice
	valid  bool

	// Playback intent
	wantPlay     bool
	playing      bool // actually started on the voice
	awaitingLoad bool
	isMusic      bool
	looping      bool
	positional   bool

	x, y, z float64
	gain    float64
	fade    float64
	pitch   float64

	sound    *asset.Sound
	streamer *Streamer

	// Shared with the logic thread
	lock        clientLock
	clientQueue atomic.Int32
	generation  atomic.Int32
	active      atomic.Bool // mirrors wantPlay for IsSoundPlaying

	// Guarded by server.availMu
	available bool
}

func newSource(s *Server, index int, voice output.Voice) *Source {
	src := &Source{
		server: s,
		index:  index,
		voice:  voice,
		valid:  voice != nil,
	}
	src.resetParams()
	return src
}

// Index returns the slot index
func (src *Source) Index() int {
	return src.index
}

// Handle returns the play handle for the slot's current generation
func (src *Source) Handle() PlayHandle {
	return NewPlayHandle(int(src.generation.Load()), src.index)
}

func (src *Source) resetParams() {
	src.looping = false
	src.positional = true
	src.isMusic = false
	src.x, src.y, src.z = 0, 0, 0
	src.gain = 1
	src.fade = 1
	src.pitch = 1
}

// Reset clears per-playback state. Called when the slot becomes available.
func (src *Source) Reset() {
	src.server.assertAudioThread("Source.Reset")

	src.stopHardware()
	src.resetParams()
	src.setWantPlay(false)
	src.applyAll()
}

func (src *Source) setWantPlay(want bool) {
	src.wantPlay = want
	src.active.Store(want)
}

// SetGain sets the per-playback gain
func (src *Source) SetGain(gain float64) {
	src.server.assertAudioThread("Source.SetGain")
	src.gain = gain
	src.updateVolume()
}

// SetFade sets the fade multiplier
func (src *Source) SetFade(fade float64) {
	src.server.assertAudioThread("Source.SetFade")
	src.fade = fade
	src.updateVolume()
}

// SetPitch sets the per-playback pitch
func (src *Source) SetPitch(pitch float64) {
	src.server.assertAudioThread("Source.SetPitch")
	src.pitch = pitch
	src.updatePitch()
}

// SetPosition clamps each axis to the configured cube
func (src *Source) SetPosition(x, y, z float64) {
	src.server.assertAudioThread("Source.SetPosition")

	limit := src.server.config.PositionLimit
	cx, cy, cz := clampAxis(x, limit), clampAxis(y, limit), clampAxis(z, limit)
	if (cx != x || cy != y || cz != z) && !src.server.clampWarned.Swap(true) {
		log.Printf("Warning: sound position (%.1f, %.1f, %.1f) clamped to ±%.0f", x, y, z, limit)
	}

	src.x, src.y, src.z = cx, cy, cz
	if src.valid && !src.server.paused.Load() {
		src.voice.SetPosition(cx, cy, cz)
	}
}

func clampAxis(v, limit float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-limit, math.Min(limit, v))
}

// SetLooping sets whether the sound repeats
func (src *Source) SetLooping(loop bool) {
	src.server.assertAudioThread("Source.SetLooping")
	src.looping = loop
	if src.streamer != nil {
		src.streamer.SetLoop(loop)
	}
	if src.valid && !src.server.paused.Load() && src.streamer == nil {
		src.voice.SetLooping(loop)
	}
}

// SetPositional toggles 3D placement
func (src *Source) SetPositional(positional bool) {
	src.server.assertAudioThread("Source.SetPositional")
	src.positional = positional
	if src.valid && !src.server.paused.Load() {
		src.voice.SetPositional(positional)
	}
}

// SetIsMusic routes the slot through the music volume and exempts it from global pitch
func (src *Source) SetIsMusic(music bool) {
	src.server.assertAudioThread("Source.SetIsMusic")
	src.isMusic = music
	src.updateVolume()
	src.updatePitch()
}

// updateVolume applies gain * fade * global volume
func (src *Source) updateVolume() {
	if !src.valid || src.server.paused.Load() {
		return
	}
	src.voice.SetGain(src.effectiveGain())
}

func (src *Source) effectiveGain() float64 {
	s := src.server
	if src.isMusic {
		return src.gain * src.fade * (s.musicVolume / 7)
	}
	return src.gain * src.fade * s.soundVolume
}

// updatePitch applies pitch; music ignores the global pitch
func (src *Source) updatePitch() {
	if !src.valid || src.server.paused.Load() {
		return
	}
	src.voice.SetPitch(src.effectivePitch())
}

func (src *Source) effectivePitch() float64 {
	if src.isMusic {
		return src.pitch
	}
	return src.pitch * src.server.soundPitch
}

// applyAll pushes every recorded parameter to the voice
func (src *Source) applyAll() {
	if !src.valid || src.server.paused.Load() {
		return
	}
	src.voice.SetGain(src.effectiveGain())
	src.voice.SetPitch(src.effectivePitch())
	src.voice.SetPosition(src.x, src.y, src.z)
	src.voice.SetPositional(src.positional)
	if src.streamer == nil {
		src.voice.SetLooping(src.looping)
	}
}

// Play attaches a retained sound and starts it, or records the intent when
// paused or still loading. Ownership of the reference passes to the slot.
func (src *Source) Play(sound *asset.Sound) {
	s := src.server
	s.assertAudioThread("Source.Play")

	if !src.valid {
		s.lib.Return(sound)
		return
	}

	if src.sound != nil {
		src.stopHardware()
	}

	src.sound = sound
	src.setWantPlay(true)

	if !sound.Loaded() && !sound.Failed() && !sound.Evicted() {
		src.awaitingLoad = true
		if s.config.Debug {
			log.Printf("Slot %d waiting for %s to load", src.index, sound)
		}
		return
	}

	src.start()
}

// start begins hardware playback of the attached sound
func (src *Source) start() {
	s := src.server

	if s.paused.Load() || src.playing || src.sound == nil {
		return
	}

	sound := src.sound
	if sound.Evicted() {
		log.Printf("Cannot play %s: pruned from the library", sound)
		s.metrics.PlayDropped("evicted")
		src.release()
		return
	}
	if !sound.Loaded() {
		log.Printf("Cannot play %s: %v", sound, sound.Err())
		s.metrics.PlayDropped("failed")
		src.release()
		return
	}

	src.applyAll()

	if sound.Streamed {
		st := newStreamer(src, sound, src.looping, s.config.Streaming)
		if !st.Play() {
			log.Printf("Failed to start stream for %s on slot %d", sound, src.index)
			s.metrics.PlayDropped("failed")
			src.release()
			return
		}
		src.streamer = st
		s.addStreamer(st)
	} else {
		buf, err := s.deviceBuffer(sound)
		if err != nil {
			log.Printf("Failed to upload %s: %v", sound, err)
			s.metrics.PlayDropped("failed")
			src.release()
			return
		}
		if err := src.voice.SetBuffer(buf); err != nil {
			log.Printf("Failed to attach %s to slot %d: %v", sound, src.index, err)
			src.release()
			return
		}
		src.voice.SetLooping(src.looping)
		src.voice.Play()
	}

	src.playing = true
	s.metrics.playsStarted.Inc()
}

// Stop ends playback. While paused only the intent is recorded and resume
// performs the hardware stop.
func (src *Source) Stop() {
	src.server.assertAudioThread("Source.Stop")

	if src.server.paused.Load() {
		if !src.playing {
			// Never reached the hardware; drop the pending start
			src.release()
			return
		}
		src.setWantPlay(false)
		return
	}
	src.stopHardware()
}

// stopHardware halts the voice, ends streaming and hands the sound back
func (src *Source) stopHardware() {
	if src.playing {
		if src.streamer != nil {
			src.streamer.Stop()
			src.server.removeStreamer(src.streamer)
			src.streamer = nil
		} else if src.valid {
			src.voice.Stop()
			if err := src.voice.SetBuffer(nil); err != nil {
				log.Printf("Warning: failed to detach buffer from slot %d: %v", src.index, err)
			}
		}
		src.playing = false
	}
	src.release()
}

// release drops playback intent and returns the sound to its owner
func (src *Source) release() {
	src.setWantPlay(false)
	src.awaitingLoad = false
	if src.sound != nil {
		src.server.lib.Return(src.sound)
		src.sound = nil
	}
}

// hardwarePlaying reports whether the voice is still producing sound
func (src *Source) hardwarePlaying() bool {
	if !src.playing || !src.valid {
		return false
	}
	if src.streamer != nil {
		return !src.streamer.Finished()
	}
	return src.voice.IsPlaying()
}

// close releases the voice at shutdown
func (src *Source) close() {
	if !src.valid {
		return
	}
	if err := src.voice.Close(); err != nil {
		log.Printf("Warning: failed to close voice %d: %v", src.index, err)
	}
	src.valid = false
	src.voice = nil
}

// state snapshots the slot. Audio goroutine only.
func (src *Source) state() SlotState {
	st := SlotState{
		Index:       src.index,
		Valid:       src.valid,
		Generation:  int(src.generation.Load()),
		Handle:      src.Handle(),
		WantPlay:    src.wantPlay,
		Playing:     src.playing,
		Loading:     src.awaitingLoad,
		Music:       src.isMusic,
		Looping:     src.looping,
		Positional:  src.positional,
		Gain:        src.gain,
		Fade:        src.fade,
		Pitch:       src.pitch,
		Position:    [3]float64{src.x, src.y, src.z},
		Streaming:   src.streamer != nil,
		ClientQueue: int(src.clientQueue.Load()),
	}
	if src.sound != nil {
		st.Sound = src.sound.Name
	}
	if tag, _, held := src.lock.holder(); held {
		st.Holder = tag
	}
	return st
}
