// ABOUTME: Audio server core owning the voice pool and the audio goroutine
// ABOUTME: Drives loads, availability, fades and streams on an adaptive timer
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/voicepool/internal/runloop"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/asset"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/output"
)

// MaxVolume bounds the global sound and music volumes
const MaxVolume = 3.0

// Server owns every hardware voice. All fields without their own lock or
// atomic belong to the audio goroutine.
type Server struct {
	config  Config
	device  output.Device
	lib     *asset.Library
	loop    *runloop.Loop
	clock   Clock
	metrics *Metrics

	sources []*Source

	availMu   sync.Mutex
	available []*Source

	fades     map[PlayHandle]*FadeRequest
	streamers map[*Streamer]struct{}
	state     TickState

	lastFadeProcess  time.Time
	lastStreamUpdate time.Time
	lastLeakCheck    time.Time

	soundVolume float64
	musicVolume float64
	soundPitch  float64

	listenerPos     [3]float64
	listenerForward [3]float64
	listenerUp      [3]float64

	paused      atomic.Bool
	clampWarned atomic.Bool

	// Lifecycle
	running  atomic.Bool
	closed   atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates the voice pool on device. Voices that fail to allocate leave
// their slot permanently invalid.
func New(device output.Device, lib *asset.Library, config Config) (*Server, error) {
	if device == nil {
		return nil, fmt.Errorf("audio device is required")
	}
	if lib == nil {
		return nil, fmt.Errorf("sound library is required")
	}
	config = config.withDefaults()

	s := &Server{
		config:          config,
		device:          device,
		lib:             lib,
		loop:            runloop.New("audio"),
		clock:           config.Clock,
		fades:           make(map[PlayHandle]*FadeRequest),
		streamers:       make(map[*Streamer]struct{}),
		soundVolume:     1,
		musicVolume:     1,
		soundPitch:      1,
		listenerForward: [3]float64{0, 0, -1},
		listenerUp:      [3]float64{0, 1, 0},
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}

	s.metrics = newMetrics(func() float64 {
		return float64(device.LiveVoices())
	})
	if err := config.Registry.Register(s.metrics); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	valid := 0
	for i := 0; i < config.PoolSize; i++ {
		voice, err := device.NewVoice()
		if err != nil {
			log.Printf("Warning: failed to create voice %d: %v", i, err)
			s.metrics.voicesFailed.Inc()
			voice = nil
		} else {
			s.metrics.voicesCreated.Inc()
			valid++
		}

		src := newSource(s, i, voice)
		src.applyAll()
		s.sources = append(s.sources, src)
		if src.valid {
			src.available = true
			s.available = append(s.available, src)
		}
	}

	if valid < config.PoolSize {
		log.Printf("Warning: voice pool degraded to %d of %d voices", valid, config.PoolSize)
	}

	s.applyListener()
	lib.SetUnloader(s)

	if config.Debug {
		log.Printf("Audio server created with %d voices", valid)
	}
	return s, nil
}

// Config returns the effective configuration
func (s *Server) Config() Config {
	return s.config
}

// Metrics returns the server's collector
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start launches the audio goroutine. Before Start, posted work runs
// synchronously on the posting goroutine.
func (s *Server) Start() error {
	if s.closed.Load() {
		return ErrShutdown
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	go s.run()
	return nil
}

func (s *Server) run() {
	defer close(s.done)

	timer := time.NewTimer(s.config.interval(s.state))
	defer timer.Stop()

	for {
		select {
		case <-s.stop:
			s.loop.RunPending()
			return

		case <-s.loop.Wake():
			s.loop.RunPending()

			// New fades or loads may need a faster tick right away
			if next := s.computeTickState(); next != s.state {
				s.setTickState(next)
				resetTimer(timer, s.config.interval(next))
			}

		case <-timer.C:
			s.loop.Post(s.process)
			s.loop.RunPending()
			timer.Reset(s.config.interval(s.state))
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// process is one tick of the audio goroutine
func (s *Server) process() {
	now := s.clock.Now()

	if n := s.lib.RunPendingLoads(s.config.MaxLoadsPerTick); n > 0 && s.config.Debug {
		log.Printf("Loaded %d pending sounds", n)
	}
	s.startLoaded()

	s.updateAvailability()

	if len(s.fades) > 0 && now.Sub(s.lastFadeProcess) >= s.config.FadeProcessPeriod {
		s.lastFadeProcess = now
		s.processFades(now)
	}

	if len(s.streamers) > 0 && now.Sub(s.lastStreamUpdate) >= s.config.StreamUpdatePeriod {
		s.lastStreamUpdate = now
		for st := range s.streamers {
			st.Update()
		}
	}

	s.maybeCheckLeaks(now)
	s.setTickState(s.computeTickState())
}

// startLoaded starts slots whose sound finished loading
func (s *Server) startLoaded() {
	if s.paused.Load() {
		return
	}
	for _, src := range s.sources {
		if !src.awaitingLoad || src.sound == nil {
			continue
		}
		if !src.wantPlay {
			src.release()
			continue
		}
		sound := src.sound
		if !sound.Loaded() && !sound.Failed() && !sound.Evicted() {
			continue
		}
		src.awaitingLoad = false
		src.start()
	}
}

func (s *Server) setTickState(state TickState) {
	if state != s.state && s.config.Debug {
		log.Printf("Audio tick state %s -> %s", s.state, state)
	}
	s.state = state
	s.metrics.tickInterval.Set(s.config.interval(state).Seconds())
}

// post queues fn for the audio goroutine. Before Start it runs inline.
func (s *Server) post(fn func()) bool {
	if !s.loop.Post(fn) {
		return false
	}
	if !s.running.Load() && !s.loop.InLoop() {
		s.loop.RunPending()
	}
	return true
}

// exec runs fn on the audio goroutine and waits for it
func (s *Server) exec(ctx context.Context, fn func()) error {
	if s.closed.Load() {
		return ErrShutdown
	}

	done := make(chan struct{})
	if !s.post(func() {
		fn()
		close(done)
	}) {
		return ErrShutdown
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sync waits until every command posted so far has executed
func (s *Server) Sync(ctx context.Context) error {
	return s.exec(ctx, func() {})
}

// ProcessNow runs one processing tick immediately and waits for it
func (s *Server) ProcessNow(ctx context.Context) error {
	return s.exec(ctx, s.process)
}

// Snapshot captures the pool state on the audio goroutine
func (s *Server) Snapshot(ctx context.Context) (PoolState, error) {
	var ps PoolState
	err := s.exec(ctx, func() {
		ps = s.snapshot()
	})
	return ps, err
}

func (s *Server) snapshot() PoolState {
	ps := PoolState{
		Slots:       make([]SlotState, 0, len(s.sources)),
		LiveVoices:  s.device.LiveVoices(),
		Fades:       len(s.fades),
		Streams:     len(s.streamers),
		Paused:      s.paused.Load(),
		Tick:        s.state,
		SoundVolume: s.soundVolume,
		MusicVolume: s.musicVolume,
		SoundPitch:  s.soundPitch,
	}

	s.availMu.Lock()
	ps.Available = len(s.available)
	avail := make([]bool, len(s.sources))
	for i, src := range s.sources {
		avail[i] = src.available
	}
	s.availMu.Unlock()

	for i, src := range s.sources {
		st := src.state()
		st.Available = avail[i]
		ps.Slots = append(ps.Slots, st)
	}
	return ps
}

// SetSoundVolume sets the global effect volume, clamped to [0, MaxVolume]
func (s *Server) SetSoundVolume(v float64) {
	s.post(func() {
		s.soundVolume = clampVolume(v)
		s.refreshParams()
	})
}

// SetMusicVolume sets the global music volume, clamped to [0, MaxVolume]
func (s *Server) SetMusicVolume(v float64) {
	s.post(func() {
		s.musicVolume = clampVolume(v)
		s.refreshParams()
	})
}

// SetSoundPitch sets the global pitch applied to every non-music slot
func (s *Server) SetSoundPitch(p float64) {
	s.post(func() {
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			log.Printf("Warning: ignoring invalid sound pitch %v", p)
			return
		}
		s.soundPitch = p
		s.refreshParams()
	})
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(MaxVolume, v))
}

func (s *Server) refreshParams() {
	for _, src := range s.sources {
		src.updateVolume()
		src.updatePitch()
	}
}

// SetListenerPosition moves the listener
func (s *Server) SetListenerPosition(x, y, z float64) {
	s.post(func() {
		s.listenerPos = [3]float64{x, y, z}
		s.applyListener()
	})
}

// SetListenerOrientation sets the listener's forward and up vectors
func (s *Server) SetListenerOrientation(forward, up [3]float64) {
	s.post(func() {
		s.listenerForward = forward
		s.listenerUp = up
		s.applyListener()
	})
}

func (s *Server) applyListener() {
	if s.paused.Load() {
		return
	}
	s.device.SetListenerPosition(s.listenerPos[0], s.listenerPos[1], s.listenerPos[2])
	s.device.SetListenerOrientation(s.listenerForward, s.listenerUp)
}

// Reset stops every sound and drops pending fades
func (s *Server) Reset() {
	s.post(func() {
		for h := range s.fades {
			delete(s.fades, h)
		}
		s.metrics.fades.Set(0)
		for _, src := range s.sources {
			if src.valid {
				src.Stop()
			}
		}
	})
}

// PushStopSound stops the playback identified by h. Stale handles are ignored.
func (s *Server) PushStopSound(h PlayHandle) {
	s.post(func() {
		if src := s.validSource(h); src != nil {
			src.Stop()
		}
	})
}

// PushFade fades the playback identified by h out (stopping it) or in
func (s *Server) PushFade(h PlayHandle, duration time.Duration, out bool) {
	s.post(func() {
		s.addFade(h, duration, out)
	})
}

// UnloadSound frees a pruned sound's device buffer on the audio goroutine,
// then calls done
func (s *Server) UnloadSound(sound *asset.Sound, done func()) {
	if !s.post(func() {
		s.freeDeviceBuffer(sound)
		done()
	}) {
		done()
	}
}

// deviceBuffer uploads sound on first use and caches the result on it
func (s *Server) deviceBuffer(sound *asset.Sound) (output.Buffer, error) {
	if buf := sound.DeviceBuffer(); buf != nil {
		return buf, nil
	}

	samples, err := sound.Samples()
	if err != nil {
		return nil, err
	}
	buf, err := s.device.NewBuffer(sound.Format(), samples)
	if err != nil {
		return nil, err
	}
	sound.SetDeviceBuffer(buf)
	return buf, nil
}

func (s *Server) freeDeviceBuffer(sound *asset.Sound) {
	buf := sound.DeviceBuffer()
	if buf == nil {
		return
	}
	if err := s.device.DeleteBuffer(buf); err != nil {
		log.Printf("Warning: failed to free device buffer for %s: %v", sound, err)
		return
	}
	sound.SetDeviceBuffer(nil)
}

func (s *Server) addStreamer(st *Streamer) {
	s.streamers[st] = struct{}{}
	s.metrics.streams.Set(float64(len(s.streamers)))
}

func (s *Server) removeStreamer(st *Streamer) {
	delete(s.streamers, st)
	s.metrics.streams.Set(float64(len(s.streamers)))
}

// Shutdown stops every slot, verifies nothing leaked and closes the device
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	err := s.exec(ctx, func() {
		s.closed.Store(true)
		s.loop.Close()
		shutdownErr = s.teardown()
	})
	if err != nil {
		return err
	}

	s.stopOnce.Do(func() {
		close(s.stop)
	})
	if s.running.Load() {
		select {
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.loop.RunPending()

	if err := s.device.Close(); err != nil {
		log.Printf("Warning: failed to close audio device: %v", err)
	}
	s.config.Registry.Unregister(s.metrics)

	log.Printf("Audio server stopped")
	return shutdownErr
}

// teardown runs on the audio goroutine
func (s *Server) teardown() error {
	for h := range s.fades {
		delete(s.fades, h)
	}

	for _, src := range s.sources {
		src.stopHardware()
	}
	for _, sound := range s.lib.Sounds() {
		s.freeDeviceBuffer(sound)
	}
	for _, src := range s.sources {
		src.close()
	}

	var errs []error
	if n := s.device.LiveVoices(); n != 0 {
		s.assertf("%d voices still allocated at shutdown", n)
		errs = append(errs, fmt.Errorf("%w: %d", ErrVoicesLeaked, n))
	}
	if n := len(s.streamers); n != 0 {
		s.assertf("%d streaming sessions still active at shutdown", n)
		errs = append(errs, fmt.Errorf("%w: %d", ErrStreamersLeaked, n))
	}
	return errors.Join(errs...)
}

// assertAudioThread flags hardware access from outside the audio goroutine
func (s *Server) assertAudioThread(op string) {
	if !s.loop.InLoop() {
		s.assertf("%s called off the audio goroutine", op)
	}
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.config.Debug {
		log.Printf(format, args...)
	}
}
