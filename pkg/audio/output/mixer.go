// ABOUTME: Software voice mixer implementing Device
// ABOUTME: Resamples, pans and sums playing voices into interleaved stereo float32
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/voicepool/pkg/audio"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/resample"
)

// MixerConfig holds software mixer settings
type MixerConfig struct {
	SampleRate int
	MaxVoices  int

	// RefDistance and Rolloff shape inverse-distance attenuation
	RefDistance float64
	Rolloff     float64
}

// VoiceState is a point-in-time view of one voice
type VoiceState struct {
	ID         int
	Playing    bool
	Gain       float64
	Pitch      float64
	Looping    bool
	Positional bool
	Position   [3]float64
	Queued     int
	Processed  int
}

// Mixer is a software Device. Voice methods and Mix may be called from
// different goroutines.
type Mixer struct {
	sampleRate  int
	maxVoices   int
	refDistance float64
	rolloff     float64

	mu        sync.Mutex
	voices    map[int]*mixVoice
	nextID    int
	listener  [3]float64
	forward   [3]float64
	up        [3]float64
	suspended bool
	closed    bool
	sink      Sink

	live    atomic.Int64
	scratch []float32
	bytes   []float32
}

// NewMixer creates a software mixer
func NewMixer(config MixerConfig) *Mixer {
	if config.SampleRate <= 0 {
		config.SampleRate = 44100
	}
	if config.MaxVoices <= 0 {
		config.MaxVoices = 64
	}
	if config.RefDistance <= 0 {
		config.RefDistance = 1
	}
	if config.Rolloff <= 0 {
		config.Rolloff = 1
	}

	return &Mixer{
		sampleRate:  config.SampleRate,
		maxVoices:   config.MaxVoices,
		refDistance: config.RefDistance,
		rolloff:     config.Rolloff,
		voices:      make(map[int]*mixVoice),
		forward:     [3]float64{0, 0, -1},
		up:          [3]float64{0, 1, 0},
	}
}

// SampleRate returns the output rate
func (m *Mixer) SampleRate() int {
	return m.sampleRate
}

// AttachSink lets Suspend, Resume and Close reach the output backend
func (m *Mixer) AttachSink(sink Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
}

// NewVoice allocates a voice
func (m *Mixer) NewVoice() (Voice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if len(m.voices) >= m.maxVoices {
		return nil, fmt.Errorf("%w: %d voices", ErrVoiceLimit, m.maxVoices)
	}

	v := &mixVoice{
		mixer:      m,
		id:         m.nextID,
		gain:       1,
		pitch:      1,
		positional: true,
	}
	m.nextID++
	m.voices[v.id] = v
	m.live.Add(1)
	return v, nil
}

// NewBuffer copies samples into a device buffer
func (m *Mixer) NewBuffer(format audio.Format, samples []float32) (Buffer, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBuffer, err)
	}

	data := make([]float32, len(samples)-len(samples)%format.Channels)
	copy(data, samples)
	return &pcmBuffer{format: format, samples: data}, nil
}

// DeleteBuffer releases a buffer
func (m *Mixer) DeleteBuffer(buf Buffer) error {
	b, ok := buf.(*pcmBuffer)
	if !ok || b == nil {
		return ErrInvalidBuffer
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range m.voices {
		for _, q := range v.queue {
			if q == b {
				return fmt.Errorf("buffer still attached to voice %d", v.id)
			}
		}
	}
	b.samples = nil
	return nil
}

// SetListenerPosition moves the listener
func (m *Mixer) SetListenerPosition(x, y, z float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = [3]float64{x, y, z}
}

// SetListenerOrientation sets forward and up vectors
func (m *Mixer) SetListenerOrientation(forward, up [3]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forward = forward
	m.up = up
}

// Suspend silences output without advancing voices
func (m *Mixer) Suspend() error {
	m.mu.Lock()
	m.suspended = true
	sink := m.sink
	m.mu.Unlock()

	if sink != nil {
		return sink.Suspend()
	}
	return nil
}

// Resume continues output
func (m *Mixer) Resume() error {
	m.mu.Lock()
	m.suspended = false
	sink := m.sink
	m.mu.Unlock()

	if sink != nil {
		return sink.Resume()
	}
	return nil
}

// Suspended reports whether the mixer is suspended
func (m *Mixer) Suspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended
}

// LiveVoices returns allocated voice count
func (m *Mixer) LiveVoices() int {
	return int(m.live.Load())
}

// Voices returns the state of every allocated voice
func (m *Mixer) Voices() []VoiceState {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make([]VoiceState, 0, len(m.voices))
	for id := 0; id < m.nextID; id++ {
		v, ok := m.voices[id]
		if !ok {
			continue
		}
		states = append(states, VoiceState{
			ID:         v.id,
			Playing:    v.playing,
			Gain:       v.gain,
			Pitch:      v.pitch,
			Looping:    v.looping,
			Positional: v.positional,
			Position:   v.position,
			Queued:     len(v.queue),
			Processed:  v.processedLocked(),
		})
	}
	return states
}

// Close shuts the mixer and its sink down
func (m *Mixer) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sink := m.sink
	m.sink = nil
	live := len(m.voices)
	m.mu.Unlock()

	if live > 0 {
		log.Printf("Warning: mixer closed with %d voices still allocated", live)
	}
	if sink != nil {
		return sink.Close()
	}
	return nil
}

// Mix renders interleaved stereo into out, replacing its contents
func (m *Mixer) Mix(out []float32) {
	for i := range out {
		out[i] = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.suspended || m.closed {
		return
	}

	for _, v := range m.voices {
		if v.playing {
			v.render(out)
		}
	}

	for i, s := range out {
		if s > 1 {
			out[i] = 1
		} else if s < -1 {
			out[i] = -1
		}
	}
}

// Read implements io.Reader producing float32 little-endian stereo
func (m *Mixer) Read(p []byte) (int, error) {
	samples := len(p) / 4
	samples -= samples % 2
	if samples == 0 {
		return 0, nil
	}

	if cap(m.bytes) < samples {
		m.bytes = make([]float32, samples)
	}
	buf := m.bytes[:samples]
	m.Mix(buf)

	for i, s := range buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return samples * 4, nil
}

// channelGains returns left and right gains for a voice (must hold m.mu)
func (m *Mixer) channelGains(v *mixVoice, channels int) (float32, float32) {
	if channels != 1 || !v.positional {
		return float32(v.gain), float32(v.gain)
	}

	rel := [3]float64{
		v.position[0] - m.listener[0],
		v.position[1] - m.listener[1],
		v.position[2] - m.listener[2],
	}
	dist := math.Sqrt(rel[0]*rel[0] + rel[1]*rel[1] + rel[2]*rel[2])

	// Inverse distance, clamped at the reference distance
	attenuation := 1.0
	if dist > m.refDistance {
		attenuation = m.refDistance / (m.refDistance + m.rolloff*(dist-m.refDistance))
	}

	pan := 0.0
	if dist > 1e-9 {
		right := normalize(cross(m.forward, m.up))
		pan = (rel[0]*right[0] + rel[1]*right[1] + rel[2]*right[2]) / dist
	}

	// Constant power pan law
	angle := (pan + 1) * math.Pi / 4
	g := v.gain * attenuation
	return float32(g * math.Cos(angle)), float32(g * math.Sin(angle))
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v [3]float64) [3]float64 {
	l := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if l == 0 {
		return [3]float64{1, 0, 0}
	}
	return [3]float64{v[0] / l, v[1] / l, v[2] / l}
}

// pcmBuffer is the Mixer's Buffer
type pcmBuffer struct {
	format  audio.Format
	samples []float32
}

func (b *pcmBuffer) Format() audio.Format { return b.format }

func (b *pcmBuffer) Frames() int {
	return len(b.samples) / b.format.Channels
}

// mixVoice is the Mixer's Voice. All fields are guarded by mixer.mu.
type mixVoice struct {
	mixer *Mixer
	id    int

	gain       float64
	pitch      float64
	position   [3]float64
	looping    bool
	positional bool

	static  bool
	queue   []*pcmBuffer
	cursor  int // index of the buffer being played; earlier buffers are processed
	pos     int // frame offset within queue[cursor]
	playing bool
	closed  bool

	resampler *resample.Resampler
	resCh     int
	scratch   []float32
}

func (v *mixVoice) SetGain(gain float64) {
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()
	v.gain = gain
}

func (v *mixVoice) SetPitch(pitch float64) {
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()
	v.pitch = pitch
}

func (v *mixVoice) SetPosition(x, y, z float64) {
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()
	v.position = [3]float64{x, y, z}
}

func (v *mixVoice) SetLooping(loop bool) {
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()
	v.looping = loop
}

func (v *mixVoice) SetPositional(positional bool) {
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()
	v.positional = positional
}

func (v *mixVoice) SetBuffer(buf Buffer) error {
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()

	if v.closed {
		return ErrClosed
	}

	v.playing = false
	v.cursor = 0
	v.pos = 0
	v.resetResampler()

	if buf == nil {
		v.queue = nil
		v.static = false
		return nil
	}

	b, ok := buf.(*pcmBuffer)
	if !ok || b.samples == nil {
		return ErrInvalidBuffer
	}
	v.queue = []*pcmBuffer{b}
	v.static = true
	return nil
}

func (v *mixVoice) QueueBuffer(buf Buffer) error {
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if v.static {
		return ErrStaticBuffer
	}

	b, ok := buf.(*pcmBuffer)
	if !ok || b.samples == nil {
		return ErrInvalidBuffer
	}
	v.queue = append(v.queue, b)
	return nil
}

func (v *mixVoice) Processed() int {
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()
	return v.processedLocked()
}

func (v *mixVoice) processedLocked() int {
	if v.static {
		return 0
	}
	if v.cursor > len(v.queue) {
		return len(v.queue)
	}
	return v.cursor
}

func (v *mixVoice) UnqueueProcessed(n int) []Buffer {
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()

	if p := v.processedLocked(); n > p {
		n = p
	}
	if n <= 0 {
		return nil
	}

	out := make([]Buffer, n)
	for i := 0; i < n; i++ {
		out[i] = v.queue[i]
	}
	v.queue = append(v.queue[:0:0], v.queue[n:]...)
	v.cursor -= n
	return out
}

func (v *mixVoice) Play() {
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()

	if v.closed {
		return
	}
	if v.playing || v.cursor >= len(v.queue) {
		v.cursor = 0
	}
	v.pos = 0
	v.resetResampler()
	v.playing = len(v.queue) > 0
}

func (v *mixVoice) Stop() {
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()

	v.playing = false
	v.cursor = len(v.queue)
	v.pos = 0
}

func (v *mixVoice) IsPlaying() bool {
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()
	return v.playing
}

func (v *mixVoice) Close() error {
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()

	if v.closed {
		return nil
	}
	v.closed = true
	v.playing = false
	v.queue = nil
	delete(v.mixer.voices, v.id)
	v.mixer.live.Add(-1)
	return nil
}

func (v *mixVoice) resetResampler() {
	if v.resampler != nil {
		v.resampler.Reset()
	}
}

// render adds this voice into interleaved stereo out (must hold mixer.mu)
func (v *mixVoice) render(out []float32) {
	m := v.mixer
	frames := len(out) / 2
	written := 0

	for written < frames && v.playing {
		if v.cursor >= len(v.queue) {
			v.playing = false
			break
		}

		buf := v.queue[v.cursor]
		ch := buf.format.Channels
		total := buf.Frames()

		if v.resampler == nil || v.resCh != ch {
			v.resampler = resample.New(buf.format.SampleRate, m.sampleRate, ch)
			v.resCh = ch
		}
		v.resampler.SetRatio(buf.format.SampleRate, m.sampleRate, v.pitch)

		need := (frames - written) * ch
		if cap(v.scratch) < need {
			v.scratch = make([]float32, need)
		}
		tmp := v.scratch[:need]

		consumed, n := v.resampler.Resample(buf.samples[v.pos*ch:], tmp)
		v.pos += consumed

		gl, gr := m.channelGains(v, ch)
		produced := n / ch
		for i := 0; i < produced; i++ {
			o := (written + i) * 2
			if ch == 1 {
				out[o] += tmp[i] * gl
				out[o+1] += tmp[i] * gr
			} else {
				out[o] += tmp[i*2] * gl
				out[o+1] += tmp[i*2+1] * gr
			}
		}
		written += produced

		// The resampler holds back the final frame, so one left means done
		if total-v.pos > 1 {
			if produced == 0 {
				break
			}
			continue
		}

		v.pos = 0
		v.resampler.Reset()
		if v.static && v.looping && total > 1 {
			continue
		}
		v.cursor++
		if v.cursor >= len(v.queue) {
			v.playing = false
		}
	}
}
