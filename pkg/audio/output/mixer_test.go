// ABOUTME: Tests for the software mixer
// ABOUTME: Covers voice limits, static and queued playback, looping, panning and suspend
package output

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Resonate-Protocol/voicepool/pkg/audio"
)

var monoFormat = audio.Format{SampleRate: 100, Channels: 1}

func newTestMixer(maxVoices int) *Mixer {
	return NewMixer(MixerConfig{SampleRate: 100, MaxVoices: maxVoices})
}

func constant(frames int, value float32) []float32 {
	s := make([]float32, frames)
	for i := range s {
		s[i] = value
	}
	return s
}

func TestMixerImplementsDevice(t *testing.T) {
	var _ Device = (*Mixer)(nil)
	var _ Sink = (*OtoSink)(nil)
	var _ Sink = (*MalgoSink)(nil)
	var _ Sink = (*TickerSink)(nil)
}

func TestMixerVoiceLimit(t *testing.T) {
	m := newTestMixer(2)

	v1, err := m.NewVoice()
	if err != nil {
		t.Fatalf("first voice: %v", err)
	}
	if _, err := m.NewVoice(); err != nil {
		t.Fatalf("second voice: %v", err)
	}

	_, err = m.NewVoice()
	if !errors.Is(err, ErrVoiceLimit) {
		t.Fatalf("expected ErrVoiceLimit, got %v", err)
	}
	if m.LiveVoices() != 2 {
		t.Errorf("expected 2 live voices, got %d", m.LiveVoices())
	}

	v1.Close()
	if m.LiveVoices() != 1 {
		t.Errorf("expected 1 live voice after close, got %d", m.LiveVoices())
	}
	if _, err := m.NewVoice(); err != nil {
		t.Errorf("expected voice after close freed one, got %v", err)
	}
}

func TestStaticVoicePlaysToEnd(t *testing.T) {
	m := newTestMixer(4)
	v, _ := m.NewVoice()
	v.SetPositional(false)

	buf, err := m.NewBuffer(monoFormat, constant(50, 0.5))
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	if err := v.SetBuffer(buf); err != nil {
		t.Fatalf("SetBuffer: %v", err)
	}
	v.Play()

	out := make([]float32, 2*40)
	m.Mix(out)
	if !v.IsPlaying() {
		t.Fatal("expected voice to still be playing after 40 of 50 frames")
	}
	if out[0] != 0.5 || out[1] != 0.5 {
		t.Errorf("expected non-positional mono at full gain, got %v %v", out[0], out[1])
	}

	m.Mix(out)
	if v.IsPlaying() {
		t.Error("expected voice to stop at end of buffer")
	}
}

func TestLoopingVoiceKeepsPlaying(t *testing.T) {
	m := newTestMixer(4)
	v, _ := m.NewVoice()
	buf, _ := m.NewBuffer(monoFormat, constant(10, 0.1))
	v.SetBuffer(buf)
	v.SetLooping(true)
	v.Play()

	out := make([]float32, 2*100)
	for i := 0; i < 5; i++ {
		m.Mix(out)
	}
	if !v.IsPlaying() {
		t.Error("expected looping voice to keep playing")
	}

	v.SetLooping(false)
	m.Mix(out)
	if v.IsPlaying() {
		t.Error("expected voice to finish once looping is cleared")
	}
}

func TestQueuedBuffersProcessed(t *testing.T) {
	m := newTestMixer(4)
	v, _ := m.NewVoice()

	for i := 0; i < 3; i++ {
		buf, _ := m.NewBuffer(monoFormat, constant(20, 0.2))
		if err := v.QueueBuffer(buf); err != nil {
			t.Fatalf("QueueBuffer: %v", err)
		}
	}
	v.Play()

	out := make([]float32, 2*25)
	m.Mix(out)
	if got := v.Processed(); got != 1 {
		t.Fatalf("expected 1 processed buffer, got %d", got)
	}

	done := v.UnqueueProcessed(5)
	if len(done) != 1 {
		t.Fatalf("expected 1 unqueued buffer, got %d", len(done))
	}
	if v.Processed() != 0 {
		t.Errorf("expected 0 processed after unqueue, got %d", v.Processed())
	}

	// Requeue and drain everything
	v.QueueBuffer(done[0])
	big := make([]float32, 2*200)
	m.Mix(big)
	if v.IsPlaying() {
		t.Error("expected voice to stop once the queue runs dry")
	}
	if v.Processed() != 3 {
		t.Errorf("expected 3 processed buffers, got %d", v.Processed())
	}
}

func TestQueueOntoStaticFails(t *testing.T) {
	m := newTestMixer(1)
	v, _ := m.NewVoice()
	buf, _ := m.NewBuffer(monoFormat, constant(4, 0))
	v.SetBuffer(buf)

	if err := v.QueueBuffer(buf); !errors.Is(err, ErrStaticBuffer) {
		t.Errorf("expected ErrStaticBuffer, got %v", err)
	}
}

func TestStopMarksProcessed(t *testing.T) {
	m := newTestMixer(1)
	v, _ := m.NewVoice()
	for i := 0; i < 2; i++ {
		buf, _ := m.NewBuffer(monoFormat, constant(20, 0))
		v.QueueBuffer(buf)
	}
	v.Play()
	v.Stop()

	if v.IsPlaying() {
		t.Error("expected voice stopped")
	}
	if v.Processed() != 2 {
		t.Errorf("expected all buffers processed after stop, got %d", v.Processed())
	}
}

func TestPositionalPanning(t *testing.T) {
	tests := []struct {
		name      string
		x         float64
		wantLeft  bool
		wantRight bool
	}{
		{"hard right", 1, false, true},
		{"hard left", -1, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMixer(1)
			v, _ := m.NewVoice()
			buf, _ := m.NewBuffer(monoFormat, constant(10, 1))
			v.SetBuffer(buf)
			v.SetPositional(true)
			v.SetPosition(tt.x, 0, 0)
			v.Play()

			out := make([]float32, 2*4)
			m.Mix(out)

			left, right := out[0], out[1]
			if tt.wantRight && !(right > 0.99 && left < 0.01) {
				t.Errorf("expected right pan, got L=%v R=%v", left, right)
			}
			if tt.wantLeft && !(left > 0.99 && right < 0.01) {
				t.Errorf("expected left pan, got L=%v R=%v", left, right)
			}
		})
	}
}

func TestDistanceAttenuation(t *testing.T) {
	m := newTestMixer(1)
	v, _ := m.NewVoice()
	buf, _ := m.NewBuffer(monoFormat, constant(10, 1))
	v.SetBuffer(buf)
	v.SetPosition(0, 0, -3)
	v.Play()

	out := make([]float32, 2*4)
	m.Mix(out)

	// Straight ahead at distance 3: 1/3 split evenly by the pan law
	want := float32(1.0 / 3.0 * math.Cos(math.Pi/4))
	if math.Abs(float64(out[0]-want)) > 1e-4 || math.Abs(float64(out[1]-want)) > 1e-4 {
		t.Errorf("expected %v per channel, got L=%v R=%v", want, out[0], out[1])
	}
}

func TestSuspendHoldsPosition(t *testing.T) {
	m := newTestMixer(1)
	v, _ := m.NewVoice()
	v.SetPositional(false)
	buf, _ := m.NewBuffer(monoFormat, constant(30, 0.3))
	v.SetBuffer(buf)
	v.Play()

	m.Suspend()
	out := make([]float32, 2*100)
	m.Mix(out)
	if out[0] != 0 {
		t.Errorf("expected silence while suspended, got %v", out[0])
	}
	if !v.IsPlaying() {
		t.Error("expected voice to survive suspend")
	}

	m.Resume()
	m.Mix(out)
	if v.IsPlaying() {
		t.Error("expected voice to finish after resume")
	}
}

func TestMixClips(t *testing.T) {
	m := newTestMixer(4)
	for i := 0; i < 3; i++ {
		v, _ := m.NewVoice()
		v.SetPositional(false)
		buf, _ := m.NewBuffer(monoFormat, constant(10, 0.9))
		v.SetBuffer(buf)
		v.Play()
	}

	out := make([]float32, 2*4)
	m.Mix(out)
	if out[0] != 1 {
		t.Errorf("expected clipped sum of 1, got %v", out[0])
	}
}

func TestReadFloat32LE(t *testing.T) {
	m := newTestMixer(1)
	v, _ := m.NewVoice()
	v.SetPositional(false)
	buf, _ := m.NewBuffer(monoFormat, constant(10, 0.25))
	v.SetBuffer(buf)
	v.Play()

	p := make([]byte, 4*2*2+3)
	n, err := m.Read(p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 16 {
		t.Fatalf("expected 16 bytes, got %d", n)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(p)); got != 0.25 {
		t.Errorf("expected first sample 0.25, got %v", got)
	}
}

func TestDeleteAttachedBuffer(t *testing.T) {
	m := newTestMixer(1)
	v, _ := m.NewVoice()
	buf, _ := m.NewBuffer(monoFormat, constant(4, 0))
	v.SetBuffer(buf)

	if err := m.DeleteBuffer(buf); err == nil {
		t.Error("expected error deleting an attached buffer")
	}

	v.SetBuffer(nil)
	if err := m.DeleteBuffer(buf); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVoicesSnapshot(t *testing.T) {
	m := newTestMixer(2)
	v, _ := m.NewVoice()
	v.SetGain(0.5)
	v.SetPitch(1.5)
	m.NewVoice()

	states := m.Voices()
	if len(states) != 2 {
		t.Fatalf("expected 2 voice states, got %d", len(states))
	}
	if states[0].Gain != 0.5 || states[0].Pitch != 1.5 {
		t.Errorf("unexpected state %+v", states[0])
	}
}

func TestTickerSinkAdvancesVoices(t *testing.T) {
	m := NewMixer(MixerConfig{SampleRate: 1000, MaxVoices: 1})
	v, _ := m.NewVoice()
	buf, _ := m.NewBuffer(audio.Format{SampleRate: 1000, Channels: 1}, constant(20, 0))
	v.SetBuffer(buf)
	v.Play()

	sink := NewTickerSink(m, 5*time.Millisecond)
	defer sink.Close()

	deadline := time.Now().Add(2 * time.Second)
	for v.IsPlaying() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if v.IsPlaying() {
		t.Error("expected ticker sink to play the voice to its end")
	}
}
