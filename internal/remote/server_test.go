// ABOUTME: Tests for the remote control server
// ABOUTME: Drives a headless sound system through the protocol client over httptest
package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/voicepool/internal/server"
	"github.com/Resonate-Protocol/voicepool/pkg/audio"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/encode"
	"github.com/Resonate-Protocol/voicepool/pkg/protocol"
	"github.com/Resonate-Protocol/voicepool/pkg/sfx"
)

type testDaemon struct {
	srv *Server
	sys *sfx.System
	ts  *httptest.Server
	cli *protocol.Client
}

func newTestDaemon(t *testing.T) *testDaemon {
	t.Helper()

	sys, err := sfx.Open(sfx.Config{
		Backend:        sfx.BackendNone,
		SampleRate:     8000,
		CacheDir:       t.TempDir(),
		ThrottleWindow: time.Nanosecond,
		Server:         server.Config{PoolSize: 4},
	})
	if err != nil {
		t.Fatalf("sfx.Open: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		sys.Run(ctx)
	}()

	srv, err := NewServer(sys, Config{Name: "test pool"})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())

	cli := protocol.NewClient(protocol.Config{
		ServerAddr: strings.TrimPrefix(ts.URL, "http://"),
		Name:       "tester",
	})
	if err := cli.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	t.Cleanup(func() {
		cli.Close()
		srv.Close()
		ts.Close()
		cancel()
		<-runDone
		if err := sys.Close(context.Background()); err != nil {
			t.Errorf("sys.Close: %v", err)
		}
	})

	return &testDaemon{srv: srv, sys: sys, ts: ts, cli: cli}
}

// upload sends seconds of a 16-bit mono tone under name
func (d *testDaemon) upload(t *testing.T, name string, seconds int) {
	t.Helper()

	format := audio.Format{Codec: "pcm", SampleRate: 8000, Channels: 1, BitDepth: 16}
	enc, err := encode.New(format)
	if err != nil {
		t.Fatalf("encode.New: %v", err)
	}
	defer enc.Close()

	samples := make([]float32, 8000*seconds)
	for i := range samples {
		samples[i] = 0.25
	}
	packets, err := encode.Packets(enc, samples)
	if err != nil {
		t.Fatalf("Packets: %v", err)
	}

	err = d.cli.Upload(context.Background(), protocol.SoundUpload{
		Name:       name,
		Codec:      format.Codec,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		BitDepth:   format.BitDepth,
		Packets:    packets,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
}

func (d *testDaemon) play(t *testing.T, play protocol.SoundPlay) protocol.SoundStarted {
	t.Helper()
	started, err := d.cli.Play(context.Background(), play)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	return started
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHandshake(t *testing.T) {
	d := newTestDaemon(t)

	hello := d.cli.ServerHello()
	if hello.Name != "test pool" {
		t.Errorf("expected name 'test pool', got %q", hello.Name)
	}
	if hello.PoolSize != 4 {
		t.Errorf("expected pool size 4, got %d", hello.PoolSize)
	}
	if hello.SampleRate != 8000 {
		t.Errorf("expected sample rate 8000, got %d", hello.SampleRate)
	}
	if hello.Version != protocol.Version {
		t.Errorf("expected version %d, got %d", protocol.Version, hello.Version)
	}

	clients := d.srv.Clients()
	if len(clients) != 1 || clients[0].Name != "tester" {
		t.Errorf("expected one client named tester, got %+v", clients)
	}
}

func TestRejectsBadHello(t *testing.T) {
	tests := []struct {
		name string
		msg  protocol.Message
	}{
		{"wrong type", protocol.Message{ID: "1", Type: protocol.TypeSoundPlay}},
		{"missing fields", protocol.Message{ID: "1", Type: protocol.TypeClientHello, Payload: protocol.ClientHello{Version: protocol.Version}}},
		{"wrong version", protocol.Message{ID: "1", Type: protocol.TypeClientHello, Payload: protocol.ClientHello{
			ClientID: "x", Name: "old", Version: protocol.Version + 1,
		}}},
	}

	d := newTestDaemon(t)
	url := "ws" + strings.TrimPrefix(d.ts.URL, "http") + protocol.Path

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				t.Fatalf("Dial: %v", err)
			}
			defer conn.Close()

			if err := conn.WriteJSON(tt.msg); err != nil {
				t.Fatalf("WriteJSON: %v", err)
			}

			var reply protocol.Message
			if err := conn.ReadJSON(&reply); err != nil {
				t.Fatalf("ReadJSON: %v", err)
			}
			if reply.Type != protocol.TypeError {
				t.Errorf("expected %s, got %s", protocol.TypeError, reply.Type)
			}
		})
	}
}

func TestUploadPlayStop(t *testing.T) {
	d := newTestDaemon(t)
	ctx := context.Background()

	d.upload(t, "hum", 10)

	started := d.play(t, protocol.SoundPlay{Name: "hum", Volume: 1})
	if started.Dropped || started.Handle == uint32(sfx.InvalidHandle) {
		t.Fatalf("expected play to start, got %+v", started)
	}

	playing, err := d.cli.Status(ctx, started.Handle)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !playing {
		t.Error("expected sound to be playing")
	}

	if err := d.cli.Stop(ctx, started.Handle); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	eventually(t, "sound to stop", func() bool {
		playing, err := d.cli.Status(ctx, started.Handle)
		return err == nil && !playing
	})
}

func TestPlayPlacement(t *testing.T) {
	d := newTestDaemon(t)
	d.upload(t, "step", 10)

	pos := [3]float64{1, 2, 3}
	tests := []struct {
		name       string
		play       protocol.SoundPlay
		wantMusic  bool
		wantLoop   bool
		wantOrigin bool
	}{
		{"flat", protocol.SoundPlay{Name: "step", Volume: 0.5}, false, false, true},
		{"positional", protocol.SoundPlay{Name: "step", Volume: 0.5, Position: &pos}, false, false, false},
		{"music", protocol.SoundPlay{Name: "step", Volume: 0.5, Music: true, Loop: true}, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			started := d.play(t, tt.play)
			if started.Dropped {
				t.Fatal("expected play to start")
			}

			ps, err := d.cli.PoolState(context.Background())
			if err != nil {
				t.Fatalf("PoolState: %v", err)
			}
			slot := ps.Slots[started.Handle&0xFFFF]
			if slot.Handle != started.Handle {
				t.Fatalf("expected slot handle %d, got %d", started.Handle, slot.Handle)
			}
			if slot.Music != tt.wantMusic {
				t.Errorf("expected music=%v, got %v", tt.wantMusic, slot.Music)
			}
			if slot.Looping != tt.wantLoop {
				t.Errorf("expected looping=%v, got %v", tt.wantLoop, slot.Looping)
			}
			if tt.wantOrigin && slot.Position != ([3]float64{}) {
				t.Errorf("expected origin, got %v", slot.Position)
			}
			if !tt.wantOrigin && slot.Position != pos {
				t.Errorf("expected position %v, got %v", pos, slot.Position)
			}
			if slot.Gain != 0.5 {
				t.Errorf("expected gain 0.5, got %v", slot.Gain)
			}
		})
	}
}

func TestPlayDroppedWhenPoolExhausted(t *testing.T) {
	d := newTestDaemon(t)
	d.upload(t, "long", 10)

	for i := 0; i < 4; i++ {
		if started := d.play(t, protocol.SoundPlay{Name: "long", Volume: 1}); started.Dropped {
			t.Fatalf("play %d dropped", i)
		}
	}

	started := d.play(t, protocol.SoundPlay{Name: "long", Volume: 1})
	if !started.Dropped {
		t.Error("expected fifth play to be dropped")
	}
	if started.Handle != uint32(sfx.InvalidHandle) {
		t.Errorf("expected invalid handle, got %#x", started.Handle)
	}
}

func TestRequestErrors(t *testing.T) {
	d := newTestDaemon(t)
	ctx := context.Background()
	forward := [3]float64{0, 0, -1}

	tests := []struct {
		name    string
		typ     string
		payload interface{}
	}{
		{"unknown sound", protocol.TypeSoundPlay, protocol.SoundPlay{Name: "missing", Volume: 1}},
		{"unknown type", "bogus/type", struct{}{}},
		{"load without path", protocol.TypeSoundLoad, protocol.SoundLoad{Name: "x"}},
		{"negative fade", protocol.TypeSoundFade, protocol.SoundFade{Handle: 1, DurationMs: -5}},
		{"half orientation", protocol.TypeMixerParams, protocol.MixerParams{ListenerForward: &forward}},
		{"empty upload", protocol.TypeSoundUpload, protocol.SoundUpload{Name: "e", Codec: "pcm", SampleRate: 8000, Channels: 1, BitDepth: 16}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.cli.Request(ctx, tt.typ, tt.payload, nil)
			var remoteErr *protocol.RemoteError
			if !errors.As(err, &remoteErr) {
				t.Errorf("expected RemoteError, got %v", err)
			}
		})
	}
}

func TestMixerParams(t *testing.T) {
	d := newTestDaemon(t)
	ctx := context.Background()

	sound, music := 2.5, 9.0
	if err := d.cli.SetParams(ctx, protocol.MixerParams{SoundVolume: &sound, MusicVolume: &music}); err != nil {
		t.Fatalf("SetParams: %v", err)
	}

	ps, err := d.cli.PoolState(ctx)
	if err != nil {
		t.Fatalf("PoolState: %v", err)
	}
	if ps.SoundVolume != 2.5 {
		t.Errorf("expected sound volume 2.5, got %v", ps.SoundVolume)
	}
	if ps.MusicVolume != server.MaxVolume {
		t.Errorf("expected music volume clamped to %v, got %v", server.MaxVolume, ps.MusicVolume)
	}
}

func TestInterruptAndReset(t *testing.T) {
	d := newTestDaemon(t)
	ctx := context.Background()
	d.upload(t, "loop", 10)

	started := d.play(t, protocol.SoundPlay{Name: "loop", Volume: 1, Music: true, Loop: true})

	if err := d.cli.Interrupt(ctx, true); err != nil {
		t.Fatalf("Interrupt(true): %v", err)
	}
	ps, err := d.cli.PoolState(ctx)
	if err != nil {
		t.Fatalf("PoolState: %v", err)
	}
	if !ps.Paused {
		t.Error("expected paused after interruption")
	}

	if err := d.cli.Interrupt(ctx, false); err != nil {
		t.Fatalf("Interrupt(false): %v", err)
	}
	if ps, _ = d.cli.PoolState(ctx); ps.Paused {
		t.Error("expected resumed after interruption ended")
	}

	if err := d.cli.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	eventually(t, "reset to stop music", func() bool {
		playing, err := d.cli.Status(ctx, started.Handle)
		return err == nil && !playing
	})
}

func TestMetricsEndpoint(t *testing.T) {
	d := newTestDaemon(t)

	resp, err := http.Get(d.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "voicepool_voices_live 4") {
		t.Errorf("expected voicepool_voices_live 4 in metrics, got:\n%s", body)
	}
}

func TestDecodePackets(t *testing.T) {
	tests := []struct {
		name    string
		format  audio.Format
		packets [][]byte
		want    int
		wantErr bool
	}{
		{"pcm16", audio.Format{Codec: "pcm", SampleRate: 8000, Channels: 1, BitDepth: 16}, [][]byte{{0, 0, 0, 0}, {0, 0}}, 3, false},
		{"no packets", audio.Format{Codec: "pcm", SampleRate: 8000, Channels: 1, BitDepth: 16}, nil, 0, true},
		{"unknown codec", audio.Format{Codec: "aac", SampleRate: 8000, Channels: 1}, [][]byte{{0}}, 0, true},
		{"bad channels", audio.Format{Codec: "pcm", SampleRate: 8000, Channels: 6, BitDepth: 16}, [][]byte{{0, 0}}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples, err := decodePackets(tt.format, tt.packets)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodePackets: %v", err)
			}
			if len(samples) != tt.want {
				t.Errorf("expected %d samples, got %d", tt.want, len(samples))
			}
		})
	}
}
