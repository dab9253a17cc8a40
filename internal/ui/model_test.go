// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key handling and rendering of busy slots
package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/voicepool/internal/server"
)

func testPool() *server.PoolState {
	return &server.PoolState{
		Slots: []server.SlotState{
			{Index: 0, Valid: true, Available: true},
			{Index: 1, Valid: true, Handle: server.NewPlayHandle(3, 1), Generation: 3, Sound: "laser", Playing: true, Gain: 1, Fade: 1},
			{Index: 2, Valid: true, Handle: server.NewPlayHandle(1, 2), Generation: 1, Sound: "theme", Playing: true, Music: true, Looping: true, Gain: 0.5, Fade: 1},
			{Index: 3, Valid: false},
		},
		Available:   1,
		LiveVoices:  3,
		SoundVolume: 1.5,
		MusicVolume: 0.5,
		SoundPitch:  1,
	}
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil)

	if model.havePool {
		t.Error("expected no pool before the first status")
	}
	if model.soundVolume != 1 || model.musicVolume != 1 {
		t.Errorf("expected default volumes 1/1, got %v/%v", model.soundVolume, model.musicVolume)
	}
	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}
}

func TestApplyStatus(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{Name: "voicepool", Addr: ":8928", Clients: 2, Pool: testPool()})

	if !model.havePool {
		t.Fatal("expected pool after status")
	}
	if model.name != "voicepool" || model.addr != ":8928" {
		t.Errorf("unexpected daemon identity %q %q", model.name, model.addr)
	}
	if model.clients != 2 {
		t.Errorf("expected 2 clients, got %d", model.clients)
	}
	if model.soundVolume != 1.5 || model.musicVolume != 0.5 {
		t.Errorf("expected volumes from snapshot, got %v/%v", model.soundVolume, model.musicVolume)
	}

	// Later statuses without a pool keep the last one
	model.applyStatus(StatusMsg{Clients: 0})
	if !model.havePool || len(model.pool.Slots) != 4 {
		t.Error("expected previous pool to be kept")
	}
	if model.name != "voicepool" {
		t.Error("expected name to be kept")
	}
}

func TestKeysSendControls(t *testing.T) {
	tests := []struct {
		key   tea.KeyMsg
		check func(ControlMsg) bool
	}{
		{tea.KeyMsg{Type: tea.KeyUp}, func(c ControlMsg) bool { return c.SoundVolume != nil && *c.SoundVolume > 1.59 && *c.SoundVolume < 1.61 }},
		{tea.KeyMsg{Type: tea.KeyDown}, func(c ControlMsg) bool { return c.SoundVolume != nil && *c.SoundVolume > 1.39 && *c.SoundVolume < 1.41 }},
		{tea.KeyMsg{Type: tea.KeyRight}, func(c ControlMsg) bool { return c.MusicVolume != nil && *c.MusicVolume > 0.59 && *c.MusicVolume < 0.61 }},
		{tea.KeyMsg{Type: tea.KeyLeft}, func(c ControlMsg) bool { return c.MusicVolume != nil && *c.MusicVolume > 0.39 && *c.MusicVolume < 0.41 }},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")}, func(c ControlMsg) bool { return c.TogglePause }},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")}, func(c ControlMsg) bool { return c.Reset }},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}, func(c ControlMsg) bool { return c.Quit }},
	}

	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			control := NewControl()
			model := NewModel(control)
			model.applyStatus(StatusMsg{Pool: testPool()})

			model.Update(tt.key)

			select {
			case msg := <-control.Changes:
				if !tt.check(msg) {
					t.Errorf("unexpected control %+v", msg)
				}
			default:
				t.Error("expected a control message")
			}
		})
	}
}

func TestVolumeClamped(t *testing.T) {
	model := NewModel(nil)
	model.soundVolume = server.MaxVolume

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyUp})
	if v := updated.(Model).soundVolume; v != server.MaxVolume {
		t.Errorf("expected volume held at %v, got %v", server.MaxVolume, v)
	}

	model.musicVolume = 0
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if v := updated.(Model).musicVolume; v != 0 {
		t.Errorf("expected volume held at 0, got %v", v)
	}
}

func TestDebugToggle(t *testing.T) {
	model := NewModel(nil)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if !updated.(Model).showDebug {
		t.Error("expected debug on after d")
	}
	updated, _ = updated.(Model).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if updated.(Model).showDebug {
		t.Error("expected debug off after second d")
	}
}

func TestViewRendersBusySlots(t *testing.T) {
	model := NewModel(nil)
	if got := model.View(); got != "Loading..." {
		t.Errorf("expected Loading... before window size, got %q", got)
	}

	updated, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	model = updated.(Model)
	model.applyStatus(StatusMsg{Name: "voicepool", Addr: ":8928", Pool: testPool()})

	view := model.View()
	for _, want := range []string{"laser", "theme", "music∞", "2/4 busy"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
	if strings.Contains(view, "All voices idle") {
		t.Error("expected busy slots, not idle message")
	}
}

func TestViewIdle(t *testing.T) {
	model := NewModel(nil)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	model = updated.(Model)
	model.applyStatus(StatusMsg{Pool: &server.PoolState{Slots: []server.SlotState{{Valid: true, Available: true}}}})

	if !strings.Contains(model.View(), "All voices idle") {
		t.Error("expected idle message")
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value, max float64
		width      int
		want       string
	}{
		{0, 1, 4, "░░░░"},
		{1, 1, 4, "████"},
		{1.5, 3, 4, "██░░"},
	}

	for _, tt := range tests {
		if got := renderBar(tt.value, tt.max, tt.width); got != tt.want {
			t.Errorf("renderBar(%v, %v, %d) = %q, want %q", tt.value, tt.max, tt.width, got, tt.want)
		}
	}
}

func TestSlotFlags(t *testing.T) {
	tests := []struct {
		slot server.SlotState
		want string
	}{
		{server.SlotState{Loading: true, Music: true}, "loading"},
		{server.SlotState{Music: true, Looping: true}, "music∞"},
		{server.SlotState{Music: true}, "music"},
		{server.SlotState{Streaming: true, Playing: true}, "stream"},
		{server.SlotState{Looping: true}, "loop"},
		{server.SlotState{Playing: true}, "playing"},
		{server.SlotState{}, "stopping"},
	}

	for _, tt := range tests {
		if got := slotFlags(tt.slot); got != tt.want {
			t.Errorf("slotFlags(%+v) = %q, want %q", tt.slot, got, tt.want)
		}
	}
}
