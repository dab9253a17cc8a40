// ABOUTME: Bubbletea model for the voice pool monitor
// ABOUTME: Renders slot state from snapshots and turns keys into mixer controls
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/voicepool/internal/server"
)

// volumeStep is how far one key press moves a volume
const volumeStep = 0.1

// Model represents the TUI state
type Model struct {
	// Daemon
	name    string
	addr    string
	clients int

	// Pool
	pool     server.PoolState
	havePool bool

	// Local copies so key repeats accumulate before the next snapshot
	soundVolume float64
	musicVolume float64

	// Debug
	showDebug bool

	control *Control

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderMixer()
	s += m.renderSlots()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders daemon and pool status
func (m Model) renderHeader() string {
	status := "Waiting for first snapshot"
	if m.havePool {
		state := "Running"
		if m.pool.Paused {
			state = "Interrupted"
		}
		status = fmt.Sprintf("%s, %d/%d busy, tick %s", state, m.pool.Busy(), len(m.pool.Slots), m.pool.Tick)
	}

	return fmt.Sprintf(`┌─ Voicepool ──────────────────────────────────────────┐
│ Daemon: %-44s │
│ Pool:   %-44s │
├──────────────────────────────────────────────────────┤
`, truncate(fmt.Sprintf("%s on %s (%d clients)", m.name, m.addr, m.clients), 44), truncate(status, 44))
}

// renderMixer renders global volumes and counters
func (m Model) renderMixer() string {
	return fmt.Sprintf("│ Sound:  [%s] %3.0f%%%-25s │\n"+
		"│ Music:  [%s] %3.0f%%%-25s │\n"+
		"│ Pitch:  %-4.2f  Fades: %-3d Streams: %-3d Voices: %-4d │\n"+
		"├──────────────────────────────────────────────────────┤\n",
		renderBar(m.soundVolume, server.MaxVolume, 10), m.soundVolume*100, "",
		renderBar(m.musicVolume, server.MaxVolume, 10), m.musicVolume*100, "",
		m.pool.SoundPitch, m.pool.Fades, m.pool.Streams, m.pool.LiveVoices)
}

// renderSlots renders one row per busy slot
func (m Model) renderSlots() string {
	var b strings.Builder

	busy := 0
	for _, slot := range m.pool.Slots {
		if !slot.Valid || slot.Available {
			continue
		}
		busy++
		if m.height > 0 && busy > m.maxRows() {
			continue
		}
		fmt.Fprintf(&b, "│ %3d %-10s %-16s [%s] %-8s │\n",
			slot.Index, slot.Handle, truncate(slot.Sound, 16),
			renderBar(slot.Gain*slot.Fade, 1, 5), slotFlags(slot))
	}

	if busy == 0 {
		b.WriteString("│ All voices idle                                      │\n")
	} else if m.height > 0 && busy > m.maxRows() {
		fmt.Fprintf(&b, "│ ... %d more%-42s │\n", busy-m.maxRows(), "")
	}
	return b.String()
}

// maxRows leaves room for the fixed sections
func (m Model) maxRows() int {
	rows := m.height - 12
	if m.showDebug {
		rows -= 4
	}
	if rows < 1 {
		return 1
	}
	return rows
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ ↑/↓:Sound  ←/→:Music  p:Pause  r:Reset  d:Debug  q:Quit │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders lock holders and queue depths
func (m Model) renderDebug() string {
	var b strings.Builder
	b.WriteString("│ DEBUG:                                               │\n")

	shown := 0
	for _, slot := range m.pool.Slots {
		if slot.Holder == "" && slot.ClientQueue == 0 {
			continue
		}
		fmt.Fprintf(&b, "│   slot %3d gen %5d queue %2d held by %-14s │\n",
			slot.Index, slot.Generation, slot.ClientQueue, truncate(slot.Holder, 14))
		shown++
	}
	if shown == 0 {
		fmt.Fprintf(&b, "│   No locks held, %d slots available%-18s │\n", m.pool.Available, "")
	}
	return b.String()
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.send(ControlMsg{Quit: true})
		return m, tea.Quit
	case "up":
		m.soundVolume = clampVolume(m.soundVolume + volumeStep)
		v := m.soundVolume
		m.send(ControlMsg{SoundVolume: &v})
	case "down":
		m.soundVolume = clampVolume(m.soundVolume - volumeStep)
		v := m.soundVolume
		m.send(ControlMsg{SoundVolume: &v})
	case "right":
		m.musicVolume = clampVolume(m.musicVolume + volumeStep)
		v := m.musicVolume
		m.send(ControlMsg{MusicVolume: &v})
	case "left":
		m.musicVolume = clampVolume(m.musicVolume - volumeStep)
		v := m.musicVolume
		m.send(ControlMsg{MusicVolume: &v})
	case "p":
		m.send(ControlMsg{TogglePause: true})
	case "r":
		m.send(ControlMsg{Reset: true})
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// send forwards a control without blocking the UI
func (m Model) send(msg ControlMsg) {
	if m.control == nil {
		return
	}
	select {
	case m.control.Changes <- msg:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Name != "" {
		m.name = msg.Name
	}
	if msg.Addr != "" {
		m.addr = msg.Addr
	}
	m.clients = msg.Clients
	if msg.Pool != nil {
		m.pool = *msg.Pool
		m.havePool = true
		m.soundVolume = msg.Pool.SoundVolume
		m.musicVolume = msg.Pool.MusicVolume
	}
}

// StatusMsg updates TUI state
type StatusMsg struct {
	Name    string
	Addr    string
	Clients int
	Pool    *server.PoolState
}

// Utility functions
func renderBar(value, max float64, width int) string {
	filled := int(value * float64(width) / max)
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > server.MaxVolume {
		return server.MaxVolume
	}
	return v
}

func slotFlags(slot server.SlotState) string {
	switch {
	case slot.Loading:
		return "loading"
	case slot.Music && slot.Looping:
		return "music∞"
	case slot.Music:
		return "music"
	case slot.Streaming:
		return "stream"
	case slot.Looping:
		return "loop"
	case slot.Playing:
		return "playing"
	default:
		return "stopping"
	}
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
