// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the pool monitor
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ControlMsg is a user action for the daemon to apply
type ControlMsg struct {
	SoundVolume *float64
	MusicVolume *float64
	TogglePause bool
	Reset       bool
	Quit        bool
}

// Control carries user actions out of the TUI
type Control struct {
	Changes chan ControlMsg
}

// NewControl creates a new control channel
func NewControl() *Control {
	return &Control{
		Changes: make(chan ControlMsg, 10),
	}
}

// NewModel creates a new TUI model
func NewModel(control *Control) Model {
	return Model{
		soundVolume: 1,
		musicVolume: 1,
		control:     control,
	}
}

// Run creates the TUI program. The caller runs it and feeds StatusMsg with Send.
func Run(control *Control) *tea.Program {
	return tea.NewProgram(NewModel(control), tea.WithAltScreen())
}
