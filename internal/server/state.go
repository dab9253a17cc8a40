// ABOUTME: Read-only snapshots of the voice pool
// ABOUTME: Consumed by the monitor UI and the remote pool/state command
package server

// SlotState describes one slot at snapshot time
type SlotState struct {
	Index       int
	Valid       bool
	Available   bool
	Generation  int
	Handle      PlayHandle
	WantPlay    bool
	Playing     bool
	Loading     bool
	Music       bool
	Looping     bool
	Positional  bool
	Gain        float64
	Fade        float64
	Pitch       float64
	Position    [3]float64
	Sound       string
	Streaming   bool
	ClientQueue int
	Holder      string
}

// PoolState describes the whole server
type PoolState struct {
	Slots       []SlotState
	Available   int
	LiveVoices  int
	Fades       int
	Streams     int
	Paused      bool
	Tick        TickState
	SoundVolume float64
	MusicVolume float64
	SoundPitch  float64
}

// Busy returns how many valid slots are not available
func (p PoolState) Busy() int {
	n := 0
	for _, s := range p.Slots {
		if s.Valid && !s.Available {
			n++
		}
	}
	return n
}
