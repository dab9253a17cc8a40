// ABOUTME: Play handle newtype
// ABOUTME: Packs slot generation and index so recycled slots reject stale handles
package server

import "fmt"

const (
	slotBits = 16
	slotMask = 1<<slotBits - 1

	// maxGenerationModulus keeps generations inside the upper 16 bits
	// and leaves the all-ones pattern free for InvalidHandle
	maxGenerationModulus = 1<<16 - 1
)

// PlayHandle identifies one playback on one slot
type PlayHandle uint32

// InvalidHandle is returned when nothing was played
const InvalidHandle PlayHandle = 0xFFFFFFFF

// NewPlayHandle packs a generation and slot index
func NewPlayHandle(generation, slot int) PlayHandle {
	return PlayHandle(uint32(generation)<<slotBits | uint32(slot&slotMask))
}

// Slot returns the slot index
func (h PlayHandle) Slot() int {
	return int(uint32(h) & slotMask)
}

// Generation returns the slot generation the handle was issued for
func (h PlayHandle) Generation() int {
	return int(uint32(h) >> slotBits)
}

// Valid reports whether h could refer to a playback at all
func (h PlayHandle) Valid() bool {
	return h != InvalidHandle
}

func (h PlayHandle) String() string {
	if !h.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("%d:%d", h.Slot(), h.Generation())
}
