// ABOUTME: Real-time audio server managing a fixed pool of hardware voices
// ABOUTME: Owns slots, fades, streamers and the adaptive processing timer on one goroutine
// Package server shares a fixed pool of output voices between a logic thread
// and a dedicated audio goroutine.
//
// The logic thread never touches voices. It claims a slot with
// SourceBeginNew (or re-claims one by PlayHandle with SourceBeginExisting),
// issues commands on the returned Ticket, and calls End. Every command is a
// closure posted to the audio goroutine's run loop, executed in FIFO order.
//
// The audio goroutine wakes on an adaptive timer: 1ms while loads are
// pending, 50ms while fades or streams are active, 500ms otherwise. Each
// tick it decodes pending loads, recycles finished slots, advances fades and
// refills streaming buffers.
//
// A PlayHandle packs (generation << 16 | slot). Recycling a slot bumps its
// generation, so stale handles can never reach the next sound.
package server
