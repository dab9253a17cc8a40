// ABOUTME: Reference-counted sound assets owned by a logic-thread run loop
// ABOUTME: Loads, shares and prunes sounds without ever freeing them on the audio thread
// Package asset manages the sounds the audio server plays.
//
// A Library belongs to one owner run loop (the logic thread). Sounds are
// reference counted: the library holds one reference, and the audio server
// retains another for each voice playing the sound. The server never drops
// its reference itself; it hands the sound back with Return, which posts the
// drop to the owner loop.
//
// Loads are queued and decoded by the audio server in bounded batches each
// tick (RunPendingLoads). Idle sounds expire from a go-cache TTL cache and are
// pruned by a three-hop handoff: owner takes a temporary reference, the audio
// thread frees the device buffer, the owner drops the final reference.
package asset
