// ABOUTME: Voicepool remote control protocol package
// ABOUTME: Defines JSON messages and a WebSocket request/reply client
// Package protocol implements the voicepool remote control protocol.
//
// Every message is a JSON object {id, type, payload}. Requests carry an id
// and the daemon answers each one with a reply of the same id: a typed reply
// (server/hello, sound/started, sound/status, pool/state), server/ack or
// server/error.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{ServerAddr: "localhost:8928", Name: "ctl"})
//	err := client.Connect()
//	handle, err := client.Play(ctx, protocol.SoundPlay{Name: "blip", Volume: 1})
package protocol
