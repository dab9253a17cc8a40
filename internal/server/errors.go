// ABOUTME: Sentinel errors for the audio server
// ABOUTME: Returned by lifecycle and synchronization calls
package server

import "errors"

var (
	// ErrNotStarted is returned when the audio goroutine is not running
	ErrNotStarted = errors.New("audio server not started")

	// ErrShutdown is returned after Shutdown
	ErrShutdown = errors.New("audio server shut down")

	// ErrVoicesLeaked is returned by Shutdown when voices outlive their slots
	ErrVoicesLeaked = errors.New("hardware voices still allocated at shutdown")

	// ErrStreamersLeaked is returned by Shutdown when streaming sessions remain
	ErrStreamersLeaked = errors.New("streaming sessions still active at shutdown")
)
