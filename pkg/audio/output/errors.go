// ABOUTME: Sentinel errors for the output package
// ABOUTME: Returned by Device and Voice implementations
package output

import "errors"

var (
	// ErrVoiceLimit is returned when the device has no voices left
	ErrVoiceLimit = errors.New("hardware voice limit reached")

	// ErrClosed is returned by operations on a closed device or voice
	ErrClosed = errors.New("output closed")

	// ErrInvalidBuffer is returned for buffers not created by this device
	ErrInvalidBuffer = errors.New("invalid buffer")

	// ErrStaticBuffer is returned when queueing onto a voice with a static buffer attached
	ErrStaticBuffer = errors.New("voice has a static buffer attached")
)
