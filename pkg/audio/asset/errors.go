// ABOUTME: Sentinel errors for the asset package
// ABOUTME: Returned by Library loads and lookups
package asset

import "errors"

var (
	// ErrNotFound is returned when no sound is registered under a name
	ErrNotFound = errors.New("sound not found")

	// ErrDuplicate is returned when a name is already registered
	ErrDuplicate = errors.New("sound already registered")

	// ErrNotLoaded is returned when PCM is requested before the load finished
	ErrNotLoaded = errors.New("sound not loaded")

	// ErrLibraryClosed is returned after Close
	ErrLibraryClosed = errors.New("library closed")
)
