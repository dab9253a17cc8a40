// ABOUTME: Version information for voicepool binaries
// ABOUTME: Reported in the handshake and by -version
package version

// Version is overridden at build time with -ldflags "-X .../internal/version.Version=..."
var Version = "0.1.0"

const (
	// Product names the daemon in handshakes and mDNS
	Product = "voicepool"

	// Manufacturer identifies the publisher
	Manufacturer = "Resonate Protocol"
)
