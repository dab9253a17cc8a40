// ABOUTME: Audio device interface definitions
// ABOUTME: Device, Voice and Buffer contracts used by the audio server
package output

import "github.com/Resonate-Protocol/voicepool/pkg/audio"

// Buffer is decoded PCM owned by a device
type Buffer interface {
	// Format returns the PCM format of the buffer
	Format() audio.Format

	// Frames returns the buffer length in frames
	Frames() int
}

// Voice is one hardware playback channel
type Voice interface {
	SetGain(gain float64)
	SetPitch(pitch float64)
	SetPosition(x, y, z float64)
	SetLooping(loop bool)
	SetPositional(positional bool)

	// SetBuffer attaches a static buffer, replacing any queue. nil detaches.
	SetBuffer(buf Buffer) error

	// QueueBuffer appends a buffer to the streaming queue
	QueueBuffer(buf Buffer) error

	// Processed returns how many queued buffers have finished playing
	Processed() int

	// UnqueueProcessed removes up to n finished buffers from the queue front
	UnqueueProcessed(n int) []Buffer

	// Play starts playback from the first unprocessed buffer, or restarts a playing voice
	Play()

	// Stop halts playback and marks every queued buffer processed
	Stop()

	// IsPlaying reports whether the voice is producing sound
	IsPlaying() bool

	// Close releases the voice back to the device
	Close() error
}

// Device is an audio output with a finite number of voices
type Device interface {
	// NewVoice allocates a voice, or returns ErrVoiceLimit
	NewVoice() (Voice, error)

	// NewBuffer uploads interleaved float32 PCM
	NewBuffer(format audio.Format, samples []float32) (Buffer, error)

	// DeleteBuffer releases a buffer. It must not be attached to any voice.
	DeleteBuffer(buf Buffer) error

	SetListenerPosition(x, y, z float64)

	// SetListenerOrientation sets the listener's forward and up vectors
	SetListenerOrientation(forward, up [3]float64)

	// Suspend silences the device without losing voice state
	Suspend() error

	// Resume continues after Suspend
	Resume() error

	// LiveVoices returns the number of voices allocated and not yet closed
	LiveVoices() int

	// Close tears down the device
	Close() error
}

// Sink drives a Mixer from an output backend
type Sink interface {
	Suspend() error
	Resume() error
	Close() error
}
