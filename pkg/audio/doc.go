// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and sample conversion functions
// Package audio provides fundamental audio types shared across voicepool.
//
// All decoded audio inside voicepool is interleaved float32 in [-1, 1].
// Format describes such a stream (sample rate, channels) together with the
// codec and bit depth it was decoded from.
//
// Example:
//
//	format := audio.Format{
//	    Codec:      "wav",
//	    SampleRate: 44100,
//	    Channels:   1,
//	    BitDepth:   16,
//	}
//
//	frames := format.Frames(250 * time.Millisecond)
package audio
