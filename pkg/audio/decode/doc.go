// ABOUTME: Audio decoder package for sound files and uploaded packets
// ABOUTME: Provides Stream readers for WAV, MP3, Ogg Vorbis, FLAC and packet Decoders for PCM, Opus
// Package decode turns encoded audio into interleaved float32 PCM.
//
// File streams (Stream) are used two ways: fully drained by ReadAll when a
// sound is preloaded, or pulled incrementally by the audio server's streaming
// sessions for large sounds such as music.
//
// Supported files: .wav (16/24-bit PCM), .mp3, .ogg (Vorbis), .flac
//
// Packet decoders (Decoder) convert sounds uploaded over the remote control
// protocol. Supported codecs: pcm (16/24-bit), opus
//
// Example:
//
//	stream, err := decode.Open("sfx/explosion.ogg")
//	samples, err := decode.ReadAll(stream)
package decode
