// ABOUTME: Audio output package exposing a voice-based device abstraction
// ABOUTME: Provides Device/Voice interfaces, a software Mixer and oto/malgo sinks
// Package output is the hardware abstraction the audio server drives.
//
// A Device hands out a limited number of Voices. Each Voice plays either one
// static Buffer (optionally looping) or a queue of Buffers fed by a streamer.
// Mixer is the software Device: it renders every playing voice into
// interleaved stereo float32 and is pulled by a sink (oto, malgo, or a
// real-time ticker when no sound card is wanted).
//
// Example:
//
//	mixer := output.NewMixer(output.MixerConfig{SampleRate: 44100, MaxVoices: 64})
//	sink, err := output.NewOtoSink(mixer)
//	voice, err := mixer.NewVoice()
//	buf, err := mixer.NewBuffer(format, samples)
//	voice.SetBuffer(buf)
//	voice.Play()
package output
