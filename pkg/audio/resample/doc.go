// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between sample rates and applies voice pitch
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation. The same step also applies voice pitch, so a
// 22050Hz sound played at pitch 2 on a 44100Hz device advances one input
// frame per output frame.
//
// Example:
//
//	r := resample.New(22050, 44100, 2)
//	r.SetRatio(22050, 44100, pitch)
//	consumed, written := r.Resample(input, output)
package resample
