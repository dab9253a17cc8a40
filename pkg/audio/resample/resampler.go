// ABOUTME: Linear resampler for converting sample rates and applying pitch
// ABOUTME: Used by the software mixer to play sounds at the device rate
package resample

// Resampler performs linear interpolation to convert between sample rates.
// The fractional read position is carried between calls so a voice can be
// fed in arbitrary chunks.
type Resampler struct {
	channels int
	ratio    float64
	position float64
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	r := &Resampler{channels: channels}
	r.SetRatio(inputRate, outputRate, 1)
	return r
}

// SetRatio changes the step between output frames. pitch > 1 plays faster.
func (r *Resampler) SetRatio(inputRate, outputRate int, pitch float64) {
	if outputRate <= 0 || inputRate <= 0 || pitch <= 0 {
		r.ratio = 1
		return
	}
	r.ratio = float64(inputRate) / float64(outputRate) * pitch
}

// Ratio returns input frames consumed per output frame
func (r *Resampler) Ratio() float64 {
	return r.ratio
}

// Resample converts input samples to output samples using linear interpolation.
// input and output are interleaved. Returns the number of whole input frames
// consumed and the number of output samples written. The final input frame is
// only used for interpolation and is never consumed.
func (r *Resampler) Resample(input []float32, output []float32) (consumed, written int) {
	inputFrames := len(input) / r.channels
	outputFrames := len(output) / r.channels

	outIdx := 0
	for outIdx < outputFrames {
		inputIdx := int(r.position)

		// Need the next frame to interpolate toward
		if inputIdx >= inputFrames-1 {
			break
		}

		frac := float32(r.position - float64(inputIdx))
		for ch := 0; ch < r.channels; ch++ {
			sample1 := input[inputIdx*r.channels+ch]
			sample2 := input[(inputIdx+1)*r.channels+ch]
			output[outIdx*r.channels+ch] = sample1 + (sample2-sample1)*frac
		}

		outIdx++
		r.position += r.ratio
	}

	// Keep only the fractional part for the next chunk
	consumed = int(r.position)
	if consumed > inputFrames {
		consumed = inputFrames
	}
	r.position -= float64(consumed)

	return consumed, outIdx * r.channels
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

// InputSamplesNeeded calculates how many input samples are needed to produce output samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames)*r.ratio) + 1
	return inputFrames * r.channels
}
