package audio

import (
	"math"
	"time"
)

// Capture defaults: 16 kHz mono, half-second frames.
const (
	SampleRate = 16000
	FrameSize  = 8000
)

// Frame is a chunk of 16-bit mono PCM.
type Frame []int16

// Duration of the frame at the given sample rate.
func (f Frame) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f)) * time.Second / time.Duration(sampleRate)
}

// RMS of the frame normalised to [0, 1].
func (f Frame) RMS() float64 {
	if len(f) == 0 {
		return 0
	}

	var s float64
	for _, x := range f {
		v := float64(x) / 32768.0
		s += v * v
	}
	return math.Sqrt(s / float64(len(f)))
}

// FromFloat32 converts samples in [-1, 1] to 16-bit PCM, clipping out of range values.
func FromFloat32(in []float32) Frame {
	out := make(Frame, len(in))
	for i, v := range in {
		x := float64(v) * 32767.0
		if x > 32767 {
			x = 32767
		}
		if x < -32768 {
			x = -32768
		}
		out[i] = int16(math.Round(x))
	}
	return out
}

// Split cuts samples into frames of size; the tail is zero padded.
func Split(samples Frame, size int) []Frame {
	if size <= 0 || len(samples) == 0 {
		return nil
	}

	frames := make([]Frame, 0, (len(samples)+size-1)/size)
	for off := 0; off < len(samples); off += size {
		f := make(Frame, size)
		copy(f, samples[off:])
		frames = append(frames, f)
	}
	return frames
}
