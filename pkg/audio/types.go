package audio

import "time"

// Frame represents a single fixed-size block of captured audio flowing through
// the pipeline. Frames are the atomic unit of audio transport — pulled from a
// capture [Source], classified by VAD, and accumulated into utterance buffers.
//
// A Frame is immutable once captured: the Samples slice must not be modified
// after the Source returns it.
type Frame struct {
	// Samples holds raw mono float32 PCM in the range [-1.0, 1.0].
	Samples []float32

	// SampleRate in Hz (e.g., 16000 for STT input).
	SampleRate int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the playback duration of the frame. Returns zero for a
// degenerate frame with no samples or an unset sample rate.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || len(f.Samples) == 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// Concat joins the sample data of frames into one contiguous sample sequence
// in order. The result is a fresh slice; the input frames are not modified.
func Concat(frames []Frame) []float32 {
	total := 0
	for _, f := range frames {
		total += len(f.Samples)
	}
	out := make([]float32, 0, total)
	for _, f := range frames {
		out = append(out, f.Samples...)
	}
	return out
}
