// Package vad implements energy-based voice activity detection.
//
// Classification is a pure function of a frame's root-mean-square amplitude
// and a configured threshold: no smoothing, no hysteresis, no I/O. Stateful
// boundary logic (silence run-lengths, utterance buffers) lives in the
// segmenter, which consumes the per-frame labels produced here.
package vad

import (
	"math"

	"github.com/MrWong99/lingvox/pkg/audio"
)

// DefaultThreshold is the default RMS speech threshold. Tuned for 16 kHz mono
// microphone input normalised to [-1, 1].
const DefaultThreshold = 0.02

// Label classifies a single frame as speech or silence.
type Label int

const (
	// Silence indicates the frame's energy is below the speech threshold.
	Silence Label = iota

	// Speech indicates the frame's energy is at or above the speech threshold.
	Speech
)

// String returns the human-readable name of the label.
func (l Label) String() string {
	switch l {
	case Speech:
		return "SPEECH"
	case Silence:
		return "SILENCE"
	default:
		return "UNKNOWN"
	}
}

// Detector classifies frames against a fixed RMS threshold. The zero value is
// not usable; construct with [New]. Detector is stateless and safe for
// concurrent use.
type Detector struct {
	threshold float64
}

// New creates a Detector with the given RMS threshold in (0, 1]. A
// non-positive threshold falls back to [DefaultThreshold].
func New(threshold float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{threshold: threshold}
}

// Threshold returns the configured RMS speech threshold.
func (d *Detector) Threshold() float64 { return d.threshold }

// Classify labels a frame as [Speech] when its RMS amplitude is at or above
// the threshold, else [Silence]. An empty or all-zero frame (e.g., a device
// glitch) is always Silence.
func (d *Detector) Classify(frame audio.Frame) Label {
	if RMS(frame.Samples) >= d.threshold {
		return Speech
	}
	return Silence
}

// RMS computes the root-mean-square amplitude of samples. Returns 0 for an
// empty slice.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
