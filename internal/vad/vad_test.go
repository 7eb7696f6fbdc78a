package vad_test

import (
	"math"
	"testing"

	"github.com/MrWong99/lingvox/internal/vad"
	"github.com/MrWong99/lingvox/pkg/audio"
)

// constFrame builds a frame of n samples all set to value v, whose RMS is |v|.
func constFrame(n int, v float32) audio.Frame {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = v
	}
	return audio.Frame{Samples: samples, SampleRate: 16000}
}

func TestClassify_AboveThresholdIsSpeech(t *testing.T) {
	d := vad.New(0.02)
	if got := d.Classify(constFrame(1024, 0.1)); got != vad.Speech {
		t.Errorf("Classify(rms=0.1) = %v, want Speech", got)
	}
}

func TestClassify_BelowThresholdIsSilence(t *testing.T) {
	d := vad.New(0.02)
	if got := d.Classify(constFrame(1024, 0.001)); got != vad.Silence {
		t.Errorf("Classify(rms=0.001) = %v, want Silence", got)
	}
}

func TestClassify_ExactlyAtThresholdIsSpeech(t *testing.T) {
	d := vad.New(0.02)
	if got := d.Classify(constFrame(1024, 0.02)); got != vad.Speech {
		t.Errorf("Classify(rms=threshold) = %v, want Speech", got)
	}
}

func TestClassify_AllZeroFrameIsSilence(t *testing.T) {
	d := vad.New(0.02)
	if got := d.Classify(constFrame(1024, 0)); got != vad.Silence {
		t.Errorf("Classify(all-zero) = %v, want Silence", got)
	}
}

func TestClassify_EmptyFrameIsSilence(t *testing.T) {
	d := vad.New(0.02)
	if got := d.Classify(audio.Frame{}); got != vad.Silence {
		t.Errorf("Classify(empty) = %v, want Silence", got)
	}
}

// Classification must be consistent with the threshold comparison on both
// sides: increasing RMS never flips a Speech label back to Silence.
func TestClassify_MonotoneInRMS(t *testing.T) {
	d := vad.New(0.02)
	levels := []float32{0, 0.001, 0.005, 0.019, 0.02, 0.021, 0.1, 0.9}
	sawSpeech := false
	for _, v := range levels {
		got := d.Classify(constFrame(256, v))
		if sawSpeech && got != vad.Speech {
			t.Fatalf("Classify(rms=%v) = %v after a lower level was Speech", v, got)
		}
		if got == vad.Speech {
			sawSpeech = true
		}
	}
}

func TestClassify_DeterministicForIdenticalInput(t *testing.T) {
	d := vad.New(0.02)
	frame := constFrame(512, 0.019)
	first := d.Classify(frame)
	for range 10 {
		if got := d.Classify(frame); got != first {
			t.Fatal("classification changed between identical calls")
		}
	}
}

func TestNew_NonPositiveThresholdUsesDefault(t *testing.T) {
	d := vad.New(0)
	if got := d.Threshold(); got != vad.DefaultThreshold {
		t.Errorf("Threshold() = %v, want %v", got, vad.DefaultThreshold)
	}
}

func TestRMS(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
		want    float64
	}{
		{"empty", nil, 0},
		{"all zero", make([]float32, 100), 0},
		{"constant 0.5", []float32{0.5, 0.5, 0.5, 0.5}, 0.5},
		{"mixed sign", []float32{0.5, -0.5}, 0.5},
		{"single sample", []float32{-0.25}, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := vad.RMS(tt.samples)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RMS = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLabel_String(t *testing.T) {
	if vad.Speech.String() != "SPEECH" || vad.Silence.String() != "SILENCE" {
		t.Errorf("unexpected label strings: %q, %q", vad.Speech, vad.Silence)
	}
}
