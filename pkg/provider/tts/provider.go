// Package tts defines the speech-synthesis provider interface used by the
// translate pipeline.
package tts

import "context"

// Clip is one synthesized audio clip, mono float32 PCM at the backend's
// native sample rate.
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Synthesizer turns text into speech. Implementations live in subpackages
// and are selected by name through the provider registry at startup. Each
// Synthesize call covers one complete utterance; errors are treated as
// recoverable per-utterance by the caller.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Clip, error)
}
