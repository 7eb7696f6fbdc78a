// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A Transcriber wraps a speech-recognition model (e.g., whisper.cpp loaded
// natively, or a whisper.cpp HTTP server) and exposes it as a single batch
// call: one utterance of raw PCM samples in, plain text out. Streaming,
// buffering, and utterance boundary detection are the pipeline's concern, not
// the provider's — by the time Transcribe is called the audio is already a
// complete, speech-bounded utterance.
//
// Implementations must be safe for concurrent use; the dispatcher may be
// embedded in programs running several capture sessions at once.
package stt

import "context"

// Transcriber is the abstraction over any speech-recognition backend.
type Transcriber interface {
	// Transcribe runs speech recognition over one utterance of raw mono
	// float32 PCM samples at the given sample rate and returns the recognised
	// text. language is an optional recognition hint (e.g., "en", "de");
	// empty lets the backend auto-detect where supported.
	//
	// The returned text is not normalised — callers should trim whitespace
	// and treat an empty result as a valid "no speech recognised" outcome.
	// An error indicates a model or transport failure and is recoverable at
	// the utterance level: the caller drops the utterance and continues.
	Transcribe(ctx context.Context, samples []float32, sampleRate int, language string) (string, error)
}
