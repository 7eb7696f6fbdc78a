// Package mock provides an in-memory [stt.Transcriber] for unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lingvox/pkg/provider/stt"
)

// Compile-time interface assertion.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber is a scripted mock implementation of [stt.Transcriber].
// Set Results and/or Errs before use; inspect Calls afterwards. Safe for
// concurrent use.
type Transcriber struct {
	mu   sync.Mutex
	next int

	// Results is returned call-by-call in order. When exhausted, the last
	// element is repeated; when empty, Transcribe returns "".
	Results []string

	// Errs maps a call index (0-based) to an error returned instead of a
	// result for that call.
	Errs map[int]error

	// Calls records the sample count, sample rate, and language of every
	// Transcribe invocation.
	Calls []Call
}

// Call captures the arguments of one Transcribe invocation.
type Call struct {
	Samples    int
	SampleRate int
	Language   string
}

// Transcribe implements [stt.Transcriber].
func (m *Transcriber) Transcribe(_ context.Context, samples []float32, sampleRate int, language string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.next
	m.next++
	m.Calls = append(m.Calls, Call{Samples: len(samples), SampleRate: sampleRate, Language: language})

	if err, ok := m.Errs[idx]; ok {
		return "", err
	}
	if len(m.Results) == 0 {
		return "", nil
	}
	if idx >= len(m.Results) {
		idx = len(m.Results) - 1
	}
	return m.Results[idx], nil
}

// CallCount returns the number of Transcribe invocations so far.
func (m *Transcriber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
