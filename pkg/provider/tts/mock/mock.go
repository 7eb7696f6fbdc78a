// Package mock provides an in-memory [tts.Synthesizer] for unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lingvox/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// Synthesizer is a scripted mock implementation of [tts.Synthesizer]. Set
// Clip and/or Errs before use; inspect Texts afterwards. Safe for concurrent
// use.
type Synthesizer struct {
	mu   sync.Mutex
	next int

	// Clip is returned by every successful Synthesize call. When zero, a
	// short non-empty clip at 22050 Hz is returned instead.
	Clip tts.Clip

	// Errs maps a call index (0-based) to an error returned for that call.
	Errs map[int]error

	// Texts records the text of every Synthesize invocation.
	Texts []string
}

// Synthesize implements [tts.Synthesizer].
func (m *Synthesizer) Synthesize(_ context.Context, text string) (tts.Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.next
	m.next++
	m.Texts = append(m.Texts, text)

	if err, ok := m.Errs[idx]; ok {
		return tts.Clip{}, err
	}
	if len(m.Clip.Samples) == 0 {
		return tts.Clip{Samples: make([]float32, 256), SampleRate: 22050}, nil
	}
	return m.Clip, nil
}

// CallCount returns the number of Synthesize invocations so far.
func (m *Synthesizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Texts)
}
