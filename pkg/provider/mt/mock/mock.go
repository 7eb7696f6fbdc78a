// Package mock provides an in-memory [mt.Translator] for unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lingvox/pkg/provider/mt"
)

// Compile-time interface assertion.
var _ mt.Translator = (*Translator)(nil)

// Translator is a scripted mock implementation of [mt.Translator]. Set
// Results and/or Errs before use; inspect Calls afterwards. Safe for
// concurrent use.
type Translator struct {
	mu   sync.Mutex
	next int

	// Results is returned call-by-call in order. When exhausted, the last
	// element is repeated; when empty, Translate echoes its input.
	Results []string

	// Errs maps a call index (0-based) to an error returned instead of a
	// result for that call.
	Errs map[int]error

	// Calls records the arguments of every Translate invocation.
	Calls []Call
}

// Call captures the arguments of one Translate invocation.
type Call struct {
	Text   string
	Source string
	Target string
}

// Translate implements [mt.Translator].
func (m *Translator) Translate(_ context.Context, text, source, target string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.next
	m.next++
	m.Calls = append(m.Calls, Call{Text: text, Source: source, Target: target})

	if err, ok := m.Errs[idx]; ok {
		return "", err
	}
	if len(m.Results) == 0 {
		return text, nil
	}
	if idx >= len(m.Results) {
		idx = len(m.Results) - 1
	}
	return m.Results[idx], nil
}

// CallCount returns the number of Translate invocations so far.
func (m *Translator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
