// Package mock provides in-memory mock implementations of the [audio.Source]
// and [audio.Player] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so that
// tests can assert on call counts, and they expose exported fields that the
// test can set to control return values.
//
// Typical usage:
//
//	src := &mock.Source{Frames: frames, BlockWhenDrained: true}
//	defer src.Close()
//	// ... run the session against src ...
//	if got := src.CallCountClose.Load(); got != 1 {
//	    t.Errorf("Close called %d times, want 1", got)
//	}
package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/MrWong99/lingvox/pkg/audio"
)

// ─── Source ───────────────────────────────────────────────────────────────────

// Source is a mock implementation of [audio.Source] that replays a scripted
// frame sequence. After the script is exhausted, ReadFrame either returns
// FinalError (when set), or blocks until Close when BlockWhenDrained is true,
// or keeps returning zero-valued silence frames.
type Source struct {
	mu  sync.Mutex
	pos int

	// Frames is the scripted frame sequence replayed in order.
	Frames []audio.Frame

	// Errs maps a frame index to an error returned instead of that frame.
	// The index is consumed: the next ReadFrame call returns the following
	// frame. Used to simulate a device disappearing mid-stream.
	Errs map[int]error

	// FinalError, when non-nil, is returned by every ReadFrame call after the
	// script is exhausted.
	FinalError error

	// BlockWhenDrained makes ReadFrame block after the script is exhausted
	// until Close is called, mimicking a real device waiting for sound. Close
	// unblocks the read with a device-closed error.
	BlockWhenDrained bool

	// SilenceFrame is returned after the script is exhausted when neither
	// FinalError nor BlockWhenDrained is set.
	SilenceFrame audio.Frame

	// CallCountRead records how many times ReadFrame was called.
	CallCountRead atomic.Int32

	// CallCountClose records how many times Close was called.
	CallCountClose atomic.Int32

	closeOnce sync.Once
	closed    chan struct{}
}

// closedCh lazily initialises the internal closed channel.
func (s *Source) closedCh() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed == nil {
		s.closed = make(chan struct{})
	}
	return s.closed
}

// ReadFrame implements [audio.Source].
func (s *Source) ReadFrame() (audio.Frame, error) {
	s.CallCountRead.Add(1)

	ch := s.closedCh()
	select {
	case <-ch:
		return audio.Frame{}, audio.ErrSourceClosed
	default:
	}

	s.mu.Lock()
	if s.Errs != nil {
		if err, ok := s.Errs[s.pos]; ok {
			delete(s.Errs, s.pos)
			s.pos++
			s.mu.Unlock()
			return audio.Frame{}, err
		}
	}
	if s.pos < len(s.Frames) {
		f := s.Frames[s.pos]
		s.pos++
		s.mu.Unlock()
		return f, nil
	}
	s.mu.Unlock()

	if s.FinalError != nil {
		return audio.Frame{}, s.FinalError
	}
	if s.BlockWhenDrained {
		<-ch
		return audio.Frame{}, audio.ErrSourceClosed
	}
	return s.SilenceFrame, nil
}

// Close implements [audio.Source]. Safe to call multiple times; only the
// first call counts towards unblocking readers, but every call is recorded
// in CallCountClose so tests can detect double-close bugs.
func (s *Source) Close() error {
	s.CallCountClose.Add(1)
	ch := s.closedCh()
	s.closeOnce.Do(func() { close(ch) })
	return nil
}

// ─── Player ───────────────────────────────────────────────────────────────────

// Player is a mock implementation of [audio.Player] that records every clip
// played.
type Player struct {
	mu sync.Mutex

	// PlayError is returned by every Play call.
	PlayError error

	// Played holds the sample slices passed to Play, in order.
	Played [][]float32

	// CallCountClose records how many times Close was called.
	CallCountClose atomic.Int32
}

// Play implements [audio.Player]. Records the clip and returns PlayError.
func (p *Player) Play(_ context.Context, samples []float32, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Played = append(p.Played, samples)
	return p.PlayError
}

// Close implements [audio.Player].
func (p *Player) Close() error {
	p.CallCountClose.Add(1)
	return nil
}

// PlayCount returns how many clips have been played so far.
func (p *Player) PlayCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Played)
}
