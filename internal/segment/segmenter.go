// Package segment turns a labelled stream of audio frames into complete
// utterances. The Segmenter owns the accumulation state machine; the
// Dispatcher hands finished utterances to a speech recognizer.
package segment

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/MrWong99/lingvox/internal/vad"
	"github.com/MrWong99/lingvox/pkg/audio"
)

// DefaultSilenceDuration is the silence run length that closes an utterance.
const DefaultSilenceDuration = 1500 * time.Millisecond

// DefaultChunkDuration is the cadence of the punctuation-peek trigger,
// measured in accumulated audio since the previous peek.
const DefaultChunkDuration = 3 * time.Second

// A peek runs only once at least this many chunks of audio are buffered;
// shorter buffers rarely contain a finished sentence.
const minPeekChunks = 3

var sentenceEnd = regexp.MustCompile(`[.!?]\s*$`)

// Peeker runs an incremental transcription of a partial utterance so the
// Segmenter can close a boundary early when the text already ends a sentence.
// Peek errors are treated as "no boundary", never as failures.
type Peeker interface {
	Peek(ctx context.Context, samples []float32, sampleRate int) (string, error)
}

type state int

const (
	waitingForSpeech state = iota
	accumulating
)

// Config holds the tunables of a Segmenter. Zero values select defaults.
type Config struct {
	// VADThreshold is the RMS level separating speech from silence.
	VADThreshold float64
	// SilenceDuration is how much consecutive silence closes an utterance.
	SilenceDuration time.Duration
	// ChunkDuration is how much new audio accumulates between peeks.
	ChunkDuration time.Duration
	// Peeker enables the punctuation-based boundary when non-nil.
	Peeker Peeker
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Segmenter accumulates speech frames into utterance buffers. It is a pure
// state machine driven by Feed and is not safe for concurrent use; the
// session consumer owns it exclusively.
type Segmenter struct {
	det        *vad.Detector
	silenceDur time.Duration
	chunkDur   time.Duration
	minPeek    time.Duration
	peeker     Peeker
	log        *slog.Logger

	state      state
	buf        []audio.Frame
	silenceRun int
	sincePeek  time.Duration
}

// New creates a Segmenter from cfg, applying defaults for zero fields.
func New(cfg Config) *Segmenter {
	if cfg.SilenceDuration <= 0 {
		cfg.SilenceDuration = DefaultSilenceDuration
	}
	if cfg.ChunkDuration <= 0 {
		cfg.ChunkDuration = DefaultChunkDuration
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Segmenter{
		det:        vad.New(cfg.VADThreshold),
		silenceDur: cfg.SilenceDuration,
		chunkDur:   cfg.ChunkDuration,
		minPeek:    minPeekChunks * cfg.ChunkDuration,
		peeker:     cfg.Peeker,
		log:        cfg.Logger,
	}
}

// Feed advances the state machine by one frame. It returns a non-empty
// utterance buffer when the frame completed an utterance, nil otherwise.
// Leading silence is discarded; trailing silence up to the boundary is kept.
func (s *Segmenter) Feed(ctx context.Context, frame audio.Frame) []audio.Frame {
	label := s.det.Classify(frame)

	switch s.state {
	case waitingForSpeech:
		if label == vad.Silence {
			return nil
		}
		s.state = accumulating
		s.silenceRun = 0
		s.buf = append(s.buf, frame)

	case accumulating:
		s.buf = append(s.buf, frame)
		if label == vad.Silence {
			s.silenceRun++
			if time.Duration(s.silenceRun)*frame.Duration() >= s.silenceDur {
				return s.emit()
			}
		} else {
			s.silenceRun = 0
		}
	}

	if s.peeker != nil {
		s.sincePeek += frame.Duration()
		if s.sincePeek >= s.chunkDur && s.bufferedDuration() >= s.minPeek {
			s.sincePeek = 0
			if s.peekBoundary(ctx) {
				return s.emit()
			}
		}
	}
	return nil
}

// Flush returns the residual buffer without requiring a silence boundary,
// for orderly shutdown. Returns nil when nothing is buffered.
func (s *Segmenter) Flush() []audio.Frame {
	if len(s.buf) == 0 {
		return nil
	}
	return s.emit()
}

// Reset discards any buffered audio and returns to the initial state.
func (s *Segmenter) Reset() {
	s.buf = nil
	s.silenceRun = 0
	s.sincePeek = 0
	s.state = waitingForSpeech
}

// Buffered reports how many frames are currently accumulated.
func (s *Segmenter) Buffered() int {
	return len(s.buf)
}

func (s *Segmenter) emit() []audio.Frame {
	out := s.buf
	s.Reset()
	return out
}

func (s *Segmenter) bufferedDuration() time.Duration {
	var d time.Duration
	for _, f := range s.buf {
		d += f.Duration()
	}
	return d
}

// peekBoundary runs an incremental transcription of the current buffer and
// reports whether its text already ends a sentence.
func (s *Segmenter) peekBoundary(ctx context.Context) bool {
	if len(s.buf) == 0 {
		return false
	}
	samples := audio.Concat(s.buf)
	text, err := s.peeker.Peek(ctx, samples, s.buf[0].SampleRate)
	if err != nil {
		s.log.Warn("punctuation peek failed", "error", err)
		return false
	}
	return sentenceEnd.MatchString(text)
}
