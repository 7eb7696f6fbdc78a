package segment

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/lingvox/internal/observe"
	"github.com/MrWong99/lingvox/pkg/audio"
	"github.com/MrWong99/lingvox/pkg/provider/stt"
)

// Result is one recognized utterance as handed to the text handler.
type Result struct {
	// Text is the recognized text, whitespace-trimmed and non-empty.
	Text string
	// AudioDuration is the length of the utterance audio.
	AudioDuration time.Duration
	// Frames is the number of frames the utterance spanned.
	Frames int
}

// TextHandler consumes one recognized utterance. Handler errors are logged and
// do not stop the session.
type TextHandler func(ctx context.Context, res Result) error

// Dispatcher runs speech recognition on finished utterance buffers and feeds
// the recognized text to a handler. Recognition and handler failures are
// absorbed per utterance so a single bad segment never ends the session.
type Dispatcher struct {
	transcriber stt.Transcriber
	language    string
	handler     TextHandler
	metrics     *observe.Metrics
	log         *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLanguage sets the language hint passed to the transcriber. Empty lets
// the recognizer auto-detect.
func WithLanguage(lang string) DispatcherOption {
	return func(d *Dispatcher) { d.language = lang }
}

// WithMetrics overrides the metrics sink, mainly for tests.
func WithMetrics(m *observe.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLogger overrides the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = l }
}

// NewDispatcher creates a Dispatcher that recognizes utterances with t and
// passes each non-empty result to handler.
func NewDispatcher(t stt.Transcriber, handler TextHandler, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		transcriber: t,
		handler:     handler,
		metrics:     observe.DefaultMetrics(),
		log:         slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dispatch recognizes one utterance buffer. Empty buffers and utterances that
// recognize to empty text are dropped silently; recognition errors are logged
// and counted but never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, frames []audio.Frame) {
	if len(frames) == 0 {
		return
	}
	samples := audio.Concat(frames)
	sampleRate := frames[0].SampleRate

	var audioDur time.Duration
	for _, f := range frames {
		audioDur += f.Duration()
	}
	d.metrics.UtteranceDuration.Record(ctx, audioDur.Seconds())

	start := time.Now()
	text, err := d.transcriber.Transcribe(ctx, samples, sampleRate, d.language)
	d.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		d.log.Warn("transcription failed, dropping utterance",
			"frames", len(frames), "audio_duration", audioDur, "error", err)
		d.metrics.RecordProviderError(ctx, "stt")
		d.metrics.RecordUtterance(ctx, "error")
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		d.metrics.RecordUtterance(ctx, "empty")
		return
	}
	d.metrics.RecordUtterance(ctx, "ok")

	res := Result{Text: text, AudioDuration: audioDur, Frames: len(frames)}
	if err := d.handler(ctx, res); err != nil {
		d.log.Warn("utterance handler failed", "text_length", len(text), "error", err)
	}
}

// Peek runs an incremental transcription of a partial utterance for the
// punctuation boundary check. It satisfies [Peeker].
func (d *Dispatcher) Peek(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	return d.transcriber.Transcribe(ctx, samples, sampleRate, d.language)
}
