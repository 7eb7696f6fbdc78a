package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/lingvox/internal/observe"
	"github.com/MrWong99/lingvox/internal/segment"
	"github.com/MrWong99/lingvox/pkg/audio"
)

// DefaultJoinTimeout bounds how long Run waits for the consumer to finish
// its current utterance after a stop condition. A consumer stuck inside a
// recognition call is abandoned rather than waited on indefinitely.
const DefaultJoinTimeout = 2 * time.Second

// State is the lifecycle phase of a session.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Controller owns one capture/transcribe session. It opens the audio source,
// runs the producer and consumer until the context is cancelled or the source
// fails, and guarantees the source is released on every exit path.
//
// The producer performs blocking frame reads and pushes to the queue; the
// consumer pops frames in capture order, feeds the segmenter, and dispatches
// finished utterances. All segmentation state is owned by the consumer, so
// the queue is the only shared structure.
type Controller struct {
	open         audio.OpenFunc
	dispatcher   *segment.Dispatcher
	segCfg       segment.Config
	openAttempts int
	openBackoff  time.Duration
	joinTimeout  time.Duration
	log          *slog.Logger
	metrics      *observe.Metrics

	state atomic.Int32
}

// Option configures a Controller.
type Option func(*Controller)

// WithOpenRetry overrides the source open retry budget and initial backoff.
func WithOpenRetry(attempts int, backoff time.Duration) Option {
	return func(c *Controller) {
		c.openAttempts = attempts
		c.openBackoff = backoff
	}
}

// WithJoinTimeout overrides the bounded consumer join wait.
func WithJoinTimeout(d time.Duration) Option {
	return func(c *Controller) { c.joinTimeout = d }
}

// WithLogger overrides the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithMetrics overrides the metrics sink, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// New creates a Controller that captures from the source returned by open,
// segments frames per segCfg, and hands utterances to dispatcher.
func New(open audio.OpenFunc, dispatcher *segment.Dispatcher, segCfg segment.Config, opts ...Option) *Controller {
	c := &Controller{
		open:        open,
		dispatcher:  dispatcher,
		segCfg:      segCfg,
		joinTimeout: DefaultJoinTimeout,
		log:         slog.Default(),
		metrics:     observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(c)
	}
	c.state.Store(int32(StateIdle))
	return c
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// onceCloser releases an audio source exactly once no matter how many exit
// paths reach it.
type onceCloser struct {
	src  audio.Source
	once sync.Once
	err  error
}

func (o *onceCloser) Close() error {
	o.once.Do(func() { o.err = o.src.Close() })
	return o.err
}

// Run executes the session until ctx is cancelled or the source fails
// fatally. Cancellation is a clean stop and returns nil; a fatal source
// error or an exhausted open retry budget returns the error. Frames already
// queued at stop time are drained and segmented before the consumer exits.
func (c *Controller) Run(ctx context.Context) error {
	ctx, span := observe.StartSpan(ctx, "session.run")
	defer span.End()

	src, err := audio.OpenWithRetry(ctx, c.open, c.openAttempts, c.openBackoff)
	if err != nil {
		c.setState(StateFailed)
		return fmt.Errorf("session: open audio source: %w", err)
	}
	closer := &onceCloser{src: src}

	c.metrics.ActiveSessions.Add(ctx, 1)
	defer c.metrics.ActiveSessions.Add(ctx, -1)

	var runErr error
	defer func() {
		if cerr := closer.Close(); cerr != nil && !errors.Is(cerr, audio.ErrSourceClosed) {
			c.log.Warn("closing audio source", "error", cerr)
		}
		if runErr != nil {
			c.setState(StateFailed)
		} else {
			c.setState(StateStopped)
		}
	}()

	c.setState(StateRunning)
	c.log.Info("session started")

	queue := NewFrameQueue()
	seg := segment.New(c.segCfg)

	// The consumer keeps its own context so that draining and the final
	// residual flush still reach the recognizer after cancellation.
	consumeCtx := context.WithoutCancel(ctx)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		c.consume(consumeCtx, queue, seg)
	}()

	producerDone := make(chan error, 1)
	go func() {
		producerDone <- c.produce(ctx, src, queue)
	}()

	select {
	case <-ctx.Done():
		// Unblock the producer's pending device read, then collect it.
		closer.Close()
		<-producerDone
	case err := <-producerDone:
		runErr = err
	}

	c.setState(StateStopping)
	queue.Close()

	select {
	case <-consumerDone:
	case <-time.After(c.joinTimeout):
		c.log.Warn("consumer did not finish in time, abandoning",
			"timeout", c.joinTimeout, "queued_frames", queue.Len())
	}

	if runErr != nil {
		c.log.Error("session failed", "error", runErr)
		return runErr
	}
	c.log.Info("session stopped")
	return nil
}

// produce reads frames until the context is cancelled or the source fails.
// A closed source and a cancelled context both mean a clean stop; anything
// else is fatal.
func (c *Controller) produce(ctx context.Context, src audio.Source, queue *FrameQueue) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		frame, err := src.ReadFrame()
		if err != nil {
			if errors.Is(err, audio.ErrSourceClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("session: read frame: %w", err)
		}
		c.metrics.FramesCaptured.Add(ctx, 1)
		queue.Push(frame)
	}
}

// consume pops frames in capture order until the queue is closed and
// drained, then flushes any residual buffer so captured speech is not lost
// at shutdown.
func (c *Controller) consume(ctx context.Context, queue *FrameQueue, seg *segment.Segmenter) {
	for {
		frame, ok := queue.Pop()
		if !ok {
			break
		}
		if buf := seg.Feed(ctx, frame); buf != nil {
			c.dispatcher.Dispatch(ctx, buf)
		}
	}
	if buf := seg.Flush(); buf != nil {
		c.dispatcher.Dispatch(ctx, buf)
	}
}
