// Package audio defines the interfaces and types for audio capture and
// playback within lingvox.
//
// The two primary abstractions are:
//
//   - [Source] — a capture device delivering fixed-size frames through
//     blocking reads.
//   - [Player] — a playback device for synthesized speech.
//
// Capture is deliberately pull-based: the caller explicitly reads each frame
// and no hidden background thread feeds data. Callback-driven capture on some
// platforms is prone to thread-creation races at stream start, so
// implementations must block inside [Source.ReadFrame] rather than push frames
// from a device callback.
//
// This package lives under pkg/ because external code (alternative device
// backends) is expected to implement [Source] and [Player].
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrSourceClosed is returned by [Source.ReadFrame] when the source has been
// closed. A read unblocked by Close reports this error rather than a device
// fault.
var ErrSourceClosed = errors.New("audio: source is closed")

// Default parameters for [OpenWithRetry].
const (
	defaultOpenAttempts = 3
	defaultOpenBackoff  = 500 * time.Millisecond
)

// Source represents an open audio capture device.
//
// A Source is obtained from a backend-specific constructor (e.g.,
// portaudio.Open) and remains valid until [Source.Close] is called. A Source
// is owned by a single reader goroutine; implementations are not required to
// support concurrent ReadFrame calls.
type Source interface {
	// ReadFrame blocks until one frame's worth of samples has been captured and
	// returns it. The returned frame is an immutable snapshot — implementations
	// must copy samples out of any internal device buffer.
	//
	// Transient capture faults (an overrun/dropped frame reported by the
	// device) are absorbed by the implementation: they are logged as warnings
	// and the frame is still delivered. A non-nil error therefore always means
	// the device is gone for good and the session must end.
	ReadFrame() (Frame, error)

	// Close releases the capture device. It is idempotent: calling Close more
	// than once is safe and returns nil. Callers must guarantee Close runs on
	// every exit path, including error and cancellation paths.
	Close() error
}

// Player represents an open audio playback device for synthesized speech.
type Player interface {
	// Play writes samples to the output device and blocks until playback
	// completes or ctx is cancelled.
	Play(ctx context.Context, samples []float32, sampleRate int) error

	// Close releases the playback device. Idempotent.
	Close() error
}

// DeviceInfo describes one audio device known to the backend. Used by the
// --list-devices CLI path before a session starts, never during capture.
type DeviceInfo struct {
	// Name is the backend-reported device name.
	Name string

	// MaxInputChannels is the number of capture channels the device supports.
	// Zero for output-only devices.
	MaxInputChannels int

	// MaxOutputChannels is the number of playback channels the device
	// supports. Zero for capture-only devices.
	MaxOutputChannels int

	// DefaultSampleRate is the device's preferred sample rate in Hz.
	DefaultSampleRate float64

	// Default reports whether this is the backend's default input device.
	Default bool
}

// OpenFunc opens a fresh capture device handle. Each invocation must acquire a
// new handle; a handle from a failed attempt is never reused.
type OpenFunc func(ctx context.Context) (Source, error)

// OpenWithRetry opens a capture device via open, retrying on failure up to
// attempts times with a doubling backoff between attempts. Pass zero for
// attempts or backoff to use the defaults (3 attempts, 500 ms initial
// backoff).
//
// Stream-open failures are the only retryable device fault — a device that
// disappears mid-stream is fatal and is not retried. Exhausting the attempt
// budget returns the last error.
func OpenWithRetry(ctx context.Context, open OpenFunc, attempts int, backoff time.Duration) (Source, error) {
	if attempts <= 0 {
		attempts = defaultOpenAttempts
	}
	if backoff <= 0 {
		backoff = defaultOpenBackoff
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		src, err := open(ctx)
		if err == nil {
			if attempt > 1 {
				slog.Info("capture device opened after retry", "attempt", attempt)
			}
			return src, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		slog.Warn("capture device open failed, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"backoff", backoff,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("audio: open cancelled: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("audio: open capture device after %d attempts: %w", attempts, lastErr)
}
