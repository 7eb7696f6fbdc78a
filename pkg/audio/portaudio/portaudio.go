// Package portaudio provides [audio.Source] and [audio.Player] implementations
// backed by PortAudio via github.com/gordonklaus/portaudio (CGO). The
// PortAudio C library must be available at link time (e.g., via pkg-config).
//
// Capture uses PortAudio's blocking-read API exclusively: each
// [audio.Source.ReadFrame] call performs one Stream.Read into a fixed frame
// buffer and copies the result out. The callback API is intentionally not
// used — see the pkg/audio package documentation for the rationale.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/MrWong99/lingvox/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Source = (*Source)(nil)
	_ audio.Player = (*Player)(nil)
)

// Config describes the capture stream to open.
type Config struct {
	// SampleRate is the capture sample rate in Hz. Must be > 0.
	SampleRate int

	// FrameSamples is the number of samples per frame. Must be > 0.
	FrameSamples int

	// InputDevice selects the capture device by case-insensitive substring
	// match against the device name. Empty selects the default input device.
	InputDevice string
}

// Source is a PortAudio-backed capture device. It is owned by a single reader
// goroutine; only Close may be called concurrently with ReadFrame.
type Source struct {
	stream *portaudio.Stream
	buf    []float32
	rate   int

	captured time.Duration

	closeOnce sync.Once
	closeErr  error
}

// Open acquires the capture device described by cfg and starts the stream.
// The returned Source delivers frames of exactly cfg.FrameSamples samples.
// The caller must call Close on every exit path; use [audio.OpenWithRetry] to
// apply the standard startup retry budget.
func Open(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("portaudio: sample rate %d is invalid", cfg.SampleRate)
	}
	if cfg.FrameSamples <= 0 {
		return nil, fmt.Errorf("portaudio: frame size %d is invalid", cfg.FrameSamples)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("portaudio: open cancelled: %w", err)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}

	buf := make([]float32, cfg.FrameSamples)

	stream, err := openInputStream(cfg, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("portaudio: start stream: %w", err)
	}

	return &Source{stream: stream, buf: buf, rate: cfg.SampleRate}, nil
}

// openInputStream opens either the default input stream or a named device
// stream. buf becomes the stream's capture buffer.
func openInputStream(cfg Config, buf []float32) (*portaudio.Stream, error) {
	if cfg.InputDevice == "" {
		stream, err := portaudio.OpenDefaultStream(1, 0, float64(cfg.SampleRate), len(buf), buf)
		if err != nil {
			return nil, fmt.Errorf("portaudio: open default input stream: %w", err)
		}
		return stream, nil
	}

	dev, err := findInputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}
	params := portaudio.HighLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = len(buf)

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open input stream %q: %w", dev.Name, err)
	}
	return stream, nil
}

// findInputDevice returns the first input-capable device whose name contains
// name (case-insensitive).
func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: enumerate devices: %w", err)
	}
	needle := strings.ToLower(name)
	for _, d := range devices {
		if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), needle) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("portaudio: no input device matching %q", name)
}

// ReadFrame blocks until one frame has been captured and returns a copy of it.
//
// An input overflow (the device dropped samples because reads fell behind) is
// a transient fault: it is logged as a warning and the frame that was captured
// is still delivered. Any other stream error is fatal.
func (s *Source) ReadFrame() (audio.Frame, error) {
	if err := s.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			slog.Warn("portaudio: input overflow, frame may contain a gap")
		} else {
			return audio.Frame{}, fmt.Errorf("portaudio: read stream: %w", err)
		}
	}

	samples := make([]float32, len(s.buf))
	copy(samples, s.buf)

	frame := audio.Frame{
		Samples:    samples,
		SampleRate: s.rate,
		Timestamp:  s.captured,
	}
	s.captured += frame.Duration()
	return frame, nil
}

// Close stops and releases the capture stream. Idempotent; concurrent with
// ReadFrame a close causes the pending read to fail, which callers should
// treat as the end of the stream.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if err := s.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("portaudio: stop stream: %w", err))
		}
		if err := s.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("portaudio: close stream: %w", err))
		}
		if err := portaudio.Terminate(); err != nil {
			errs = append(errs, fmt.Errorf("portaudio: terminate: %w", err))
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// ─── Player ───────────────────────────────────────────────────────────────────

// playbackChunk is the number of samples written to the output stream per
// blocking write.
const playbackChunk = 1024

// Player plays synthesized speech on the default output device. Each Play call
// opens a short-lived output stream at the clip's sample rate, because TTS
// backends commonly emit clips at rates that differ from the capture rate.
type Player struct {
	closeOnce sync.Once
	closeErr  error
}

// NewPlayer initialises PortAudio for playback. Close must be called when the
// player is no longer needed.
func NewPlayer() (*Player, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	return &Player{}, nil
}

// Play writes samples to the default output device and blocks until the clip
// has been fully written or ctx is cancelled.
func (p *Player) Play(ctx context.Context, samples []float32, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}
	if sampleRate <= 0 {
		return fmt.Errorf("portaudio: playback sample rate %d is invalid", sampleRate)
	}

	out := make([]float32, playbackChunk)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), len(out), out)
	if err != nil {
		return fmt.Errorf("portaudio: open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start output stream: %w", err)
	}
	defer stream.Stop()

	for pos := 0; pos < len(samples); pos += playbackChunk {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("portaudio: playback cancelled: %w", err)
		}
		n := copy(out, samples[pos:])
		// Zero-pad the final partial chunk.
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		if err := stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("portaudio: write stream: %w", err)
		}
	}
	return nil
}

// Close releases the playback side of PortAudio. Idempotent.
func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = portaudio.Terminate()
	})
	return p.closeErr
}

// ─── Device listing ───────────────────────────────────────────────────────────

// ListDevices enumerates all audio devices known to PortAudio. It initialises
// and terminates the library around the enumeration, so it must only be called
// before any capture session starts.
func ListDevices() ([]audio.DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: enumerate devices: %w", err)
	}
	defaultIn, _ := portaudio.DefaultInputDevice()

	out := make([]audio.DeviceInfo, 0, len(devices))
	for _, d := range devices {
		out = append(out, audio.DeviceInfo{
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			Default:           defaultIn != nil && d == defaultIn,
		})
	}
	return out, nil
}
