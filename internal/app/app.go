// Package app wires the lingvox subsystems into a running pipeline.
//
// The App struct owns the full lifecycle: New connects providers, audio, and
// the session controller according to the configured mode, Run executes the
// capture/transcribe loop until cancellation, and Close tears everything
// down.
//
// For testing, inject fakes via functional options (WithAudioSource,
// WithPlayer, WithOutput). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/lingvox/internal/config"
	"github.com/MrWong99/lingvox/internal/health"
	"github.com/MrWong99/lingvox/internal/observe"
	"github.com/MrWong99/lingvox/internal/segment"
	"github.com/MrWong99/lingvox/internal/session"
	"github.com/MrWong99/lingvox/pkg/audio"
	"github.com/MrWong99/lingvox/pkg/audio/portaudio"
	"github.com/MrWong99/lingvox/pkg/provider/mt"
	"github.com/MrWong99/lingvox/pkg/provider/stt"
	"github.com/MrWong99/lingvox/pkg/provider/tts"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	STT         stt.Transcriber
	Translation mt.Translator
	TTS         tts.Synthesizer
}

// App owns the subsystem lifetimes and runs the speech pipeline.
type App struct {
	cfg       *config.Config
	mode      config.Mode
	providers *Providers

	// sentences numbers the transcript blocks across the whole run.
	sentences atomic.Int64

	out        io.Writer
	player     audio.Player
	openSource audio.OpenFunc
	log        *slog.Logger
	metrics    *observe.Metrics

	controller *session.Controller

	// closers are called in order during Close.
	closers []func() error

	// closeOnce guards the Close path.
	closeOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithOutput redirects transcript output. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// WithAudioSource injects a capture source opener instead of the portaudio
// default.
func WithAudioSource(open audio.OpenFunc) Option {
	return func(a *App) { a.openSource = open }
}

// WithPlayer injects a playback device instead of the portaudio default.
// Only used in translate mode.
func WithPlayer(p audio.Player) Option {
	return func(a *App) { a.player = p }
}

// WithLogger overrides the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// New creates an App by wiring providers, audio, and the session controller
// together. The providers struct comes from main.go (populated via the
// config registry). Use Option functions to inject test doubles.
func New(cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.STT == nil {
		return nil, errors.New("app: an STT provider is required")
	}
	mode := cfg.Mode
	if mode == "" {
		mode = config.ModeTranscribe
	}
	if mode == config.ModeTranslate {
		if providers.Translation == nil {
			return nil, errors.New("app: translate mode requires a translation provider")
		}
		if providers.TTS == nil {
			return nil, errors.New("app: translate mode requires a TTS provider")
		}
	}

	a := &App{
		cfg:       cfg,
		mode:      mode,
		providers: providers,
		out:       os.Stdout,
		log:       slog.Default(),
		metrics:   observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(a)
	}

	if a.openSource == nil {
		pcfg := portaudio.Config{
			SampleRate:   cfg.Audio.SampleRate,
			FrameSamples: cfg.Audio.FrameSamples,
			InputDevice:  cfg.Audio.InputDevice,
		}
		if pcfg.SampleRate == 0 {
			pcfg.SampleRate = config.Default().Audio.SampleRate
		}
		if pcfg.FrameSamples == 0 {
			pcfg.FrameSamples = config.Default().Audio.FrameSamples
		}
		a.openSource = func(ctx context.Context) (audio.Source, error) {
			return portaudio.Open(ctx, pcfg)
		}
	}

	if mode == config.ModeTranslate && a.player == nil {
		player, err := portaudio.NewPlayer()
		if err != nil {
			return nil, fmt.Errorf("app: open playback device: %w", err)
		}
		a.player = player
		a.closers = append(a.closers, player.Close)
	}

	handler := a.transcriptHandler
	if mode == config.ModeTranslate {
		handler = a.translateHandler
	}

	dispatcher := segment.NewDispatcher(providers.STT, handler,
		segment.WithLanguage(cfg.Languages.Source),
		segment.WithLogger(a.log),
	)

	segCfg := segment.Config{
		VADThreshold:    cfg.Segmenter.VADThreshold,
		SilenceDuration: cfg.Segmenter.SilenceDur(),
		ChunkDuration:   cfg.Segmenter.ChunkDur(),
		Logger:          a.log,
	}
	if cfg.Segmenter.PunctuationPeek {
		segCfg.Peeker = dispatcher
	}

	a.controller = session.New(a.openSource, dispatcher, segCfg,
		session.WithLogger(a.log))

	return a, nil
}

// Run executes the pipeline until ctx is cancelled or the session fails.
// When MetricsAddr is configured, a Prometheus /metrics endpoint is served
// for the lifetime of the run.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		health.New(health.Checker{
			Name: "capture",
			Check: func(context.Context) error {
				if s := a.controller.State(); s != session.StateRunning {
					return fmt.Errorf("session is %s", s)
				}
				return nil
			},
		}).Register(mux)
		srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux}

		g.Go(func() error {
			a.log.Info("metrics endpoint listening", "addr", a.cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer a.log.Info("session finished", "state", a.controller.State())
		return a.controller.Run(ctx)
	})

	err := g.Wait()
	if a.mode == config.ModeTranscribe {
		fmt.Fprintf(a.out, "\nTotal sentences transcribed: %d\n", a.sentences.Load())
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close releases resources created by New. Safe to call more than once.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		var errs []error
		for _, c := range a.closers {
			if cerr := c(); cerr != nil {
				errs = append(errs, cerr)
			}
		}
		err = errors.Join(errs...)
	})
	return err
}

// transcriptHandler prints recognized utterances as a numbered transcript,
// one separated block per sentence. The running count feeds the end-of-run
// summary printed by Run.
func (a *App) transcriptHandler(_ context.Context, res segment.Result) error {
	n := a.sentences.Add(1)
	if _, err := fmt.Fprintf(a.out, "\n[Sentence %d]: %s\n", n, res.Text); err != nil {
		return err
	}
	_, err := fmt.Fprintln(a.out, strings.Repeat("-", 80))
	return err
}

// translateHandler prints the recognized text, translates it, prints the
// translation, and speaks it through the playback device. Every downstream
// failure is per-utterance: the session keeps running.
func (a *App) translateHandler(ctx context.Context, res segment.Result) error {
	fmt.Fprintln(a.out, res.Text)

	start := time.Now()
	translated, err := a.providers.Translation.Translate(ctx,
		res.Text, a.cfg.Languages.Source, a.cfg.Languages.Target)
	a.metrics.TranslationDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		a.metrics.RecordProviderError(ctx, "translation")
		return fmt.Errorf("app: translate utterance: %w", err)
	}
	fmt.Fprintln(a.out, "  => "+translated)

	start = time.Now()
	clip, err := a.providers.TTS.Synthesize(ctx, translated)
	a.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		a.metrics.RecordProviderError(ctx, "tts")
		return fmt.Errorf("app: synthesize translation: %w", err)
	}

	if err := a.player.Play(ctx, clip.Samples, clip.SampleRate); err != nil {
		return fmt.Errorf("app: play translation: %w", err)
	}
	return nil
}
