// Command lingvox captures microphone audio, segments it into utterances,
// and transcribes or translates them in real time.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/lingvox/internal/app"
	"github.com/MrWong99/lingvox/internal/config"
	"github.com/MrWong99/lingvox/internal/observe"
	"github.com/MrWong99/lingvox/pkg/audio/portaudio"
	"github.com/MrWong99/lingvox/pkg/provider/mt"
	mtanyllm "github.com/MrWong99/lingvox/pkg/provider/mt/anyllm"
	mtopenai "github.com/MrWong99/lingvox/pkg/provider/mt/openai"
	"github.com/MrWong99/lingvox/pkg/provider/stt"
	"github.com/MrWong99/lingvox/pkg/provider/stt/whisper"
	"github.com/MrWong99/lingvox/pkg/provider/tts"
	"github.com/MrWong99/lingvox/pkg/provider/tts/coqui"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	mode := flag.String("mode", "", "pipeline mode: transcribe or translate (overrides config)")
	sourceLang := flag.String("source-lang", "", "spoken language hint (overrides config)")
	targetLang := flag.String("target-lang", "", "translation target language (overrides config)")
	listDevices := flag.Bool("list-devices", false, "print available audio devices and exit")
	saveConfig := flag.String("save-config", "", "write the effective configuration as YAML to this path and exit")
	flag.Parse()

	// ── Device listing (no session required) ──────────────────────────────────
	if *listDevices {
		return printDevices()
	}

	// ── Load configuration ────────────────────────────────────────────────────
	configFlagSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configFlagSet = true
		}
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !configFlagSet {
			// No config file next to the binary: run with defaults.
			cfg = config.Default()
		} else if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "lingvox: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
			return 1
		} else {
			fmt.Fprintf(os.Stderr, "lingvox: %v\n", err)
			return 1
		}
	}

	// ── Flag overrides ────────────────────────────────────────────────────────
	if *mode != "" {
		cfg.Mode = config.Mode(*mode)
	}
	if *sourceLang != "" {
		cfg.Languages.Source = *sourceLang
	}
	if *targetLang != "" {
		cfg.Languages.Target = *targetLang
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "lingvox: %v\n", err)
		return 1
	}

	if *saveConfig != "" {
		if err := config.Save(cfg, *saveConfig); err != nil {
			fmt.Fprintf(os.Stderr, "lingvox: %v\n", err)
			return 1
		}
		fmt.Printf("configuration written to %s\n", *saveConfig)
		return 0
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("lingvox starting",
		"config", *configPath,
		"mode", cfg.Mode,
		"log_level", cfg.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "lingvox",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			slog.Warn("close error", "err", err)
		}
	}()

	slog.Info("listening — press Ctrl+C to stop")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = entry.StringOption("model_path", "")
		}
		var opts []whisper.NativeOption
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	// ── Translation ───────────────────────────────────────────────────────────
	// "openai" uses the dedicated SDK-backed translator; the rest go through
	// the any-llm-go multi-provider backend with the same APIKey/BaseURL shape.

	reg.RegisterTranslation("openai", func(entry config.ProviderEntry) (mt.Translator, error) {
		var opts []mtopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, mtopenai.WithBaseURL(entry.BaseURL))
		}
		return mtopenai.New(entry.APIKey, entry.Model, opts...)
	})

	for _, providerName := range []string{
		"anthropic", "gemini", "ollama",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterTranslation(providerName, func(entry config.ProviderEntry) (mt.Translator, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return mtanyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Synthesizer, error) {
		var opts []coqui.Option
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		if speaker := entry.StringOption("speaker", ""); speaker != "" {
			opts = append(opts, coqui.WithSpeaker(speaker))
		}
		return coqui.New(entry.BaseURL, opts...)
	})
}

// buildProviders instantiates the providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		ps.STT = p
		slog.Info("provider created", "kind", "stt", "name", name)
	}

	if name := cfg.Providers.Translation.Name; name != "" {
		p, err := reg.CreateTranslation(cfg.Providers.Translation)
		if err != nil {
			return nil, fmt.Errorf("create translation provider %q: %w", name, err)
		}
		ps.Translation = p
		slog.Info("provider created", "kind", "translation", "name", name)
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		ps.TTS = p
		slog.Info("provider created", "kind", "tts", "name", name)
	}

	return ps, nil
}

// ── Device listing ────────────────────────────────────────────────────────────

func printDevices() int {
	devices, err := portaudio.ListDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lingvox: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Println("no audio devices found")
		return 0
	}
	for _, d := range devices {
		role := ""
		if d.MaxInputChannels > 0 {
			role += " [capture]"
		}
		if d.MaxOutputChannels > 0 {
			role += " [playback]"
		}
		def := ""
		if d.Default {
			def = " (default input)"
		}
		fmt.Printf("%-40s %6.0f Hz%s%s\n", d.Name, d.DefaultSampleRate, role, def)
	}
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          lingvox — session            ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printSummaryRow("Mode", string(cfg.Mode))
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	if cfg.Mode == config.ModeTranslate {
		printProvider("Translation", cfg.Providers.Translation.Name, cfg.Providers.Translation.Model)
		printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
		printSummaryRow("Languages", languagePair(cfg.Languages))
	}
	printSummaryRow("Sample rate", fmt.Sprintf("%d Hz", cfg.Audio.SampleRate))
	device := cfg.Audio.InputDevice
	if device == "" {
		device = "(default)"
	}
	printSummaryRow("Input device", device)
	if cfg.MetricsAddr != "" {
		printSummaryRow("Metrics", cfg.MetricsAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	printSummaryRow(kind, value)
}

func printSummaryRow(kind, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", kind, value)
}

func languagePair(l config.LanguagesConfig) string {
	source := l.Source
	if source == "" {
		source = "auto"
	}
	return source + " to " + l.Target
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
