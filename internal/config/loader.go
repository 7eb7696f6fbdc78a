package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":         {"whisper", "whisper-native"},
	"translation": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"tts":         {"coqui"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating or truncating the file.
// Backs the --save-config flag.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %q: %w", path, err)
	}
	return nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Mode != "" && !cfg.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("mode %q is invalid; valid values: transcribe, translate", cfg.Mode))
	}

	// Audio
	if cfg.Audio.SampleRate != 0 && !slices.Contains(ValidSampleRates, cfg.Audio.SampleRate) {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is invalid; valid values: %v", cfg.Audio.SampleRate, ValidSampleRates))
	}
	if cfg.Audio.FrameSamples < 0 {
		errs = append(errs, fmt.Errorf("audio.frame_samples %d must not be negative", cfg.Audio.FrameSamples))
	}
	if cfg.Audio.Channels != 0 && cfg.Audio.Channels != 1 {
		errs = append(errs, fmt.Errorf("audio.channels %d is unsupported; only mono (1) capture is supported", cfg.Audio.Channels))
	}

	// Segmenter
	if cfg.Segmenter.VADThreshold != 0 && (cfg.Segmenter.VADThreshold <= 0 || cfg.Segmenter.VADThreshold > 1) {
		errs = append(errs, fmt.Errorf("segmenter.vad_threshold %.3f is out of range (0, 1]", cfg.Segmenter.VADThreshold))
	}
	if cfg.Segmenter.SilenceDuration < 0 {
		errs = append(errs, fmt.Errorf("segmenter.silence_duration %.2f must not be negative", cfg.Segmenter.SilenceDuration))
	}
	if cfg.Segmenter.ChunkDuration < 0 {
		errs = append(errs, fmt.Errorf("segmenter.chunk_duration %.2f must not be negative", cfg.Segmenter.ChunkDuration))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("translation", cfg.Providers.Translation.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)

	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}

	// Mode ↔ provider cross-validation
	if cfg.Mode == ModeTranslate {
		if cfg.Providers.Translation.Name == "" {
			errs = append(errs, fmt.Errorf("mode %q requires a translation provider but providers.translation is not configured", cfg.Mode))
		}
		if cfg.Providers.TTS.Name == "" {
			errs = append(errs, fmt.Errorf("mode %q requires a TTS provider but providers.tts is not configured", cfg.Mode))
		}
		if cfg.Languages.Target == "" {
			errs = append(errs, fmt.Errorf("mode %q requires languages.target to be set", cfg.Mode))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
