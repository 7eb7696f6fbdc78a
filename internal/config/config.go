// Package config provides the configuration schema, loader, and provider
// registry for the lingvox speech pipeline.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Mode selects the pipeline behaviour for a session.
type Mode string

const (
	// ModeTranscribe recognizes speech and prints transcripts.
	ModeTranscribe Mode = "transcribe"

	// ModeTranslate recognizes speech, translates it, and speaks the
	// translation through the configured TTS provider.
	ModeTranslate Mode = "translate"
)

// IsValid reports whether m is a recognised mode.
func (m Mode) IsValid() bool {
	return m == ModeTranscribe || m == ModeTranslate
}

// ValidSampleRates lists the capture sample rates the pipeline accepts.
var ValidSampleRates = []int{8000, 16000, 22050, 44100, 48000}

// Config is the root configuration structure for lingvox.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity. Empty means "info".
	LogLevel LogLevel `yaml:"log_level"`

	// Mode selects the pipeline behaviour. Empty means "transcribe".
	Mode Mode `yaml:"mode"`

	// MetricsAddr is the TCP address of the optional Prometheus /metrics
	// endpoint (e.g., ":9090"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`

	Audio     AudioConfig     `yaml:"audio"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
	Languages LanguagesConfig `yaml:"languages"`
	Providers ProvidersConfig `yaml:"providers"`
}

// AudioConfig holds capture device settings.
type AudioConfig struct {
	// SampleRate is the capture rate in Hz. Must be one of [ValidSampleRates].
	SampleRate int `yaml:"sample_rate"`

	// FrameSamples is the number of samples per captured frame
	// (e.g., 1024 for 64 ms frames at 16 kHz).
	FrameSamples int `yaml:"frame_samples"`

	// Channels is the capture channel count. Only mono (1) is supported.
	Channels int `yaml:"channels"`

	// InputDevice selects the capture device by name substring.
	// Empty uses the system default device.
	InputDevice string `yaml:"input_device"`
}

// SegmenterConfig holds the utterance boundary tunables.
type SegmenterConfig struct {
	// VADThreshold is the RMS level separating speech from silence, in (0, 1].
	VADThreshold float64 `yaml:"vad_threshold"`

	// SilenceDuration is how many seconds of consecutive silence close an
	// utterance.
	SilenceDuration float64 `yaml:"silence_duration"`

	// ChunkDuration is the punctuation-peek cadence in seconds of
	// accumulated audio. Ignored unless PunctuationPeek is set.
	ChunkDuration float64 `yaml:"chunk_duration"`

	// PunctuationPeek enables the early boundary on sentence-final
	// punctuation. Off by default because it duplicates inference work.
	PunctuationPeek bool `yaml:"punctuation_peek"`
}

// SilenceDur returns SilenceDuration as a [time.Duration].
func (c SegmenterConfig) SilenceDur() time.Duration {
	return time.Duration(c.SilenceDuration * float64(time.Second))
}

// ChunkDur returns ChunkDuration as a [time.Duration].
func (c SegmenterConfig) ChunkDur() time.Duration {
	return time.Duration(c.ChunkDuration * float64(time.Second))
}

// LanguagesConfig selects the language pair for the session.
type LanguagesConfig struct {
	// Source is the spoken language hint passed to the recognizer.
	// Empty lets the recognizer auto-detect.
	Source string `yaml:"source"`

	// Target is the language translated speech is rendered into.
	// Required in translate mode.
	Target string `yaml:"target"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	STT         ProviderEntry `yaml:"stt"`
	Translation ProviderEntry `yaml:"translation"`
	TTS         ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "whisper-native", "openai", "coqui").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "models/ggml-small.bin", "gpt-4o-mini").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above. Values may be strings, numbers, booleans,
	// or nested maps.
	Options map[string]any `yaml:"options"`
}

// StringOption returns Options[key] as a string, or def when absent or not a
// string.
func (e ProviderEntry) StringOption(key, def string) string {
	if v, ok := e.Options[key].(string); ok {
		return v
	}
	return def
}

// Default returns the built-in configuration: 16 kHz mono capture in 64 ms
// frames, transcribe mode, and the segmenter tuning the pipeline ships with.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Mode:     ModeTranscribe,
		Audio: AudioConfig{
			SampleRate:   16000,
			FrameSamples: 1024,
			Channels:     1,
		},
		Segmenter: SegmenterConfig{
			VADThreshold:    0.02,
			SilenceDuration: 1.5,
			ChunkDuration:   3.0,
		},
		Providers: ProvidersConfig{
			STT: ProviderEntry{Name: "whisper", BaseURL: "http://localhost:8080"},
		},
	}
}
