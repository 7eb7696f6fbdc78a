package config

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const validYAML = `
log_level: debug
mode: translate
metrics_addr: ":9090"
audio:
  sample_rate: 16000
  frame_samples: 1024
  channels: 1
  input_device: "USB"
segmenter:
  vad_threshold: 0.02
  silence_duration: 1.5
  chunk_duration: 3.0
  punctuation_peek: true
languages:
  source: en
  target: es
providers:
  stt:
    name: whisper-native
    model: models/ggml-small.bin
  translation:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
  tts:
    name: coqui
    base_url: http://localhost:5002
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.LogLevel != LogDebug {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Mode != ModeTranslate {
		t.Errorf("mode = %q, want translate", cfg.Mode)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.FrameSamples != 1024 {
		t.Errorf("audio = %+v, want 16000/1024", cfg.Audio)
	}
	if cfg.Audio.InputDevice != "USB" {
		t.Errorf("input_device = %q, want USB", cfg.Audio.InputDevice)
	}
	if !cfg.Segmenter.PunctuationPeek {
		t.Error("punctuation_peek = false, want true")
	}
	if cfg.Languages.Target != "es" {
		t.Errorf("languages.target = %q, want es", cfg.Languages.Target)
	}
	if cfg.Providers.Translation.APIKey != "sk-test" {
		t.Errorf("translation.api_key = %q, want sk-test", cfg.Providers.Translation.APIKey)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("log_levle: debug\nproviders:\n  stt: {name: whisper}\n"))
	if err == nil {
		t.Fatal("expected error for misspelled field, got nil")
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	cfg := &Config{
		LogLevel: "loud",
		Mode:     "dictate",
		Audio:    AudioConfig{SampleRate: 11025, Channels: 2},
		Segmenter: SegmenterConfig{
			VADThreshold:    1.5,
			SilenceDuration: -1,
		},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}
	msg := err.Error()
	for _, want := range []string{"log_level", "mode", "sample_rate", "channels", "vad_threshold", "silence_duration", "stt.name"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %s", msg, want)
		}
	}
}

func TestValidate_TranslateModeRequiresProviders(t *testing.T) {
	cfg := &Config{
		Mode:      ModeTranslate,
		Providers: ProvidersConfig{STT: ProviderEntry{Name: "whisper"}},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for translate mode without translation/tts, got nil")
	}
	msg := err.Error()
	for _, want := range []string{"providers.translation", "providers.tts", "languages.target"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %s", msg, want)
		}
	}
}

func TestValidate_TranscribeModeNeedsOnlySTT(t *testing.T) {
	cfg := &Config{
		Mode:      ModeTranscribe,
		Providers: ProvidersConfig{STT: ProviderEntry{Name: "whisper"}},
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	orig, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if err := Save(orig, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded, orig) {
		t.Errorf("round-trip mismatch:\n got %+v\nwant %+v", loaded, orig)
	}
}

func TestSegmenterConfig_DurationConversion(t *testing.T) {
	c := SegmenterConfig{SilenceDuration: 1.5, ChunkDuration: 0.25}
	if got := c.SilenceDur(); got != 1500*time.Millisecond {
		t.Errorf("SilenceDur = %v, want 1.5s", got)
	}
	if got := c.ChunkDur(); got != 250*time.Millisecond {
		t.Errorf("ChunkDur = %v, want 250ms", got)
	}
}

func TestProviderEntry_StringOption(t *testing.T) {
	e := ProviderEntry{Options: map[string]any{"speaker": "p273", "threads": 4}}
	if got := e.StringOption("speaker", "default"); got != "p273" {
		t.Errorf("speaker = %q, want p273", got)
	}
	if got := e.StringOption("threads", "fallback"); got != "fallback" {
		t.Errorf("non-string option = %q, want fallback", got)
	}
	if got := e.StringOption("missing", "fallback"); got != "fallback" {
		t.Errorf("missing option = %q, want fallback", got)
	}
}

func TestModeAndLogLevelValidity(t *testing.T) {
	for _, m := range []Mode{ModeTranscribe, ModeTranslate} {
		if !m.IsValid() {
			t.Errorf("mode %q reported invalid", m)
		}
	}
	if Mode("dictate").IsValid() {
		t.Error("mode dictate reported valid")
	}
	for _, l := range []LogLevel{LogDebug, LogInfo, LogWarn, LogError} {
		if !l.IsValid() {
			t.Errorf("log level %q reported invalid", l)
		}
	}
	if LogLevel("loud").IsValid() {
		t.Error("log level loud reported valid")
	}
}
