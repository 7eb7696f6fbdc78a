package app_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/lingvox/internal/app"
	"github.com/MrWong99/lingvox/internal/config"
	"github.com/MrWong99/lingvox/pkg/audio"
	audiomock "github.com/MrWong99/lingvox/pkg/audio/mock"
	mtmock "github.com/MrWong99/lingvox/pkg/provider/mt/mock"
	sttmock "github.com/MrWong99/lingvox/pkg/provider/stt/mock"
	ttsmock "github.com/MrWong99/lingvox/pkg/provider/tts/mock"
)

// testConfig returns a minimal transcribe-mode config for tests.
func testConfig(mode config.Mode) *config.Config {
	cfg := config.Default()
	cfg.Mode = mode
	cfg.Languages = config.LanguagesConfig{Source: "en", Target: "es"}
	return cfg
}

// spokenScript builds frames for n utterances: speech followed by enough
// silence to trip the default 1.5 s boundary at 64 ms frames.
func spokenScript(n int) []audio.Frame {
	speech := make([]float32, 1024)
	silence := make([]float32, 1024)
	for i := range speech {
		speech[i] = 0.1
		silence[i] = 0.001
	}
	var frames []audio.Frame
	for u := 0; u < n; u++ {
		for i := 0; i < 10; i++ {
			frames = append(frames, audio.Frame{Samples: speech, SampleRate: 16000})
		}
		for i := 0; i < 24; i++ {
			frames = append(frames, audio.Frame{Samples: silence, SampleRate: 16000})
		}
	}
	return frames
}

// syncBuffer is a bytes.Buffer safe for cross-goroutine writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNew_RequiresSTT(t *testing.T) {
	if _, err := app.New(testConfig(config.ModeTranscribe), &app.Providers{}); err == nil {
		t.Fatal("expected error without an STT provider, got nil")
	}
}

func TestNew_TranslateModeRequiresTranslatorAndTTS(t *testing.T) {
	_, err := app.New(testConfig(config.ModeTranslate), &app.Providers{STT: &sttmock.Transcriber{}})
	if err == nil {
		t.Fatal("expected error without translation provider, got nil")
	}

	_, err = app.New(testConfig(config.ModeTranslate), &app.Providers{
		STT:         &sttmock.Transcriber{},
		Translation: &mtmock.Translator{},
	})
	if err == nil {
		t.Fatal("expected error without TTS provider, got nil")
	}
}

func TestRun_TranscribeMode(t *testing.T) {
	src := &audiomock.Source{Frames: spokenScript(1), BlockWhenDrained: true}
	tr := &sttmock.Transcriber{Results: []string{"hello from the microphone"}}
	out := &syncBuffer{}

	a, err := app.New(testConfig(config.ModeTranscribe),
		&app.Providers{STT: tr},
		app.WithAudioSource(func(context.Context) (audio.Source, error) { return src, nil }),
		app.WithOutput(out),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- a.Run(ctx) }()

	waitFor(t, func() bool { return strings.Contains(out.String(), "hello from the microphone") })
	cancel()
	if err := <-runDone; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := src.CallCountClose.Load(); got != 1 {
		t.Errorf("source Close called %d times, want 1", got)
	}

	output := out.String()
	if !strings.Contains(output, "[Sentence 1]: hello from the microphone") {
		t.Errorf("output %q missing the numbered transcript block", output)
	}
	if !strings.Contains(output, strings.Repeat("-", 80)) {
		t.Errorf("output %q missing the block separator", output)
	}
	if !strings.Contains(output, "Total sentences transcribed: 1") {
		t.Errorf("output %q missing the shutdown summary", output)
	}
}

func TestRun_TranscribeModeNumbersSentences(t *testing.T) {
	src := &audiomock.Source{Frames: spokenScript(3), BlockWhenDrained: true}
	tr := &sttmock.Transcriber{Results: []string{"first", "second", "third"}}
	out := &syncBuffer{}

	a, err := app.New(testConfig(config.ModeTranscribe),
		&app.Providers{STT: tr},
		app.WithAudioSource(func(context.Context) (audio.Source, error) { return src, nil }),
		app.WithOutput(out),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- a.Run(ctx) }()

	waitFor(t, func() bool { return strings.Contains(out.String(), "third") })
	cancel()
	if err := <-runDone; err != nil {
		t.Fatalf("Run: %v", err)
	}

	output := out.String()
	for i, text := range []string{"first", "second", "third"} {
		block := fmt.Sprintf("[Sentence %d]: %s", i+1, text)
		if !strings.Contains(output, block) {
			t.Errorf("output missing %q", block)
		}
	}
	if !strings.Contains(output, "Total sentences transcribed: 3") {
		t.Errorf("output %q missing the shutdown summary", output)
	}
}

func TestRun_TranslateMode(t *testing.T) {
	src := &audiomock.Source{Frames: spokenScript(1), BlockWhenDrained: true}
	tr := &sttmock.Transcriber{Results: []string{"good morning"}}
	mtr := &mtmock.Translator{Results: []string{"buenos días"}}
	synth := &ttsmock.Synthesizer{}
	player := &audiomock.Player{}
	out := &syncBuffer{}

	a, err := app.New(testConfig(config.ModeTranslate),
		&app.Providers{STT: tr, Translation: mtr, TTS: synth},
		app.WithAudioSource(func(context.Context) (audio.Source, error) { return src, nil }),
		app.WithPlayer(player),
		app.WithOutput(out),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- a.Run(ctx) }()

	waitFor(t, func() bool { return player.PlayCount() >= 1 })
	cancel()
	if err := <-runDone; err != nil {
		t.Fatalf("Run: %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "good morning") {
		t.Errorf("output %q missing the recognized text", output)
	}
	if !strings.Contains(output, "buenos días") {
		t.Errorf("output %q missing the translation", output)
	}
	if mtr.CallCount() != 1 {
		t.Errorf("translator called %d times, want 1", mtr.CallCount())
	}
	if len(mtr.Calls) == 1 {
		if mtr.Calls[0].Source != "en" || mtr.Calls[0].Target != "es" {
			t.Errorf("translation languages = %s/%s, want en/es", mtr.Calls[0].Source, mtr.Calls[0].Target)
		}
	}
	if synth.CallCount() != 1 || synth.Texts[0] != "buenos días" {
		t.Errorf("synthesizer calls = %v, want one call with the translation", synth.Texts)
	}
}

func TestRun_TranslateFailureIsPerUtterance(t *testing.T) {
	src := &audiomock.Source{Frames: spokenScript(2), BlockWhenDrained: true}
	tr := &sttmock.Transcriber{Results: []string{"first", "second"}}
	mtr := &mtmock.Translator{
		Results: []string{"primero", "segundo"},
		Errs:    map[int]error{0: errors.New("translation backend down")},
	}
	synth := &ttsmock.Synthesizer{}
	player := &audiomock.Player{}

	a, err := app.New(testConfig(config.ModeTranslate),
		&app.Providers{STT: tr, Translation: mtr, TTS: synth},
		app.WithAudioSource(func(context.Context) (audio.Source, error) { return src, nil }),
		app.WithPlayer(player),
		app.WithOutput(&syncBuffer{}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- a.Run(ctx) }()

	// Utterance 1 fails in translation; utterance 2 must still be spoken.
	waitFor(t, func() bool { return player.PlayCount() >= 1 })
	cancel()
	if err := <-runDone; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if mtr.CallCount() != 2 {
		t.Errorf("translator called %d times, want 2", mtr.CallCount())
	}
	if synth.CallCount() != 1 || synth.Texts[0] != "segundo" {
		t.Errorf("synthesizer calls = %v, want one call for the second utterance", synth.Texts)
	}
}

func TestClose_Idempotent(t *testing.T) {
	a, err := app.New(testConfig(config.ModeTranscribe),
		&app.Providers{STT: &sttmock.Transcriber{}},
		app.WithAudioSource(func(context.Context) (audio.Source, error) { return &audiomock.Source{}, nil }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
