package audio_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/lingvox/pkg/audio"
	"github.com/MrWong99/lingvox/pkg/audio/mock"
)

// flakyOpener returns an [audio.OpenFunc] that fails failures times before
// succeeding, recording every attempt in *attempts.
func flakyOpener(failures int, attempts *int) audio.OpenFunc {
	return func(ctx context.Context) (audio.Source, error) {
		*attempts++
		if *attempts <= failures {
			return nil, errors.New("device busy")
		}
		return &mock.Source{}, nil
	}
}

func TestOpenWithRetry_FirstAttemptSucceeds(t *testing.T) {
	attempts := 0
	src, err := audio.OpenWithRetry(context.Background(), flakyOpener(0, &attempts), 3, time.Millisecond)
	if err != nil {
		t.Fatalf("OpenWithRetry: %v", err)
	}
	defer src.Close()

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestOpenWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	src, err := audio.OpenWithRetry(context.Background(), flakyOpener(2, &attempts), 3, time.Millisecond)
	if err != nil {
		t.Fatalf("OpenWithRetry: %v", err)
	}
	defer src.Close()

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestOpenWithRetry_ExhaustedBudgetReturnsLastError(t *testing.T) {
	attempts := 0
	_, err := audio.OpenWithRetry(context.Background(), flakyOpener(10, &attempts), 3, time.Millisecond)
	if err == nil {
		t.Fatal("expected error after exhausting attempts, got nil")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestOpenWithRetry_ZeroAttemptsUsesDefaultBudget(t *testing.T) {
	attempts := 0
	_, err := audio.OpenWithRetry(context.Background(), flakyOpener(10, &attempts), 0, time.Millisecond)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want default budget of 3", attempts)
	}
}

func TestOpenWithRetry_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	open := func(context.Context) (audio.Source, error) {
		attempts++
		cancel() // cancel while the retry loop is waiting out the backoff
		return nil, errors.New("device busy")
	}

	_, err := audio.OpenWithRetry(ctx, open, 3, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestFrame_Duration(t *testing.T) {
	tests := []struct {
		name  string
		frame audio.Frame
		want  time.Duration
	}{
		{"64ms at 16kHz", audio.Frame{Samples: make([]float32, 1024), SampleRate: 16000}, 64 * time.Millisecond},
		{"empty frame", audio.Frame{SampleRate: 16000}, 0},
		{"no sample rate", audio.Frame{Samples: make([]float32, 1024)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.frame.Duration(); got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConcat_PreservesOrderAndLength(t *testing.T) {
	frames := []audio.Frame{
		{Samples: []float32{1, 2}},
		{Samples: []float32{3}},
		{Samples: []float32{4, 5, 6}},
	}
	got := audio.Concat(frames)
	want := []float32{1, 2, 3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestConcat_EmptyInput(t *testing.T) {
	if got := audio.Concat(nil); len(got) != 0 {
		t.Errorf("Concat(nil) has %d samples, want 0", len(got))
	}
}
