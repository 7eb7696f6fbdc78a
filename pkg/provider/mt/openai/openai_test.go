package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// completionResponse is the minimal chat-completion JSON shape the client
// needs to parse a translation out of.
const completionResponse = `{
	"id": "chatcmpl-test",
	"object": "chat.completion",
	"choices": [
		{
			"index": 0,
			"message": {"role": "assistant", "content": "  Hola mundo  "},
			"finish_reason": "stop"
		}
	]
}`

// newCompletionServer returns an OpenAI-compatible test server that records
// the last request body and replies with body.
func newCompletionServer(t *testing.T, body string, lastRequest *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if lastRequest != nil {
			var req map[string]any
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request body: %v", err)
			}
			*lastRequest = req
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
}

// ── New ───────────────────────────────────────────────────────────────────────

// TestNew_EmptyAPIKey checks that a missing API key is rejected.
func TestNew_EmptyAPIKey(t *testing.T) {
	_, err := New("", "gpt-4o-mini")
	if err == nil {
		t.Fatal("expected error for empty apiKey")
	}
}

// TestNew_EmptyModel checks that a missing model is rejected.
func TestNew_EmptyModel(t *testing.T) {
	_, err := New("sk-test", "")
	if err == nil {
		t.Fatal("expected error for empty model")
	}
}

// ── Translate ─────────────────────────────────────────────────────────────────

// TestTranslate_ReturnsTrimmedCompletion checks the happy path against an
// OpenAI-compatible test server.
func TestTranslate_ReturnsTrimmedCompletion(t *testing.T) {
	var lastRequest map[string]any
	srv := newCompletionServer(t, completionResponse, &lastRequest)
	defer srv.Close()

	tr, err := New("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := tr.Translate(context.Background(), "hello world", "en", "es")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Hola mundo" {
		t.Errorf("translation = %q, want %q", got, "Hola mundo")
	}

	if model := lastRequest["model"]; model != "gpt-4o-mini" {
		t.Errorf("request model = %v, want gpt-4o-mini", model)
	}
	messages, ok := lastRequest["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("expected 2 messages in request, got %v", lastRequest["messages"])
	}
	user, _ := messages[1].(map[string]any)
	if user["content"] != "hello world" {
		t.Errorf("user message content = %v, want the input text", user["content"])
	}
	system, _ := messages[0].(map[string]any)
	prompt, _ := system["content"].(string)
	if !strings.Contains(prompt, "es") {
		t.Errorf("system prompt should name the target language, got %q", prompt)
	}
}

// TestTranslate_EmptyChoices checks that a response without choices is an error.
func TestTranslate_EmptyChoices(t *testing.T) {
	srv := newCompletionServer(t, `{"id":"x","object":"chat.completion","choices":[]}`, nil)
	defer srv.Close()

	tr, err := New("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tr.Translate(context.Background(), "hello", "en", "es"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

// TestTranslate_EmptyTarget checks that a missing target language is rejected
// before any request is made.
func TestTranslate_EmptyTarget(t *testing.T) {
	tr, err := New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tr.Translate(context.Background(), "hello", "en", ""); err == nil {
		t.Fatal("expected error for empty target language")
	}
}
