// Package whisper provides two [stt.Transcriber] implementations backed by
// OpenAI Whisper:
//
//   - [ServerTranscriber] talks to a whisper.cpp HTTP server
//     (./server -m model.bin) over its /inference endpoint.
//   - [NativeTranscriber] links whisper.cpp directly via its CGO bindings.
//
// Both operate in batch mode: one call per complete utterance, as produced by
// the segmentation pipeline.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/MrWong99/lingvox/pkg/provider/stt"
)

// Compile-time assertion that ServerTranscriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*ServerTranscriber)(nil)

const defaultHTTPTimeout = 30 * time.Second

// ServerTranscriber implements stt.Transcriber against a whisper.cpp HTTP
// server. Each Transcribe call encodes the utterance as a WAV file and POSTs
// it to the /inference endpoint as multipart/form-data.
type ServerTranscriber struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// Option is a functional option for configuring a ServerTranscriber.
type Option func(*ServerTranscriber)

// WithModel sets the model hint sent with each request (e.g., "small").
// Most whisper.cpp servers load a single model and ignore this field.
func WithModel(model string) Option {
	return func(t *ServerTranscriber) { t.model = model }
}

// WithLanguage sets the default language code for transcription (e.g., "en").
// Empty lets the server auto-detect the language.
func WithLanguage(lang string) Option {
	return func(t *ServerTranscriber) { t.language = lang }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(t *ServerTranscriber) { t.httpClient.Timeout = d }
}

// New creates a ServerTranscriber that connects to the whisper.cpp HTTP
// server at serverURL (e.g., "http://localhost:8080"). serverURL must be
// non-empty.
func New(serverURL string, opts ...Option) (*ServerTranscriber, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	t := &ServerTranscriber{
		serverURL:  serverURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Transcribe encodes samples as WAV and POSTs them to the server's /inference
// endpoint. The language argument overrides the transcriber-level default for
// this call only.
func (t *ServerTranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int, language string) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	lang := language
	if lang == "" {
		lang = t.language
	}

	wav := encodeWAV(float32ToPCM16(samples), sampleRate, 1)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("whisper: write wav data: %w", err)
	}

	if lang != "" {
		if err := mw.WriteField("language", lang); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if t.model != "" {
		if err := mw.WriteField("model", t.model); err != nil {
			return "", fmt.Errorf("whisper: write model field: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	endpoint := t.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	return result.Text, nil
}
