// Package coqui provides a [tts.Synthesizer] backed by a locally-running
// standard Coqui TTS server (ghcr.io/coqui-ai/tts-cpu). Synthesis is
// performed via GET /api/tts with URL query parameters; the WAV response is
// decoded into float32 PCM for playback.
//
// Typical usage:
//
//	s, err := coqui.New("http://localhost:5002",
//	    coqui.WithLanguage("es"),
//	    coqui.WithTimeout(15*time.Second),
//	)
//	clip, err := s.Synthesize(ctx, "Hola, ¿cómo estás?")
package coqui

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/lingvox/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

const (
	defaultTimeout = 30 * time.Second
	apiTTSEndpoint = "/api/tts"
)

// Option is a functional option for configuring a Synthesizer.
type Option func(*Synthesizer)

// WithLanguage sets the language_id query parameter sent to multi-lingual
// models (e.g., "en", "es"). Empty omits the parameter.
func WithLanguage(lang string) Option {
	return func(s *Synthesizer) { s.language = lang }
}

// WithSpeaker sets the speaker_id query parameter for multi-speaker models.
// Empty omits the parameter, which single-speaker models require.
func WithSpeaker(speaker string) Option {
	return func(s *Synthesizer) { s.speaker = speaker }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) { s.httpClient.Timeout = d }
}

// Synthesizer implements [tts.Synthesizer] against a standard Coqui TTS
// server. It is safe for concurrent use.
type Synthesizer struct {
	serverURL  string
	language   string
	speaker    string
	httpClient *http.Client
}

// New creates a Synthesizer that targets the Coqui TTS server at serverURL
// (e.g., "http://localhost:5002"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Synthesizer, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	s := &Synthesizer{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Synthesize implements [tts.Synthesizer]. It performs one GET /api/tts
// request and decodes the WAV response into a mono float32 clip at the
// model's native sample rate.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (tts.Clip, error) {
	if strings.TrimSpace(text) == "" {
		return tts.Clip{}, errors.New("coqui: text must not be empty")
	}

	params := url.Values{}
	params.Set("text", text)
	if s.speaker != "" {
		params.Set("speaker_id", s.speaker)
	}
	if s.language != "" {
		params.Set("language_id", s.language)
	}

	reqURL := s.serverURL + apiTTSEndpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return tts.Clip{}, fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Accept", "audio/wav")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return tts.Clip{}, fmt.Errorf("coqui: GET %s: %w", apiTTSEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tts.Clip{}, fmt.Errorf("coqui: GET %s returned status %d", apiTTSEndpoint, resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return tts.Clip{}, fmt.Errorf("coqui: read WAV response: %w", err)
	}
	return decodeWAV(wav)
}

// decodeWAV walks the RIFF chunks of wav and converts the 16-bit mono data
// chunk into a float32 clip. Walking the chunks is more robust than assuming
// a fixed 44-byte header because the fmt chunk size may vary.
func decodeWAV(wav []byte) (tts.Clip, error) {
	if len(wav) < 12 {
		return tts.Clip{}, errors.New("coqui: WAV response too short to be a valid RIFF file")
	}
	if string(wav[0:4]) != "RIFF" {
		return tts.Clip{}, errors.New("coqui: WAV response missing RIFF header")
	}
	if string(wav[8:12]) != "WAVE" {
		return tts.Clip{}, errors.New("coqui: WAV response missing WAVE identifier")
	}

	sampleRate := 0
	channels := 0
	bitsPerSample := 0

	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))

		switch chunkID {
		case "fmt ":
			if chunkSize >= 16 && offset+8+16 <= len(wav) {
				fmtData := wav[offset+8:]
				channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
				sampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
				bitsPerSample = int(binary.LittleEndian.Uint16(fmtData[14:16]))
			}
		case "data":
			if sampleRate == 0 {
				return tts.Clip{}, errors.New("coqui: WAV data chunk precedes fmt chunk")
			}
			if channels != 1 || bitsPerSample != 16 {
				return tts.Clip{}, fmt.Errorf("coqui: unsupported WAV format: %d channels, %d bits per sample", channels, bitsPerSample)
			}
			pcm := wav[offset+8:]
			if chunkSize < len(pcm) {
				pcm = pcm[:chunkSize]
			}
			return tts.Clip{Samples: pcm16ToFloat32(pcm), SampleRate: sampleRate}, nil
		}

		// Chunks are word-aligned: pad by 1 if the size is odd.
		offset += 8 + chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}
	return tts.Clip{}, errors.New("coqui: WAV response missing data chunk")
}

// pcm16ToFloat32 converts little-endian 16-bit PCM into [-1, 1] float32.
func pcm16ToFloat32(pcm []byte) []float32 {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		samples[i] = float32(v) / 32768
	}
	return samples
}
