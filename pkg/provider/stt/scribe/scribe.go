// Package scribe provides an STT provider backed by the ElevenLabs Scribe
// speech-to-text API. It implements the stt.Provider interface.
//
// Scribe is the reference provider for CutForge: its word list distinguishes
// lexical words from spacing and audio events, which maps 1:1 onto the
// canonical word types the pipeline expects.
package scribe

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

	"github.com/cutforge/cutforge/pkg/audio"
	"github.com/cutforge/cutforge/pkg/provider/stt"
	"github.com/cutforge/cutforge/pkg/timeline"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	sttPath        = "/v1/speech-to-text"
	defaultModel   = "scribe_v1"
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Scribe Provider.
type Option func(*Provider)

// WithModel sets the Scribe model ID (e.g. "scribe_v1").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL overrides the API base URL. Mainly useful for tests.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithLanguage pins the transcription language (ISO 639-1, e.g. "en").
// Empty lets Scribe auto-detect.
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithTimeout sets a per-request HTTP timeout. Whole recordings can take a
// while to process, so the default is generous.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements stt.Provider backed by the ElevenLabs Scribe API.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	language   string
	httpClient *http.Client
}

// New creates a new Scribe Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("scribe: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- API response types ----

// sttResponse is the top-level response from POST /v1/speech-to-text.
type sttResponse struct {
	LanguageCode string     `json:"language_code"`
	Text         string     `json:"text"`
	Words        []sttWord  `json:"words"`
}

// sttWord is a single entry in the Scribe word list.
type sttWord struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"` // "word", "spacing", or "audio_event"
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcribe uploads buf as a WAV file and returns the canonical word
// sequence with sequential IDs in transcript order.
func (p *Provider) Transcribe(ctx context.Context, buf audio.Buffer) (*stt.Result, error) {
	wavBytes, err := audio.EncodeWAVBytes(&buf)
	if err != nil {
		return nil, fmt.Errorf("scribe: encode upload: %w", err)
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("scribe: multipart file: %w", err)
	}
	if _, err := fw.Write(wavBytes); err != nil {
		return nil, fmt.Errorf("scribe: multipart write: %w", err)
	}
	if err := mw.WriteField("model_id", p.model); err != nil {
		return nil, fmt.Errorf("scribe: multipart field: %w", err)
	}
	if p.language != "" {
		if err := mw.WriteField("language_code", p.language); err != nil {
			return nil, fmt.Errorf("scribe: multipart field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("scribe: multipart close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+sttPath, body)
	if err != nil {
		return nil, fmt.Errorf("scribe: build request: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scribe: transcription HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("scribe: unexpected status %d: %s", resp.StatusCode, detail)
	}

	var sr sttResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("scribe: decode response: %w", err)
	}

	return &stt.Result{
		Text:     sr.Text,
		Language: sr.LanguageCode,
		Words:    convertWords(sr.Words),
	}, nil
}

// convertWords maps the Scribe word list onto canonical words, assigning
// sequential IDs. Unknown entry types are kept as events so the transcript
// order stays intact without inventing lexical tokens.
func convertWords(in []sttWord) []timeline.CanonicalWord {
	words := make([]timeline.CanonicalWord, 0, len(in))
	for i, w := range in {
		wt := timeline.TypeEvent
		switch w.Type {
		case "word":
			wt = timeline.TypeWord
		case "spacing":
			wt = timeline.TypeSpacing
		}
		words = append(words, timeline.CanonicalWord{
			ID:    int64(i),
			Text:  w.Text,
			Start: w.Start,
			End:   w.End,
			Type:  wt,
		})
	}
	return words
}
