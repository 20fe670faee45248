// Package whisper provides a local STT provider backed by the whisper.cpp
// CGO bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// The model is loaded once at construction and shared across concurrent
// Transcribe calls; each call creates its own whisper context.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/cutforge/cutforge/pkg/audio"
	"github.com/cutforge/cutforge/pkg/provider/stt"
	"github.com/cutforge/cutforge/pkg/timeline"
)

// whisperSampleRate is the only sample rate whisper.cpp accepts. Input at
// other rates is resampled before inference.
const whisperSampleRate = 16000

// Compile-time assertion that Provider satisfies stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider implements stt.Provider using whisper.cpp Go bindings (CGO).
type Provider struct {
	model    whisperlib.Model
	language string
	threads  uint
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithThreads sets the number of inference threads. Zero leaves the
// whisper.cpp default.
func WithThreads(n uint) Option {
	return func(p *Provider) { p.threads = n }
}

// New creates a Provider that loads the whisper.cpp model from the given
// file path. The caller must call Close when the provider is no longer
// needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &Provider{
		model:    model,
		language: "en",
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe runs batch inference over the whole buffer and returns one
// canonical word per emitted segment.
//
// Word-level timing comes from running whisper with single-word segments
// and token timestamps enabled. These timestamps are coarse; downstream
// forced alignment refines them before any boundary is computed.
func (p *Provider) Transcribe(ctx context.Context, buf audio.Buffer) (*stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	if buf.SampleRate != whisperSampleRate {
		buf = *audio.Resample(&buf, whisperSampleRate)
	}
	samples := make([]float32, len(buf.Samples))
	for i, s := range buf.Samples {
		samples[i] = float32(s)
	}

	// Each whisper context is NOT thread-safe, but the model can be shared
	// across goroutines.
	wctx, err := p.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisper: failed to set language, using default",
			"language", p.language, "error", err)
	}
	wctx.SetTokenTimestamps(true)
	wctx.SetSplitOnWord(true)
	wctx.SetMaxSegmentLength(1)
	if p.threads > 0 {
		wctx.SetThreads(p.threads)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var (
		words []timeline.CanonicalWord
		parts []string
	)
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}

		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		words = append(words, timeline.CanonicalWord{
			ID:    int64(len(words)),
			Text:  text,
			Start: segment.Start.Seconds(),
			End:   segment.End.Seconds(),
			Type:  classify(text),
		})
		parts = append(parts, text)
	}

	return &stt.Result{
		Text:     strings.Join(parts, " "),
		Language: p.language,
		Words:    words,
	}, nil
}

// classify maps a segment text onto a canonical word type. Whisper renders
// non-speech sounds as bracketed or parenthesized markers.
func classify(text string) timeline.WordType {
	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		return timeline.TypeEvent
	}
	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		return timeline.TypeEvent
	}
	return timeline.TypeWord
}
