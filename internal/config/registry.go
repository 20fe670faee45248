package config

import (
	"errors"
	"fmt"
	"sync"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/cutforge/cutforge/pkg/provider/llm"
	"github.com/cutforge/cutforge/pkg/provider/llm/anyllm"
	llmopenai "github.com/cutforge/cutforge/pkg/provider/llm/openai"
	"github.com/cutforge/cutforge/pkg/provider/stt"
	"github.com/cutforge/cutforge/pkg/provider/stt/scribe"
	"github.com/cutforge/cutforge/pkg/provider/stt/whisper"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory
// has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	llm map[string]func(ProviderEntry) (llm.Provider, error)
	stt map[string]func(ProviderEntry) (stt.Provider, error)
}

// NewRegistry returns an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{
		llm: make(map[string]func(ProviderEntry) (llm.Provider, error)),
		stt: make(map[string]func(ProviderEntry) (stt.Provider, error)),
	}
}

// DefaultRegistry returns a [Registry] with all built-in providers
// registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterLLM("openai", func(e ProviderEntry) (llm.Provider, error) {
		var opts []llmopenai.Option
		if e.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(e.BaseURL))
		}
		return llmopenai.New(e.APIKey, e.Model, opts...)
	})
	for _, name := range []string{"anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"} {
		r.RegisterLLM(name, func(e ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if e.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(e.APIKey))
			}
			if e.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(e.BaseURL))
			}
			return anyllm.New(e.Name, e.Model, opts...)
		})
	}

	r.RegisterSTT("scribe", func(e ProviderEntry) (stt.Provider, error) {
		var opts []scribe.Option
		if e.Model != "" {
			opts = append(opts, scribe.WithModel(e.Model))
		}
		if e.BaseURL != "" {
			opts = append(opts, scribe.WithBaseURL(e.BaseURL))
		}
		if lang, ok := e.Options["language"].(string); ok && lang != "" {
			opts = append(opts, scribe.WithLanguage(lang))
		}
		return scribe.New(e.APIKey, opts...)
	})
	r.RegisterSTT("whisper", func(e ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if lang, ok := e.Options["language"].(string); ok && lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if threads, ok := e.Options["threads"].(int); ok && threads > 0 {
			opts = append(opts, whisper.WithThreads(uint(threads)))
		}
		// Model carries the ggml model file path.
		return whisper.New(e.Model, opts...)
	})

	return r
}

// RegisterLLM registers an LLM provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// RegisterSTT registers an STT provider factory under name.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// CreateLLM instantiates an LLM provider using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateSTT instantiates an STT provider using the factory registered under
// entry.Name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Provider, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
