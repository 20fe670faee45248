package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/cutforge/cutforge/pkg/provider/vad"
)

// Default chunking bounds, in seconds. A transcription chunk longer than
// defaultMaxChunkS degrades STT word timing; an alignment chunk shorter
// than defaultMinAlignChunkS gives the forced aligner too little acoustic
// context.
const (
	defaultMaxChunkS      = 30.0
	defaultMinAlignChunkS = 5.0
)

// Default invasion factor range for the unnatural splice variants.
const (
	defaultInvasionMin = 0.7
	defaultInvasionMax = 0.9
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt": {"scribe", "whisper"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued sections with working defaults so a
// minimal config file stays minimal.
func ApplyDefaults(cfg *Config) {
	if cfg.VAD == (vad.RMSConfig{}) {
		cfg.VAD = vad.DefaultRMSConfig()
	}
	if cfg.Segmentation.MaxChunkS == 0 {
		cfg.Segmentation.MaxChunkS = defaultMaxChunkS
	}
	if cfg.Segmentation.MinAlignChunkS == 0 {
		cfg.Segmentation.MinAlignChunkS = defaultMinAlignChunkS
	}
	if cfg.Splice.BackwardInvasion.Min == 0 && cfg.Splice.BackwardInvasion.Max == 0 {
		cfg.Splice.BackwardInvasion.Min = defaultInvasionMin
		cfg.Splice.BackwardInvasion.Max = defaultInvasionMax
	}
	if cfg.Splice.ForwardInvasion.Min == 0 && cfg.Splice.ForwardInvasion.Max == 0 {
		cfg.Splice.ForwardInvasion.Min = defaultInvasionMin
		cfg.Splice.ForwardInvasion.Max = defaultInvasionMax
	}
	if cfg.Run.Concurrency == 0 {
		cfg.Run.Concurrency = 1
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Run.LogLevel != "" && !cfg.Run.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("run.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Run.LogLevel))
	}
	if cfg.Run.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("run.concurrency %d is negative", cfg.Run.Concurrency))
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)

	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required: cut selection needs a language model"))
	}
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}

	if err := cfg.VAD.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("vad: %w", err))
	}

	if cfg.Segmentation.MaxChunkS <= 0 {
		errs = append(errs, fmt.Errorf("segmentation.max_chunk_s %g must be positive", cfg.Segmentation.MaxChunkS))
	}
	if cfg.Segmentation.MinAlignChunkS < 0 {
		errs = append(errs, fmt.Errorf("segmentation.min_align_chunk_s %g is negative", cfg.Segmentation.MinAlignChunkS))
	}
	if cfg.Segmentation.MinAlignChunkS > cfg.Segmentation.MaxChunkS {
		errs = append(errs, fmt.Errorf("segmentation.min_align_chunk_s %g exceeds max_chunk_s %g",
			cfg.Segmentation.MinAlignChunkS, cfg.Segmentation.MaxChunkS))
	}

	if cfg.Resync.Lookahead < 0 {
		errs = append(errs, fmt.Errorf("resync.lookahead %d is negative", cfg.Resync.Lookahead))
	}
	if cfg.Resync.FuzzyThreshold < 0 || cfg.Resync.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("resync.fuzzy_threshold %g is out of range [0, 1]", cfg.Resync.FuzzyThreshold))
	}

	if err := cfg.Splice.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("splice: %w", err))
	}

	if err := cfg.Align.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("align: %w", err))
	}

	if cfg.Dataset.OutputDir == "" {
		errs = append(errs, errors.New("dataset.output_dir is required"))
	}
	if cfg.Dataset.PostgresDSN == "" {
		slog.Info("dataset.postgres_dsn is empty; metadata will not be mirrored to a catalog")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
