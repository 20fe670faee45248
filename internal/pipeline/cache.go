package pipeline

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
)

// stageCache persists intermediate stage results per recording so re-runs
// skip the expensive external stages (VAD, transcription, LLM marking). A
// nil *stageCache disables caching; all methods are nil-safe.
type stageCache struct {
	dir string
}

// newStageCache returns a cache rooted at root/source, or nil when root is
// empty. Creation failures disable caching rather than failing the run.
func newStageCache(root, source string) *stageCache {
	if root == "" {
		return nil
	}
	dir := filepath.Join(root, source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("stage cache disabled", "dir", dir, "error", err)
		return nil
	}
	return &stageCache{dir: dir}
}

// loadJSON reads name into v. Returns false on any miss or decode failure.
func (c *stageCache) loadJSON(name string, v any) bool {
	if c == nil {
		return false
	}
	raw, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		slog.Warn("ignoring corrupt cache entry", "name", name, "error", err)
		return false
	}
	return true
}

// storeJSON writes v under name. Failures are logged, not returned; a cache
// write must never fail the pipeline.
func (c *stageCache) storeJSON(name string, v any) {
	if c == nil {
		return
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		slog.Warn("cache encode failed", "name", name, "error", err)
		return
	}
	if err := os.WriteFile(filepath.Join(c.dir, name), raw, 0o644); err != nil {
		slog.Warn("cache write failed", "name", name, "error", err)
	}
}

// loadText reads name as a plain string.
func (c *stageCache) loadText(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	raw, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// storeText writes s under name.
func (c *stageCache) storeText(name, s string) {
	if c == nil {
		return
	}
	if err := os.WriteFile(filepath.Join(c.dir, name), []byte(s), 0o644); err != nil {
		slog.Warn("cache write failed", "name", name, "error", err)
	}
}
