// Package mock provides a test double for the vad.Engine interface.
package mock

import (
	"context"
	"sync"

	"github.com/cutforge/cutforge/pkg/audio"
	"github.com/cutforge/cutforge/pkg/provider/vad"
)

// Engine is a mock implementation of vad.Engine.
type Engine struct {
	mu sync.Mutex

	// Segments is returned by DetectSpeech.
	Segments []vad.Segment

	// Err, if non-nil, is returned as the error from DetectSpeech.
	Err error

	// Calls counts invocations of DetectSpeech.
	Calls int
}

// DetectSpeech records the call and returns the configured segments.
func (e *Engine) DetectSpeech(ctx context.Context, buf audio.Buffer) ([]vad.Segment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls++
	return e.Segments, e.Err
}

// Ensure Engine implements vad.Engine at compile time.
var _ vad.Engine = (*Engine)(nil)
