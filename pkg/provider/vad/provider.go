// Package vad defines the Engine interface for Voice Activity Detection
// backends.
//
// CutForge runs VAD over whole recordings to find the silences that make
// safe chunk boundaries for transcription and forced alignment, so the
// interface is a batch call: one buffer in, the list of speech segments out.
//
// Implementations must be safe for concurrent use.
package vad

import (
	"context"

	"github.com/cutforge/cutforge/pkg/audio"
)

// Segment is one contiguous span of detected speech, in seconds from the
// start of the buffer.
type Segment struct {
	Start float64
	End   float64
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Engine is the abstraction over any VAD backend.
//
// DetectSpeech returns the speech segments of buf in ascending,
// non-overlapping order. A buffer with no detected speech yields an empty
// slice and no error.
type Engine interface {
	DetectSpeech(ctx context.Context, buf audio.Buffer) ([]Segment, error)
}
