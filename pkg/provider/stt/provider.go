// Package stt defines the Provider interface for Speech-to-Text backends.
//
// CutForge transcribes whole recordings offline, so the interface is a
// single batch call: audio in, the canonical word sequence out. The word
// sequence is the backbone of the whole pipeline — every later stage refers
// to words by the IDs assigned here.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"

	"github.com/cutforge/cutforge/pkg/audio"
	"github.com/cutforge/cutforge/pkg/timeline"
)

// Result is a finished transcription of one audio buffer.
type Result struct {
	// Text is the full transcript, as the provider renders it.
	Text string

	// Language is the detected or configured language code (e.g. "en").
	// Empty if the provider does not report one.
	Language string

	// Words is the canonical word sequence: every entry carries a unique,
	// strictly increasing ID, coarse start/end timestamps, and a type
	// distinguishing lexical words from spacing and non-speech events.
	Words []timeline.CanonicalWord
}

// Provider is the abstraction over any batch STT backend.
//
// Transcribe must propagate context cancellation promptly and return an
// error if transcription fails or ctx is cancelled first.
type Provider interface {
	Transcribe(ctx context.Context, buf audio.Buffer) (*Result, error)
}
