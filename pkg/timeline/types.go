// Package timeline defines the word-level data model shared by every
// CutForge pipeline stage: the canonical word sequence produced by the
// transcription stage, the phoneme-bearing aligned words produced by the
// forced-alignment stage, and the cut runs that connect the two.
//
// All types in this package are plain immutable records. Stages receive them
// by read-only reference and never mutate them; the only writer is the stage
// that originally produced the collection.
package timeline

import "encoding/json"

// WordType classifies an entry in the canonical word sequence.
type WordType string

const (
	// TypeWord is a lexical word with spoken content.
	TypeWord WordType = "word"

	// TypeSpacing is an inter-word silence emitted by the transcriber.
	// It carries no lexical token and must be skippable without breaking
	// ID continuity.
	TypeSpacing WordType = "spacing"

	// TypeEvent is a non-speech audio event (laughter, noise, artifacts).
	TypeEvent WordType = "event"
)

// IsValid reports whether t is a recognised word type.
func (t WordType) IsValid() bool {
	switch t {
	case TypeWord, TypeSpacing, TypeEvent:
		return true
	}
	return false
}

// CanonicalWord is one entry of the authoritative, ID-stable, time-ordered
// transcript. IDs are assigned once over the whole recording and are strictly
// monotonic; every other representation (aligned words, marked transcripts)
// is reconciled against this sequence.
type CanonicalWord struct {
	// ID is the stable identifier of this entry within the recording.
	ID int64 `json:"id"`

	// Text is the literal transcript text, including punctuation.
	// Empty for spacing entries.
	Text string `json:"text"`

	// Start and End are absolute timestamps in seconds.
	Start float64 `json:"start"`
	End   float64 `json:"end"`

	// Type classifies the entry; only TypeWord entries carry lexical content.
	Type WordType `json:"type"`
}

// Phoneme is a single phoneme interval within an aligned word. Phonemes are
// ordered by time within their word and non-overlapping by construction.
type Phoneme struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the phoneme length in seconds.
func (p Phoneme) Duration() float64 {
	return p.End - p.Start
}

// AlignedWord is a canonical word enriched with forced-alignment timing.
// The aligner may silently drop or reorder words relative to the canonical
// sequence; consumers must tolerate missing IDs.
type AlignedWord struct {
	// ID references the CanonicalWord this alignment belongs to.
	ID int64 `json:"id"`

	// Word is the original canonical text, preserved through alignment.
	Word string `json:"word"`

	// Start and End are absolute timestamps in seconds.
	Start float64 `json:"start"`
	End   float64 `json:"end"`

	// ReliableTimestamps marks whether the aligner considered this word's
	// chunk to have trustworthy timing. Absent in serialized form means
	// reliable.
	ReliableTimestamps bool `json:"reliable_timestamps"`

	// Phonemes holds the word's phoneme intervals, time-ordered.
	// May be empty when the aligner produced no phone tier.
	Phonemes []Phoneme `json:"phonemes,omitempty"`
}

// UnmarshalJSON decodes an AlignedWord, defaulting ReliableTimestamps to
// true when the field is absent. Older cache files predate the flag.
func (w *AlignedWord) UnmarshalJSON(data []byte) error {
	type alias AlignedWord
	raw := struct {
		*alias
		ReliableTimestamps *bool `json:"reliable_timestamps"`
	}{alias: (*alias)(w)}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ReliableTimestamps == nil {
		w.ReliableTimestamps = true
	} else {
		w.ReliableTimestamps = *raw.ReliableTimestamps
	}
	return nil
}

// CutRun is a contiguous span of canonical word IDs marked for removal.
// Invariants: non-empty, IDs strictly increasing, and never the first or
// last word of the recording (boundary cuts are rejected by the splice
// synthesizer).
type CutRun []int64

// First returns the lowest word ID of the run. Panics on an empty run.
func (r CutRun) First() int64 { return r[0] }

// Last returns the highest word ID of the run. Panics on an empty run.
func (r CutRun) Last() int64 { return r[len(r)-1] }
