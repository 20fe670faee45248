// Package dataset persists synthesized splice variants as training data.
//
// Each cut produces one directory containing four WAV files (the uncut
// context plus the three splice variants) and a metadata.json describing
// the cut: which words were removed, where the splices land inside each
// variant, and which invasion factors were drawn. The [Writer] handles the
// filesystem layout; the optional [Catalog] mirrors the metadata into
// PostgreSQL for querying across a large corpus.
package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cutforge/cutforge/internal/splice"
	"github.com/cutforge/cutforge/pkg/audio"
	"github.com/cutforge/cutforge/pkg/timeline"
)

// Variant audio file names inside a cut directory.
const (
	fileOriginal = "original.wav"
	fileNatural  = "natural_cut.wav"
	fileBackward = "unnatural_backward.wav"
	fileForward  = "unnatural_forward.wav"
	fileMetadata = "metadata.json"
)

// Span locates a splice inside a variant's audio, in seconds from the start
// of that variant's context window.
type Span struct {
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
}

// InvasionSpan is a Span plus the invasion factor that produced it.
type InvasionSpan struct {
	StartS         float64 `json:"start_s"`
	EndS           float64 `json:"end_s"`
	InvasionFactor float64 `json:"invasion_factor"`
}

// ContextSpan is the absolute position of the cut's context window within
// the source recording.
type ContextSpan struct {
	StartS float64 `json:"chunk_start_s"`
	EndS   float64 `json:"chunk_end_s"`
}

// CutSpans groups the per-variant splice positions.
type CutSpans struct {
	Natural          Span         `json:"natural"`
	BackwardInvasion InvasionSpan `json:"backward_invasion"`
	ForwardInvasion  InvasionSpan `json:"forward_invasion"`
}

// Metadata is the metadata.json document written next to the audio files.
type Metadata struct {
	SourceAudio  string      `json:"source_audio"`
	CutID        int         `json:"cut_id"`
	IsUsable     bool        `json:"is_usable"`
	CutWordIDs   []int64     `json:"cut_word_ids"`
	CutText      string      `json:"cut_text"`
	MarkedUpText string      `json:"marked_up_text"`
	Context      ContextSpan `json:"timestamps_in_original_audio"`
	Cuts         CutSpans    `json:"cuts_relative_to_chunk"`
}

// Point is one datapoint to persist: a synthesized cut plus the context
// needed to describe it.
type Point struct {
	// Source names the recording, without extension. It becomes a
	// directory component.
	Source string

	// CutID numbers the cut within the recording.
	CutID int

	// Run holds the canonical word IDs removed by this cut.
	Run timeline.CutRun

	// Words are the aligned words overlapping the cut's context window,
	// in order. Used to render the marked-up transcript excerpt.
	Words []timeline.AlignedWord

	// Result is the splice synthesis output.
	Result *splice.Result

	// SourceAudio is the full recording, used to export the uncut
	// context clip.
	SourceAudio *audio.Buffer
}

// Writer persists datapoints under a root directory, one subdirectory per
// recording and one per cut below that. Safe for concurrent use as long as
// no two goroutines write the same (source, cut) pair.
type Writer struct {
	root string
}

// NewWriter returns a Writer rooted at dir. The directory is created on
// first Write, not here.
func NewWriter(dir string) *Writer {
	return &Writer{root: dir}
}

// Write persists p and returns the metadata document and the directory it
// was written to.
func (w *Writer) Write(p Point) (*Metadata, string, error) {
	if p.Result == nil {
		return nil, "", fmt.Errorf("dataset: nil synthesis result for cut %d", p.CutID)
	}

	dir := filepath.Join(w.root, p.Source, fmt.Sprintf("cut_%d", p.CutID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("dataset: create %q: %w", dir, err)
	}

	original := originalClip(p.SourceAudio, p.Result.Natural)
	files := []struct {
		name string
		buf  *audio.Buffer
	}{
		{fileOriginal, original},
		{fileNatural, p.Result.Natural.Audio},
		{fileBackward, p.Result.BackwardInvasion.Audio},
		{fileForward, p.Result.ForwardInvasion.Audio},
	}
	for _, f := range files {
		if err := audio.SaveWAV(filepath.Join(dir, f.name), f.buf); err != nil {
			return nil, "", fmt.Errorf("dataset: cut %d: %w", p.CutID, err)
		}
	}

	md := buildMetadata(p)
	raw, err := json.MarshalIndent(md, "", "    ")
	if err != nil {
		return nil, "", fmt.Errorf("dataset: marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, fileMetadata), raw, 0o644); err != nil {
		return nil, "", fmt.Errorf("dataset: write metadata: %w", err)
	}

	return md, dir, nil
}

// originalClip extracts the uncut audio spanning the natural variant's
// context window.
func originalClip(src *audio.Buffer, natural splice.Variant) *audio.Buffer {
	start := src.SampleAt(natural.ContextStart)
	end := src.SampleAt(natural.ContextEnd)
	return src.Clip(start, end)
}

// buildMetadata assembles the metadata document. Splice positions are
// expressed relative to each variant's own context start, so they locate
// the edit within that variant's WAV.
func buildMetadata(p Point) *Metadata {
	r := p.Result
	return &Metadata{
		SourceAudio:  p.Source,
		CutID:        p.CutID,
		IsUsable:     r.Usable,
		CutWordIDs:   append([]int64(nil), p.Run...),
		CutText:      r.CutText,
		MarkedUpText: markedUpText(p.Words, p.Run),
		Context: ContextSpan{
			StartS: r.Natural.ContextStart,
			EndS:   r.Natural.ContextEnd,
		},
		Cuts: CutSpans{
			Natural: Span{
				StartS: r.Natural.CutStart - r.Natural.ContextStart,
				EndS:   r.Natural.CutEnd - r.Natural.ContextStart,
			},
			BackwardInvasion: InvasionSpan{
				StartS:         r.BackwardInvasion.CutStart - r.BackwardInvasion.ContextStart,
				EndS:           r.BackwardInvasion.CutEnd - r.BackwardInvasion.ContextStart,
				InvasionFactor: round4(r.BackwardInvasion.InvasionBackward),
			},
			ForwardInvasion: InvasionSpan{
				StartS:         r.ForwardInvasion.CutStart - r.ForwardInvasion.ContextStart,
				EndS:           r.ForwardInvasion.CutEnd - r.ForwardInvasion.ContextStart,
				InvasionFactor: round4(r.ForwardInvasion.InvasionForward),
			},
		},
	}
}

// markedUpText renders the context words with the cut run wrapped in
// <cut>...</cut> tags. When a run endpoint is missing from words, the tags
// are omitted and the plain text returned.
func markedUpText(words []timeline.AlignedWord, run timeline.CutRun) string {
	if len(words) == 0 || len(run) == 0 {
		return joinWords(words)
	}

	startIdx, endIdx := -1, -1
	for i, w := range words {
		if w.ID == run.First() {
			startIdx = i
		}
		if w.ID == run.Last() {
			endIdx = i
		}
	}
	if startIdx < 0 || endIdx < 0 {
		return joinWords(words)
	}

	var parts []string
	for i, w := range words {
		if i == startIdx {
			parts = append(parts, "<cut>")
		}
		parts = append(parts, w.Word)
		if i == endIdx {
			parts = append(parts, "</cut>")
		}
	}
	s := strings.Join(parts, " ")
	s = strings.ReplaceAll(s, "<cut> ", "<cut>")
	s = strings.ReplaceAll(s, " </cut>", "</cut>")
	return s
}

func joinWords(words []timeline.AlignedWord) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Word
	}
	return strings.Join(parts, " ")
}

func round4(f float64) float64 {
	return math.Round(f*1e4) / 1e4
}
