package segment

import (
	"strings"

	"github.com/cutforge/cutforge/pkg/timeline"
)

// Chunk is a contiguous span of the recording, in seconds.
type Chunk struct {
	Start float64
	End   float64
}

// Duration returns the chunk length in seconds.
func (c Chunk) Duration() float64 {
	return c.End - c.Start
}

// ChunkByDuration greedily merges adjacent split points into chunks that are
// as long as possible without exceeding maxDuration. A single inter-point
// gap longer than maxDuration still becomes its own chunk; splitting inside
// speech is never an option.
func ChunkByDuration(points []SplitPoint, maxDuration float64) []Chunk {
	if len(points) < 2 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for start < len(points)-1 {
		end := start
		for i := start + 1; i < len(points); i++ {
			if points[i].At-points[start].At <= maxDuration {
				end = i
			} else {
				break
			}
		}
		if end == start {
			end++
		}
		chunks = append(chunks, Chunk{Start: points[start].At, End: points[end].At})
		start = end
	}
	return chunks
}

// AlignChunk is a chunk prepared for forced alignment: its time span, the
// canonical words falling inside it, and their space-joined transcript.
// Word entries keep their canonical IDs so aligner output can be mapped
// back onto the recording-wide sequence.
type AlignChunk struct {
	ID         int
	Start      float64
	End        float64
	Transcript string
	Words      []timeline.CanonicalWord
}

// AlignmentChunks carves the recording into spans suitable for a forced
// aligner. A split point qualifies as a chunk end when the chunk would be at
// least minDuration long and the canonical sequence places spacing (not a
// word) at that moment; the recording end always qualifies. Chunks that
// contain no lexical words are dropped.
func AlignmentChunks(points []SplitPoint, words []timeline.CanonicalWord, minDuration, totalDuration float64) []AlignChunk {
	if len(points) == 0 || totalDuration <= 0 {
		return nil
	}

	positions := make([]float64, 0, len(points)+1)
	for _, p := range points {
		positions = append(positions, p.At)
	}
	if positions[len(positions)-1] < totalDuration {
		positions = append(positions, totalDuration)
	}

	var chunks []AlignChunk
	start := 0.0
	for start < totalDuration {
		advanced := false
		for _, at := range positions {
			if at <= start {
				continue
			}
			last := at >= totalDuration
			if at-start < minDuration && !last {
				continue
			}
			if !last && !spacingAt(words, at) {
				continue
			}

			if chunk, ok := buildAlignChunk(len(chunks), start, at, words); ok {
				chunks = append(chunks, chunk)
			}
			start = at
			advanced = true
			break
		}
		if !advanced {
			break
		}
	}
	return chunks
}

// spacingAt reports whether the canonical entry covering the given moment
// is spacing. Cutting there cannot bisect a word.
func spacingAt(words []timeline.CanonicalWord, at float64) bool {
	for _, w := range words {
		if w.Start <= at && at <= w.End {
			return w.Type == timeline.TypeSpacing
		}
	}
	return false
}

// buildAlignChunk collects the lexical words overlapping [start, end).
func buildAlignChunk(id int, start, end float64, words []timeline.CanonicalWord) (AlignChunk, bool) {
	var (
		inChunk []timeline.CanonicalWord
		texts   []string
	)
	for _, w := range words {
		if w.Start < end && w.End > start && w.Type == timeline.TypeWord {
			inChunk = append(inChunk, w)
			texts = append(texts, w.Text)
		}
	}
	if len(inChunk) == 0 {
		return AlignChunk{}, false
	}
	return AlignChunk{
		ID:         id,
		Start:      start,
		End:        end,
		Transcript: strings.Join(texts, " "),
		Words:      inChunk,
	}, true
}
