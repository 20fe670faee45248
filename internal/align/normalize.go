package align

import (
	"log/slog"
	"strings"

	"github.com/cutforge/cutforge/pkg/timeline"
)

// Aligner tier names and the interval marks MFA uses for non-speech.
const (
	wordTierName  = "words"
	phoneTierName = "phones"
)

// silenceMarks are word-tier labels that carry no lexical content.
var silenceMarks = map[string]struct{}{
	"sp":  {},
	"spn": {},
	"sil": {},
}

// NormalizeChunk maps one chunk's TextGrid onto aligned words.
//
// Word intervals are matched positionally against the chunk's expected
// canonical words; each aligned word keeps the canonical ID and original
// text (with punctuation) while taking its timing from the aligner, shifted
// by the chunk's offset into the recording. Phone intervals nested inside a
// word interval become its phoneme list.
//
// A word interval whose label does not match the expected canonical word
// suggests the aligner drifted; the word is kept but flagged with
// ReliableTimestamps=false so the usability gate can catch it downstream.
// Intervals beyond the expected word count are dropped with a warning.
func NormalizeChunk(tg *TextGrid, offset float64, expected []timeline.CanonicalWord) []timeline.AlignedWord {
	wordTier, ok := tg.Tier(wordTierName)
	if !ok {
		slog.Error("align: words tier missing from textgrid")
		return nil
	}
	phoneTier, havePhones := tg.Tier(phoneTierName)
	if !havePhones {
		slog.Warn("align: phones tier missing, phonemes will be empty")
	}

	var aligned []timeline.AlignedWord
	idx := 0
	for _, iv := range wordTier.Intervals {
		mark := strings.TrimSpace(iv.Mark)
		if mark == "" {
			continue
		}
		if _, silent := silenceMarks[strings.ToLower(mark)]; silent {
			continue
		}

		if idx >= len(expected) {
			slog.Warn("align: aligner produced more words than expected, dropping extras",
				"extra", mark)
			break
		}
		want := expected[idx]
		idx++

		word := timeline.AlignedWord{
			ID:                 want.ID,
			Word:               want.Text,
			Start:              iv.Min + offset,
			End:                iv.Max + offset,
			ReliableTimestamps: marksMatch(mark, want.Text),
		}
		if !word.ReliableTimestamps {
			slog.Warn("align: aligned label diverges from canonical word",
				"aligned", mark, "canonical", want.Text, "word_id", want.ID)
		}

		if havePhones {
			for _, ph := range phoneTier.Intervals {
				if ph.Min >= iv.Min && ph.Max <= iv.Max && strings.TrimSpace(ph.Mark) != "" {
					word.Phonemes = append(word.Phonemes, timeline.Phoneme{
						Text:  ph.Mark,
						Start: ph.Min + offset,
						End:   ph.Max + offset,
					})
				}
			}
		}

		aligned = append(aligned, word)
	}

	return aligned
}

// marksMatch compares an aligner word label against the canonical text,
// ignoring case and surrounding punctuation. Forced aligners work on
// normalized transcripts, so "Yes!" aligns as "yes".
func marksMatch(mark, canonical string) bool {
	return foldWord(mark) == foldWord(canonical)
}

func foldWord(s string) string {
	return strings.Trim(strings.ToLower(s), ".,;:?!'\" ")
}
