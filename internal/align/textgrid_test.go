package align_test

import (
	"strings"
	"testing"

	"github.com/cutforge/cutforge/internal/align"
	"github.com/cutforge/cutforge/pkg/timeline"
)

const sampleTextGrid = `File type = "ooTextFile"
Object class = "TextGrid"

xmin = 0
xmax = 1.2
tiers? <exists>
size = 2
item []:
	item [1]:
		class = "IntervalTier"
		name = "words"
		xmin = 0
		xmax = 1.2
		intervals: size = 4
		intervals [1]:
			xmin = 0
			xmax = 0.1
			text = ""
		intervals [2]:
			xmin = 0.1
			xmax = 0.5
			text = "the"
		intervals [3]:
			xmin = 0.5
			xmax = 0.9
			text = "cat"
		intervals [4]:
			xmin = 0.9
			xmax = 1.2
			text = "sp"
	item [2]:
		class = "IntervalTier"
		name = "phones"
		xmin = 0
		xmax = 1.2
		intervals: size = 5
		intervals [1]:
			xmin = 0.1
			xmax = 0.3
			text = "DH"
		intervals [2]:
			xmin = 0.3
			xmax = 0.5
			text = "AH0"
		intervals [3]:
			xmin = 0.5
			xmax = 0.65
			text = "K"
		intervals [4]:
			xmin = 0.65
			xmax = 0.8
			text = "AE1"
		intervals [5]:
			xmin = 0.8
			xmax = 0.9
			text = "T"
`

func TestParseTextGrid(t *testing.T) {
	t.Parallel()

	tg, err := align.ParseTextGrid(strings.NewReader(sampleTextGrid))
	if err != nil {
		t.Fatalf("ParseTextGrid: %v", err)
	}
	if len(tg.Tiers) != 2 {
		t.Fatalf("got %d tiers, want 2", len(tg.Tiers))
	}

	words, ok := tg.Tier("words")
	if !ok {
		t.Fatal("words tier not found")
	}
	if len(words.Intervals) != 4 {
		t.Fatalf("words tier has %d intervals, want 4", len(words.Intervals))
	}
	if iv := words.Intervals[1]; iv.Min != 0.1 || iv.Max != 0.5 || iv.Mark != "the" {
		t.Errorf("interval = %+v", iv)
	}

	phones, ok := tg.Tier("phones")
	if !ok {
		t.Fatal("phones tier not found")
	}
	if len(phones.Intervals) != 5 {
		t.Errorf("phones tier has %d intervals, want 5", len(phones.Intervals))
	}
}

func TestParseTextGrid_QuotedQuotes(t *testing.T) {
	t.Parallel()

	src := `item [1]:
	name = "words"
	intervals [1]:
		xmin = 0
		xmax = 1
		text = "say ""hi"""
`
	tg, err := align.ParseTextGrid(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseTextGrid: %v", err)
	}
	words, ok := tg.Tier("words")
	if !ok || len(words.Intervals) != 1 {
		t.Fatalf("unexpected parse result: %+v", tg)
	}
	if got := words.Intervals[0].Mark; got != `say "hi"` {
		t.Errorf("Mark = %q", got)
	}
}

func TestNormalizeChunk(t *testing.T) {
	t.Parallel()

	tg, err := align.ParseTextGrid(strings.NewReader(sampleTextGrid))
	if err != nil {
		t.Fatalf("ParseTextGrid: %v", err)
	}
	expected := []timeline.CanonicalWord{
		{ID: 3, Text: "The", Type: timeline.TypeWord},
		{ID: 5, Text: "cat,", Type: timeline.TypeWord},
	}

	words := align.NormalizeChunk(tg, 10.0, expected)
	if len(words) != 2 {
		t.Fatalf("got %d aligned words, want 2: %+v", len(words), words)
	}

	w := words[0]
	if w.ID != 3 || w.Word != "The" {
		t.Errorf("word 0 identity = {%d %q}", w.ID, w.Word)
	}
	if w.Start != 10.1 || w.End != 10.5 {
		t.Errorf("word 0 timing = [%v, %v], want offset applied", w.Start, w.End)
	}
	if !w.ReliableTimestamps {
		t.Error("word 0 should be reliable (case-folded match)")
	}
	if len(w.Phonemes) != 2 || w.Phonemes[0].Text != "DH" || w.Phonemes[1].Text != "AH0" {
		t.Errorf("word 0 phonemes = %+v", w.Phonemes)
	}
	if w.Phonemes[0].Start != 10.1 {
		t.Errorf("phoneme offset not applied: %v", w.Phonemes[0].Start)
	}

	w = words[1]
	if w.ID != 5 || !w.ReliableTimestamps {
		t.Errorf("word 1 = %+v, want reliable match despite punctuation", w)
	}
	if len(w.Phonemes) != 3 {
		t.Errorf("word 1 phonemes = %+v", w.Phonemes)
	}
}

func TestNormalizeChunk_LabelMismatchUnreliable(t *testing.T) {
	t.Parallel()

	tg, err := align.ParseTextGrid(strings.NewReader(sampleTextGrid))
	if err != nil {
		t.Fatalf("ParseTextGrid: %v", err)
	}
	expected := []timeline.CanonicalWord{
		{ID: 3, Text: "the", Type: timeline.TypeWord},
		{ID: 5, Text: "dog", Type: timeline.TypeWord},
	}

	words := align.NormalizeChunk(tg, 0, expected)
	if len(words) != 2 {
		t.Fatalf("got %d aligned words, want 2", len(words))
	}
	if !words[0].ReliableTimestamps {
		t.Error("word 0 should be reliable")
	}
	if words[1].ReliableTimestamps {
		t.Error("word 1 label mismatch must be flagged unreliable")
	}
}

func TestNormalizeChunk_ExtraIntervalsDropped(t *testing.T) {
	t.Parallel()

	tg, err := align.ParseTextGrid(strings.NewReader(sampleTextGrid))
	if err != nil {
		t.Fatalf("ParseTextGrid: %v", err)
	}
	expected := []timeline.CanonicalWord{
		{ID: 3, Text: "the", Type: timeline.TypeWord},
	}

	words := align.NormalizeChunk(tg, 0, expected)
	if len(words) != 1 {
		t.Fatalf("got %d aligned words, want 1", len(words))
	}
}
