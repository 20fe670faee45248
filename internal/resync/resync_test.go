package resync_test

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/cutforge/cutforge/internal/resync"
	"github.com/cutforge/cutforge/pkg/timeline"
)

// canonical builds a word sequence from space-separated text, assigning
// sequential IDs and uniform timings. Tokens wrapped in parentheses become
// event entries, a lone underscore becomes spacing.
func canonical(text string) []timeline.CanonicalWord {
	var words []timeline.CanonicalWord
	for i, tok := range strings.Fields(text) {
		w := timeline.CanonicalWord{
			ID:    int64(i),
			Text:  tok,
			Start: float64(i) * 0.3,
			End:   float64(i)*0.3 + 0.3,
			Type:  timeline.TypeWord,
		}
		switch {
		case tok == "_":
			w.Text = " "
			w.Type = timeline.TypeSpacing
		case strings.HasPrefix(tok, "("):
			w.Type = timeline.TypeEvent
		}
		words = append(words, w)
	}
	return words
}

func runsEqual(got, want []timeline.CutRun) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if !slices.Equal(got[i], want[i]) {
			return false
		}
	}
	return true
}

func TestResync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		words    string
		marked   string
		want     []timeline.CutRun
		warnings int
	}{
		{
			name:   "single filler cut",
			words:  "the um cat",
			marked: "the <cut>um</cut> cat",
			want:   []timeline.CutRun{{1}},
		},
		{
			name:   "multi word run",
			words:  "so I I think we should go",
			marked: "<cut>so</cut> I <cut>I think</cut> we should go",
			want:   []timeline.CutRun{{0}, {2, 3}},
		},
		{
			name:   "no cuts",
			words:  "hello there world",
			marked: "hello there world",
			want:   nil,
		},
		{
			name:   "empty transcript",
			words:  "hello there",
			marked: "",
			want:   nil,
		},
		{
			name:   "punctuation and casing ignored",
			words:  "well yes indeed",
			marked: "Well, <cut>Yes!</cut> indeed.",
			want:   []timeline.CutRun{{1}},
		},
		{
			name:   "tags without whitespace",
			words:  "the um cat",
			marked: "the<cut>um</cut>cat",
			want:   []timeline.CutRun{{1}},
		},
		{
			name:   "spacing entries skipped",
			words:  "the _ um _ cat",
			marked: "the <cut>um</cut> cat",
			want:   []timeline.CutRun{{2}},
		},
		{
			name:   "event entries skipped",
			words:  "the (laughs) um cat",
			marked: "the <cut>um</cut> cat",
			want:   []timeline.CutRun{{2}},
		},
		{
			name:   "empty cut discarded",
			words:  "the cat sat",
			marked: "the <cut></cut> cat sat",
			want:   nil,
		},
		{
			name:     "labeler insertion dropped",
			words:    "the cat um sat",
			marked:   "the spurious cat <cut>um</cut> sat",
			want:     []timeline.CutRun{{2}},
			warnings: 1,
		},
		{
			name:     "labeler omission skipped",
			words:    "the big cat um sat",
			marked:   "the cat <cut>um</cut> sat",
			want:     []timeline.CutRun{{3}},
			warnings: 1,
		},
		{
			name:   "trailing open run flushed",
			words:  "the cat um uh",
			marked: "the cat <cut>um uh",
			want:   []timeline.CutRun{{2, 3}},
		},
		{
			name:   "fuzzy spelling drift absorbed",
			words:  "because nothing happened",
			marked: "becuase <cut>nothing</cut> happened",
			want:   []timeline.CutRun{{1}},
		},
	}

	r := resync.New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, report := r.Resync(canonical(tc.words), tc.marked)
			if !runsEqual(got, tc.want) {
				t.Errorf("Resync() runs = %v, want %v", got, tc.want)
			}
			if report.Warnings() != tc.warnings {
				t.Errorf("Resync() warnings = %d, want %d", report.Warnings(), tc.warnings)
			}
		})
	}
}

func TestResync_IDsStrictlyIncreasing(t *testing.T) {
	t.Parallel()

	words := canonical("a b c d e f g h")
	marked := "a <cut>b c</cut> d <cut>e f g</cut> h"

	runs, _ := resync.New().Resync(words, marked)
	var prev int64 = -1
	for _, run := range runs {
		for _, id := range run {
			if id <= prev {
				t.Fatalf("IDs not strictly increasing: %v", runs)
			}
			prev = id
		}
	}
}

func TestResync_LookaheadStopsAtTags(t *testing.T) {
	t.Parallel()

	// The insertion sits right before a tag: recovery must not skip past
	// the tag even though "cat" appears within the lookahead window.
	words := canonical("the cat sat")
	marked := "the noise <cut>cat</cut> sat"

	runs, report := resync.New().Resync(words, marked)
	want := []timeline.CutRun{{1}}
	if !runsEqual(runs, want) {
		t.Errorf("Resync() runs = %v, want %v", runs, want)
	}
	if report.WordsSkipped == 0 && report.TokensSkipped == 0 {
		t.Error("expected drift to be reported")
	}
}

func TestResync_ExactMatchesOnly(t *testing.T) {
	t.Parallel()

	words := canonical("because nothing happened")
	marked := "becuase nothing happened"

	r := resync.New(resync.WithFuzzyThreshold(1.1))
	_, report := r.Resync(words, marked)
	if report.WordsSkipped != 1 {
		t.Errorf("WordsSkipped = %d, want 1 with fuzzy matching disabled", report.WordsSkipped)
	}
}

func TestResync_LongInsertionRun(t *testing.T) {
	t.Parallel()

	// More consecutive insertions than the lookahead window: the walk
	// degrades to canonical-side skips but must still terminate.
	words := canonical("alpha beta")
	var ins []string
	for i := range 8 {
		ins = append(ins, fmt.Sprintf("junk%d", i))
	}
	marked := "alpha " + strings.Join(ins, " ") + " beta"

	runs, report := resync.New().Resync(words, marked)
	if len(runs) != 0 {
		t.Errorf("Resync() runs = %v, want none", runs)
	}
	if report.Warnings() == 0 {
		t.Error("expected warnings for unrecoverable drift")
	}
}
