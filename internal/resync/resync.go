// Package resync aligns a free-text, <cut>-annotated transcript (produced
// by the external labeling stage) against the canonical, ID-bearing word
// sequence, and emits the canonical word-ID runs to cut.
//
// The labeler's output is not guaranteed to tokenize 1:1 with the canonical
// text: casing, punctuation, small insertions, and omissions all occur. The
// resynchronizer walks both streams with independent cursors and recovers
// from drift with bounded lookahead (labeler insertions) and canonical-side
// skipping (labeler omissions). This is a best-effort heuristic, not a
// guaranteed alignment: every recovery is logged as a warning and counted,
// but never fails the recording.
package resync

import (
	"log/slog"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/cutforge/cutforge/pkg/timeline"
)

const (
	openTag  = "<cut>"
	closeTag = "</cut>"

	// punctCutset is the punctuation stripped from both token streams
	// before comparison.
	punctCutset = ".,;:?!'\"` "

	defaultLookahead      = 5
	defaultFuzzyThreshold = 0.93

	// minFuzzyLen guards the Jaro-Winkler acceptance: short tokens score
	// deceptively high against unrelated short tokens.
	minFuzzyLen = 4
)

// Option is a functional option for configuring a [Resynchronizer].
type Option func(*Resynchronizer)

// WithLookahead sets how many labeler tokens may be skipped as insertions
// when re-synchronizing after a mismatch. Default: 5.
func WithLookahead(n int) Option {
	return func(r *Resynchronizer) {
		r.lookahead = n
	}
}

// WithFuzzyThreshold sets the Jaro-Winkler similarity above which two
// normalized tokens of at least four runes are treated as the same word,
// absorbing labeler spelling drift without triggering recovery. Set to a
// value above 1 to require exact matches only. Default: 0.93.
func WithFuzzyThreshold(t float64) Option {
	return func(r *Resynchronizer) {
		r.fuzzyThreshold = t
	}
}

// Report summarizes the drift recoveries performed during one resync pass.
type Report struct {
	// TokensSkipped counts labeler tokens dropped as insertions.
	TokensSkipped int

	// WordsSkipped counts canonical words assumed omitted by the labeler.
	WordsSkipped int
}

// Warnings returns the total number of drift events.
func (r Report) Warnings() int { return r.TokensSkipped + r.WordsSkipped }

// Resynchronizer recovers cut runs from marked transcripts. It is stateless
// across calls and safe for concurrent use.
type Resynchronizer struct {
	lookahead      int
	fuzzyThreshold float64
}

// New returns a Resynchronizer with the supplied options applied.
func New(opts ...Option) *Resynchronizer {
	r := &Resynchronizer{
		lookahead:      defaultLookahead,
		fuzzyThreshold: defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resync parses marked against the canonical word sequence and returns the
// runs of canonical word IDs enclosed in <cut> tags, in transcript order.
//
// The walk is a two-cursor state machine. Tags flip the inside-cut state;
// spacing and event entries are skipped without consuming a labeler token;
// matched word entries advance both cursors and, inside a cut, contribute
// their ID to the open run. On mismatch, bounded lookahead first tries to
// drop labeler insertions, then to skip canonical words the labeler omitted;
// a token matching neither stream is dropped outright.
//
// An empty transcript yields no runs. Runs that close empty (a cut spanning
// only spacing) are discarded. Unmatched trailing tokens are ignored; a run
// still open when either stream ends is flushed.
func (r *Resynchronizer) Resync(words []timeline.CanonicalWord, marked string) ([]timeline.CutRun, Report) {
	tokens := tokenize(marked)

	var (
		runs    []timeline.CutRun
		current timeline.CutRun
		report  Report
		inside  bool
	)

	ti, wi := 0, 0
	for ti < len(tokens) && wi < len(words) {
		token := tokens[ti]

		switch token {
		case openTag:
			inside = true
			current = nil
			ti++
			continue
		case closeTag:
			if inside {
				inside = false
				if len(current) > 0 {
					runs = append(runs, current)
				}
				current = nil
			}
			ti++
			continue
		}

		normToken := normalize(token)
		if normToken == "" {
			ti++
			continue
		}

		word := words[wi]

		// Spacing and event entries carry no lexical token: consume the
		// canonical entry only.
		if word.Type != timeline.TypeWord {
			wi++
			continue
		}

		normWord := normalize(word.Text)

		if r.tokensMatch(normToken, normWord) {
			if inside {
				current = append(current, word.ID)
			}
			ti++
			wi++
			continue
		}

		// Mismatch. First try to re-sync by dropping labeler insertions
		// within the lookahead window; tags act as barriers so a recovery
		// can never swallow a cut boundary.
		if skip, ok := r.findAheadToken(tokens, ti, normWord); ok {
			slog.Warn("resync: dropped labeler tokens to re-sync",
				"skipped", strings.Join(tokens[ti:ti+skip], " "),
				"canonical", word.Text,
				"word_id", word.ID,
			)
			report.TokensSkipped += skip
			ti += skip
			continue
		}

		// Then the symmetric case: the labeler omitted canonical words and
		// the current token matches one further ahead.
		if skip, ok := r.findAheadWord(words, wi, normToken); ok {
			slog.Warn("resync: canonical words not found in transcript, assuming omission",
				"token", token,
				"canonical", word.Text,
				"word_id", word.ID,
			)
			report.WordsSkipped += skip
			wi += skip
			continue
		}

		// Neither stream re-syncs: the token matches nothing nearby, so
		// drop it as an unmatchable insertion.
		slog.Warn("resync: unmatchable transcript token dropped",
			"token", token,
			"canonical", word.Text,
			"word_id", word.ID,
		)
		report.TokensSkipped++
		ti++
	}

	if inside && len(current) > 0 {
		runs = append(runs, current)
	}

	return runs, report
}

// findAheadToken scans up to the lookahead window for a later token matching
// normWord, returning how many tokens to skip. The scan stops at cut tags.
func (r *Resynchronizer) findAheadToken(tokens []string, ti int, normWord string) (skip int, ok bool) {
	for i := 1; i <= r.lookahead && ti+i < len(tokens); i++ {
		ahead := tokens[ti+i]
		if ahead == openTag || ahead == closeTag {
			return 0, false
		}
		if r.tokensMatch(normalize(ahead), normWord) {
			return i, true
		}
	}
	return 0, false
}

// findAheadWord scans up to the lookahead window for a later canonical word
// matching normToken, returning how many canonical entries to skip.
func (r *Resynchronizer) findAheadWord(words []timeline.CanonicalWord, wi int, normToken string) (skip int, ok bool) {
	for i := 1; i <= r.lookahead && wi+i < len(words); i++ {
		ahead := words[wi+i]
		if ahead.Type != timeline.TypeWord {
			continue
		}
		if r.tokensMatch(normalize(ahead.Text), normToken) {
			return i, true
		}
	}
	return 0, false
}

// tokensMatch reports whether two normalized tokens denote the same word:
// exact equality, or near-equality under Jaro-Winkler for tokens long
// enough that the score is meaningful.
func (r *Resynchronizer) tokensMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) < minFuzzyLen || len(b) < minFuzzyLen {
		return false
	}
	return matchr.JaroWinkler(a, b, false) >= r.fuzzyThreshold
}

// tokenize forces whitespace around cut tags and splits on whitespace.
func tokenize(marked string) []string {
	spaced := strings.ReplaceAll(marked, openTag, " "+openTag+" ")
	spaced = strings.ReplaceAll(spaced, closeTag, " "+closeTag+" ")
	return strings.Fields(spaced)
}

// normalize lowercases a token and strips surrounding punctuation.
func normalize(token string) string {
	return strings.Trim(strings.ToLower(token), punctCutset)
}
