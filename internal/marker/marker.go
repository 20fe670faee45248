// Package marker implements the language-model stage that annotates a
// transcript with <cut>...</cut> tags around disfluencies: filler words,
// stutters, repeated words, and abandoned self-corrections.
//
// The [Marker] sends the raw transcript text to an [llm.Provider] with a
// conservative system prompt instructing the model to insert tags and change
// nothing else. Because models routinely violate that instruction, every
// reply is verified token by token before it is accepted: stripping the tags
// from the reply must yield exactly the original token sequence. Replies
// that reword, drop, or invent text are rejected with [ErrAlteredText] so
// the pipeline can skip the recording instead of emitting garbage cuts.
package marker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	llm "github.com/cutforge/cutforge/pkg/provider/llm"
)

const (
	openTag  = "<cut>"
	closeTag = "</cut>"

	defaultTemperature = 0.0
)

// systemPrompt instructs the model to tag removable segments without
// touching the surrounding text. The examples cover the four disfluency
// classes the downstream resolver knows how to handle.
const systemPrompt = `You are an expert audio editor functioning as a precise API. Your task is to analyze the following transcript and identify segments that should be removed to improve clarity and flow. These segments include filler words (um, uh, like, you know), repeated words, and verbal tics or self-corrections.

RULES:
1. You MUST enclose the text to be removed in <cut> and </cut> tags.
2. You MUST NOT alter, add, or remove any other text from the transcript. The output must be identical to the input except for the added tags.
3. You MUST mark at least one segment for removal.
4. Your response MUST contain ONLY the modified transcript text and nothing else. Do not add explanations or introductions.

EXAMPLES:
- Input: "So, um, I was thinking we could go."
  Output: "So, <cut>um</cut>, I was thinking we could go."
- Input: "And it was, you know, a very big deal."
  Output: "And it was, <cut>you know</cut>, a very big deal."
- Input: "I I think we should start."
  Output: "<cut>I</cut> I think we should start."
- Input: "We need to go to the... to the store."
  Output: "We need to go <cut>to the...</cut> to the store."`

// Verification failures. Callers match with [errors.Is] and typically skip
// the recording rather than aborting the batch.
var (
	// ErrAlteredText reports that the model changed the transcript text
	// beyond inserting tags.
	ErrAlteredText = errors.New("marker: model altered transcript text")

	// ErrUnbalancedTags reports malformed tag structure: a close without an
	// open, a nested open, or an open left dangling at end of text.
	ErrUnbalancedTags = errors.New("marker: unbalanced cut tags")
)

// Option is a functional option for configuring a [Marker].
type Option func(*Marker)

// WithTemperature sets the LLM sampling temperature. Default: 0.0, since
// the task is mechanical annotation rather than generation.
func WithTemperature(temp float64) Option {
	return func(m *Marker) {
		m.temperature = temp
	}
}

// Marker asks an [llm.Provider] to wrap removable transcript segments in
// <cut> tags. It is safe for concurrent use.
type Marker struct {
	llm         llm.Provider
	temperature float64
}

// New returns a new [Marker] backed by the given [llm.Provider].
func New(provider llm.Provider, opts ...Option) *Marker {
	m := &Marker{
		llm:         provider,
		temperature: defaultTemperature,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Mark sends transcript to the LLM and returns the tagged text. The reply
// is cleaned of markdown fences and wrapping backticks, then verified:
// stripping the tags must reproduce the original token sequence exactly.
//
// A reply with zero tags passes verification. The prompt demands at least
// one cut, but a genuinely clean transcript is better left unmarked than
// force-marked, and the resolver handles a tag-free transcript fine.
func (m *Marker) Mark(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("marker: empty transcript")
	}

	req := llm.Request{
		SystemPrompt: systemPrompt,
		Prompt:       fmt.Sprintf("Here is the transcript:\n\n`%s`", transcript),
		Temperature:  m.temperature,
	}

	resp, err := m.llm.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("marker: complete: %w", err)
	}

	marked := cleanReply(resp.Content)
	if err := Verify(transcript, marked); err != nil {
		return "", err
	}
	return marked, nil
}

// Verify checks that marked differs from original only by well-formed
// <cut>/</cut> tag insertions. It returns [ErrUnbalancedTags] for malformed
// tag structure and [ErrAlteredText] when the de-tagged token sequence does
// not match the original.
//
// Tags are removed as substrings, not as tokens: models place tags flush
// against punctuation ("<cut>um</cut>,") and that must still round-trip to
// the original "um," token.
func Verify(original, marked string) error {
	if err := checkTagBalance(marked); err != nil {
		return err
	}

	stripped := strings.NewReplacer(openTag, "", closeTag, "").Replace(marked)

	origTokens := strings.Fields(original)
	gotTokens := strings.Fields(stripped)
	if len(gotTokens) != len(origTokens) {
		return fmt.Errorf("%w: %d tokens in, %d tokens out", ErrAlteredText, len(origTokens), len(gotTokens))
	}
	for i, tok := range origTokens {
		if gotTokens[i] != tok {
			return fmt.Errorf("%w: %q became %q", ErrAlteredText, tok, gotTokens[i])
		}
	}
	return nil
}

// checkTagBalance walks the tag occurrences in order and rejects nesting,
// a close without an open, and an open left dangling at end of text.
func checkTagBalance(marked string) error {
	inside := false
	for rest := marked; ; {
		oi := strings.Index(rest, openTag)
		ci := strings.Index(rest, closeTag)
		switch {
		case oi < 0 && ci < 0:
			if inside {
				return fmt.Errorf("%w: %s left open", ErrUnbalancedTags, openTag)
			}
			return nil
		case ci < 0 || (oi >= 0 && oi < ci):
			if inside {
				return fmt.Errorf("%w: nested %s", ErrUnbalancedTags, openTag)
			}
			inside = true
			rest = rest[oi+len(openTag):]
		default:
			if !inside {
				return fmt.Errorf("%w: %s without matching %s", ErrUnbalancedTags, closeTag, openTag)
			}
			inside = false
			rest = rest[ci+len(closeTag):]
		}
	}
}

// cleanReply strips markdown code fences and wrapping backticks that models
// tend to add around the transcript, mirroring how it was quoted in the
// request.
func cleanReply(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
