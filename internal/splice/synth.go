package splice

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/cutforge/cutforge/pkg/audio"
	"github.com/cutforge/cutforge/pkg/timeline"
)

// defaultContextWindowS is the audio context kept on each side of a cut,
// in seconds.
const defaultContextWindowS = 3.0

var (
	// ErrBoundaryCut is returned for runs touching the first or last
	// aligned word of the recording. Such cuts have no neighbor on one
	// side and are never synthesized.
	ErrBoundaryCut = errors.New("splice: cut touches recording boundary")

	// ErrInvalidRange is returned when the computed splice range collapses
	// (start ≥ end) or falls outside the audio buffer. The cut is rejected
	// rather than producing corrupt audio.
	ErrInvalidRange = errors.New("splice: invalid splice range")
)

// Interval is a closed range of invasion factors. A fresh factor is drawn
// uniformly from the interval per cut and per variant so the dataset carries
// varied edit aggressiveness instead of one fixed value.
type Interval struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (iv Interval) draw(rng *rand.Rand) float64 {
	return iv.Min + rng.Float64()*(iv.Max-iv.Min)
}

// Validate checks that iv is a well-formed sub-range of [0, 1].
func (iv Interval) Validate() error {
	if iv.Min < 0 || iv.Max > 1 {
		return fmt.Errorf("interval [%v, %v] exceeds [0, 1]", iv.Min, iv.Max)
	}
	if iv.Min > iv.Max {
		return fmt.Errorf("interval min %v greater than max %v", iv.Min, iv.Max)
	}
	return nil
}

// Config holds the splice synthesis parameters. Construct once, validate,
// and pass by reference into the Synthesizer.
type Config struct {
	// BackwardInvasion is the factor range for the backward-invasion
	// variant.
	BackwardInvasion Interval `yaml:"backward_invasion"`

	// ForwardInvasion is the factor range for the forward-invasion variant.
	ForwardInvasion Interval `yaml:"forward_invasion"`

	// ContextWindowS is the seconds of audio preserved on each side of the
	// cut. Zero selects the 3 s default.
	ContextWindowS float64 `yaml:"context_window_s"`
}

// Validate checks all parameter ranges.
func (c *Config) Validate() error {
	var errs []error
	if err := c.BackwardInvasion.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("backward_invasion: %w", err))
	}
	if err := c.ForwardInvasion.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("forward_invasion: %w", err))
	}
	if c.ContextWindowS < 0 {
		errs = append(errs, fmt.Errorf("context_window_s %v is negative", c.ContextWindowS))
	}
	return errors.Join(errs...)
}

func (c *Config) contextWindowS() float64 {
	if c.ContextWindowS == 0 {
		return defaultContextWindowS
	}
	return c.ContextWindowS
}

// Variant is one synthesized splice: a context window of audio before the
// snapped cut start concatenated with a context window after the snapped
// cut end.
type Variant struct {
	// Audio is the spliced waveform.
	Audio *audio.Buffer

	// ContextStart and ContextEnd are the absolute bounds, in seconds, of
	// the audio the variant was built from (window clamp included).
	ContextStart float64
	ContextEnd   float64

	// CutStart and CutEnd are the absolute, zero-crossing-snapped bounds
	// of the removed span in seconds.
	CutStart float64
	CutEnd   float64

	// InvasionBackward and InvasionForward record the factors actually
	// drawn for this variant.
	InvasionBackward float64
	InvasionForward  float64
}

// Result is the full synthesis output for one cut run. The caller owns it;
// nothing in this package retains a reference after return.
type Result struct {
	// Natural is the clean cut at word midpoints.
	Natural Variant

	// BackwardInvasion eats into the preceding word's final phoneme.
	BackwardInvasion Variant

	// ForwardInvasion eats into the following word's first phoneme.
	ForwardInvasion Variant

	// Usable is false when any gate word carries unreliable timestamps.
	// The result is still complete; consumers filter on this flag.
	Usable bool

	// CutText is the space-joined literal text of the removed words.
	CutText string
}

// Synthesizer builds splice variants for cut runs. It is not safe for
// concurrent use: the random source is stateful. One recording is processed
// sequentially, so a single Synthesizer per pipeline suffices.
type Synthesizer struct {
	cfg *Config
	rng *rand.Rand
}

// NewSynthesizer returns a Synthesizer drawing invasion factors from rng.
// The caller seeds rng; tests pass a fixed seed for reproducible variants.
func NewSynthesizer(cfg *Config, rng *rand.Rand) *Synthesizer {
	return &Synthesizer{cfg: cfg, rng: rng}
}

// Synthesize produces the three splice variants for run against the full
// recording buffer.
//
// Error taxonomy, all fatal for this cut only:
//   - ErrMissingWord: a run endpoint is absent from the alignment.
//   - ErrBoundaryCut: the run touches the recording's first or last word.
//   - ErrInvalidRange: a snapped range collapsed or left the buffer.
func (s *Synthesizer) Synthesize(run timeline.CutRun, buf *audio.Buffer, ix *timeline.AlignedIndex) (*Result, error) {
	if _, ok := ix.ByID(run.First()); !ok {
		return nil, fmt.Errorf("%w: id %d", ErrMissingWord, run.First())
	}
	if _, ok := ix.ByID(run.Last()); !ok {
		return nil, fmt.Errorf("%w: id %d", ErrMissingWord, run.Last())
	}
	if ix.IsFirst(run.First()) || ix.IsLast(run.Last()) {
		return nil, fmt.Errorf("%w: run [%d, %d]", ErrBoundaryCut, run.First(), run.Last())
	}

	res := &Result{
		Usable:  Usable(run, ix),
		CutText: cutText(run, ix),
	}

	policies := []struct {
		out *Variant
		inv Invasion
	}{
		{&res.Natural, Invasion{}},
		{&res.BackwardInvasion, Invasion{Backward: s.cfg.BackwardInvasion.draw(s.rng)}},
		{&res.ForwardInvasion, Invasion{Forward: s.cfg.ForwardInvasion.draw(s.rng)}},
	}

	for _, p := range policies {
		v, err := s.synthesizeVariant(run, buf, ix, p.inv)
		if err != nil {
			return nil, err
		}
		*p.out = v
	}

	return res, nil
}

// synthesizeVariant computes one boundary, snaps both endpoints to zero
// crossings, and assembles the context-window concatenation.
func (s *Synthesizer) synthesizeVariant(run timeline.CutRun, buf *audio.Buffer, ix *timeline.AlignedIndex, inv Invasion) (Variant, error) {
	startS, endS, err := Boundary(run, ix, inv)
	if err != nil {
		return Variant{}, err
	}

	startIdx := SnapToZeroCrossing(buf.Samples, buf.SampleAt(startS), Backward)
	endIdx := SnapToZeroCrossing(buf.Samples, buf.SampleAt(endS), Forward)
	if startIdx >= endIdx {
		return Variant{}, fmt.Errorf("%w: snapped [%d, %d] for cut [%v s, %v s]", ErrInvalidRange, startIdx, endIdx, startS, endS)
	}

	window := int(s.cfg.contextWindowS() * float64(buf.SampleRate))
	ctxStart := startIdx - window
	if ctxStart < 0 {
		ctxStart = 0
	}
	ctxEnd := endIdx + window
	if ctxEnd > buf.Len() {
		ctxEnd = buf.Len()
	}

	return Variant{
		Audio:            audio.Concat(buf.Clip(ctxStart, startIdx), buf.Clip(endIdx, ctxEnd)),
		ContextStart:     buf.SecondsAt(ctxStart),
		ContextEnd:       buf.SecondsAt(ctxEnd),
		CutStart:         buf.SecondsAt(startIdx),
		CutEnd:           buf.SecondsAt(endIdx),
		InvasionBackward: inv.Backward,
		InvasionForward:  inv.Forward,
	}, nil
}

// cutText joins the literal text of the run's words for human-readable
// labeling. Words the aligner dropped are omitted.
func cutText(run timeline.CutRun, ix *timeline.AlignedIndex) string {
	parts := make([]string, 0, len(run))
	for _, id := range run {
		if w, ok := ix.ByID(id); ok {
			parts = append(parts, w.Word)
		}
	}
	return strings.Join(parts, " ")
}
