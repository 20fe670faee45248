package splice

import (
	"errors"
	"fmt"

	"github.com/cutforge/cutforge/pkg/timeline"
)

// ErrMissingWord is returned when a cut run references a word ID that the
// aligner never produced. The cut is unusable but the recording is not:
// callers skip the cut and continue.
var ErrMissingWord = errors.New("splice: cut references word absent from alignment")

// Invasion holds the per-side invasion factors for one boundary
// computation. A factor of 0 means no intrusion into the neighboring word
// (the boundary degenerates to the midpoint between run and neighbor);
// a factor close to 1 cuts almost all the way through the neighboring
// phoneme, simulating an unnaturally aggressive edit.
type Invasion struct {
	// Backward is the fraction of the previous word's last phoneme to
	// consume. Must lie in [0, 1].
	Backward float64

	// Forward is the fraction of the next word's first phoneme to consume.
	// Must lie in [0, 1].
	Forward float64
}

// Boundary computes the absolute start and end time, in seconds, of the cut
// removing run under the given invasion policy.
//
// Start time: when Backward > 0 and the word positionally preceding the run
// carries phoneme data, the cut starts inside that word's last phoneme, at
// (phoneme end − phoneme duration × Backward). Otherwise, when a previous
// word exists, the cut starts at the midpoint between that word's end and
// the run's first word's start. With no previous word the cut starts at 0.
// The end time is symmetric, using the following word's first phoneme and
// the Forward factor, falling back to the run's last word's end at the
// recording edge.
func Boundary(run timeline.CutRun, ix *timeline.AlignedIndex, inv Invasion) (start, end float64, err error) {
	if len(run) == 0 {
		return 0, 0, errors.New("splice: empty cut run")
	}

	first, ok := ix.ByID(run.First())
	if !ok {
		return 0, 0, fmt.Errorf("%w: id %d", ErrMissingWord, run.First())
	}
	last, ok := ix.ByID(run.Last())
	if !ok {
		return 0, 0, fmt.Errorf("%w: id %d", ErrMissingWord, run.Last())
	}

	prev, hasPrev := ix.Prev(run.First())
	next, hasNext := ix.Next(run.Last())

	switch {
	case inv.Backward > 0 && hasPrev && len(prev.Phonemes) > 0:
		ph := prev.Phonemes[len(prev.Phonemes)-1]
		start = ph.End - ph.Duration()*inv.Backward
	case hasPrev:
		start = (prev.End + first.Start) / 2
	default:
		start = 0
	}

	switch {
	case inv.Forward > 0 && hasNext && len(next.Phonemes) > 0:
		ph := next.Phonemes[0]
		end = ph.Start + ph.Duration()*inv.Forward
	case hasNext:
		end = (last.End + next.Start) / 2
	default:
		end = last.End
	}

	return start, end, nil
}
