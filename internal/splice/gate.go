package splice

import "github.com/cutforge/cutforge/pkg/timeline"

// Usable reports whether every word whose timing the splice depends on —
// the run's endpoints plus the immediate positional predecessor and
// successor, when they exist — carries reliable alignment timestamps.
//
// Unreliable timing is not an error: the splice is still synthesized and
// the flag lets downstream consumers filter the example out of training
// sets instead of failing the run.
func Usable(run timeline.CutRun, ix *timeline.AlignedIndex) bool {
	if len(run) == 0 {
		return false
	}

	gate := make([]timeline.AlignedWord, 0, 4)
	if w, ok := ix.ByID(run.First()); ok {
		gate = append(gate, w)
	}
	if w, ok := ix.ByID(run.Last()); ok && run.Last() != run.First() {
		gate = append(gate, w)
	}
	if w, ok := ix.Prev(run.First()); ok {
		gate = append(gate, w)
	}
	if w, ok := ix.Next(run.Last()); ok {
		gate = append(gate, w)
	}

	for _, w := range gate {
		if !w.ReliableTimestamps {
			return false
		}
	}
	return true
}
