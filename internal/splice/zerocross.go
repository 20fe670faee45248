// Package splice converts abstract "cut these word IDs" instructions into
// sample-accurate audio edits. It combines phoneme-level boundary
// calculation, zero-crossing snapping, and context-window concatenation to
// produce the three splice variants (natural, backward-invasion,
// forward-invasion) that make up one dataset example.
package splice

// Direction selects which way a zero-crossing scan walks from its start
// index.
type Direction int

const (
	// Backward scans toward sample 0.
	Backward Direction = iota

	// Forward scans toward the end of the signal.
	Forward
)

// SnapToZeroCrossing returns the sample index nearest to index, in the given
// direction, at which the waveform is about to change sign: the last sample
// carrying the starting sample's sign before the first sign change. Every
// splice endpoint is snapped this way so cuts land at (near-)zero amplitude
// and do not click.
//
// Out-of-range indices are clamped. A sample that is exactly zero is already
// a crossing and is returned unchanged. When no crossing exists before the
// signal boundary, the boundary index is returned.
func SnapToZeroCrossing(signal []float64, index int, dir Direction) int {
	if len(signal) == 0 {
		return 0
	}
	if index < 0 {
		index = 0
	}
	if index >= len(signal) {
		index = len(signal) - 1
	}

	start := sign(signal[index])
	if start == 0 {
		return index
	}

	if dir == Forward {
		for i := index + 1; i < len(signal); i++ {
			if sign(signal[i]) != start {
				return i - 1
			}
		}
		return len(signal) - 1
	}

	for i := index - 1; i >= 0; i-- {
		if sign(signal[i]) != start {
			return i + 1
		}
	}
	return 0
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
