package splice

import "testing"

func TestSnapToZeroCrossing_Forward(t *testing.T) {
	t.Parallel()

	//           0    1     2     3     4    5
	signal := []float64{0.5, 0.4, 0.1, -0.2, -0.3, 0.6}

	// From index 0 the sign flips at index 3, so the last positive sample
	// is index 2.
	if got := SnapToZeroCrossing(signal, 0, Forward); got != 2 {
		t.Errorf("Forward from 0 = %d, want 2", got)
	}

	// From index 3 (negative) the flip is at index 5 → last negative is 4.
	if got := SnapToZeroCrossing(signal, 3, Forward); got != 4 {
		t.Errorf("Forward from 3 = %d, want 4", got)
	}

	// No crossing before the end: boundary index.
	flat := []float64{0.1, 0.2, 0.3}
	if got := SnapToZeroCrossing(flat, 0, Forward); got != 2 {
		t.Errorf("Forward with no crossing = %d, want 2", got)
	}
}

func TestSnapToZeroCrossing_Backward(t *testing.T) {
	t.Parallel()

	signal := []float64{0.5, -0.4, -0.1, -0.2, 0.3}

	// From index 3 (negative), scanning backward the sign flips at index 0,
	// so the last negative sample is index 1.
	if got := SnapToZeroCrossing(signal, 3, Backward); got != 1 {
		t.Errorf("Backward from 3 = %d, want 1", got)
	}

	// No crossing before the start: index 0.
	flat := []float64{-0.1, -0.2, -0.3}
	if got := SnapToZeroCrossing(flat, 2, Backward); got != 0 {
		t.Errorf("Backward with no crossing = %d, want 0", got)
	}
}

func TestSnapToZeroCrossing_Idempotent(t *testing.T) {
	t.Parallel()

	// A sample that is exactly zero is already a crossing: the index must
	// come back unchanged regardless of direction.
	signal := []float64{0.5, 0.0, -0.5}
	for _, dir := range []Direction{Forward, Backward} {
		if got := SnapToZeroCrossing(signal, 1, dir); got != 1 {
			t.Errorf("dir %v on zero sample = %d, want 1", dir, got)
		}
	}

	// Snapping a snapped index again must be a fixed point.
	signal = []float64{0.5, 0.4, -0.2, -0.3}
	first := SnapToZeroCrossing(signal, 0, Forward)
	if again := SnapToZeroCrossing(signal, first, Forward); again != first {
		t.Errorf("second snap moved index %d to %d", first, again)
	}
}

func TestSnapToZeroCrossing_Clamping(t *testing.T) {
	t.Parallel()

	signal := []float64{0.5, -0.5}

	if got := SnapToZeroCrossing(signal, -3, Forward); got != 0 {
		t.Errorf("negative index = %d, want 0", got)
	}
	if got := SnapToZeroCrossing(signal, 10, Backward); got != 1 {
		t.Errorf("overshooting index = %d, want 1", got)
	}
	if got := SnapToZeroCrossing(nil, 5, Forward); got != 0 {
		t.Errorf("empty signal = %d, want 0", got)
	}
}
