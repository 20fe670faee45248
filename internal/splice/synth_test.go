package splice

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/cutforge/cutforge/pkg/audio"
	"github.com/cutforge/cutforge/pkg/timeline"
)

func testConfig() *Config {
	return &Config{
		BackwardInvasion: Interval{Min: 0.7, Max: 0.9},
		ForwardInvasion:  Interval{Min: 0.7, Max: 0.9},
		ContextWindowS:   0.5,
	}
}

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

// sineBuffer returns seconds of a 100 Hz sine at 16 kHz: plenty of zero
// crossings for the snapper to land on.
func sineBuffer(seconds float64) *audio.Buffer {
	const rate = 16000
	n := int(seconds * rate)
	b := &audio.Buffer{SampleRate: rate, Samples: make([]float64, n)}
	for i := range b.Samples {
		b.Samples[i] = 0.8 * math.Sin(2*math.Pi*100*float64(i)/rate)
	}
	return b
}

func TestSynthesize_ThreeVariants(t *testing.T) {
	t.Parallel()

	ix := timeline.NewAlignedIndex(threeWords(true))
	buf := sineBuffer(1.0)
	s := NewSynthesizer(testConfig(), testRNG())

	res, err := s.Synthesize(timeline.CutRun{1}, buf, ix)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if !res.Usable {
		t.Error("Usable = false for fully reliable alignment, want true")
	}
	if res.CutText != "um" {
		t.Errorf("CutText = %q, want %q", res.CutText, "um")
	}

	for name, v := range map[string]Variant{
		"natural":  res.Natural,
		"backward": res.BackwardInvasion,
		"forward":  res.ForwardInvasion,
	} {
		if v.Audio == nil || v.Audio.Len() == 0 {
			t.Fatalf("%s: empty audio", name)
		}
		if v.CutStart >= v.CutEnd {
			t.Errorf("%s: cut bounds (%v, %v) collapsed", name, v.CutStart, v.CutEnd)
		}
		if v.ContextStart > v.CutStart || v.ContextEnd < v.CutEnd {
			t.Errorf("%s: context [%v, %v] does not contain cut [%v, %v]",
				name, v.ContextStart, v.ContextEnd, v.CutStart, v.CutEnd)
		}
		// The variant is exactly the audio kept on both sides of the cut.
		rate := float64(buf.SampleRate)
		wantLen := int(math.Round((v.CutStart-v.ContextStart)*rate)) +
			int(math.Round((v.ContextEnd-v.CutEnd)*rate))
		if v.Audio.Len() != wantLen {
			t.Errorf("%s: audio length %d, want %d", name, v.Audio.Len(), wantLen)
		}
		// Every splice endpoint must sit at a zero crossing.
		for _, idx := range []int{buf.SampleAt(v.CutStart), buf.SampleAt(v.CutEnd)} {
			if snapped := SnapToZeroCrossing(buf.Samples, idx, Forward); snapped != idx {
				if snapped := SnapToZeroCrossing(buf.Samples, idx, Backward); snapped != idx {
					t.Errorf("%s: endpoint %d is not a zero-crossing fixed point", name, idx)
				}
			}
		}
	}

	// The unnatural variants must carry factors from the configured range.
	if b := res.BackwardInvasion.InvasionBackward; b < 0.7 || b > 0.9 {
		t.Errorf("backward factor %v outside [0.7, 0.9]", b)
	}
	if f := res.ForwardInvasion.InvasionForward; f < 0.7 || f > 0.9 {
		t.Errorf("forward factor %v outside [0.7, 0.9]", f)
	}
	if res.Natural.InvasionBackward != 0 || res.Natural.InvasionForward != 0 {
		t.Error("natural variant drew a nonzero invasion factor")
	}
}

func TestSynthesize_FactorsResampledPerCut(t *testing.T) {
	t.Parallel()

	ix := timeline.NewAlignedIndex(threeWords(true))
	buf := sineBuffer(1.0)
	s := NewSynthesizer(testConfig(), testRNG())

	first, err := s.Synthesize(timeline.CutRun{1}, buf, ix)
	if err != nil {
		t.Fatalf("first Synthesize: %v", err)
	}
	second, err := s.Synthesize(timeline.CutRun{1}, buf, ix)
	if err != nil {
		t.Fatalf("second Synthesize: %v", err)
	}

	if first.BackwardInvasion.InvasionBackward == second.BackwardInvasion.InvasionBackward &&
		first.ForwardInvasion.InvasionForward == second.ForwardInvasion.InvasionForward {
		t.Error("invasion factors identical across cuts; expected a fresh draw per cut")
	}
}

func TestSynthesize_RejectsBoundaryRuns(t *testing.T) {
	t.Parallel()

	ix := timeline.NewAlignedIndex(threeWords(true))
	buf := sineBuffer(1.0)
	s := NewSynthesizer(testConfig(), testRNG())

	// First word of the recording: no predecessor to splice against.
	res, err := s.Synthesize(timeline.CutRun{0}, buf, ix)
	if res != nil {
		t.Error("Synthesize emitted a result for a boundary run")
	}
	if !errors.Is(err, ErrBoundaryCut) {
		t.Errorf("err = %v, want ErrBoundaryCut", err)
	}

	// Last word, same policy.
	if _, err := s.Synthesize(timeline.CutRun{2}, buf, ix); !errors.Is(err, ErrBoundaryCut) {
		t.Errorf("err = %v, want ErrBoundaryCut", err)
	}
}

func TestSynthesize_MissingWordIsFatalForCutOnly(t *testing.T) {
	t.Parallel()

	ix := timeline.NewAlignedIndex(threeWords(true))
	s := NewSynthesizer(testConfig(), testRNG())

	_, err := s.Synthesize(timeline.CutRun{42}, sineBuffer(1.0), ix)
	if !errors.Is(err, ErrMissingWord) {
		t.Errorf("err = %v, want ErrMissingWord", err)
	}
}

func TestSynthesize_UnreliableNeighborFlagsUnusable(t *testing.T) {
	t.Parallel()

	words := threeWords(true)
	words[2].ReliableTimestamps = false // successor of the run
	ix := timeline.NewAlignedIndex(words)
	s := NewSynthesizer(testConfig(), testRNG())

	res, err := s.Synthesize(timeline.CutRun{1}, sineBuffer(1.0), ix)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	// A valid result is still produced; only the flag drops.
	if res.Usable {
		t.Error("Usable = true with an unreliable successor, want false")
	}
	if res.Natural.Audio.Len() == 0 {
		t.Error("unusable cut still must carry synthesized audio")
	}
}

func TestUsable_GateMembers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		unreliable int64 // ID to mark unreliable
		want      bool
	}{
		{"run first word", 1, false},
		{"predecessor", 0, false},
		{"successor", 2, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			words := threeWords(false)
			for i := range words {
				if words[i].ID == tc.unreliable {
					words[i].ReliableTimestamps = false
				}
			}
			ix := timeline.NewAlignedIndex(words)
			if got := Usable(timeline.CutRun{1}, ix); got != tc.want {
				t.Errorf("Usable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	bad := &Config{
		BackwardInvasion: Interval{Min: 0.9, Max: 0.7},
		ForwardInvasion:  Interval{Min: -0.1, Max: 1.5},
		ContextWindowS:   -1,
	}
	if err := bad.Validate(); err == nil {
		t.Error("Validate accepted inverted interval, out-of-range bounds, and negative window")
	}

	good := testConfig()
	if err := good.Validate(); err != nil {
		t.Errorf("Validate rejected a valid config: %v", err)
	}
}
