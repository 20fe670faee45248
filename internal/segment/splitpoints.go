// Package segment derives safe split points from voice activity and carves
// recordings into chunks for transcription and forced alignment.
//
// A split point is a moment the audio can be cut without clipping speech:
// the middle of a detected silence, or the very start and end of the
// recording. Chunkers then pick subsets of these points under duration
// constraints, so no chunk boundary ever lands inside a word.
package segment

import "github.com/cutforge/cutforge/pkg/provider/vad"

// SplitPoint is one eligible cut position, with the extent of the
// surrounding silence. All values are seconds from the recording start.
type SplitPoint struct {
	// At is the cut position itself.
	At float64

	// SilenceStart and SilenceEnd delimit the silent span containing At.
	SilenceStart float64
	SilenceEnd   float64
}

// SplitPoints returns every eligible split position for a recording with
// the given speech segments: the recording start, the midpoint of each
// inter-segment silence, and the recording end. With no detected speech
// there is nothing to split around and the result is nil.
func SplitPoints(speech []vad.Segment, totalDuration float64) []SplitPoint {
	if len(speech) == 0 {
		return nil
	}

	points := make([]SplitPoint, 0, len(speech)+1)

	points = append(points, SplitPoint{
		At:           0,
		SilenceStart: 0,
		SilenceEnd:   speech[0].Start,
	})

	for i := 0; i < len(speech)-1; i++ {
		silenceStart := speech[i].End
		silenceEnd := speech[i+1].Start
		points = append(points, SplitPoint{
			At:           silenceStart + (silenceEnd-silenceStart)/2,
			SilenceStart: silenceStart,
			SilenceEnd:   silenceEnd,
		})
	}

	points = append(points, SplitPoint{
		At:           totalDuration,
		SilenceStart: speech[len(speech)-1].End,
		SilenceEnd:   totalDuration,
	})

	return points
}
