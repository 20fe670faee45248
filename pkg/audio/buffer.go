// Package audio provides the in-memory waveform representation used across
// CutForge: mono float64 sample buffers at a known sample rate, with WAV
// decode/encode and linear-interpolation resampling.
//
// All pipeline timing is expressed in seconds; this package owns the
// conversion to and from sample indices.
package audio

import "math"

// Buffer is a mono waveform held fully in memory. Samples are normalized to
// [-1.0, 1.0]. Buffers are passed by pointer but treated as immutable by
// consumers; Clip and Concat return fresh buffers sharing no sample storage
// with their inputs.
type Buffer struct {
	// Samples holds the waveform, one float64 per frame.
	Samples []float64

	// SampleRate is the number of frames per second.
	SampleRate int
}

// Len returns the number of samples.
func (b *Buffer) Len() int { return len(b.Samples) }

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// SampleAt converts an absolute time in seconds to the nearest preceding
// sample index, clamped into [0, Len].
func (b *Buffer) SampleAt(seconds float64) int {
	idx := int(seconds * float64(b.SampleRate))
	if idx < 0 {
		return 0
	}
	if idx > len(b.Samples) {
		return len(b.Samples)
	}
	return idx
}

// SecondsAt converts a sample index to seconds.
func (b *Buffer) SecondsAt(index int) float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(index) / float64(b.SampleRate)
}

// Clip returns a copy of the samples in [start, end). Indices are clamped
// into range; an inverted range yields an empty buffer at the same rate.
func (b *Buffer) Clip(start, end int) *Buffer {
	if start < 0 {
		start = 0
	}
	if end > len(b.Samples) {
		end = len(b.Samples)
	}
	if start >= end {
		return &Buffer{Samples: nil, SampleRate: b.SampleRate}
	}
	out := make([]float64, end-start)
	copy(out, b.Samples[start:end])
	return &Buffer{Samples: out, SampleRate: b.SampleRate}
}

// Concat returns a new buffer holding a's samples followed by b's.
// Both inputs must share a sample rate; Concat panics otherwise, since a
// rate mismatch here means an upstream stage broke its contract.
func Concat(a, b *Buffer) *Buffer {
	if a.SampleRate != b.SampleRate {
		panic("audio: concat of buffers with differing sample rates")
	}
	out := make([]float64, 0, len(a.Samples)+len(b.Samples))
	out = append(out, a.Samples...)
	out = append(out, b.Samples...)
	return &Buffer{Samples: out, SampleRate: a.SampleRate}
}

// RMS returns the root-mean-square level of the samples in [start, end),
// clamped into range. Returns 0 for an empty selection.
func (b *Buffer) RMS(start, end int) float64 {
	if start < 0 {
		start = 0
	}
	if end > len(b.Samples) {
		end = len(b.Samples)
	}
	if start >= end {
		return 0
	}
	var sum float64
	for _, s := range b.Samples[start:end] {
		sum += s * s
	}
	return math.Sqrt(sum / float64(end-start))
}
