package audio

// Resample converts b to dstRate using linear interpolation. When b is
// already at dstRate (or either rate is non-positive), b is returned
// unchanged without copying.
func Resample(b *Buffer, dstRate int) *Buffer {
	srcRate := b.SampleRate
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(b.Samples) < 2 {
		return b
	}

	srcSamples := len(b.Samples)
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return &Buffer{SampleRate: dstRate}
	}

	out := make([]float64, dstSamples)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := b.Samples[srcIdx]
		s1 := s0
		if srcIdx+1 < srcSamples {
			s1 = b.Samples[srcIdx+1]
		}
		out[i] = s0*(1-frac) + s1*frac
	}

	return &Buffer{Samples: out, SampleRate: dstRate}
}
