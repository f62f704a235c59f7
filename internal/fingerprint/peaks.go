package fingerprint

// peak is a local-maximum constellation point: Peak(frame_idx, bin_idx,
// magnitude) per spec §4.5 step 4.
type peak struct {
	frameIdx int
	binIdx   int
	mag      float64
}

// extractPeaks finds, for every frame and every logarithmic band, up to
// peaksPerBand local-maximum bins whose magnitude exceeds minMag. A bin
// qualifies as a local maximum if it is >= both neighbors within the
// frame's spectrum.
func extractPeaks(frames []frame, bands [][2]int, peaksPerBand int, minMag float64) []peak {
	var peaks []peak
	for _, f := range frames {
		for _, band := range bands {
			start, end := band[0], band[1]
			var candidates []peak
			for bin := start; bin <= end; bin++ {
				mag := f.magnitude[bin]
				if mag <= minMag {
					continue
				}
				if bin > 0 && f.magnitude[bin-1] > mag {
					continue
				}
				if bin < len(f.magnitude)-1 && f.magnitude[bin+1] > mag {
					continue
				}
				candidates = append(candidates, peak{frameIdx: f.index, binIdx: bin, mag: mag})
			}
			candidates = topN(candidates, peaksPerBand)
			peaks = append(peaks, candidates...)
		}
	}
	return peaks
}

// topN returns the N candidates with the highest magnitude; among equal
// magnitudes the one met first in the partially swapped slice wins, which
// is deterministic but not always lowest-bin-first (selection sort is fine here:
// peaksPerBand is always small, default 5).
func topN(candidates []peak, n int) []peak {
	if len(candidates) <= n {
		return candidates
	}
	out := make([]peak, len(candidates))
	copy(out, candidates)
	for i := 0; i < n; i++ {
		best := i
		for j := i + 1; j < len(out); j++ {
			if out[j].mag > out[best].mag {
				best = j
			}
		}
		out[i], out[best] = out[best], out[i]
	}
	return out[:n]
}
