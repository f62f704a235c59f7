package analyzer

import (
	"sort"

	"github.com/loomaudio/streamcore/internal/config"
)

// BPMCandidate is one of the top distinct BPM estimates returned by
// AnalyzeBPM, per spec §4.6's "top 5 distinct BPMs" bullet.
type BPMCandidate struct {
	BPM         float64
	Correlation float64
}

// BPMResult is spec §4.6's full BPM analysis: the best estimate, up to
// 5 distinct candidates, a confidence score, and a stability flag.
type BPMResult struct {
	BPM        float64
	Candidates []BPMCandidate
	Confidence float64
	Stable     bool
}

type bpmTunables struct {
	min, max          float64
	window, hop       int
	smoothTaps        int
	topPeaks          int
	topCandidates     int
	minSeparationBPM  float64
}

func resolveBPMTunables(eng *config.Engine) bpmTunables {
	t := bpmTunables{min: 50, max: 220, window: 512, hop: 128, smoothTaps: 11, topPeaks: 20, topCandidates: 5, minSeparationBPM: 5}
	if eng == nil {
		return t
	}
	if eng.AnalyzerBPMMin > 0 {
		t.min = eng.AnalyzerBPMMin
	}
	if eng.AnalyzerBPMMax > 0 {
		t.max = eng.AnalyzerBPMMax
	}
	if eng.AnalyzerEnvelopeWindow > 0 {
		t.window = eng.AnalyzerEnvelopeWindow
	}
	if eng.AnalyzerEnvelopeHop > 0 {
		t.hop = eng.AnalyzerEnvelopeHop
	}
	if eng.AnalyzerOnsetSmoothTaps > 0 {
		t.smoothTaps = eng.AnalyzerOnsetSmoothTaps
	}
	if eng.AnalyzerBPMTopPeaks > 0 {
		t.topPeaks = eng.AnalyzerBPMTopPeaks
	}
	if eng.AnalyzerBPMTopCandidates > 0 {
		t.topCandidates = eng.AnalyzerBPMTopCandidates
	}
	if eng.AnalyzerBPMMinSeparation > 0 {
		t.minSeparationBPM = eng.AnalyzerBPMMinSeparation
	}
	return t
}

// AnalyzeBPM estimates tempo by autocorrelating the onset envelope over
// the lag range implied by the 50-220 BPM search window, per spec
// §4.6's BPM bullet.
func AnalyzeBPM(mono []float32, sampleRate int, eng *config.Engine) BPMResult {
	t := resolveBPMTunables(eng)
	if sampleRate <= 0 {
		return BPMResult{}
	}

	envelope := rmsEnvelope(mono, t.window, t.hop)
	onset := onsetEnvelope(envelope, t.smoothTaps)
	if len(onset) < 2 {
		return BPMResult{}
	}

	frameRate := float64(sampleRate) / float64(t.hop)
	minLag := int(frameRate * 60 / t.max)
	maxLag := int(frameRate * 60 / t.min)
	corr := autocorrelate(onset, minLag, maxLag)
	if len(corr) == 0 {
		return BPMResult{}
	}

	peaks := findLocalPeaks(corr, t.topPeaks)
	candidates := make([]BPMCandidate, 0, len(peaks))
	for _, p := range peaks {
		lag := minLag + p.index
		if lag <= 0 {
			continue
		}
		bpm := frameRate * 60 / float64(lag)
		candidates = append(candidates, BPMCandidate{BPM: bpm, Correlation: p.value})
	}

	candidates = dedupeByBPM(candidates, t.minSeparationBPM)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Correlation > candidates[j].Correlation })
	if len(candidates) > t.topCandidates {
		candidates = candidates[:t.topCandidates]
	}
	if len(candidates) == 0 {
		return BPMResult{}
	}

	best := candidates[0]
	var meanCorr float64
	for _, c := range candidates {
		meanCorr += c.Correlation
	}
	meanCorr /= float64(len(candidates))

	confidence := 0.0
	if meanCorr > 0 {
		confidence = best.Correlation / (3 * meanCorr)
		if confidence > 1 {
			confidence = 1
		}
	}

	stable := hasTempoMultiple(best.BPM, candidates, t.minSeparationBPM)

	return BPMResult{BPM: best.BPM, Candidates: candidates, Confidence: confidence, Stable: stable}
}

type scoredPeak struct {
	index int
	value float64
}

// findLocalPeaks returns up to topN local maxima of series (strictly
// greater than both neighbors), sorted by value descending.
func findLocalPeaks(series []float64, topN int) []scoredPeak {
	var peaks []scoredPeak
	for i := 1; i < len(series)-1; i++ {
		if series[i] > series[i-1] && series[i] > series[i+1] {
			peaks = append(peaks, scoredPeak{index: i, value: series[i]})
		}
	}
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].value > peaks[j].value })
	if len(peaks) > topN {
		peaks = peaks[:topN]
	}
	return peaks
}

// dedupeByBPM collapses candidates within minSeparation BPM of a
// higher-correlation one already kept, per spec's "min separation 5
// BPM" rule.
func dedupeByBPM(candidates []BPMCandidate, minSeparation float64) []BPMCandidate {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Correlation > candidates[j].Correlation })
	var kept []BPMCandidate
	for _, c := range candidates {
		distinct := true
		for _, k := range kept {
			if absFloat64(c.BPM-k.BPM) < minSeparation {
				distinct = false
				break
			}
		}
		if distinct {
			kept = append(kept, c)
		}
	}
	return kept
}

// hasTempoMultiple reports whether a half- or double-tempo candidate of
// best also appears among candidates, which spec.md treats as a
// stability signal for the primary BPM estimate.
func hasTempoMultiple(best float64, candidates []BPMCandidate, tolerance float64) bool {
	for _, c := range candidates {
		if absFloat64(c.BPM-best/2) < tolerance || absFloat64(c.BPM-best*2) < tolerance {
			return true
		}
	}
	return false
}

func absFloat64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
