package analyzer

import (
	"math"
	"sort"

	"github.com/loomaudio/streamcore/internal/config"
)

// LoudnessResult is spec §4.6's simplified EBU-R128-like analysis.
type LoudnessResult struct {
	IntegratedLUFS float64
	ShortTermLUFS  float64
	MomentaryLUFS  float64
	LRA            float64
	TruePeak       float32
	Histogram      []int // spec's 70-bin LUFS histogram of gated blocks
}

type loudnessTunables struct {
	blockMS        float64
	overlap        float64
	absoluteGate   float64
	relativeOffset float64
	shortTermS     float64
	momentaryMS    float64
	histogramBins  int
}

func resolveLoudnessTunables(eng *config.Engine) loudnessTunables {
	t := loudnessTunables{blockMS: 400, overlap: 0.75, absoluteGate: -70, relativeOffset: -10, shortTermS: 3, momentaryMS: 400, histogramBins: 70}
	if eng == nil {
		return t
	}
	if eng.AnalyzerLoudnessBlockMS > 0 {
		t.blockMS = eng.AnalyzerLoudnessBlockMS
	}
	if eng.AnalyzerLoudnessOverlap > 0 {
		t.overlap = eng.AnalyzerLoudnessOverlap
	}
	if eng.AnalyzerLoudnessAbsoluteGate != 0 {
		t.absoluteGate = eng.AnalyzerLoudnessAbsoluteGate
	}
	if eng.AnalyzerLoudnessRelativeOffset != 0 {
		t.relativeOffset = eng.AnalyzerLoudnessRelativeOffset
	}
	if eng.AnalyzerLoudnessShortTermS > 0 {
		t.shortTermS = eng.AnalyzerLoudnessShortTermS
	}
	if eng.AnalyzerLoudnessMomentaryMS > 0 {
		t.momentaryMS = eng.AnalyzerLoudnessMomentaryMS
	}
	if eng.AnalyzerLoudnessHistogramBins > 0 {
		t.histogramBins = eng.AnalyzerLoudnessHistogramBins
	}
	return t
}

// kWeight applies a single-pole high-shelf approximation of the ITU-R
// BS.1770 K-weighting pre-filter: a simple first-difference emphasizes
// high frequencies relative to a flat passthrough, which is the
// "approximation" spec §4.6 explicitly calls for rather than the
// cascaded biquad the full standard specifies.
func kWeight(samples []float32) []float64 {
	out := make([]float64, len(samples))
	var prev float64
	for i, s := range samples {
		v := float64(s)
		out[i] = v + 0.15*(v-prev)
		prev = v
	}
	return out
}

// blockLUFS computes mean-square loudness in LUFS for one weighted
// block, using the standard's -0.691 dB calibration offset.
func blockLUFS(weighted []float64) float64 {
	if len(weighted) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, v := range weighted {
		sum += v * v
	}
	meanSquare := sum / float64(len(weighted))
	if meanSquare <= 0 {
		return math.Inf(-1)
	}
	return -0.691 + 10*math.Log10(meanSquare)
}

// AnalyzeLoudness runs the gated-block loudness measurement of spec
// §4.6: 400ms blocks at 75% overlap, absolute gate at -70 LUFS, then a
// relative gate at (mean-10), producing integrated/short-term/momentary
// loudness, loudness range, true peak, and a histogram of gated blocks.
func AnalyzeLoudness(mono []float32, sampleRate int, eng *config.Engine) LoudnessResult {
	t := resolveLoudnessTunables(eng)
	if sampleRate <= 0 || len(mono) == 0 {
		return LoudnessResult{}
	}

	weighted := kWeight(mono)

	blockSize := int(t.blockMS / 1000 * float64(sampleRate))
	hop := int(float64(blockSize) * (1 - t.overlap))
	if blockSize <= 0 || hop <= 0 {
		return LoudnessResult{}
	}

	var blocks []float64
	for pos := 0; pos+blockSize <= len(weighted); pos += hop {
		blocks = append(blocks, blockLUFS(weighted[pos:pos+blockSize]))
	}
	if len(blocks) == 0 {
		return LoudnessResult{}
	}

	absoluteGated := filterAbove(blocks, t.absoluteGate)
	relativeMean := meanLUFS(absoluteGated)
	relativeGated := filterAbove(absoluteGated, relativeMean+t.relativeOffset)

	integrated := meanLUFS(relativeGated)

	shortTermSamples := int(t.shortTermS * float64(sampleRate))
	shortTerm := blockLUFS(weighted[max(0, len(weighted)-shortTermSamples):])

	momentarySamples := int(t.momentaryMS / 1000 * float64(sampleRate))
	momentary := blockLUFS(weighted[max(0, len(weighted)-momentarySamples):])

	lra := loudnessRange(relativeGated)
	truePeak := peakOf(mono)
	histogram := buildHistogram(relativeGated, t.histogramBins)

	return LoudnessResult{
		IntegratedLUFS: integrated,
		ShortTermLUFS:  shortTerm,
		MomentaryLUFS:  momentary,
		LRA:            lra,
		TruePeak:       truePeak,
		Histogram:      histogram,
	}
}

func filterAbove(values []float64, threshold float64) []float64 {
	var out []float64
	for _, v := range values {
		if v >= threshold {
			out = append(out, v)
		}
	}
	return out
}

func meanLUFS(blocks []float64) float64 {
	if len(blocks) == 0 {
		return math.Inf(-1)
	}
	var sumEnergy float64
	for _, lufs := range blocks {
		sumEnergy += math.Pow(10, (lufs+0.691)/10)
	}
	meanEnergy := sumEnergy / float64(len(blocks))
	if meanEnergy <= 0 {
		return math.Inf(-1)
	}
	return -0.691 + 10*math.Log10(meanEnergy)
}

// loudnessRange is the 95th minus the 10th percentile of gated block
// loudness values, per spec §4.6's LRA bullet.
func loudnessRange(blocks []float64) float64 {
	if len(blocks) == 0 {
		return 0
	}
	sorted := append([]float64(nil), blocks...)
	sort.Float64s(sorted)
	p95 := percentile(sorted, 0.95)
	p10 := percentile(sorted, 0.10)
	return p95 - p10
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func buildHistogram(blocks []float64, bins int) []int {
	if bins <= 0 || len(blocks) == 0 {
		return nil
	}
	const lo, hi = -70.0, 0.0
	hist := make([]int, bins)
	width := (hi - lo) / float64(bins)
	for _, v := range blocks {
		idx := int((v - lo) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= bins {
			idx = bins - 1
		}
		hist[idx]++
	}
	return hist
}

func peakOf(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if a := absFloat32(s); a > peak {
			peak = a
		}
	}
	return peak
}
