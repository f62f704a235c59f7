package analyzer

import (
	"math"
	"sort"

	"github.com/loomaudio/streamcore/internal/config"
)

// DynamicRangeResult is spec §4.6's DR measurement: a single number in
// dB plus the per-window RMS/peak series it was derived from.
type DynamicRangeResult struct {
	DR         float64
	WindowRMS  []float64
	WindowPeak []float64
}

type dynamicRangeTunables struct {
	windowMS   float64
	overlap    float64
	topPercent float64
}

func resolveDynamicRangeTunables(eng *config.Engine) dynamicRangeTunables {
	t := dynamicRangeTunables{windowMS: 100, overlap: 0.5, topPercent: 0.2}
	if eng == nil {
		return t
	}
	if eng.AnalyzerDRWindowMS > 0 {
		t.windowMS = eng.AnalyzerDRWindowMS
	}
	if eng.AnalyzerDROverlap > 0 {
		t.overlap = eng.AnalyzerDROverlap
	}
	if eng.AnalyzerDRTopPercent > 0 {
		t.topPercent = eng.AnalyzerDRTopPercent
	}
	return t
}

// AnalyzeDynamicRange computes the classic "DR" loudness-war metric:
// 100ms RMS/peak windows at 50% overlap, then
// DR = 20*log10(second-highest peak / mean of the top 20% loudest RMS
// windows), per spec §4.6's Dynamic range bullet.
func AnalyzeDynamicRange(mono []float32, sampleRate int, eng *config.Engine) DynamicRangeResult {
	t := resolveDynamicRangeTunables(eng)
	if sampleRate <= 0 || len(mono) == 0 {
		return DynamicRangeResult{}
	}

	windowSize := int(t.windowMS / 1000 * float64(sampleRate))
	hop := int(float64(windowSize) * (1 - t.overlap))
	if windowSize <= 0 || hop <= 0 {
		return DynamicRangeResult{}
	}

	var rmsSeries, peakSeries []float64
	for pos := 0; pos+windowSize <= len(mono); pos += hop {
		window := mono[pos : pos+windowSize]
		var sumSquares float64
		var peak float32
		for _, s := range window {
			sumSquares += float64(s) * float64(s)
			if a := absFloat32(s); a > peak {
				peak = a
			}
		}
		rmsSeries = append(rmsSeries, math.Sqrt(sumSquares/float64(windowSize)))
		peakSeries = append(peakSeries, float64(peak))
	}

	if len(rmsSeries) < 2 {
		return DynamicRangeResult{WindowRMS: rmsSeries, WindowPeak: peakSeries}
	}

	sortedPeaks := append([]float64(nil), peakSeries...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sortedPeaks)))
	secondHighestPeak := sortedPeaks[1]

	sortedRMS := append([]float64(nil), rmsSeries...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sortedRMS)))
	topCount := int(float64(len(sortedRMS)) * t.topPercent)
	if topCount < 1 {
		topCount = 1
	}
	var topSum float64
	for _, v := range sortedRMS[:topCount] {
		topSum += v
	}
	topMeanRMS := topSum / float64(topCount)

	dr := 0.0
	if topMeanRMS > 0 && secondHighestPeak > 0 {
		dr = 20 * math.Log10(secondHighestPeak/topMeanRMS)
	}

	return DynamicRangeResult{DR: dr, WindowRMS: rmsSeries, WindowPeak: peakSeries}
}
