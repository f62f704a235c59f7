// Package analyzer implements the offline signal-property analyses of
// spec.md §4.6 — peak, clipping, BPM, beats, loudness, phase, pitch,
// frequency, dynamic range, and heuristic timbre/genre/quality
// summaries — run on a precomputed mono (or stereo, for phase) Float32
// buffer, off the real-time render path.
package analyzer

import (
	"math"

	"github.com/loomaudio/streamcore/internal/config"
)

// PeakResult is spec §4.6's peak/clipping analysis.
type PeakResult struct {
	Peak          float32
	PeakIndex     int
	PeakDBFS      float64
	ClipCount     int
	ClipRegions   int
	ClipPercent   float64
	SevereClipping bool
}

// AnalyzePeak linearly scans samples for the maximum absolute value and
// clipping statistics, per spec §4.6's Peak/Clipping bullets.
func AnalyzePeak(samples []float32, eng *config.Engine) PeakResult {
	threshold, severePercent, severeRegions := peakTunables(eng)

	var result PeakResult
	if len(samples) == 0 {
		return result
	}

	inRegion := false
	for i, s := range samples {
		abs := absFloat32(s)
		if abs > result.Peak {
			result.Peak = abs
			result.PeakIndex = i
		}
		if float64(abs) >= threshold {
			result.ClipCount++
			if !inRegion {
				result.ClipRegions++
				inRegion = true
			}
		} else {
			inRegion = false
		}
	}

	result.ClipPercent = float64(result.ClipCount) / float64(len(samples)) * 100
	result.SevereClipping = result.ClipPercent > severePercent*100 || result.ClipRegions > severeRegions
	if result.Peak > 0 {
		result.PeakDBFS = 20 * math.Log10(float64(result.Peak))
	} else {
		result.PeakDBFS = math.Inf(-1)
	}
	return result
}

func peakTunables(eng *config.Engine) (threshold, severePercent float64, severeRegions int) {
	threshold, severePercent, severeRegions = 0.99, 0.001, 10
	if eng == nil {
		return
	}
	if eng.AnalyzerClipThreshold > 0 {
		threshold = eng.AnalyzerClipThreshold
	}
	if eng.AnalyzerSevereClipPercent > 0 {
		severePercent = eng.AnalyzerSevereClipPercent
	}
	if eng.AnalyzerSevereClipRegions > 0 {
		severeRegions = eng.AnalyzerSevereClipRegions
	}
	return
}

func absFloat32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
