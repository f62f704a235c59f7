package analyzer

import (
	"math"

	"github.com/loomaudio/streamcore/internal/config"
)

// PhaseClass is the stereo-image classification of spec §4.6's Phase
// bullet.
type PhaseClass string

const (
	PhaseSevereReverse PhaseClass = "severe_reverse"
	PhasePartialReverse PhaseClass = "partial_reverse"
	PhaseNearMono       PhaseClass = "near_mono"
	PhaseNarrow         PhaseClass = "narrow"
	PhaseNormal         PhaseClass = "normal"
)

// PhaseResult is spec §4.6's stereo phase analysis: correlation,
// mono-compatibility, width, and a classification.
type PhaseResult struct {
	Correlation       float64
	MonoCompatibility float64
	Width             float64
	Class             PhaseClass
}

type phaseTunables struct {
	severeReverse, partialReverse, nearMono, narrow float64
}

func resolvePhaseTunables(eng *config.Engine) phaseTunables {
	t := phaseTunables{severeReverse: -0.5, partialReverse: 0, nearMono: 0.98, narrow: 0.9}
	if eng == nil {
		return t
	}
	if eng.AnalyzerPhaseSevereReverse != 0 {
		t.severeReverse = eng.AnalyzerPhaseSevereReverse
	}
	if eng.AnalyzerPhaseNearMono > 0 {
		t.nearMono = eng.AnalyzerPhaseNearMono
	}
	if eng.AnalyzerPhaseNarrow > 0 {
		t.narrow = eng.AnalyzerPhaseNarrow
	}
	return t
}

// AnalyzePhase computes inter-channel correlation and mid/side energy
// ratios over an interleaved stereo buffer, per spec §4.6's Phase
// bullet (stereo only).
func AnalyzePhase(interleavedStereo []float32, eng *config.Engine) PhaseResult {
	t := resolvePhaseTunables(eng)
	frames := len(interleavedStereo) / 2
	if frames == 0 {
		return PhaseResult{Class: PhaseNormal}
	}

	var sumLR, sumLL, sumRR, midEnergy, sideEnergy float64
	for i := 0; i < frames; i++ {
		l := float64(interleavedStereo[i*2])
		r := float64(interleavedStereo[i*2+1])
		sumLR += l * r
		sumLL += l * l
		sumRR += r * r

		mid := (l + r) / 2
		side := (l - r) / 2
		midEnergy += mid * mid
		sideEnergy += side * side
	}

	correlation := 0.0
	denom := math.Sqrt(sumLL * sumRR)
	if denom > 0 {
		correlation = sumLR / denom
	}

	total := midEnergy + sideEnergy
	monoCompat := 0.0
	width := 0.0
	if total > 0 {
		monoCompat = midEnergy / total
		width = sideEnergy / total
	}

	class := PhaseNormal
	switch {
	case correlation < t.severeReverse:
		class = PhaseSevereReverse
	case correlation < t.partialReverse:
		class = PhasePartialReverse
	case correlation > t.nearMono:
		class = PhaseNearMono
	case correlation > t.narrow:
		class = PhaseNarrow
	}

	return PhaseResult{Correlation: correlation, MonoCompatibility: monoCompat, Width: width, Class: class}
}
