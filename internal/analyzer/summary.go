package analyzer

// TimbreClass is a coarse heuristic bucket for the spectral shape of a
// track, derived from FrequencyResult.
type TimbreClass string

const (
	TimbreBright TimbreClass = "bright"
	TimbreWarm   TimbreClass = "warm"
	TimbreDark   TimbreClass = "dark"
	TimbreBalanced TimbreClass = "balanced"
)

// QualityClass is a coarse heuristic bucket combining clipping,
// dynamic range, and loudness into a single verdict.
type QualityClass string

const (
	QualityPoor      QualityClass = "poor"
	QualityCompressed QualityClass = "compressed"
	QualityGood      QualityClass = "good"
	QualityExcellent QualityClass = "excellent"
)

// Summary is spec §4.6's "Timbre / genre / quality" bullet: heuristic
// labels built from the other analyses rather than independent
// measurements.
type Summary struct {
	Timbre        TimbreClass
	Genre         string
	Quality       QualityClass
	Percussive    bool
	EnergyLevel   string
}

// summarize derives Summary's heuristic labels from the other
// analysis results. None of it is a new measurement: it only buckets
// numbers already computed elsewhere.
func summarize(peak PeakResult, bpm BPMResult, loudness LoudnessResult, freq FrequencyResult, dr DynamicRangeResult) Summary {
	return Summary{
		Timbre:      classifyTimbre(freq),
		Genre:       guessGenre(bpm, freq),
		Quality:     classifyQuality(peak, dr, loudness),
		Percussive:  len(bpm.Candidates) > 0 && bpm.Confidence > 0.5,
		EnergyLevel: classifyEnergy(loudness),
	}
}

func classifyTimbre(freq FrequencyResult) TimbreClass {
	switch {
	case freq.Centroid == 0 && freq.HighRatio == 0 && freq.LowRatio == 0:
		return TimbreBalanced
	case freq.HighRatio > 0.4:
		return TimbreBright
	case freq.LowRatio > 0.5:
		return TimbreWarm
	case freq.Centroid > 0 && freq.Centroid < 500:
		return TimbreDark
	default:
		return TimbreBalanced
	}
}

func classifyQuality(peak PeakResult, dr DynamicRangeResult, loudness LoudnessResult) QualityClass {
	switch {
	case peak.SevereClipping:
		return QualityPoor
	case dr.DR > 0 && dr.DR < 6:
		return QualityCompressed
	case dr.DR >= 12:
		return QualityExcellent
	default:
		return QualityGood
	}
}

func classifyEnergy(loudness LoudnessResult) string {
	switch {
	case loudness.IntegratedLUFS > -9:
		return "high"
	case loudness.IntegratedLUFS > -18:
		return "medium"
	default:
		return "low"
	}
}

// guessGenre is a deliberately coarse heuristic: BPM range combined
// with spectral brightness, not a classifier. It exists to give
// Summary.Genre a plausible value, not to be taken as ground truth.
func guessGenre(bpm BPMResult, freq FrequencyResult) string {
	if len(bpm.Candidates) == 0 {
		return "unknown"
	}
	switch {
	case bpm.BPM >= 120 && bpm.BPM <= 135 && freq.HighRatio > 0.3:
		return "electronic/dance"
	case bpm.BPM >= 60 && bpm.BPM <= 90 && freq.LowRatio > 0.4:
		return "hip-hop/r&b"
	case bpm.BPM >= 140:
		return "uptempo"
	case bpm.BPM < 70:
		return "ballad/ambient"
	default:
		return "pop/rock"
	}
}
