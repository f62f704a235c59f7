package effects

import "math"

// TempoMin and TempoMax bound a single tempo stage, per spec §4.3.
const (
	TempoMin = 0.5
	TempoMax = 2.0
)

// FactorizeTempo splits an overall tempo factor outside [TempoMin,
// TempoMax] into a sequence of in-range stages whose product equals
// tempo, e.g. 3.0 = 2.0*1.5 (spec §4.3). A tempo already in range
// returns a single-element slice.
func FactorizeTempo(tempo float64) []float64 {
	if tempo <= 0 {
		return []float64{1.0}
	}
	if tempo >= TempoMin && tempo <= TempoMax {
		return []float64{tempo}
	}

	var stages []float64
	remaining := tempo
	if remaining > TempoMax {
		for remaining > TempoMax {
			stages = append(stages, TempoMax)
			remaining /= TempoMax
		}
	} else {
		for remaining < TempoMin {
			stages = append(stages, TempoMin)
			remaining /= TempoMin
		}
	}
	stages = append(stages, remaining)
	return stages
}

// PitchSampleRateRatio returns the factor 2^(semitones/12) by which the
// internal sample rate is adjusted for a pitch shift (spec §4.3).
func PitchSampleRateRatio(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

// EffectiveTempo divides the requested tempo by the pitch-induced
// sample-rate ratio so that a pitch change alone does not change
// playback duration, per spec §4.3: "pitch_semitones ... divides the
// tempo factor by that ratio, so pitch changes do not change duration
// unless the user also changes tempo."
func EffectiveTempo(tempo, pitchSemitones float64) float64 {
	if pitchSemitones == 0 {
		return tempo
	}
	return tempo / PitchSampleRateRatio(pitchSemitones)
}
