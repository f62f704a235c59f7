package analyzer

import "github.com/loomaudio/streamcore/internal/config"

// Report bundles every spec §4.6 analysis for a single decoded
// buffer. Phase is only populated when the source buffer was stereo.
type Report struct {
	Peak           PeakResult
	BPM            BPMResult
	Beats          []Beat
	Loudness       LoudnessResult
	Phase          PhaseResult
	HasPhase       bool
	Pitch          PitchResult
	Frequency      FrequencyResult
	DynamicRange   DynamicRangeResult
	Summary        Summary
}

// Analyze runs every analysis in this package over a decoded buffer
// and assembles a Report. mono is the downmixed signal used by every
// mono-only analysis; interleavedStereo, when non-empty, additionally
// drives AnalyzePhase.
func Analyze(mono []float32, interleavedStereo []float32, sampleRate int, eng *config.Engine) Report {
	peak := AnalyzePeak(mono, eng)
	bpm := AnalyzeBPM(mono, sampleRate, eng)
	beats := AnalyzeBeats(mono, sampleRate, eng)
	loudness := AnalyzeLoudness(mono, sampleRate, eng)
	pitch := AnalyzePitch(mono, sampleRate, eng)
	freq := AnalyzeFrequency(mono, sampleRate, eng)
	dr := AnalyzeDynamicRange(mono, sampleRate, eng)

	report := Report{
		Peak:         peak,
		BPM:          bpm,
		Beats:        beats,
		Loudness:     loudness,
		Pitch:        pitch,
		Frequency:    freq,
		DynamicRange: dr,
		Summary:      summarize(peak, bpm, loudness, freq, dr),
	}

	if len(interleavedStereo) > 0 {
		report.Phase = AnalyzePhase(interleavedStereo, eng)
		report.HasPhase = true
	}

	return report
}
