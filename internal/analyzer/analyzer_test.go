package analyzer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 44100

func whiteNoise(seconds float64, sampleRate int) []float32 {
	n := int(seconds * float64(sampleRate))
	src := rand.New(rand.NewSource(1))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(src.Float64()*2 - 1)
	}
	return out
}

func sineToneAnalyzer(freqHz float64, seconds float64, sampleRate int) []float32 {
	n := int(seconds * float64(sampleRate))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate)))
	}
	return out
}

func clickTrack(bpm float64, seconds float64, sampleRate int) []float32 {
	n := int(seconds * float64(sampleRate))
	out := make([]float32, n)
	period := int(60.0 / bpm * float64(sampleRate))
	for i := 0; i < n; i += period {
		for k := 0; k < 200 && i+k < n; k++ {
			out[i+k] = float32(0.9 * math.Exp(-float64(k)/20))
		}
	}
	return out
}

func TestAnalyzePeakFindsMaxAndClipping(t *testing.T) {
	samples := sineToneAnalyzer(440, 1, testSampleRate)
	for i := range samples {
		if samples[i] > 0.99 {
			samples[i] = 1.0
		}
	}
	result := AnalyzePeak(samples, nil)
	assert.InDelta(t, 0.5, result.Peak, 0.01)
	assert.Less(t, result.PeakDBFS, 0.0)
	// A 0.5-amplitude tone never reaches the clip threshold.
	assert.Equal(t, 0, result.ClipCount)
}

func TestAnalyzePeakDetectsSevereClipping(t *testing.T) {
	samples := make([]float32, 10000)
	for i := range samples {
		samples[i] = 1.0
	}
	result := AnalyzePeak(samples, nil)
	assert.True(t, result.SevereClipping)
	assert.Equal(t, 10000, result.ClipCount)
	assert.Equal(t, 1, result.ClipRegions)
}

func TestAnalyzeBPMRecoversClickTrackTempo(t *testing.T) {
	samples := clickTrack(120, 10, testSampleRate)
	result := AnalyzeBPM(samples, testSampleRate, nil)
	require.NotZero(t, result.BPM)
	assert.InDelta(t, 120, result.BPM, 5)
	assert.NotEmpty(t, result.Candidates)
}

func TestAnalyzeBeatsFindsOnsetsOnClickTrack(t *testing.T) {
	samples := clickTrack(120, 8, testSampleRate)
	beats := AnalyzeBeats(samples, testSampleRate, nil)
	assert.NotEmpty(t, beats)
	downbeats := 0
	for i, b := range beats {
		if b.Downbeat {
			downbeats++
			assert.Equal(t, 0, i%4)
		}
	}
	assert.Greater(t, downbeats, 0)
}

func TestAnalyzeLoudnessProducesFiniteIntegratedValue(t *testing.T) {
	samples := sineToneAnalyzer(1000, 5, testSampleRate)
	result := AnalyzeLoudness(samples, testSampleRate, nil)
	assert.False(t, math.IsInf(result.IntegratedLUFS, 0))
	assert.NotEmpty(t, result.Histogram)
	assert.Greater(t, result.TruePeak, float32(0))
}

func TestAnalyzeLoudnessSilenceIsGatedToNegativeInfinity(t *testing.T) {
	samples := make([]float32, testSampleRate*2)
	result := AnalyzeLoudness(samples, testSampleRate, nil)
	assert.True(t, math.IsInf(result.IntegratedLUFS, -1))
}

func TestAnalyzePhaseInPhaseStereoIsNearMono(t *testing.T) {
	mono := sineToneAnalyzer(440, 1, testSampleRate)
	stereo := make([]float32, len(mono)*2)
	for i, s := range mono {
		stereo[i*2] = s
		stereo[i*2+1] = s
	}
	result := AnalyzePhase(stereo, nil)
	assert.InDelta(t, 1.0, result.Correlation, 0.01)
	assert.Equal(t, PhaseNearMono, result.Class)
}

func TestAnalyzePhaseInvertedChannelIsSevereReverse(t *testing.T) {
	mono := sineToneAnalyzer(440, 1, testSampleRate)
	stereo := make([]float32, len(mono)*2)
	for i, s := range mono {
		stereo[i*2] = s
		stereo[i*2+1] = -s
	}
	result := AnalyzePhase(stereo, nil)
	assert.Less(t, result.Correlation, -0.5)
	assert.Equal(t, PhaseSevereReverse, result.Class)
}

func TestAnalyzePitchDetectsKnownFrequency(t *testing.T) {
	samples := sineToneAnalyzer(440, 1, testSampleRate)
	result := AnalyzePitch(samples, testSampleRate, nil)
	require.True(t, result.Detected)
	assert.InDelta(t, 440, result.FrequencyHz, 5)
	assert.Equal(t, "A4", result.NoteName)
}

func TestAnalyzeFrequencyReportsCentroidNearToneFrequency(t *testing.T) {
	samples := sineToneAnalyzer(1000, 1, testSampleRate)
	result := AnalyzeFrequency(samples, testSampleRate, nil)
	assert.InDelta(t, 1000, result.Centroid, 200)
	assert.NotEmpty(t, result.TopPeaks)
	assert.Less(t, result.Flatness, 0.5)
}

func TestAnalyzeFrequencyOfNoiseIsFlatter(t *testing.T) {
	noise := whiteNoise(1, testSampleRate)
	tone := sineToneAnalyzer(1000, 1, testSampleRate)
	noiseResult := AnalyzeFrequency(noise, testSampleRate, nil)
	toneResult := AnalyzeFrequency(tone, testSampleRate, nil)
	assert.Greater(t, noiseResult.Flatness, toneResult.Flatness)
}

func TestAnalyzeDynamicRangeOfConstantToneIsLow(t *testing.T) {
	samples := sineToneAnalyzer(440, 2, testSampleRate)
	result := AnalyzeDynamicRange(samples, testSampleRate, nil)
	assert.NotEmpty(t, result.WindowRMS)
	assert.Less(t, math.Abs(result.DR), 6.0)
}

func TestAnalyzeReturnsFullReportWithPhaseWhenStereoProvided(t *testing.T) {
	mono := clickTrack(120, 3, testSampleRate)
	stereo := make([]float32, len(mono)*2)
	for i, s := range mono {
		stereo[i*2] = s
		stereo[i*2+1] = s
	}
	report := Analyze(mono, stereo, testSampleRate, nil)
	assert.True(t, report.HasPhase)
	assert.NotZero(t, report.Peak.Peak)
	assert.NotEmpty(t, report.Summary.Quality)
}

func TestAnalyzeOmitsPhaseWhenMonoOnly(t *testing.T) {
	mono := sineToneAnalyzer(440, 1, testSampleRate)
	report := Analyze(mono, nil, testSampleRate, nil)
	assert.False(t, report.HasPhase)
}
