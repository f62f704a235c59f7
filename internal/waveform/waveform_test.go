package waveform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomaudio/streamcore/internal/config"
)

func sineMono(freqHz float64, seconds float64, sampleRate int) []float32 {
	n := int(seconds * float64(sampleRate))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.6 * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestSummarizeProducesConfiguredBinCount(t *testing.T) {
	samples := sineMono(440, 2, 44100)
	wf := Summarize(samples, 44100, nil)
	assert.Len(t, wf.Bins, 200)
	assert.Equal(t, 44100, wf.SampleRate)
}

func TestSummarizeBinsAreClippedToUnitRange(t *testing.T) {
	samples := make([]float32, 1000)
	for i := range samples {
		samples[i] = 5.0
	}
	wf := Summarize(samples, 44100, nil)
	for _, b := range wf.Bins {
		assert.LessOrEqual(t, b.MaxPositive, float32(1.0))
		assert.GreaterOrEqual(t, b.MinNegative, float32(-1.0))
	}
}

func TestSummarizeRespectsConfiguredBinCount(t *testing.T) {
	samples := sineMono(440, 1, 44100)
	eng := config.Defaults()
	eng.WaveformBins = 50
	wf := Summarize(samples, 44100, eng)
	assert.Len(t, wf.Bins, 50)
}

func TestSummarizeEmptyInputReturnsNoBins(t *testing.T) {
	wf := Summarize(nil, 44100, nil)
	assert.Empty(t, wf.Bins)
}

func TestSummarizeCapturesSignExtremesPerBin(t *testing.T) {
	samples := []float32{0.9, -0.9, 0.1, -0.1}
	eng := config.Defaults()
	eng.WaveformBins = 2
	wf := Summarize(samples, 44100, eng)
	require.Len(t, wf.Bins, 2)
	assert.InDelta(t, 0.9, wf.Bins[0].MaxPositive, 0.001)
	assert.InDelta(t, -0.9, wf.Bins[0].MinNegative, 0.001)
}
