package spectrum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 44100

func sineToneSpectrum(freqHz float64, frames int, channels int) []float32 {
	out := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		v := float32(0.8 * math.Sin(2*math.Pi*freqHz*float64(i)/float64(testSampleRate)))
		for c := 0; c < channels; c++ {
			out[i*channels+c] = v
		}
	}
	return out
}

func TestAnalyzerFeedProducesBandedUpdate(t *testing.T) {
	analyzer := New(testSampleRate, nil)

	var updates []Update
	analyzer.OnUpdate = func(u Update) { updates = append(updates, u) }

	samples := sineToneSpectrum(1000, 4096, 1)
	analyzer.Feed(samples, 1)

	require.NotEmpty(t, updates)
	assert.Len(t, updates[0].Bands, 64)

	max := 0.0
	for _, v := range updates[0].Bands {
		if v > max {
			max = v
		}
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	// Bands are normalized to a peak of 1, then smoothed against the
	// zero-initialized previous frame: 0.7*0 + 0.3*1.
	assert.InDelta(t, 0.3, max, 0.001)
}

func TestAnalyzerFeedDownmixesStereoToChannel0(t *testing.T) {
	analyzer := New(testSampleRate, nil)

	var updates []Update
	analyzer.OnUpdate = func(u Update) { updates = append(updates, u) }

	samples := sineToneSpectrum(500, 4096, 2)
	analyzer.Feed(samples, 2)

	require.NotEmpty(t, updates)
}

func TestAnalyzerSmoothsAcrossConsecutiveUpdates(t *testing.T) {
	analyzer := New(testSampleRate, nil)

	var updates []Update
	analyzer.OnUpdate = func(u Update) { updates = append(updates, u) }

	silence := make([]float32, 2048)
	tone := sineToneSpectrum(1000, 2048, 1)

	analyzer.Feed(silence, 1)
	analyzer.Feed(tone, 1)
	analyzer.Feed(tone, 1)

	require.Len(t, updates, 3)
	assert.Less(t, sum(updates[1].Bands), sum(updates[2].Bands))
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func TestLogBandProducesRequestedBandCount(t *testing.T) {
	mag := make([]float64, 1024)
	for i := range mag {
		mag[i] = 1.0
	}
	bands := logBand(mag, 32, testSampleRate, 2048)
	assert.Len(t, bands, 32)
}
