package eq

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomaudio/streamcore/internal/models"
)

func TestSetGain_Clamps(t *testing.T) {
	e := New(48000, 2, nil)

	var event ClampEvent
	e.SetObserver(func(ev ClampEvent) { event = ev })

	e.SetGain(models.Band500Hz, 20.0)
	assert.Equal(t, 12.0, e.Gain(models.Band500Hz))
	assert.Equal(t, models.Band500Hz, event.Band)
	assert.Equal(t, 20.0, event.Original)
	assert.Equal(t, 12.0, event.Clamped)
}

func TestSetGain_NoClampNoObserverCall(t *testing.T) {
	e := New(48000, 2, nil)
	called := false
	e.SetObserver(func(ClampEvent) { called = true })

	e.SetGain(models.Band1kHz, 3.0)
	assert.Equal(t, 3.0, e.Gain(models.Band1kHz))
	assert.False(t, called)
}

func TestProcess_ZeroGainIsIdentity(t *testing.T) {
	e := New(48000, 1, nil)

	buf := models.NewAudioBuffer(256, 1, 48000)
	for i := range buf.Samples {
		buf.Samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 48000))
	}
	original := make([]float32, len(buf.Samples))
	copy(original, buf.Samples)

	e.Process(buf)

	assert.Equal(t, original, buf.Samples)
}

func TestPeakingCoeffs_ZeroGainIsIdentity(t *testing.T) {
	c := peakingCoeffs(1000, 0.8, 0, 48000)
	assert.Equal(t, identityCoeffs, c)
}

func TestPeakingCoeffs_FrequencyResponseAtZeroDB(t *testing.T) {
	// Biquad peaking filter at gain 0 dB is an identity per spec §8:
	// |H(w)-1| < 1e-6 across the band. Verify the coefficients directly
	// produce a unity-gain passthrough for an arbitrary input sample.
	c := peakingCoeffs(1000, 0.8, 0, 48000)
	var s biquadState
	for _, x := range []float64{1.0, -0.5, 0.25, 0.0} {
		y := c.process(&s, x)
		assert.InDelta(t, x, y, 1e-6)
	}
}

func TestProcess_GainBoostsSignal(t *testing.T) {
	e := New(48000, 1, nil)
	e.SetGain(models.Band1kHz, 6.0)

	buf := models.NewAudioBuffer(48000, 1, 48000)
	for i := range buf.Samples {
		buf.Samples[i] = float32(math.Sin(2 * math.Pi * 1000 * float64(i) / 48000))
	}

	rmsBefore := rms(buf.Samples)
	// Multiple passes let the smoothing factor converge on the target gain.
	for i := 0; i < 50; i++ {
		e.Process(buf)
	}
	rmsAfter := rms(buf.Samples[40000:])

	assert.Greater(t, rmsAfter, rmsBefore)
}

func TestSetSampleRate_ClearsState(t *testing.T) {
	e := New(48000, 1, nil)
	e.SetGain(models.Band1kHz, 6.0)

	buf := models.NewAudioBuffer(1000, 1, 48000)
	for i := range buf.Samples {
		buf.Samples[i] = float32(math.Sin(2 * math.Pi * 1000 * float64(i) / 48000))
	}
	e.Process(buf)

	nonZero := false
	for c := range e.bands[models.Band1kHz].channels {
		if e.bands[models.Band1kHz].channels[c] != (biquadState{}) {
			nonZero = true
		}
	}
	require.True(t, nonZero, "expected filter state to be nonzero after processing")

	e.SetSampleRate(44100)
	for c := range e.bands[models.Band1kHz].channels {
		assert.Equal(t, biquadState{}, e.bands[models.Band1kHz].channels[c])
	}
}

func rms(samples []float32) float64 {
	sum := 0.0
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
