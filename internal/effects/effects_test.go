package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomaudio/streamcore/internal/models"
)

func TestBypassIsZeroCopy(t *testing.T) {
	g := NewGraph(2, 48000, nil)
	buf := models.NewAudioBuffer(64, 2, 48000)
	for i := range buf.Samples {
		buf.Samples[i] = float32(i) * 0.01
	}
	original := make([]float32, len(buf.Samples))
	copy(original, buf.Samples)

	require.NoError(t, g.Process(buf))
	assert.Equal(t, original, buf.Samples)
}

func TestFactorizeTempo_InRange(t *testing.T) {
	stages := FactorizeTempo(1.5)
	assert.Equal(t, []float64{1.5}, stages)
}

func TestFactorizeTempo_AboveRange(t *testing.T) {
	stages := FactorizeTempo(3.0)
	product := 1.0
	for _, s := range stages {
		assert.GreaterOrEqual(t, s, TempoMin)
		assert.LessOrEqual(t, s, TempoMax)
		product *= s
	}
	assert.InDelta(t, 3.0, product, 1e-9)
}

func TestFactorizeTempo_BelowRange(t *testing.T) {
	stages := FactorizeTempo(0.2)
	product := 1.0
	for _, s := range stages {
		assert.GreaterOrEqual(t, s, TempoMin)
		assert.LessOrEqual(t, s, TempoMax)
		product *= s
	}
	assert.InDelta(t, 0.2, product, 1e-9)
}

func TestPitchSampleRateRatio(t *testing.T) {
	assert.InDelta(t, 2.0, PitchSampleRateRatio(12), 1e-9)
	assert.InDelta(t, 0.5, PitchSampleRateRatio(-12), 1e-9)
	assert.InDelta(t, 1.0, PitchSampleRateRatio(0), 1e-9)
}

func TestEffectiveTempo_NoPitchChange(t *testing.T) {
	assert.InDelta(t, 1.5, EffectiveTempo(1.5, 0), 1e-9)
}

func TestRebuildCoalescing(t *testing.T) {
	runner := &countingRunner{}
	g := NewGraph(2, 48000, runner)

	g.SetGainDB(3.0)
	g.SetExternal(FilterReverb, true, ExternalParams{"wet": 0.5})

	buf := models.NewAudioBuffer(64, 2, 48000)
	require.NoError(t, g.Process(buf))

	assert.Equal(t, 1, runner.reconfigures, "two mutations before the first Process should coalesce into one rebuild")
}

func TestTailRetainedAfterRebuild(t *testing.T) {
	runner := &countingRunner{}
	g := NewGraph(1, 48000, runner)
	g.SetGainDB(-3.0) // active, non-bypass

	buf := models.NewAudioBuffer(512, 1, 48000)
	for i := range buf.Samples {
		buf.Samples[i] = 1.0
	}
	require.NoError(t, g.Process(buf))

	// The first Process rebuilds the graph; no tail existed yet to
	// crossfade against, but this call's tail is now retained for the
	// next rebuild's crossfade.
	assert.NotEmpty(t, g.tail)
}

func TestDelayLineDelaysSamplesBySampleCount(t *testing.T) {
	g := NewGraph(1, 1000, nil) // 1000 Hz, 10ms => 10 frames of delay
	g.SetDelayMS(10)

	buf := models.NewAudioBuffer(20, 1, 1000)
	for i := range buf.Samples {
		buf.Samples[i] = float32(i + 1)
	}
	require.NoError(t, g.Process(buf))

	for i := 0; i < 10; i++ {
		assert.Equal(t, float32(0), buf.Samples[i], "first 10 frames should be silence from the empty delay line")
	}
	for i := 10; i < 20; i++ {
		assert.Equal(t, float32(i-10+1), buf.Samples[i], "frame %d should be the input delayed by 10 frames", i)
	}
}

func TestDelayLineResetsWhenDisabled(t *testing.T) {
	g := NewGraph(1, 1000, nil)
	g.SetDelayMS(10)
	buf := models.NewAudioBuffer(20, 1, 1000)
	require.NoError(t, g.Process(buf))

	g.SetDelayMS(0)
	buf2 := models.NewAudioBuffer(5, 1, 1000)
	for i := range buf2.Samples {
		buf2.Samples[i] = 9.0
	}
	require.NoError(t, g.Process(buf2))
	assert.Equal(t, []float32{9, 9, 9, 9, 9}, buf2.Samples, "disabling delay should pass samples through unchanged")
}

func TestSoftClipIsReachableThroughSetter(t *testing.T) {
	g := NewGraph(1, 48000, nil)
	g.SetSoftClip("tanh")
	assert.False(t, g.Config().IsBypass())

	buf := models.NewAudioBuffer(4, 1, 48000)
	for i := range buf.Samples {
		buf.Samples[i] = 2.0 // well above tanh's saturation range
	}
	require.NoError(t, g.Process(buf))
	for _, s := range buf.Samples {
		assert.Less(t, s, float32(1.0), "tanh soft-clip should compress samples below 1.0")
	}
}

func TestSoftClipDisabledByEmptyKind(t *testing.T) {
	g := NewGraph(1, 48000, nil)
	g.SetSoftClip("tanh")
	g.SetSoftClip("")
	assert.True(t, g.Config().IsBypass())
}

type countingRunner struct {
	reconfigures int
}

func (r *countingRunner) Reconfigure(spec string) error {
	r.reconfigures++
	return nil
}

func (r *countingRunner) Process(buf *models.AudioBuffer) error { return nil }
func (r *countingRunner) Close() error                           { return nil }
