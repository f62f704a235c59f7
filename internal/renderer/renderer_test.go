package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/loomaudio/streamcore/internal/models"
)

func TestQueueFillFromAcrossBuffers(t *testing.T) {
	q := NewQueue(10)
	b1 := models.NewAudioBuffer(4, 1, 48000)
	for i := range b1.Samples {
		b1.Samples[i] = float32(i + 1)
	}
	b2 := models.NewAudioBuffer(4, 1, 48000)
	for i := range b2.Samples {
		b2.Samples[i] = float32(i + 10)
	}
	require.True(t, q.Enqueue(b1))
	require.True(t, q.Enqueue(b2))

	out := make([]float32, 6)
	n := q.fillFrom(out, 6, 1)
	assert.Equal(t, 6, n)
	assert.Equal(t, []float32{1, 2, 3, 4, 10, 11}, out)
	assert.Equal(t, 1, q.Len()) // b2 partially consumed, still queued
}

func TestQueueFillFromEmptyReturnsZero(t *testing.T) {
	q := NewQueue(10)
	out := make([]float32, 4)
	n := q.fillFrom(out, 4, 1)
	assert.Equal(t, 0, n)
}

func TestQueueFlushDropsEverything(t *testing.T) {
	q := NewQueue(10)
	require.True(t, q.Enqueue(models.NewAudioBuffer(4, 1, 48000)))
	q.Flush()
	assert.Equal(t, 0, q.Len())
}

func TestQueueBackpressure(t *testing.T) {
	q := NewQueue(1)
	assert.True(t, q.Enqueue(models.NewAudioBuffer(4, 1, 48000)))
	assert.False(t, q.Enqueue(models.NewAudioBuffer(4, 1, 48000)))
}

func TestPullZeroFillsOnUnderrun(t *testing.T) {
	r := New(2, 48000, nil, nil, nil, nil)
	out := make([]float32, 8) // 4 frames * 2 channels
	n := r.Pull(out, 4)
	assert.Equal(t, 4, n)
	for _, s := range out {
		assert.Equal(t, float32(0), s)
	}
}

func TestPullDrainsQueueThenZeroFills(t *testing.T) {
	r := New(1, 48000, nil, nil, nil, nil)
	buf := models.NewAudioBuffer(2, 1, 48000)
	buf.Samples[0], buf.Samples[1] = 0.5, 0.6
	require.True(t, r.Enqueue(buf))

	out := make([]float32, 4)
	n := r.Pull(out, 4)
	assert.Equal(t, 4, n)
	assert.InDelta(t, 0.5, out[0], 1e-6)
	assert.InDelta(t, 0.6, out[1], 1e-6)
	assert.Equal(t, float32(0), out[2])
	assert.Equal(t, float32(0), out[3])
}

func TestPausedRendersSilence(t *testing.T) {
	r := New(1, 48000, nil, nil, nil, nil)
	buf := models.NewAudioBuffer(4, 1, 48000)
	for i := range buf.Samples {
		buf.Samples[i] = 1.0
	}
	require.True(t, r.Enqueue(buf))
	r.Pause()

	out := make([]float32, 4)
	r.Pull(out, 4)
	for _, s := range out {
		assert.Equal(t, float32(0), s)
	}
}

func TestDriftRampSmoothsDiscontinuity(t *testing.T) {
	r := New(1, 48000, nil, nil, nil, nil)
	r.lastFrame[0] = 1.0
	r.initialized = true // simulate a previous callback having already run

	buf := models.NewAudioBuffer(40, 1, 48000)
	for i := range buf.Samples {
		buf.Samples[i] = -1.0 // large jump from +1.0 triggers the ramp
	}
	require.True(t, r.Enqueue(buf))

	out := make([]float32, 40)
	r.Pull(out, 40)

	// First ramp frame should be blended, not the raw -1.0 jump.
	assert.Greater(t, out[0], float32(-1.0))
	// Well past the ramp window, the signal settles at its true value.
	assert.InDelta(t, -1.0, out[39], 1e-6)
}

func TestFirstPullNeverRampsAgainstZeroedLastFrame(t *testing.T) {
	r := New(1, 48000, nil, nil, nil, nil)
	buf := models.NewAudioBuffer(8, 1, 48000)
	for i := range buf.Samples {
		buf.Samples[i] = 0.5 // would exceed the 0.3 drift threshold vs. a zeroed lastFrame
	}
	require.True(t, r.Enqueue(buf))

	out := make([]float32, 8)
	r.Pull(out, 8)

	for i, s := range out {
		assert.InDelta(t, 0.5, s, 1e-6, "frame %d should pass through untouched on the first Pull", i)
	}
}

func TestPullAfterFlushSkipsRampToo(t *testing.T) {
	r := New(1, 48000, nil, nil, nil, nil)
	buf := models.NewAudioBuffer(8, 1, 48000)
	for i := range buf.Samples {
		buf.Samples[i] = 1.0
	}
	require.True(t, r.Enqueue(buf))
	r.Pull(make([]float32, 8), 8) // establish a non-zero lastFrame

	r.FlushQueue()

	buf2 := models.NewAudioBuffer(8, 1, 48000)
	for i := range buf2.Samples {
		buf2.Samples[i] = -1.0 // large jump from +1.0, but this follows a flush (a seek)
	}
	require.True(t, r.Enqueue(buf2))

	out := make([]float32, 8)
	r.Pull(out, 8)
	for i, s := range out {
		assert.InDelta(t, -1.0, s, 1e-6, "frame %d should not be ramped after a flush", i)
	}
}

func TestRendererNoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := New(2, 48000, nil, nil, nil, nil)
	out := make([]float32, 8)
	r.Pull(out, 4)
}
