package mediaio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomaudio/streamcore/internal/models"
)

func TestIsLocalFile(t *testing.T) {
	assert.True(t, IsLocalFile("file:///tmp/x.flac"))
	assert.True(t, IsLocalFile("/tmp/x.flac"))
	assert.False(t, IsLocalFile("https://example.com/x.mp3"))
	assert.False(t, IsLocalFile("rtsp://example.com/stream"))
}

func TestLocalFilePath(t *testing.T) {
	assert.Equal(t, "/tmp/x.flac", LocalFilePath("file:///tmp/x.flac"))
	assert.Equal(t, "/tmp/x.flac", LocalFilePath("/tmp/x.flac"))
}

func TestProbeCacheRoundTrip(t *testing.T) {
	c := NewProbeCache()
	_, ok := c.Get("file:///tmp/missing.flac")
	assert.False(t, ok)

	info := models.StreamInfo{URL: "file:///tmp/x.flac", AudioCodec: "flac", SampleRate: 48000}
	c.Set(info.URL, info)

	got, ok := c.Get(info.URL)
	require.True(t, ok)
	assert.Equal(t, info, got)

	c.Invalidate(info.URL)
	_, ok = c.Get(info.URL)
	assert.False(t, ok)
}

func TestDecodeF32LE(t *testing.T) {
	// Two Float32LE samples: 1.0 and -1.0.
	raw := []byte{0x00, 0x00, 0x80, 0x3F, 0x00, 0x00, 0x80, 0xBF}
	out := make([]float32, 2)
	decodeF32LE(raw, out)
	assert.InDelta(t, 1.0, out[0], 1e-6)
	assert.InDelta(t, -1.0, out[1], 1e-6)
}

func TestReadWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	dec := &flakyDecoder{failuresRemaining: 3}
	buf := models.NewAudioBuffer(64, 2, 48000)

	n, err := ReadWithRetry(dec, buf)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	assert.Equal(t, 4, dec.calls)
}

func TestReadWithRetry_EscalatesAfterBudgetExhausted(t *testing.T) {
	dec := &flakyDecoder{failuresRemaining: MaxReadRetries + 5}
	buf := models.NewAudioBuffer(64, 2, 48000)

	_, err := ReadWithRetry(dec, buf)
	require.Error(t, err)
	assert.Equal(t, MaxReadRetries, dec.calls)
}

type flakyDecoder struct {
	failuresRemaining int
	calls             int
}

func (d *flakyDecoder) StreamInfo() models.StreamInfo { return models.StreamInfo{} }

func (d *flakyDecoder) ReadInto(buf *models.AudioBuffer) (int, error) {
	d.calls++
	if d.failuresRemaining > 0 {
		d.failuresRemaining--
		return 0, assert.AnError
	}
	return buf.FrameCount, nil
}

func (d *flakyDecoder) Close() error { return nil }
