package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeF32LE(t *testing.T) {
	in := []float32{1.0, -1.0, 0.5}
	out := make([]byte, len(in)*4)
	encodeF32LE(in, out)

	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3F}, out[0:4])
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0xBF}, out[4:8])
}

func TestNewDefaults(t *testing.T) {
	s := New(Config{})
	assert.Equal(t, uint32(48000), s.config.SampleRate)
	assert.Equal(t, uint32(2), s.config.Channels)
	assert.False(t, s.IsRunning())
}

func TestBackendForPlatformSupported(t *testing.T) {
	_, err := backendForPlatform()
	assert.NoError(t, err, "linux/windows/darwin are all supported")
}
