package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchesSpecConstants(t *testing.T) {
	e := Defaults()
	assert.Equal(t, 10*time.Second, e.ConnectTimeout)
	assert.Equal(t, 200, e.MaxQueuedBuffers)
	assert.Equal(t, -12.0, e.EQMinGainDB)
	assert.Equal(t, 12.0, e.EQMaxGainDB)
	assert.Equal(t, 200, e.WaveformBins)
	assert.Equal(t, 5*time.Second, e.AlignerWindowBeforeS)
	assert.Equal(t, 10*time.Second, e.AlignerWindowAfterS)
	assert.Equal(t, 0.6, e.AlignerMinSimilarity)
}

func TestLoadWithNoPathReturnsDefaults(t *testing.T) {
	e, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), e)
}

func TestLoadOverlaysYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_queued_buffers: 64\nwaveform_bins: 100\n"), 0o644))

	e, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, e.MaxQueuedBuffers)
	assert.Equal(t, 100, e.WaveformBins)
	// Unrelated defaults are untouched.
	assert.Equal(t, 10*time.Second, e.ConnectTimeout)
}

func TestLoadWithMissingFileFallsBackToDefaults(t *testing.T) {
	e, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), e)
}

func TestLoadOverlaysEnvironmentVariables(t *testing.T) {
	t.Setenv("STREAMCORE_MAX_QUEUED_BUFFERS", "77")
	e, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 77, e.MaxQueuedBuffers)
}
