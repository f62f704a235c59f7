package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudioBufferValidate(t *testing.T) {
	b := NewAudioBuffer(128, 2, 48000)
	require.NoError(t, b.Validate())
	assert.Len(t, b.Samples, 256)

	b.Samples = b.Samples[:10]
	assert.Error(t, b.Validate())
}

func TestAudioBufferFramesRemaining(t *testing.T) {
	b := NewAudioBuffer(100, 2, 48000)
	assert.Equal(t, 40, b.FramesRemaining(60))
	assert.Equal(t, 0, b.FramesRemaining(200))
}

func TestStreamInfoDerivedProperties(t *testing.T) {
	flacCD := StreamInfo{HasAudio: true, AudioCodec: "flac", SampleRate: 48000, BitDepth: 16}
	assert.True(t, flacCD.IsLossless())
	assert.False(t, flacCD.IsHiRes())
	assert.Equal(t, "Lossless", flacCD.QualityLabel())

	flacHiRes := StreamInfo{HasAudio: true, AudioCodec: "flac", SampleRate: 96000, BitDepth: 24}
	assert.True(t, flacHiRes.IsHiRes())
	assert.Equal(t, "Hi-Res Lossless", flacHiRes.QualityLabel())

	mp3 := StreamInfo{HasAudio: true, AudioCodec: "mp3", SampleRate: 44100, BitDepth: 16}
	assert.False(t, mp3.IsLossless())
	assert.Equal(t, "Lossy", mp3.QualityLabel())

	noAudio := StreamInfo{HasAudio: false}
	assert.Equal(t, "No Audio", noAudio.QualityLabel())
}

func TestEqBandTable(t *testing.T) {
	require.Equal(t, BandCount, len(EqBandTable))
	assert.Equal(t, 1000.0, EqBandTable[Band1kHz].CenterHz)
	assert.Equal(t, 0.8, EqBandTable[Band1kHz].Q)
	assert.Equal(t, "1kHz", Band1kHz.String())
}

func TestClampGainDB(t *testing.T) {
	g, clamped := ClampGainDB(20.0)
	assert.Equal(t, 12.0, g)
	assert.True(t, clamped)

	g, clamped = ClampGainDB(-20.0)
	assert.Equal(t, -12.0, g)
	assert.True(t, clamped)

	g, clamped = ClampGainDB(3.5)
	assert.Equal(t, 3.5, g)
	assert.False(t, clamped)
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, CanTransition(StateIdle, StateConnecting))
	assert.True(t, CanTransition(StateConnecting, StatePlaying))
	assert.True(t, CanTransition(StatePlaying, StatePaused))
	assert.True(t, CanTransition(StatePaused, StatePlaying))
	assert.True(t, CanTransition(StatePlaying, StateError))
	assert.False(t, CanTransition(StateIdle, StatePlaying))
	assert.False(t, CanTransition(StateStopped, StatePlaying))
}

func TestAVClockSync(t *testing.T) {
	c := NewAVClock()
	c.SetAudio(10.0)

	action, _ := c.Sync(10.0)
	assert.Equal(t, AVDisplay, action)

	action, _ = c.Sync(9.9)
	assert.Equal(t, AVDrop, action)

	action, delta := c.Sync(10.1)
	assert.Equal(t, AVRepeatPrevious, action)
	assert.InDelta(t, 0.1, delta, 1e-9)

	action, delta = c.Sync(9.97)
	assert.Equal(t, AVDisplay, action)
	assert.InDelta(t, 0.0, delta, 1e-9)
}
