package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	streamerrors "github.com/loomaudio/streamcore/internal/errors"
	"github.com/loomaudio/streamcore/internal/mediaio"
	"github.com/loomaudio/streamcore/internal/models"
	"github.com/loomaudio/streamcore/internal/sink"
)

func TestNewAppliesSinkDefaults(t *testing.T) {
	conn := mediaio.NewConnection("ffmpeg", 48000, 2, 16)
	p := New(conn, nil, nil, nil, sink.Config{})
	assert.Equal(t, uint32(48000), p.sinkCfg.SampleRate)
	assert.Equal(t, uint32(2), p.sinkCfg.Channels)
	assert.Equal(t, models.StateIdle, p.State())
}

func TestPauseFromIdleIsInvalidTransition(t *testing.T) {
	conn := mediaio.NewConnection("ffmpeg", 48000, 2, 16)
	p := New(conn, nil, nil, nil, sink.Config{})
	err := p.Pause()
	require.Error(t, err)
	var transErr *models.InvalidTransitionError
	assert.ErrorAs(t, err, &transErr)
}

func TestSeekWithoutSessionIsInvalidParameter(t *testing.T) {
	conn := mediaio.NewConnection("ffmpeg", 48000, 2, 16)
	p := New(conn, nil, nil, nil, sink.Config{})
	err := p.Seek(5.0)
	require.Error(t, err)
	assert.True(t, streamerrors.IsCategory(err, streamerrors.CategoryInvalidParameter))
}

func TestObserveFiresOnTransition(t *testing.T) {
	conn := mediaio.NewConnection("ffmpeg", 48000, 2, 16)
	p := New(conn, nil, nil, nil, sink.Config{})

	var got []models.PlaybackState
	p.Observe(func(from, to models.PlaybackState) {
		got = append(got, to)
	})

	require.NoError(t, p.transition(models.StateConnecting))
	require.Equal(t, []models.PlaybackState{models.StateConnecting}, got)
}

func TestSetAndClearABLoop(t *testing.T) {
	conn := mediaio.NewConnection("ffmpeg", 48000, 2, 16)
	p := New(conn, nil, nil, nil, sink.Config{})

	p.SetABLoop(5.0, 10.0)
	p.mu.Lock()
	loop := p.abLoop
	p.mu.Unlock()
	require.NotNil(t, loop)
	assert.Equal(t, 5.0, loop.A)
	assert.Equal(t, 10.0, loop.B)

	p.ClearABLoop()
	p.mu.Lock()
	loop = p.abLoop
	p.mu.Unlock()
	assert.Nil(t, loop)
}

func TestSessionSeekRequestRoundTrip(t *testing.T) {
	s := &session{}
	_, ok := s.takeSeek()
	assert.False(t, ok)

	s.requestSeek(12.5)
	t_, ok := s.takeSeek()
	require.True(t, ok)
	assert.Equal(t, 12.5, t_)

	// consumed once
	_, ok = s.takeSeek()
	assert.False(t, ok)
}

func TestClassifyOpenErr(t *testing.T) {
	timeoutErr := streamerrors.New(errors.New("boom")).
		Category(streamerrors.CategoryConnectionTimeout).Build()
	assert.Equal(t, models.ErrorKindConnectionTimeout, classifyOpenErr(timeoutErr))

	unsupportedErr := streamerrors.New(errors.New("boom")).
		Category(streamerrors.CategoryUnsupportedFormat).Build()
	assert.Equal(t, models.ErrorKindUnsupportedFormat, classifyOpenErr(unsupportedErr))

	genericErr := errors.New("plain")
	assert.Equal(t, models.ErrorKindConnectionFailed, classifyOpenErr(genericErr))
}
