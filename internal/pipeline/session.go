package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/loomaudio/streamcore/internal/config"
	streamerrors "github.com/loomaudio/streamcore/internal/errors"
	"github.com/loomaudio/streamcore/internal/logging"
	"github.com/loomaudio/streamcore/internal/mediaio"
	"github.com/loomaudio/streamcore/internal/metrics"
	"github.com/loomaudio/streamcore/internal/models"
	"github.com/loomaudio/streamcore/internal/renderer"
	"github.com/loomaudio/streamcore/internal/sink"
)

// sessionFrames is the frame count each decode-activity read asks for;
// chosen to keep renderer queue granularity fine enough for the 32-
// sample drift ramp without oversubscribing the decode loop.
const sessionFrames = 1024

// session is one Play() invocation's cooperating activities: a decode-
// read activity feeding the renderer queue, and the hardware sink
// calling back into the renderer's Pull. Grounded on the teacher's
// processSource goroutine shape (internal/audiocore/manager.go),
// generalized from "N sources into one channel" to "one source into
// one bounded queue".
type session struct {
	id     string
	url    string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	conn    *mediaio.Connection
	rnd     *renderer.Renderer
	snk     *sink.Sink
	sinkCfg sink.Config
	clock   *models.AVClock
	eng     *config.Engine

	onError func(kind models.ErrorKind, err error)
	onEOF   func()
	abLoop  func() *ABLoop

	seekMu      sync.Mutex
	pendingSeek *float64
}

func (s *session) requestSeek(t float64) {
	s.seekMu.Lock()
	s.pendingSeek = &t
	s.seekMu.Unlock()
}

func (s *session) takeSeek() (float64, bool) {
	s.seekMu.Lock()
	defer s.seekMu.Unlock()
	if s.pendingSeek == nil {
		return 0, false
	}
	t := *s.pendingSeek
	s.pendingSeek = nil
	return t, true
}

func (s *session) wait() { s.wg.Wait() }

// run connects, starts the hardware sink, and drives the decode loop
// until cancellation or a terminal error. onPlaying is invoked once, after
// the first non-empty read is decoded and before it is enqueued.
func (s *session) run(onPlaying func()) {
	s.wg.Add(1)
	defer s.wg.Done()

	log := logging.ForComponent("pipeline.session")

	dec, info, err := s.conn.Open(s.ctx, s.url)
	if err != nil {
		metrics.Get().RecordDecodeError(string(streamerrors.CategoryOf(err)))
		s.onError(classifyOpenErr(err), err)
		return
	}
	defer dec.Close()

	s.rnd.SetSessionID(s.id)

	log.Info("session connected", "session_id", s.id, "url", s.url, "codec", info.AudioCodec, "sample_rate", info.SampleRate)

	// TODO: local sources whose native sample rate differs from the
	// hardware rate play back at the wrong pitch/speed until a
	// resampler is wired into this loop; every network source already
	// arrives at the hardware rate because Connection requests it from
	// the external decode process directly.

	s.snk = sink.New(s.sinkCfg)
	if err := s.snk.Start(s.ctx, s.rnd.Pull); err != nil {
		s.onError(models.ErrorKindResourceAllocationFailed, err)
		return
	}
	defer func() { _ = s.snk.Stop() }()

	stallDeadline := 2 * time.Second
	if s.eng != nil && s.eng.SilentStallDeadline > 0 {
		stallDeadline = s.eng.SilentStallDeadline
	}

	var firstFrame sync.Once
	deadline := time.Now().Add(stallDeadline)
	framesSeen := false

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		if !framesSeen && time.Now().After(deadline) {
			s.onError(models.ErrorKindNoAudioStream, streamerrors.Newf("no audio frames decoded within stall deadline").
				Component("pipeline").Category(streamerrors.CategoryNoAudioStream).Build())
			return
		}

		if t, ok := s.takeSeek(); ok {
			s.rnd.FlushQueue()
			s.clock.SetAudio(t)
			log.Info("seek requested", "session_id", s.id, "target_seconds", t)
		}

		if loop := s.abLoop(); loop != nil {
			if s.clock.Audio() >= loop.B {
				s.rnd.FlushQueue()
				s.clock.SetAudio(loop.A)
				log.Debug("a-b loop wrapped", "session_id", s.id, "a", loop.A, "b", loop.B)
			}
		}

		buf := models.NewAudioBuffer(sessionFrames, info.ChannelCount, int(s.sinkCfg.SampleRate))
		n, rerr := mediaio.ReadWithRetry(dec, buf)
		if rerr != nil && rerr != io.EOF {
			metrics.Get().RecordDecodeError(string(streamerrors.CategoryOf(rerr)))
			s.onError(models.ErrorKindNetworkDisconnected, rerr)
			return
		}
		if n == 0 {
			s.onEOF()
			return
		}
		if n < buf.FrameCount {
			buf.FrameCount = n
			buf.Samples = buf.Samples[:n*buf.ChannelCount]
		}

		framesSeen = true
		firstFrame.Do(onPlaying)

		for !s.rnd.Enqueue(buf) {
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(5 * time.Millisecond):
			}
		}

		s.clock.AdvanceAudio(float64(buf.FrameCount) / float64(s.sinkCfg.SampleRate))
	}
}

func classifyOpenErr(err error) models.ErrorKind {
	switch streamerrors.CategoryOf(err) {
	case streamerrors.CategoryConnectionTimeout:
		return models.ErrorKindConnectionTimeout
	case streamerrors.CategoryUnsupportedFormat:
		return models.ErrorKindUnsupportedFormat
	case streamerrors.CategoryNoAudioStream:
		return models.ErrorKindNoAudioStream
	default:
		return models.ErrorKindConnectionFailed
	}
}
