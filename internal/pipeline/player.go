// Package pipeline implements the Player façade of spec.md §4.1: the
// orchestrator that drives a session from a URL to silence, owning the
// connection, decode loop, renderer, hardware sink, and A/V clock for
// exactly one active session at a time.
package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/loomaudio/streamcore/internal/config"
	"github.com/loomaudio/streamcore/internal/effects"
	streamerrors "github.com/loomaudio/streamcore/internal/errors"
	"github.com/loomaudio/streamcore/internal/eq"
	"github.com/loomaudio/streamcore/internal/logging"
	"github.com/loomaudio/streamcore/internal/mediaio"
	"github.com/loomaudio/streamcore/internal/metrics"
	"github.com/loomaudio/streamcore/internal/models"
	"github.com/loomaudio/streamcore/internal/renderer"
	"github.com/loomaudio/streamcore/internal/sink"
)

// StateObserver is notified on every playback state transition.
type StateObserver func(from, to models.PlaybackState)

// ABLoop holds an active A-B loop range, in seconds.
type ABLoop struct {
	A, B float64
}

// Player is the pipeline orchestrator: a façade over one session at a
// time, grounded on the teacher's managerImpl (internal/audiocore/
// manager.go) generalized from "many sources feeding one output
// channel" to "one session driving connection, renderer, and sink".
type Player struct {
	conn      *mediaio.Connection
	graph     *effects.Graph
	equalizer *eq.TenBandEQ
	eng       *config.Engine
	sinkCfg   sink.Config

	mu        sync.Mutex
	state     models.PlaybackState
	session   *session
	abLoop    *ABLoop
	observers []StateObserver

	clock *models.AVClock
}

// New constructs a Player. graph and equalizer may be nil to run
// without effects/EQ (pass-through PCM).
func New(conn *mediaio.Connection, graph *effects.Graph, equalizer *eq.TenBandEQ, eng *config.Engine, sinkCfg sink.Config) *Player {
	if eng == nil {
		eng = config.Defaults()
	}
	if sinkCfg.SampleRate == 0 {
		sinkCfg.SampleRate = 48000
	}
	if sinkCfg.Channels == 0 {
		sinkCfg.Channels = 2
	}
	return &Player{
		conn:      conn,
		graph:     graph,
		equalizer: equalizer,
		eng:       eng,
		sinkCfg:   sinkCfg,
		state:     models.StateIdle,
		clock:     models.NewAVClock(),
	}
}

// Observe registers a state-transition observer.
func (p *Player) Observe(obs StateObserver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, obs)
}

// State returns the current playback state.
func (p *Player) State() models.PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Clock returns the player's A/V clock (audio master).
func (p *Player) Clock() *models.AVClock { return p.clock }

func (p *Player) transition(to models.PlaybackState) error {
	p.mu.Lock()
	from := p.state
	if !models.CanTransition(from, to) {
		p.mu.Unlock()
		return &models.InvalidTransitionError{From: from, To: to}
	}
	p.state = to
	observers := append([]StateObserver(nil), p.observers...)
	p.mu.Unlock()

	for _, obs := range observers {
		obs(from, to)
	}
	return nil
}

// Play transitions idle->connecting and spawns the session task. It
// returns immediately; connection failures surface asynchronously via
// error(kind) state transitions observable through Observe.
func (p *Player) Play(url string) error {
	if err := p.transition(models.StateConnecting); err != nil {
		return err
	}

	log := logging.ForComponent("pipeline.player")
	id := uuid.New().String()

	ctx, cancel := context.WithCancel(context.Background())
	rnd := renderer.New(int(p.sinkCfg.Channels), int(p.sinkCfg.SampleRate), p.eng, p.graph, p.equalizer, nil)
	s := &session{
		id:      id,
		url:     url,
		ctx:     ctx,
		cancel:  cancel,
		conn:    p.conn,
		rnd:     rnd,
		sinkCfg: p.sinkCfg,
		clock:   p.clock,
		eng:     p.eng,
		onError: func(kind models.ErrorKind, err error) {
			log.Error("session error", "session_id", id, "kind", kind, "error", err)
			p.enterError(kind)
		},
		onEOF: func() {
			log.Info("session reached end of stream", "session_id", id)
			metrics.Get().RecordSessionStopped("eof")
			// stopInternal waits on this session's goroutine via
			// s.wait(); run it from a fresh goroutine since onEOF fires
			// from inside session.run itself.
			go func() { _ = p.stopInternal() }()
		},
		abLoop: func() *ABLoop {
			p.mu.Lock()
			defer p.mu.Unlock()
			return p.abLoop
		},
	}

	p.mu.Lock()
	p.session = s
	p.mu.Unlock()

	go s.run(func() {
		_ = p.transition(models.StatePlaying)
		metrics.Get().RecordSessionStarted()
		log.Info("session playing", "session_id", id, "url", url)
	})

	return nil
}

func (p *Player) enterError(kind models.ErrorKind) {
	metrics.Get().RecordSessionStopped("error")

	p.mu.Lock()
	from := p.state
	p.state = models.StateError
	observers := append([]StateObserver(nil), p.observers...)
	p.mu.Unlock()
	_ = kind
	for _, obs := range observers {
		obs(from, models.StateError)
	}
}

// Pause suspends the hardware sink without tearing down decoders.
func (p *Player) Pause() error {
	if err := p.transition(models.StatePaused); err != nil {
		return err
	}
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()
	if s != nil {
		s.rnd.Pause()
	}
	return nil
}

// Resume resumes a paused session.
func (p *Player) Resume() error {
	if err := p.transition(models.StatePlaying); err != nil {
		return err
	}
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()
	if s != nil {
		s.rnd.Resume()
	}
	return nil
}

// Seek hands t to the active session's decode loop, which flushes the
// renderer queue and sets the audio clock to t. The decoder is not
// repositioned: decoding continues from its current stream position.
func (p *Player) Seek(t float64) error {
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()
	if s == nil {
		return streamerrors.Newf("pipeline: seek with no active session").
			Component("pipeline").Category(streamerrors.CategoryInvalidParameter).Build()
	}
	s.requestSeek(t)
	return nil
}

// Stop cancels the session task, tears down all owned resources, and
// transitions to stopped.
func (p *Player) Stop() error {
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()
	if s != nil {
		metrics.Get().RecordSessionStopped("stop")
	}
	return p.stopInternal()
}

// stopInternal tears down the active session without recording a stop
// reason itself, since callers that already know the reason (explicit
// Stop, end-of-stream) record it before calling this.
func (p *Player) stopInternal() error {
	p.mu.Lock()
	s := p.session
	p.session = nil
	p.mu.Unlock()

	if s != nil {
		s.cancel()
		s.wait()
	}

	return p.transition(models.StateStopped)
}

// SetABLoop arms an A-B loop: when the audio clock crosses b, the
// orchestrator issues an internal seek to a.
func (p *Player) SetABLoop(a, b float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.abLoop = &ABLoop{A: a, B: b}
}

// ClearABLoop disarms any active A-B loop.
func (p *Player) ClearABLoop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.abLoop = nil
}
