package renderer

import (
	"sync"
	"sync/atomic"

	"github.com/loomaudio/streamcore/internal/config"
	"github.com/loomaudio/streamcore/internal/eq"
	"github.com/loomaudio/streamcore/internal/metrics"
	"github.com/loomaudio/streamcore/internal/models"
)

// RawTap receives every rendered buffer before it reaches the hardware
// sink, for the optional raw-audio observer of spec §4.4 step 7.
type RawTap func(samples []float32, frames, channels, sampleRate int)

// SpectrumTap receives every rendered buffer for the spectrum feed's
// ring-accumulator, non-blocking per spec §4.4 step 6.
type SpectrumTap func(samples []float32, channels int)

// Repairer applies an optional repair engine under the same real-time
// contract as the effect chain (spec §4.4 step 5).
type Repairer interface {
	Repair(buf *models.AudioBuffer) error
}

// EffectProcessor is satisfied by *effects.Graph; declared as an
// interface here so renderer does not import effects, avoiding an
// import cycle (effects imports mediaio, which has no reason to import
// renderer, but keeping the dependency direction one-way is cleaner).
type EffectProcessor interface {
	Process(buf *models.AudioBuffer) error
}

// Renderer implements the render callback contract of spec §4.4:
// queue drain, zero-fill-on-underrun, effect chain, EQ, repair,
// spectrum/raw taps, and drift-smoothing across a graph rebuild.
type Renderer struct {
	queue      *Queue
	channels   int
	sampleRate int

	effects EffectProcessor
	eq      *eq.TenBandEQ
	repair  Repairer

	rawTap      RawTap
	spectrumTap SpectrumTap

	driftRampSamples int
	driftThreshold   float64

	mu          sync.Mutex
	lastFrame   []float32 // last rendered frame, for drift detection
	initialized bool      // false until the first Pull has produced a frame
	paused      atomic.Bool

	sessionID string
}

// New constructs a Renderer. effects/repair may be nil to skip those
// stages (e.g. bypass effect chain, no repair engine configured).
func New(channels, sampleRate int, eng *config.Engine, effects EffectProcessor, equalizer *eq.TenBandEQ, repair Repairer) *Renderer {
	capacity := 200
	rampSamples := 32
	threshold := 0.3
	if eng != nil {
		if eng.MaxQueuedBuffers > 0 {
			capacity = eng.MaxQueuedBuffers
		}
		if eng.DriftRampSamples > 0 {
			rampSamples = eng.DriftRampSamples
		}
		if eng.DriftThreshold > 0 {
			threshold = eng.DriftThreshold
		}
	}
	return &Renderer{
		queue:            NewQueue(capacity),
		channels:         channels,
		sampleRate:       sampleRate,
		effects:          effects,
		eq:               equalizer,
		repair:           repair,
		driftRampSamples: rampSamples,
		driftThreshold:   threshold,
		lastFrame:        make([]float32, channels),
	}
}

// SetSessionID tags this renderer's metrics with sessionID, for hosts
// running more than one Player concurrently.
func (r *Renderer) SetSessionID(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionID = sessionID
}

// SetRawTap registers or clears the raw-audio observer.
func (r *Renderer) SetRawTap(tap RawTap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rawTap = tap
}

// SetSpectrumTap registers or clears the spectrum feed observer.
func (r *Renderer) SetSpectrumTap(tap SpectrumTap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spectrumTap = tap
}

// Enqueue hands a decoded buffer to the render queue. Returns false on
// backpressure (queue full); the decode activity should retry.
func (r *Renderer) Enqueue(buf *models.AudioBuffer) bool {
	return r.queue.Enqueue(buf)
}

// QueueDepth reports the number of buffers currently queued, for
// metrics and backpressure decisions.
func (r *Renderer) QueueDepth() int { return r.queue.Len() }

// Pause suspends PCM generation; Pull then emits silence.
func (r *Renderer) Pause() { r.paused.Store(true) }

// Resume resumes PCM generation after Pause.
func (r *Renderer) Resume() { r.paused.Store(false) }

// FlushQueue discards all queued buffers, per seek's `flush_queue()`.
// The next Pull's first frame is no longer compared against the
// pre-flush tail: a seek legitimately jumps the signal, and ramping
// across that jump would itself be the artifact.
func (r *Renderer) FlushQueue() {
	r.queue.Flush()
	r.mu.Lock()
	r.initialized = false
	r.mu.Unlock()
}

// Pull implements sink.PullFunc: it fills out with frameCount frames,
// running the full render callback contract (spec §4.4 steps 1-7), and
// always returns frameCount: an underrun, including an empty queue at
// end of stream, zero-fills the tail instead (step 2).
func (r *Renderer) Pull(out []float32, frameCount int) int {
	channels := r.channels
	if r.paused.Load() {
		zero(out)
		return frameCount
	}

	filled := r.queue.fillFrom(out, frameCount, channels)
	if filled < frameCount {
		zero(out[filled*channels:])
		metrics.Get().RecordUnderrun(r.sessionID)
	}
	metrics.Get().SetQueueDepth(r.sessionID, r.queue.Len(), r.queue.capacity)

	buf := &models.AudioBuffer{Samples: out, FrameCount: frameCount, ChannelCount: channels, SampleRate: r.sampleRate}

	if r.effects != nil {
		_ = r.effects.Process(buf)
	}
	if r.eq != nil {
		r.eq.Process(buf)
	}
	if r.repair != nil {
		_ = r.repair.Repair(buf)
	}

	r.applyDriftRamp(out, channels)

	r.mu.Lock()
	rawTap, spectrumTap := r.rawTap, r.spectrumTap
	r.mu.Unlock()
	if spectrumTap != nil {
		spectrumTap(out, channels)
	}
	if rawTap != nil {
		rawTap(out, frameCount, channels, r.sampleRate)
	}

	return frameCount
}

// applyDriftRamp detects a discontinuity between this callback's first
// frame and the previous callback's last frame (max per-channel
// absolute difference > driftThreshold) and, if found, blends a
// driftRampSamples-long linear ramp from the previous frame to this
// buffer's output, per spec §4.4's artifact-suppression rule. Skipped
// entirely on the first Pull after construction or a flush, since
// there is no real previous frame yet to ramp from.
func (r *Renderer) applyDriftRamp(out []float32, channels int) {
	if len(out) < channels {
		return
	}

	r.mu.Lock()
	initialized := r.initialized
	r.initialized = true
	r.mu.Unlock()

	if !initialized {
		lastIdx := (len(out)/channels - 1) * channels
		if lastIdx >= 0 {
			copy(r.lastFrame, out[lastIdx:lastIdx+channels])
		}
		return
	}

	drift := 0.0
	for ch := 0; ch < channels; ch++ {
		d := absFloat32(out[ch] - r.lastFrame[ch])
		if d > drift {
			drift = d
		}
	}

	if drift > r.driftThreshold {
		metrics.Get().RecordDriftRamp()
		ramp := r.driftRampSamples
		frames := len(out) / channels
		if ramp > frames {
			ramp = frames
		}
		for frame := 0; frame < ramp; frame++ {
			w := float32(frame+1) / float32(ramp+1)
			for ch := 0; ch < channels; ch++ {
				idx := frame*channels + ch
				out[idx] = (1-w)*r.lastFrame[ch] + w*out[idx]
			}
		}
	}

	lastIdx := (len(out)/channels - 1) * channels
	if lastIdx >= 0 {
		copy(r.lastFrame, out[lastIdx:lastIdx+channels])
	}
}

func zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

func absFloat32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
