package effects

import (
	"math"
	"sync"

	"github.com/loomaudio/streamcore/internal/mediaio"
	"github.com/loomaudio/streamcore/internal/metrics"
	"github.com/loomaudio/streamcore/internal/models"
)

// CrossfadeTailFrames and CrossfadeFrames are the retained-tail and
// crossfade-window lengths from spec §4.3: "the last 64 output samples
// are retained for a 256-sample crossfade with the first output of the
// new graph."
const (
	CrossfadeTailFrames = 64
	CrossfadeFrames     = 256
)

// Graph is the rebuildable effect chain wrapping the external media I/O
// library's filter-graph facility (spec §4.3). A single mutex guards
// Config and the dirty bit; parameter setters and the renderer both
// acquire it for short sections, per spec §5.
type Graph struct {
	mu sync.Mutex

	cfg          *Config
	needsRebuild bool
	channels     int
	sampleRate   int

	external mediaio.FilterRunner

	// crossfade state: the last CrossfadeTailFrames frames of output
	// before the most recent rebuild, and how many frames of the new
	// graph's output still need to be blended with it.
	tail          []float32
	crossfadeLeft int

	// delay line state for the native FilterDelay node. Only Process
	// touches this (the render thread is the sole caller), so it needs
	// no lock of its own even though cfg is mutated from other goroutines.
	delayBuf       []float32
	delayPos       int
	delayMSApplied float64
}

// NewGraph constructs a Graph bound to an external filter runner (may be
// nil if the host has not wired one, in which case externally-delegated
// nodes are skipped and only native nodes apply). sampleRate sizes the
// native delay line.
func NewGraph(channels, sampleRate int, external mediaio.FilterRunner) *Graph {
	return &Graph{
		cfg:        NewConfig(),
		channels:   channels,
		sampleRate: sampleRate,
		external:   external,
	}
}

// Config returns the graph's parameter set for read access outside the
// mutex-protected setters below (callers must not mutate concurrently
// with Process; use the Set* methods instead).
func (g *Graph) Config() *Config {
	return g.cfg
}

// withConfig runs fn holding the graph mutex, marking the graph dirty
// afterward — every mutation marks needsRebuild=true per spec §3.
func (g *Graph) withConfig(fn func(*Config)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.cfg)
	g.needsRebuild = true
}

// SetGainDB sets the native gain stage.
func (g *Graph) SetGainDB(db float64) { g.withConfig(func(c *Config) { c.GainDB = db }) }

// SetTempo sets the overall tempo multiplier.
func (g *Graph) SetTempo(tempo float64) { g.withConfig(func(c *Config) { c.Tempo = tempo }) }

// SetPitchSemitones sets the pitch shift in semitones.
func (g *Graph) SetPitchSemitones(s float64) {
	g.withConfig(func(c *Config) { c.PitchSemitones = s })
}

// SetFadeIn configures the fade-in envelope.
func (g *Graph) SetFadeIn(startSample, lengthSamples int) {
	g.withConfig(func(c *Config) {
		c.FadeInStartSample, c.FadeInLengthSamples = startSample, lengthSamples
	})
}

// SetFadeOut configures the fade-out envelope.
func (g *Graph) SetFadeOut(startSample, lengthSamples int) {
	g.withConfig(func(c *Config) {
		c.FadeOutStartSample, c.FadeOutLengthSamples = startSample, lengthSamples
	})
}

// SetDelayMS sets the native delay line length.
func (g *Graph) SetDelayMS(ms float64) { g.withConfig(func(c *Config) { c.DelayMS = ms }) }

// SetSoftClip enables the native soft-clip stage with the given curve
// ("tanh", "atan", or "cubic"); an empty kind disables it.
func (g *Graph) SetSoftClip(kind string) { g.withConfig(func(c *Config) { c.SoftClipType = kind }) }

// SetMono toggles native mono downmix.
func (g *Graph) SetMono(enabled bool) { g.withConfig(func(c *Config) { c.MonoEnabled = enabled }) }

// SetExternal enables/disables an externally-delegated node with
// parameters, e.g. SetExternal(FilterReverb, true, ExternalParams{"dry":0.5,"wet":0.5}).
func (g *Graph) SetExternal(id FilterID, enabled bool, params ExternalParams) {
	g.withConfig(func(c *Config) {
		c.SetEnabled(id, enabled)
		if params != nil {
			c.SetExternalParams(id, params)
		}
	})
}

// Process runs buf through the effect chain in place, rebuilding the
// graph first if any parameter changed since the last call (coalescing
// multiple mutations into a single rebuild per spec §4.3), and applying
// a crossfade against the pre-rebuild tail.
func (g *Graph) Process(buf *models.AudioBuffer) error {
	g.mu.Lock()
	bypass := g.cfg.IsBypass()
	rebuilt := false
	if g.needsRebuild {
		if err := g.rebuildLocked(); err != nil {
			g.mu.Unlock()
			return err
		}
		rebuilt = true
	}
	cfg := g.cfg
	crossfadeLeft := g.crossfadeLeft
	tail := g.tail
	g.mu.Unlock()

	if bypass {
		return nil // zero-copy passthrough, buf left untouched
	}

	applyNative(buf, cfg, g.channels)
	g.applyDelay(buf, cfg.DelayMS, g.channels)

	if g.external != nil {
		if err := g.external.Process(buf); err != nil {
			return err
		}
	}

	if rebuilt {
		g.mu.Lock()
		g.crossfadeLeft = CrossfadeFrames
		g.mu.Unlock()
		crossfadeLeft = CrossfadeFrames
		metrics.Get().RecordGraphRebuild("")
	}
	if crossfadeLeft > 0 && len(tail) > 0 {
		consumed := applyCrossfade(buf, tail, crossfadeLeft, g.channels)
		g.mu.Lock()
		g.crossfadeLeft -= consumed
		g.mu.Unlock()
	}

	captureTail(buf, &g.tail, g.channels)
	return nil
}

// rebuildLocked clears the dirty bit and hands the external runner a
// filter spec built from the current Config; the runner tears down the
// previous graph and discards whatever samples it still held. The
// crossfade tail is not taken here: Process captures it on every call.
// Caller must hold g.mu.
func (g *Graph) rebuildLocked() error {
	g.needsRebuild = false
	if g.external == nil {
		return nil
	}
	spec := BuildFilterSpec(g.cfg)
	return g.external.Reconfigure(spec)
}

// applyDelay runs buf through a feedback-free delay line sized to
// cfg's DelayMS (spec §4.3's Time/delay node), resizing (and clearing)
// the line whenever the requested length changes. Stateful across
// calls, unlike the rest of applyNative, so it lives on Graph rather
// than as a free function.
func (g *Graph) applyDelay(buf *models.AudioBuffer, delayMS float64, channels int) {
	if delayMS <= 0 {
		g.delayBuf = nil
		g.delayPos = 0
		g.delayMSApplied = 0
		return
	}

	if delayMS != g.delayMSApplied || g.sampleRate <= 0 {
		frames := int(delayMS / 1000 * float64(g.sampleRate))
		if frames <= 0 {
			g.delayBuf = nil
			g.delayPos = 0
			g.delayMSApplied = delayMS
			return
		}
		g.delayBuf = make([]float32, frames*channels)
		g.delayPos = 0
		g.delayMSApplied = delayMS
	}
	if len(g.delayBuf) == 0 {
		return
	}

	frames := len(g.delayBuf) / channels
	for f := 0; f < buf.FrameCount; f++ {
		for ch := 0; ch < channels; ch++ {
			idx := f*channels + ch
			lineIdx := g.delayPos*channels + ch
			delayed := g.delayBuf[lineIdx]
			g.delayBuf[lineIdx] = buf.Samples[idx]
			buf.Samples[idx] = delayed
		}
		g.delayPos++
		if g.delayPos >= frames {
			g.delayPos = 0
		}
	}
}

// applyNative runs the natively-implemented effect math (spec §4.3):
// gain, fades, soft-clip, mono downmix. Delay is handled separately by
// Graph.applyDelay since it needs state that persists across calls.
func applyNative(buf *models.AudioBuffer, cfg *Config, channels int) {
	if cfg.GainDB != 0 {
		applyGain(buf.Samples, cfg.GainDB)
	}
	if cfg.FadeInLengthSamples > 0 {
		applyFade(buf.Samples, channels, cfg.FadeInStartSample, cfg.FadeInLengthSamples, true)
	}
	if cfg.FadeOutLengthSamples > 0 {
		applyFade(buf.Samples, channels, cfg.FadeOutStartSample, cfg.FadeOutLengthSamples, false)
	}
	if cfg.SoftClipType != "" {
		applySoftClip(buf.Samples, cfg.SoftClipType)
	}
	if cfg.MonoEnabled && channels >= 2 {
		applyMonoDownmix(buf.Samples, channels)
	}
}

func applyGain(samples []float32, db float64) {
	linear := float32(math.Pow(10, db/20))
	for i := range samples {
		samples[i] *= linear
	}
}

func applyFade(samples []float32, channels, start, length int, in bool) {
	if length <= 0 {
		return
	}
	frameCount := len(samples) / channels
	for frame := 0; frame < frameCount; frame++ {
		rel := frame - start
		if rel < 0 || rel >= length {
			continue
		}
		progress := float64(rel) / float64(length)
		var gain float64
		if in {
			gain = progress
		} else {
			gain = 1 - progress
		}
		for ch := 0; ch < channels; ch++ {
			samples[frame*channels+ch] *= float32(gain)
		}
	}
}

func applySoftClip(samples []float32, kind string) {
	for i, s := range samples {
		x := float64(s)
		switch kind {
		case "atan":
			samples[i] = float32(math.Atan(x) * 2 / math.Pi)
		case "cubic":
			if x > 1 {
				x = 1
			} else if x < -1 {
				x = -1
			}
			samples[i] = float32(x - (x*x*x)/3)
		default: // "tanh"
			samples[i] = float32(math.Tanh(x))
		}
	}
}

func applyMonoDownmix(samples []float32, channels int) {
	frameCount := len(samples) / channels
	for frame := 0; frame < frameCount; frame++ {
		sum := float32(0)
		base := frame * channels
		for ch := 0; ch < channels; ch++ {
			sum += samples[base+ch]
		}
		avg := sum / float32(channels)
		for ch := 0; ch < channels; ch++ {
			samples[base+ch] = avg
		}
	}
}

// applyCrossfade blends the first min(crossfadeLeft, frameCount) frames
// of buf with the stored tail, linearly ramping from tail to buf across
// CrossfadeFrames total frames, and returns how many frames it consumed.
func applyCrossfade(buf *models.AudioBuffer, tail []float32, crossfadeLeft, channels int) int {
	tailFrames := len(tail) / channels
	if tailFrames == 0 {
		return 0
	}
	alreadyDone := CrossfadeFrames - crossfadeLeft
	frames := buf.FrameCount
	if frames > crossfadeLeft {
		frames = crossfadeLeft
	}
	for frame := 0; frame < frames; frame++ {
		overallIdx := alreadyDone + frame
		w := float64(overallIdx) / float64(CrossfadeFrames)
		tailFrame := frame % tailFrames
		for ch := 0; ch < channels; ch++ {
			idx := frame*channels + ch
			tailVal := tail[tailFrame*channels+ch]
			buf.Samples[idx] = float32((1-w)*float64(tailVal) + w*float64(buf.Samples[idx]))
		}
	}
	return frames
}

// captureTail stores the last CrossfadeTailFrames frames of buf into
// *tail for use as the crossfade source after a future rebuild.
func captureTail(buf *models.AudioBuffer, tail *[]float32, channels int) {
	frames := buf.FrameCount
	if frames == 0 {
		return
	}
	n := CrossfadeTailFrames
	if n > frames {
		n = frames
	}
	start := (frames - n) * channels
	if cap(*tail) < n*channels {
		*tail = make([]float32, n*channels)
	}
	*tail = (*tail)[:n*channels]
	copy(*tail, buf.Samples[start:])
}
