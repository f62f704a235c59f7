package eq

import (
	"sync"

	"github.com/loomaudio/streamcore/internal/config"
	"github.com/loomaudio/streamcore/internal/metrics"
	"github.com/loomaudio/streamcore/internal/models"
)

// defaultSmoothingFactor and defaultInterpWeight are the values named in spec
// §4.2 but are overridable via config.Engine so a host can tune them.
const (
	defaultSmoothingFactor = 0.05
	defaultInterpWeight    = 0.3
	defaultSoftResetDeltaDB = 6.0
	defaultSoftResetFactor  = 0.5
)

// ClampEvent is reported once per set_gain call that clamps its input.
type ClampEvent struct {
	Band     models.EqBand
	Original float64
	Clamped  float64
}

// ClampObserver receives one-shot clamp notifications.
type ClampObserver func(ClampEvent)

type bandState struct {
	targetDB  float64
	currentDB float64
	coeffs    biquadCoeffs
	channels  []biquadState
}

// TenBandEQ is the 10-band parametric peaking EQ. Safe for concurrent
// use: SetGain/Gain may be called from any goroutine while Process runs
// on the render thread; both acquire the same short-held mutex, per
// spec §5's "EQ gains map: single mutex" rule.
type TenBandEQ struct {
	mu               sync.Mutex
	bands            [models.BandCount]bandState
	sampleRate       float64
	channelCount     int
	smoothingFactor  float64
	interpWeight     float64
	softResetDeltaDB float64
	softResetFactor  float64
	observer         ClampObserver
}

// New constructs a TenBandEQ for the given sample rate and channel
// count, with every band at 0 dB gain (identity).
func New(sampleRate float64, channelCount int, eng *config.Engine) *TenBandEQ {
	e := &TenBandEQ{
		sampleRate:       sampleRate,
		channelCount:     channelCount,
		smoothingFactor:  defaultSmoothingFactor,
		interpWeight:     defaultInterpWeight,
		softResetDeltaDB: defaultSoftResetDeltaDB,
		softResetFactor:  defaultSoftResetFactor,
	}
	if eng != nil {
		e.smoothingFactor = eng.EQSmoothingFactor
		e.interpWeight = eng.EQCoeffInterpWeight
		e.softResetDeltaDB = eng.EQSoftResetThresholdDB
		e.softResetFactor = eng.EQSoftResetFactor
	}
	for i := range e.bands {
		e.bands[i].coeffs = identityCoeffs
		e.bands[i].channels = make([]biquadState, channelCount)
	}
	return e
}

// SetObserver registers the clamp-event callback. Pass nil to clear it.
func (e *TenBandEQ) SetObserver(obs ClampObserver) {
	e.mu.Lock()
	e.observer = obs
	e.mu.Unlock()
}

// SetGain sets band b's target gain, clamping to [-12, 12] dB and
// reporting the clamp event via the observer when clamping occurred.
func (e *TenBandEQ) SetGain(b models.EqBand, gainDB float64) {
	if !b.Valid() {
		return
	}
	clamped, wasClamped := models.ClampGainDB(gainDB)

	e.mu.Lock()
	e.bands[b].targetDB = clamped
	obs := e.observer
	e.mu.Unlock()

	if wasClamped {
		metrics.Get().RecordEQClamp(b.String())
		if obs != nil {
			obs(ClampEvent{Band: b, Original: gainDB, Clamped: clamped})
		}
	}
}

// Gain returns band b's current target gain (already clamped).
func (e *TenBandEQ) Gain(b models.EqBand) float64 {
	if !b.Valid() {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bands[b].targetDB
}

// SetSampleRate updates the operating sample rate. Per spec §4.2, a
// sample-rate change clears all filter state.
func (e *TenBandEQ) SetSampleRate(sampleRate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if sampleRate == e.sampleRate {
		return
	}
	e.sampleRate = sampleRate
	for i := range e.bands {
		for c := range e.bands[i].channels {
			e.bands[i].channels[c].clear()
		}
	}
}

// Process advances each band's gain smoothing, recomputes and
// interpolates coefficients, applies a soft reset on large gain jumps,
// and filters buf in place, serially across bands, transposed direct
// form II per channel.
func (e *TenBandEQ) Process(buf *models.AudioBuffer) {
	if buf == nil || len(buf.Samples) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	channels := buf.ChannelCount
	if channels <= 0 {
		channels = 1
	}

	for bi := range e.bands {
		band := &e.bands[bi]
		prevCurrent := band.currentDB
		band.currentDB += (band.targetDB - prevCurrent) * e.smoothingFactor

		if band.currentDB == 0 {
			band.coeffs = identityCoeffs
			continue
		}

		params := models.EqBandTable[bi]
		next := peakingCoeffs(params.CenterHz, params.Q, band.currentDB, e.sampleRate)
		band.coeffs = lerpCoeffs(band.coeffs, next, e.interpWeight)

		if absFloat(band.targetDB-prevCurrent) > e.softResetDeltaDB {
			for c := range band.channels {
				band.channels[c].softReset(e.softResetFactor)
			}
		}
	}

	for bi := range e.bands {
		band := &e.bands[bi]
		if band.coeffs == identityCoeffs {
			continue
		}
		if len(band.channels) != channels {
			band.channels = make([]biquadState, channels)
		}
		for frame := 0; frame < buf.FrameCount; frame++ {
			for ch := 0; ch < channels; ch++ {
				idx := frame*channels + ch
				buf.Samples[idx] = float32(band.coeffs.process(&band.channels[ch], float64(buf.Samples[idx])))
			}
		}
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
