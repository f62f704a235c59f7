package effects

// ExternalParams holds the parameter set for one externally-delegated
// filter (one the media I/O library's filter-graph facility implements,
// not applied natively in Process). Keys are filter-specific parameter
// names, matching the table in spec §4.3 (e.g. "threshold_db", "ratio").
type ExternalParams map[string]float64

// Config is the effect chain's parameter set: a mapping from named
// effect to parameters with an enabled flag (spec §3's "EffectGraph
// parameter set"). Graph owns the single mutex guarding every read and
// write of a Config, per spec §5's "Effect-graph parameters: single
// mutex" rule — Config itself performs no locking.
type Config struct {
	enabled map[FilterID]bool
	extra   map[FilterID]ExternalParams

	// Natively-applied effects get concrete fields since Process()'s
	// math needs them directly.
	GainDB float64

	FadeInStartSample, FadeInLengthSamples   int
	FadeOutStartSample, FadeOutLengthSamples int

	// PitchSemitones adjusts the internal sample rate by 2^(s/12) and
	// divides the tempo factor by that ratio (spec §4.3).
	PitchSemitones float64
	// Tempo is the overall tempo multiplier; factorized into in-range
	// stages by FactorizeTempo when outside [0.5, 2.0].
	Tempo float64

	DelayMS float64

	SoftClipType string // "tanh", "atan", "cubic"

	MonoEnabled bool
}

// NewConfig returns a Config with every effect disabled and identity
// parameters (gain 0 dB, tempo 1.0, pitch 0 semitones).
func NewConfig() *Config {
	return &Config{
		enabled: make(map[FilterID]bool),
		extra:   make(map[FilterID]ExternalParams),
		Tempo:   1.0,
	}
}

// SetEnabled toggles a filter node on or off.
func (c *Config) SetEnabled(id FilterID, enabled bool) {
	c.enabled[id] = enabled
}

// Enabled reports whether a filter node is currently active.
func (c *Config) Enabled(id FilterID) bool {
	return c.enabled[id]
}

// SetExternalParams stores the parameter set for an externally-delegated
// filter node.
func (c *Config) SetExternalParams(id FilterID, params ExternalParams) {
	c.extra[id] = params
}

// ExternalParamsFor returns the stored parameters for a filter node, or
// nil if none were set.
func (c *Config) ExternalParamsFor(id FilterID) ExternalParams {
	return c.extra[id]
}

// IsBypass reports whether no effect node is enabled — all defaults —
// in which case processing is a zero-copy passthrough per spec §4.3.
func (c *Config) IsBypass() bool {
	for _, on := range c.enabled {
		if on {
			return false
		}
	}
	return c.GainDB == 0 &&
		c.FadeInLengthSamples == 0 &&
		c.FadeOutLengthSamples == 0 &&
		c.PitchSemitones == 0 &&
		c.Tempo == 1.0 &&
		c.DelayMS == 0 &&
		c.SoftClipType == "" &&
		!c.MonoEnabled
}

// activeOrder returns DefaultOrder filtered to only the active nodes,
// preserving order.
func (c *Config) activeOrder() []FilterID {
	var order []FilterID
	for _, id := range DefaultOrder {
		if c.nodeActive(id) {
			order = append(order, id)
		}
	}
	return order
}

func (c *Config) nodeActive(id FilterID) bool {
	switch id {
	case FilterGain:
		return c.GainDB != 0
	case FilterFadeIn:
		return c.FadeInLengthSamples > 0
	case FilterFadeOut:
		return c.FadeOutLengthSamples > 0
	case FilterSetRate:
		return c.PitchSemitones != 0
	case FilterTempo:
		return c.Tempo != 1.0
	case FilterDelay:
		return c.DelayMS != 0
	case FilterSoftClip:
		return c.SoftClipType != ""
	case FilterMono:
		return c.MonoEnabled
	default:
		return c.Enabled(id)
	}
}
