// Package effects implements the rebuildable DSP effect chain of spec
// §4.3: a named, directed, linear filter chain wrapping the external
// media I/O library's filter-graph facility, plus the handful of
// effects (gain, fades, delay, soft-clip, mono downmix) simple enough to apply
// natively while the graph rebuilds off the render thread.
package effects

// FilterID identifies one node in the effect chain, named the way the
// donor podcast-processing chain names its FFmpeg filter nodes.
type FilterID string

const (
	FilterGain              FilterID = "gain"
	FilterNoiseGate          FilterID = "noise_gate"
	FilterCompressor         FilterID = "compressor"
	FilterLimiter            FilterID = "limiter"
	FilterAutoGain           FilterID = "auto_gain"
	FilterLoudnessNormalize  FilterID = "loudnorm"
	FilterSpeechNormalize    FilterID = "speechnorm"
	FilterCompand            FilterID = "compand"
	FilterFFTDenoise         FilterID = "fft_denoise"
	FilterDeclick            FilterID = "declick"
	FilterDeclip             FilterID = "declip"
	FilterBassShelf          FilterID = "bass_shelf"
	FilterTrebleShelf        FilterID = "treble_shelf"
	FilterSubBoost           FilterID = "subboost"
	FilterBandPass           FilterID = "bandpass"
	FilterBandReject         FilterID = "bandreject"
	FilterVocalRemoval       FilterID = "vocal_removal"
	FilterChannelSwap        FilterID = "channel_swap"
	FilterChannelBalance     FilterID = "channel_balance"
	FilterStereoWidth        FilterID = "stereo_width"
	FilterMono               FilterID = "mono"
	FilterSurroundExpand     FilterID = "surround_expand"
	FilterCrossfeed          FilterID = "crossfeed"
	FilterBS2B               FilterID = "bs2b"
	FilterHaas               FilterID = "haas"
	FilterVirtualBass        FilterID = "virtual_bass"
	FilterReverb             FilterID = "reverb"
	FilterExciter            FilterID = "exciter"
	FilterSoftClip           FilterID = "soft_clip"
	FilterDialogueEnhance    FilterID = "dialogue_enhance"
	FilterChorus             FilterID = "chorus"
	FilterFlanger            FilterID = "flanger"
	FilterTremolo            FilterID = "tremolo"
	FilterVibrato            FilterID = "vibrato"
	FilterCrusher            FilterID = "crusher"
	FilterTelephonePreset    FilterID = "telephone"
	FilterUnderwaterPreset   FilterID = "underwater"
	FilterRadioPreset        FilterID = "radio"
	FilterDelay              FilterID = "delay"
	FilterSetRate            FilterID = "set_rate"
	FilterTempo              FilterID = "tempo"
	FilterFadeIn             FilterID = "fade_in"
	FilterFadeOut            FilterID = "fade_out"
	FilterAformat            FilterID = "aformat"
)

// nativeFilters apply directly in Process without delegating to the
// external filter-graph facility: their math is given explicitly by
// spec §4.3 rather than deferred to the media I/O library. Tempo is
// NOT native: its factorization into in-range stages is computed
// natively (tempo.go) but the actual time-stretch is delegated to the
// external graph as a chain of "tempo" nodes, one per stage.
var nativeFilters = map[FilterID]bool{
	FilterGain:     true,
	FilterFadeIn:   true,
	FilterFadeOut:  true,
	FilterDelay:    true,
	FilterSoftClip: true,
	FilterMono:     true,
}

// DefaultOrder is the order effects are applied in when all are active,
// following the donor chain's layering: level/dynamics first, then
// frequency shaping, then spatial/timbre/special, then time and pitch,
// then envelope, then output format last.
var DefaultOrder = []FilterID{
	FilterGain,
	FilterNoiseGate,
	FilterCompressor,
	FilterLimiter,
	FilterAutoGain,
	FilterLoudnessNormalize,
	FilterSpeechNormalize,
	FilterCompand,
	FilterFFTDenoise,
	FilterDeclick,
	FilterDeclip,
	FilterBassShelf,
	FilterTrebleShelf,
	FilterSubBoost,
	FilterBandPass,
	FilterBandReject,
	FilterVocalRemoval,
	FilterChannelSwap,
	FilterChannelBalance,
	FilterStereoWidth,
	FilterMono,
	FilterSurroundExpand,
	FilterCrossfeed,
	FilterBS2B,
	FilterHaas,
	FilterVirtualBass,
	FilterReverb,
	FilterExciter,
	FilterSoftClip,
	FilterDialogueEnhance,
	FilterChorus,
	FilterFlanger,
	FilterTremolo,
	FilterVibrato,
	FilterCrusher,
	FilterTelephonePreset,
	FilterUnderwaterPreset,
	FilterRadioPreset,
	FilterDelay,
	FilterSetRate,
	FilterTempo,
	FilterFadeIn,
	FilterFadeOut,
	FilterAformat,
}
