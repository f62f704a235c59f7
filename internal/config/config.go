// Package config holds streamcore's own engine tunables — the numeric
// constants spec.md names throughout §§2-5 — loaded with viper so a host
// application can override them from a YAML file or environment variables.
// This is deliberately not the application-level CLI/config layer spec.md
// places out of scope; it only governs the player engine's internals.
package config

import (
	"errors"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Engine holds every tunable constant the pipeline, renderer, EQ, and
// analysis components read at construction time.
type Engine struct {
	// Connection / session (spec.md §4.1, §5)
	ConnectTimeout      time.Duration `mapstructure:"connect_timeout"`
	MaxReadRetries      int           `mapstructure:"max_read_retries"`
	SilentStallDeadline time.Duration `mapstructure:"silent_stall_deadline"`

	// Renderer (spec.md §4.4)
	MaxQueuedBuffers int `mapstructure:"max_queued_buffers"`
	CrossfadeSamples int `mapstructure:"crossfade_samples"`
	DriftRampSamples int `mapstructure:"drift_ramp_samples"`
	DriftThreshold   float64 `mapstructure:"drift_threshold"`

	// EQ (spec.md §4.2)
	EQSmoothingFactor      float64 `mapstructure:"eq_smoothing_factor"`
	EQCoeffInterpWeight    float64 `mapstructure:"eq_coeff_interp_weight"`
	EQSoftResetThresholdDB float64 `mapstructure:"eq_soft_reset_threshold_db"`
	EQSoftResetFactor      float64 `mapstructure:"eq_soft_reset_factor"`
	EQMinGainDB            float64 `mapstructure:"eq_min_gain_db"`
	EQMaxGainDB            float64 `mapstructure:"eq_max_gain_db"`

	// Effect graph (spec.md §4.3)
	GraphCrossfadeSamples int     `mapstructure:"graph_crossfade_samples"`
	GraphTailRetainFrames int     `mapstructure:"graph_tail_retain_frames"`
	TempoMin              float64 `mapstructure:"tempo_min"`
	TempoMax              float64 `mapstructure:"tempo_max"`

	// A/V clock (spec.md §3, §8)
	MaxAVDrift time.Duration `mapstructure:"max_av_drift"`

	// Fingerprint (spec.md §4.5)
	FingerprintFFTSize      int     `mapstructure:"fingerprint_fft_size"`
	FingerprintHop          int     `mapstructure:"fingerprint_hop"`
	FingerprintPeaksPerBand int     `mapstructure:"fingerprint_peaks_per_band"`
	FingerprintPeakMinMag   float64 `mapstructure:"fingerprint_peak_min_mag"`
	FingerprintFanoutFrames int     `mapstructure:"fingerprint_fanout_frames"`
	FingerprintFanoutBins   int     `mapstructure:"fingerprint_fanout_bins"`
	FingerprintSearchMinScore float64 `mapstructure:"fingerprint_search_min_score"`
	FingerprintMatchMinScore  float64 `mapstructure:"fingerprint_match_min_score"`

	// Spectrum feed (spec.md §4.8)
	SpectrumFFTSize int     `mapstructure:"spectrum_fft_size"`
	SpectrumBands   int     `mapstructure:"spectrum_bands"`
	SpectrumSmooth  float64 `mapstructure:"spectrum_smooth"`

	// Waveform (spec.md §4.9)
	WaveformBins int `mapstructure:"waveform_bins"`

	// Analyzer (spec.md §4.6)
	AnalyzerClipThreshold          float64 `mapstructure:"analyzer_clip_threshold"`
	AnalyzerSevereClipPercent      float64 `mapstructure:"analyzer_severe_clip_percent"`
	AnalyzerSevereClipRegions      int     `mapstructure:"analyzer_severe_clip_regions"`
	AnalyzerBPMMin                 float64 `mapstructure:"analyzer_bpm_min"`
	AnalyzerBPMMax                 float64 `mapstructure:"analyzer_bpm_max"`
	AnalyzerEnvelopeWindow         int     `mapstructure:"analyzer_envelope_window"`
	AnalyzerEnvelopeHop            int     `mapstructure:"analyzer_envelope_hop"`
	AnalyzerOnsetSmoothTaps        int     `mapstructure:"analyzer_onset_smooth_taps"`
	AnalyzerBPMTopPeaks            int     `mapstructure:"analyzer_bpm_top_peaks"`
	AnalyzerBPMTopCandidates       int     `mapstructure:"analyzer_bpm_top_candidates"`
	AnalyzerBPMMinSeparation       float64 `mapstructure:"analyzer_bpm_min_separation"`
	AnalyzerBeatLocalMeanFrames    int     `mapstructure:"analyzer_beat_local_mean_frames"`
	AnalyzerBeatLocalMeanFactor    float64 `mapstructure:"analyzer_beat_local_mean_factor"`
	AnalyzerBeatDownbeatInterval   int     `mapstructure:"analyzer_beat_downbeat_interval"`
	AnalyzerLoudnessBlockMS        float64 `mapstructure:"analyzer_loudness_block_ms"`
	AnalyzerLoudnessOverlap        float64 `mapstructure:"analyzer_loudness_overlap"`
	AnalyzerLoudnessAbsoluteGate   float64 `mapstructure:"analyzer_loudness_absolute_gate"`
	AnalyzerLoudnessRelativeOffset float64 `mapstructure:"analyzer_loudness_relative_offset"`
	AnalyzerLoudnessShortTermS     float64 `mapstructure:"analyzer_loudness_short_term_s"`
	AnalyzerLoudnessMomentaryMS    float64 `mapstructure:"analyzer_loudness_momentary_ms"`
	AnalyzerLoudnessHistogramBins  int     `mapstructure:"analyzer_loudness_histogram_bins"`
	AnalyzerPhaseSevereReverse     float64 `mapstructure:"analyzer_phase_severe_reverse"`
	AnalyzerPhasePartialReverse    float64 `mapstructure:"analyzer_phase_partial_reverse"`
	AnalyzerPhaseNearMono          float64 `mapstructure:"analyzer_phase_near_mono"`
	AnalyzerPhaseNarrow            float64 `mapstructure:"analyzer_phase_narrow"`
	AnalyzerPitchMinHz             float64 `mapstructure:"analyzer_pitch_min_hz"`
	AnalyzerPitchMaxHz             float64 `mapstructure:"analyzer_pitch_max_hz"`
	AnalyzerPitchWindowSamples     int     `mapstructure:"analyzer_pitch_window_samples"`
	AnalyzerFreqFFTSize            int     `mapstructure:"analyzer_freq_fft_size"`
	AnalyzerFreqRolloffPercent     float64 `mapstructure:"analyzer_freq_rolloff_percent"`
	AnalyzerFreqLowBandHz          float64 `mapstructure:"analyzer_freq_low_band_hz"`
	AnalyzerFreqHighBandHz         float64 `mapstructure:"analyzer_freq_high_band_hz"`
	AnalyzerFreqTopPeaks           int     `mapstructure:"analyzer_freq_top_peaks"`
	AnalyzerDRWindowMS             float64 `mapstructure:"analyzer_dr_window_ms"`
	AnalyzerDROverlap              float64 `mapstructure:"analyzer_dr_overlap"`
	AnalyzerDRTopPercent           float64 `mapstructure:"analyzer_dr_top_percent"`

	// Lyrics aligner (spec.md §4.7)
	AlignerWindowBeforeS  time.Duration `mapstructure:"aligner_window_before"`
	AlignerWindowAfterS   time.Duration `mapstructure:"aligner_window_after"`
	AlignerMinSimilarity  float64       `mapstructure:"aligner_min_similarity"`
}

// Defaults returns the engine configuration with every constant spec.md
// names, so an unconfigured player behaves exactly as specified.
func Defaults() *Engine {
	return &Engine{
		ConnectTimeout:      10 * time.Second,
		MaxReadRetries:      10,
		SilentStallDeadline: 2 * time.Second,

		MaxQueuedBuffers: 200,
		CrossfadeSamples: 256,
		DriftRampSamples: 32,
		DriftThreshold:   0.3,

		EQSmoothingFactor:      0.05,
		EQCoeffInterpWeight:    0.3,
		EQSoftResetThresholdDB: 6.0,
		EQSoftResetFactor:      0.5,
		EQMinGainDB:            -12.0,
		EQMaxGainDB:            12.0,

		GraphCrossfadeSamples: 256,
		GraphTailRetainFrames: 64,
		TempoMin:              0.5,
		TempoMax:              2.0,

		MaxAVDrift: 40 * time.Millisecond,

		FingerprintFFTSize:        4096,
		FingerprintHop:            2048,
		FingerprintPeaksPerBand:   5,
		FingerprintPeakMinMag:     0.01,
		FingerprintFanoutFrames:   5,
		FingerprintFanoutBins:     100,
		FingerprintSearchMinScore: 0.05,
		FingerprintMatchMinScore:  0.1,

		SpectrumFFTSize: 2048,
		SpectrumBands:   64,
		SpectrumSmooth:  0.7,

		WaveformBins: 200,

		AnalyzerClipThreshold:        0.99,
		AnalyzerSevereClipPercent:    0.001,
		AnalyzerSevereClipRegions:    10,
		AnalyzerBPMMin:               50,
		AnalyzerBPMMax:               220,
		AnalyzerEnvelopeWindow:       512,
		AnalyzerEnvelopeHop:          128,
		AnalyzerOnsetSmoothTaps:      11,
		AnalyzerBPMTopPeaks:          20,
		AnalyzerBPMTopCandidates:     5,
		AnalyzerBPMMinSeparation:     5,
		AnalyzerBeatLocalMeanFrames:  20,
		AnalyzerBeatLocalMeanFactor:  1.5,
		AnalyzerBeatDownbeatInterval: 4,

		AnalyzerLoudnessBlockMS:        400,
		AnalyzerLoudnessOverlap:        0.75,
		AnalyzerLoudnessAbsoluteGate:   -70,
		AnalyzerLoudnessRelativeOffset: -10,
		AnalyzerLoudnessShortTermS:     3,
		AnalyzerLoudnessMomentaryMS:    400,
		AnalyzerLoudnessHistogramBins:  70,

		AnalyzerPhaseSevereReverse:  -0.5,
		AnalyzerPhasePartialReverse: 0,
		AnalyzerPhaseNearMono:       0.98,
		AnalyzerPhaseNarrow:         0.9,

		AnalyzerPitchMinHz:         50,
		AnalyzerPitchMaxHz:         2000,
		AnalyzerPitchWindowSamples: 4096,

		AnalyzerFreqFFTSize:        4096,
		AnalyzerFreqRolloffPercent: 0.85,
		AnalyzerFreqLowBandHz:      300,
		AnalyzerFreqHighBandHz:     4000,
		AnalyzerFreqTopPeaks:       5,

		AnalyzerDRWindowMS:   100,
		AnalyzerDROverlap:    0.5,
		AnalyzerDRTopPercent: 0.2,

		AlignerWindowBeforeS: 5 * time.Second,
		AlignerWindowAfterS:  10 * time.Second,
		AlignerMinSimilarity: 0.6,
	}
}

// Load overlays an optional YAML file at path (if non-empty and present) and
// STREAMCORE_-prefixed environment variables on top of Defaults().
func Load(path string) (*Engine, error) {
	e := Defaults()

	v := viper.New()
	v.SetEnvPrefix("STREAMCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	fields := reflect.TypeOf(*e)
	for i := 0; i < fields.NumField(); i++ {
		if err := v.BindEnv(fields.Field(i).Tag.Get("mapstructure")); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := v.Unmarshal(e); err != nil {
		return nil, err
	}
	return e, nil
}
