package models

// StreamInfo is an immutable descriptor of a probed stream. Duration is
// nil for live/indefinite sources.
type StreamInfo struct {
	URL           string
	HasAudio      bool
	HasVideo      bool
	AudioCodec    string
	VideoCodec    string
	SampleRate    int
	ChannelCount  int
	BitDepth      int
	Width         int
	Height        int
	Duration      *float64 // seconds, nil when live
	ContainerName string
}

// losslessCodecs mirrors the media I/O library's lossless decode set
// named in spec §6 (FLAC, ALAC, WavPack, APE, TAK, TTA, PCM) minus the
// lossy ones (AAC, MP3, Vorbis, Opus, AC-3/E-AC-3, DTS, WMA, Cook, ADPCM).
var losslessCodecs = map[string]bool{
	"flac":    true,
	"alac":    true,
	"wavpack": true,
	"ape":     true,
	"tak":     true,
	"tta":     true,
	"pcm_s16le": true,
	"pcm_s24le": true,
	"pcm_s32le": true,
	"pcm_f32le": true,
	"pcm_f64le": true,
	"pcm_s16be": true,
	"pcm_s24be": true,
	"pcm_s32be": true,
	"pcm_f32be": true,
	"pcm_f64be": true,
	"pcm_mulaw": true,
	"pcm_alaw":  true,
}

// IsLossless reports whether the audio codec is a lossless format.
func (s StreamInfo) IsLossless() bool {
	return losslessCodecs[s.AudioCodec]
}

// IsHiRes reports whether the stream exceeds CD quality (44.1kHz/16-bit):
// sample rate above 48kHz or bit depth above 16, and lossless.
func (s StreamInfo) IsHiRes() bool {
	if !s.IsLossless() {
		return false
	}
	return s.SampleRate > 48000 || s.BitDepth > 16
}

// QualityLabel summarizes the stream's audio quality for display.
func (s StreamInfo) QualityLabel() string {
	if !s.HasAudio {
		return "No Audio"
	}
	switch {
	case s.IsHiRes():
		return "Hi-Res Lossless"
	case s.IsLossless():
		return "Lossless"
	default:
		return "Lossy"
	}
}
