// Package waveform implements spec.md §4.9's waveform summariser: a
// full decode-to-mono pass that bins the signal into a fixed number
// of (max_positive, min_negative) pairs for UI display.
package waveform

import (
	"context"
	"io"

	"github.com/loomaudio/streamcore/internal/config"
	"github.com/loomaudio/streamcore/internal/mediaio"
	"github.com/loomaudio/streamcore/internal/models"
)

// Bin is one waveform summary bucket: the largest positive and most
// negative sample clipped to [-1, 1], per spec §4.9.
type Bin struct {
	MaxPositive float32
	MinNegative float32
}

// Waveform is the full bin sequence for a decoded track plus the
// sample rate it was generated at.
type Waveform struct {
	Bins       []Bin
	SampleRate int
}

// ProgressFunc is invoked with the fraction of samples consumed so
// far, in [0, 1], per spec §4.9's "progress callback fires
// proportional to samples consumed".
type ProgressFunc func(fraction float64)

func binCount(eng *config.Engine) int {
	if eng != nil && eng.WaveformBins > 0 {
		return eng.WaveformBins
	}
	return 200
}

// GenerateFromURL decodes url fully to mono Float32 via conn and
// summarizes it into bins many (max, min) pairs, reporting progress
// through onProgress as samples are consumed. It is intended to run
// as a long-running, cancellable background task, per spec.md §5's
// "Waveform task" row.
func GenerateFromURL(ctx context.Context, conn *mediaio.Connection, url string, eng *config.Engine, onProgress ProgressFunc) (*Waveform, error) {
	dec, info, err := conn.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	if info.Duration == nil || *info.Duration <= 0 {
		return generateFromUnknownDuration(ctx, dec, info, eng, onProgress)
	}

	totalFrames := int(*info.Duration * float64(info.SampleRate))
	if totalFrames <= 0 {
		return generateFromUnknownDuration(ctx, dec, info, eng, onProgress)
	}

	mono := make([]float32, 0, totalFrames)
	const chunkFrames = 8192
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		buf := models.NewAudioBuffer(chunkFrames, info.ChannelCount, info.SampleRate)
		n, rerr := mediaio.ReadWithRetry(dec, buf)
		if n > 0 {
			mono = append(mono, downmix(buf.Samples[:n*info.ChannelCount], info.ChannelCount)...)
			if onProgress != nil {
				fraction := float64(len(mono)) / float64(totalFrames)
				if fraction > 1 {
					fraction = 1
				}
				onProgress(fraction)
			}
		}
		if rerr == io.EOF || n == 0 {
			break
		}
		if rerr != nil {
			return nil, rerr
		}
	}

	return Summarize(mono, info.SampleRate, eng), nil
}

// generateFromUnknownDuration handles live/unknown-length sources by
// decoding without a progress denominator; onProgress is never called
// since there's no total to report a fraction against.
func generateFromUnknownDuration(ctx context.Context, dec mediaio.Decoder, info models.StreamInfo, eng *config.Engine, _ ProgressFunc) (*Waveform, error) {
	var mono []float32
	const chunkFrames = 8192
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		buf := models.NewAudioBuffer(chunkFrames, info.ChannelCount, info.SampleRate)
		n, rerr := mediaio.ReadWithRetry(dec, buf)
		if n > 0 {
			mono = append(mono, downmix(buf.Samples[:n*info.ChannelCount], info.ChannelCount)...)
		}
		if rerr == io.EOF || n == 0 {
			break
		}
		if rerr != nil {
			return nil, rerr
		}
	}
	return Summarize(mono, info.SampleRate, eng), nil
}

// Summarize evenly distributes mono into bins-many buckets and emits
// each bucket's clipped (max_positive, min_negative) pair, per spec
// §4.9.
func Summarize(mono []float32, sampleRate int, eng *config.Engine) *Waveform {
	bins := binCount(eng)
	if bins <= 0 || len(mono) == 0 {
		return &Waveform{SampleRate: sampleRate}
	}
	if bins > len(mono) {
		bins = len(mono)
	}

	out := make([]Bin, bins)
	samplesPerBin := float64(len(mono)) / float64(bins)

	for b := 0; b < bins; b++ {
		start := int(float64(b) * samplesPerBin)
		end := int(float64(b+1) * samplesPerBin)
		if end > len(mono) {
			end = len(mono)
		}
		if start >= end {
			continue
		}

		var maxPos, minNeg float32
		for _, s := range mono[start:end] {
			if s > maxPos {
				maxPos = s
			}
			if s < minNeg {
				minNeg = s
			}
		}
		out[b] = Bin{MaxPositive: clamp1(maxPos), MinNegative: clamp1(minNeg)}
	}

	return &Waveform{Bins: out, SampleRate: sampleRate}
}

func clamp1(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		base := f * channels
		for ch := 0; ch < channels; ch++ {
			sum += samples[base+ch]
		}
		out[f] = sum / float32(channels)
	}
	return out
}
