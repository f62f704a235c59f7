package fingerprint

import (
	"context"
	"io"
	"time"

	streamerrors "github.com/loomaudio/streamcore/internal/errors"
	"github.com/loomaudio/streamcore/internal/config"
	"github.com/loomaudio/streamcore/internal/mediaio"
	"github.com/loomaudio/streamcore/internal/models"
)

// Fingerprint is the hash set spec §4.5 step 6 stores: duration,
// sample rate, and a generation timestamp alongside the hashes.
type Fingerprint struct {
	Hashes     []Hash    `json:"hashes"`
	Duration   float64   `json:"duration"`
	SampleRate int       `json:"sample_rate"`
	CreatedAt  time.Time `json:"created_at"`
}

// Generate runs the full spec §4.5 generation pipeline over already
// decoded mono Float32 samples: STFT, logarithmic-band peak picking,
// anchor/target fan-out, hash packing.
func Generate(mono []float32, sampleRate int, eng *config.Engine) (*Fingerprint, error) {
	if sampleRate <= 0 {
		return nil, streamerrors.Newf("fingerprint: invalid sample rate %d", sampleRate).
			Component("fingerprint").Category(streamerrors.CategoryInvalidParameter).Build()
	}
	t := resolveTunables(eng)

	samples := make([]float64, len(mono))
	for i, s := range mono {
		samples[i] = float64(s)
	}

	frames := stft(samples, t.fftSize, t.hop)
	bands := bandRanges(sampleRate, t.fftSize)
	peaks := extractPeaks(frames, bands, t.peaksPerBand, t.peakMinMag)
	hashes := fanOut(peaks, t.fanoutFrames, t.fanoutBins, binHz(sampleRate, t.fftSize))

	return &Fingerprint{
		Hashes:     hashes,
		Duration:   float64(len(mono)) / float64(sampleRate),
		SampleRate: sampleRate,
		CreatedAt:  time.Now(),
	}, nil
}

// GenerateFromURL opens url via conn, decodes it fully to mono Float32
// at the connection's configured sample rate, and fingerprints it.
// Intended for the offline analysis path of spec §4.5, re-decoding the
// source independently of the real-time render pipeline.
func GenerateFromURL(ctx context.Context, conn *mediaio.Connection, url string, eng *config.Engine) (*Fingerprint, error) {
	dec, info, err := conn.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	const chunkFrames = 8192
	var mono []float32
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

	return Generate(mono, info.SampleRate, eng)
}

// downmix averages interleaved multi-channel samples into mono.
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

// Similarity is the Jaccard index between two fingerprints' packed-32
// hash sets, per spec §4.5's closing note.
func Similarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil {
		return 0
	}
	setA := packedSet(a.Hashes)
	setB := packedSet(b.Hashes)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	intersection := 0
	for k := range setA {
		if setB[k] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func packedSet(hashes []Hash) map[uint32]bool {
	set := make(map[uint32]bool, len(hashes))
	for _, h := range hashes {
		set[h.Packed32()] = true
	}
	return set
}
