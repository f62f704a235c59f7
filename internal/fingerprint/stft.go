// Package fingerprint implements Shazam-style spectral-peak audio
// fingerprinting (spec.md §4.5): constellation extraction over an
// overlapped STFT, anchor/target hash pairing, a single-mutex hash-set
// database with GORM/SQLite persistence, and offset-voting recognition.
package fingerprint

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/loomaudio/streamcore/internal/config"
)

// frame is one windowed STFT analysis frame's magnitude spectrum, one
// bin per index 0..fftSize/2.
type frame struct {
	index      int
	magnitude  []float64
}

// stft runs an overlapped short-time Fourier transform over mono
// samples with a Hann window, mirroring the windowing/FFT-coefficient
// shape used elsewhere in the pack's spectral analysis (magnitude via
// Sqrt(re*re+im*im) over fft.Coefficients).
func stft(samples []float64, fftSize, hop int) []frame {
	if fftSize <= 0 || hop <= 0 || len(samples) < fftSize {
		return nil
	}
	window := hannWindow(fftSize)
	fft := fourier.NewFFT(fftSize)
	fftIn := make([]float64, fftSize)

	var frames []frame
	for pos, idx := 0, 0; pos+fftSize <= len(samples); pos, idx = pos+hop, idx+1 {
		for i := 0; i < fftSize; i++ {
			fftIn[i] = samples[pos+i] * window[i]
		}
		coeffs := fft.Coefficients(nil, fftIn)
		mag := make([]float64, len(coeffs))
		for i, c := range coeffs {
			mag[i] = math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
		}
		frames = append(frames, frame{index: idx, magnitude: mag})
	}
	return frames
}

func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return w
}

// bandBoundariesHz are the 8 logarithmic band edges of spec §4.5 step 3.
var bandBoundariesHz = [...]float64{0, 100, 200, 400, 800, 1600, 3200, 6400, 12800}

// binHz returns the frequency in Hz spanned by one FFT bin at the given
// sample rate and FFT size.
func binHz(sampleRate, fftSize int) float64 {
	return float64(sampleRate) / float64(fftSize)
}

// bandRanges converts bandBoundariesHz into inclusive [startBin, endBin]
// ranges for an FFT of the given size and sample rate, clipped to the
// bin count of a real FFT (fftSize/2+1 bins).
func bandRanges(sampleRate, fftSize int) [][2]int {
	hzPerBin := binHz(sampleRate, fftSize)
	maxBin := fftSize/2 + 1
	ranges := make([][2]int, 0, len(bandBoundariesHz))
	for i := 0; i < len(bandBoundariesHz); i++ {
		start := int(bandBoundariesHz[i] / hzPerBin)
		var end int
		if i+1 < len(bandBoundariesHz) {
			end = int(bandBoundariesHz[i+1]/hzPerBin) - 1
		} else {
			end = maxBin - 1
		}
		if start < 0 {
			start = 0
		}
		if end >= maxBin {
			end = maxBin - 1
		}
		if start > end {
			continue
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}

// engineTunables resolves the fingerprint-relevant fields of
// config.Engine, falling back to spec.md's named defaults when eng is
// nil or a field is unset.
type engineTunables struct {
	fftSize        int
	hop            int
	peaksPerBand   int
	peakMinMag     float64
	fanoutFrames   int
	fanoutBins     int
	searchMinScore float64
	matchMinScore  float64
}

func resolveTunables(eng *config.Engine) engineTunables {
	t := engineTunables{
		fftSize:        4096,
		hop:            2048,
		peaksPerBand:   5,
		peakMinMag:     0.01,
		fanoutFrames:   5,
		fanoutBins:     100,
		searchMinScore: 0.05,
		matchMinScore:  0.1,
	}
	if eng == nil {
		return t
	}
	if eng.FingerprintFFTSize > 0 {
		t.fftSize = eng.FingerprintFFTSize
	}
	if eng.FingerprintHop > 0 {
		t.hop = eng.FingerprintHop
	}
	if eng.FingerprintPeaksPerBand > 0 {
		t.peaksPerBand = eng.FingerprintPeaksPerBand
	}
	if eng.FingerprintPeakMinMag > 0 {
		t.peakMinMag = eng.FingerprintPeakMinMag
	}
	if eng.FingerprintFanoutFrames > 0 {
		t.fanoutFrames = eng.FingerprintFanoutFrames
	}
	if eng.FingerprintFanoutBins > 0 {
		t.fanoutBins = eng.FingerprintFanoutBins
	}
	if eng.FingerprintSearchMinScore > 0 {
		t.searchMinScore = eng.FingerprintSearchMinScore
	}
	if eng.FingerprintMatchMinScore > 0 {
		t.matchMinScore = eng.FingerprintMatchMinScore
	}
	return t
}
