package analyzer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/loomaudio/streamcore/internal/config"
)

// SpectralPeak is one of the top spectral peaks reported by
// AnalyzeFrequency.
type SpectralPeak struct {
	FrequencyHz float64
	Magnitude   float64
}

// FrequencyResult is spec §4.6's frequency-analysis bullet: centroid,
// rolloff, tri-band energy ratios, flatness, and top spectral peaks.
type FrequencyResult struct {
	Centroid     float64
	Rolloff85    float64
	LowRatio     float64
	MidRatio     float64
	HighRatio    float64
	Flatness     float64
	TopPeaks     []SpectralPeak
}

type frequencyTunables struct {
	fftSize       int
	rolloff       float64
	lowHz, highHz float64
	topPeaks      int
}

func resolveFrequencyTunables(eng *config.Engine) frequencyTunables {
	t := frequencyTunables{fftSize: 4096, rolloff: 0.85, lowHz: 300, highHz: 4000, topPeaks: 5}
	if eng == nil {
		return t
	}
	if eng.AnalyzerFreqFFTSize > 0 {
		t.fftSize = eng.AnalyzerFreqFFTSize
	}
	if eng.AnalyzerFreqRolloffPercent > 0 {
		t.rolloff = eng.AnalyzerFreqRolloffPercent
	}
	if eng.AnalyzerFreqLowBandHz > 0 {
		t.lowHz = eng.AnalyzerFreqLowBandHz
	}
	if eng.AnalyzerFreqHighBandHz > 0 {
		t.highHz = eng.AnalyzerFreqHighBandHz
	}
	if eng.AnalyzerFreqTopPeaks > 0 {
		t.topPeaks = eng.AnalyzerFreqTopPeaks
	}
	return t
}

// AnalyzeFrequency runs a single windowed DFT over a centered slice of
// mono and derives spec §4.6's frequency-domain summary statistics.
func AnalyzeFrequency(mono []float32, sampleRate int, eng *config.Engine) FrequencyResult {
	t := resolveFrequencyTunables(eng)
	if sampleRate <= 0 || len(mono) < t.fftSize {
		return FrequencyResult{}
	}

	start := (len(mono) - t.fftSize) / 2
	window := hannWindowAnalyzer(t.fftSize)
	in := make([]float64, t.fftSize)
	for i := 0; i < t.fftSize; i++ {
		in[i] = float64(mono[start+i]) * window[i]
	}

	fft := fourier.NewFFT(t.fftSize)
	coeffs := fft.Coefficients(nil, in)
	mag := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mag[i] = math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
	}

	hzPerBin := float64(sampleRate) / float64(t.fftSize)

	centroid := spectralCentroid(mag, hzPerBin)
	rolloff := spectralRolloff(mag, hzPerBin, t.rolloff)
	low, mid, high := triBandRatios(mag, hzPerBin, t.lowHz, t.highHz)
	flatness := spectralFlatness(mag)
	peaks := topSpectralPeaks(mag, hzPerBin, t.topPeaks)

	return FrequencyResult{
		Centroid:  centroid,
		Rolloff85: rolloff,
		LowRatio:  low,
		MidRatio:  mid,
		HighRatio: high,
		Flatness:  flatness,
		TopPeaks:  peaks,
	}
}

func hannWindowAnalyzer(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return w
}

func spectralCentroid(mag []float64, hzPerBin float64) float64 {
	var weighted, total float64
	for i, m := range mag {
		freq := float64(i) * hzPerBin
		weighted += freq * m
		total += m
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

func spectralRolloff(mag []float64, hzPerBin, percent float64) float64 {
	var total float64
	for _, m := range mag {
		total += m
	}
	if total == 0 {
		return 0
	}
	threshold := total * percent
	var cumulative float64
	for i, m := range mag {
		cumulative += m
		if cumulative >= threshold {
			return float64(i) * hzPerBin
		}
	}
	return float64(len(mag)-1) * hzPerBin
}

func triBandRatios(mag []float64, hzPerBin, lowHz, highHz float64) (low, mid, high float64) {
	var lowSum, midSum, highSum, total float64
	for i, m := range mag {
		freq := float64(i) * hzPerBin
		total += m
		switch {
		case freq < lowHz:
			lowSum += m
		case freq < highHz:
			midSum += m
		default:
			highSum += m
		}
	}
	if total == 0 {
		return 0, 0, 0
	}
	return lowSum / total, midSum / total, highSum / total
}

// spectralFlatness is the Wiener entropy: geometric mean / arithmetic
// mean of the magnitude spectrum (1.0 = white noise, 0.0 = pure tone).
func spectralFlatness(mag []float64) float64 {
	var logSum, sum float64
	count := 0
	for _, m := range mag {
		if m <= 0 {
			continue
		}
		logSum += math.Log(m)
		sum += m
		count++
	}
	if count == 0 || sum == 0 {
		return 0
	}
	geoMean := math.Exp(logSum / float64(count))
	arithMean := sum / float64(count)
	return geoMean / arithMean
}

func topSpectralPeaks(mag []float64, hzPerBin float64, topN int) []SpectralPeak {
	var peaks []SpectralPeak
	for i := 1; i < len(mag)-1; i++ {
		if mag[i] > mag[i-1] && mag[i] > mag[i+1] {
			peaks = append(peaks, SpectralPeak{FrequencyHz: float64(i) * hzPerBin, Magnitude: mag[i]})
		}
	}
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].Magnitude > peaks[j].Magnitude })
	if len(peaks) > topN {
		peaks = peaks[:topN]
	}
	return peaks
}
