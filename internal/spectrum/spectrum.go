// Package spectrum implements spec.md §4.8's real-time spectrum feed:
// a ring-buffered FFT magnitude analyzer that a renderer's
// SpectrumTap drives on the audio thread.
package spectrum

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/smallnest/ringbuffer"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/loomaudio/streamcore/internal/config"
)

const minBandHz = 20.0

// Update is one spectrum frame: band_count normalized magnitudes in
// [0, 1], smoothed across calls.
type Update struct {
	Bands []float64
}

// Analyzer accumulates interleaved audio into a ring buffer sized
// fft_size, and on every full buffer produces a banded, temporally
// smoothed magnitude Update via OnUpdate. Feed is meant to be wired
// directly as a renderer.SpectrumTap and runs on the audio thread;
// OnUpdate callbacks must not block it, per spec §4.8's "callback
// fires on the audio thread; UI marshals itself".
type Analyzer struct {
	mu         sync.Mutex
	ring       *ringbuffer.RingBuffer
	fft        *fourier.FFT
	fftSize    int
	bands      int
	smoothing  float64
	sampleRate int
	window     []float64
	prevBands  []float64
	scratch    []byte
	OnUpdate   func(Update)
}

// New builds a spectrum Analyzer for the given sample rate, using the
// fft_size/band_count/smoothing tunables from eng (or spec defaults).
func New(sampleRate int, eng *config.Engine) *Analyzer {
	fftSize, bands, smoothing := spectrumTunables(eng)
	return &Analyzer{
		ring:       ringbuffer.New(fftSize * 4),
		fft:        fourier.NewFFT(fftSize),
		fftSize:    fftSize,
		bands:      bands,
		smoothing:  smoothing,
		sampleRate: sampleRate,
		window:     hannWindow(fftSize),
		prevBands:  make([]float64, bands),
		scratch:    make([]byte, fftSize*4),
	}
}

func spectrumTunables(eng *config.Engine) (fftSize, bands int, smoothing float64) {
	fftSize, bands, smoothing = 2048, 64, 0.7
	if eng == nil {
		return
	}
	if eng.SpectrumFFTSize > 0 {
		fftSize = eng.SpectrumFFTSize
	}
	if eng.SpectrumBands > 0 {
		bands = eng.SpectrumBands
	}
	if eng.SpectrumSmooth > 0 {
		smoothing = eng.SpectrumSmooth
	}
	return
}

// Feed accepts interleaved samples from the renderer, takes channel 0
// only (other channels are not mixed in), and pushes them into the ring buffer,
// flushing a full fft_size block through the FFT pipeline whenever
// one accumulates.
func (a *Analyzer) Feed(samples []float32, channels int) {
	if channels <= 0 {
		channels = 1
	}
	frames := len(samples) / channels

	a.mu.Lock()
	defer a.mu.Unlock()

	buf := make([]byte, 4)
	for i := 0; i < frames; i++ {
		channel0 := samples[i*channels]
		binary.LittleEndian.PutUint32(buf, math.Float32bits(channel0))
		a.ring.Write(buf)

		for a.ring.Length() >= a.fftSize*4 {
			a.ring.Read(a.scratch)
			a.processBlock(a.scratch)
		}
	}
}

func (a *Analyzer) processBlock(raw []byte) {
	windowed := make([]float64, a.fftSize)
	for i := 0; i < a.fftSize; i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		windowed[i] = float64(math.Float32frombits(bits)) * a.window[i]
	}

	coeffs := a.fft.Coefficients(nil, windowed)
	mag := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mag[i] = math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
	}

	banded := logBand(mag, a.bands, a.sampleRate, a.fftSize)
	normalize(banded)

	for i := range banded {
		banded[i] = a.smoothing*a.prevBands[i] + (1-a.smoothing)*banded[i]
	}
	copy(a.prevBands, banded)

	if a.OnUpdate != nil {
		a.OnUpdate(Update{Bands: append([]float64(nil), banded...)})
	}
}

func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return w
}

// logBand groups FFT magnitude bins into bandCount logarithmically
// spaced bands spanning [minBandHz, nyquist), per spec §4.8's
// "down-bin into band_count logarithmic bands".
func logBand(mag []float64, bandCount, sampleRate, fftSize int) []float64 {
	out := make([]float64, bandCount)
	if sampleRate <= 0 || bandCount <= 0 {
		return out
	}
	nyquist := float64(sampleRate) / 2
	hzPerBin := float64(sampleRate) / float64(fftSize)
	ratio := math.Pow(nyquist/minBandHz, 1.0/float64(bandCount))

	for b := 0; b < bandCount; b++ {
		loHz := minBandHz * math.Pow(ratio, float64(b))
		hiHz := minBandHz * math.Pow(ratio, float64(b+1))
		loBin := int(loHz / hzPerBin)
		hiBin := int(hiHz / hzPerBin)
		if hiBin <= loBin {
			hiBin = loBin + 1
		}
		if hiBin > len(mag) {
			hiBin = len(mag)
		}
		if loBin >= hiBin {
			continue
		}
		var sum float64
		count := 0
		for i := loBin; i < hiBin; i++ {
			sum += mag[i]
			count++
		}
		if count > 0 {
			out[b] = sum / float64(count)
		}
	}
	return out
}

func normalize(bands []float64) {
	max := 0.0
	for _, v := range bands {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return
	}
	for i := range bands {
		bands[i] /= max
	}
}
