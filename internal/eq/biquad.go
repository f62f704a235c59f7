// Package eq implements the 10-band parametric peaking biquad equalizer
// described in spec §4.2: Audio-EQ-Cookbook coefficients, transposed
// direct-form-II per-channel state, target/current gain smoothing,
// coefficient interpolation, and soft state reset on large gain jumps.
package eq

import "math"

// biquadCoeffs holds a peaking biquad's normalized coefficients (a0 has
// already been divided out, so only b0,b1,b2,a1,a2 remain).
type biquadCoeffs struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// identityCoeffs is the coefficient set for a 0 dB peaking band: pure
// passthrough (b0=1, all others 0).
var identityCoeffs = biquadCoeffs{b0: 1}

// peakingCoeffs computes the Audio-EQ-Cookbook peaking biquad
// coefficients for a band at centerHz with quality Q and gainDB, at
// sampleRate Fs, per spec §4.2.
func peakingCoeffs(centerHz, q, gainDB, sampleRate float64) biquadCoeffs {
	if gainDB == 0 {
		return identityCoeffs
	}
	w0 := 2 * math.Pi * centerHz / sampleRate
	a := math.Pow(10, gainDB/40)
	alpha := math.Sin(w0) / (2 * q)
	cosW0 := math.Cos(w0)

	b0 := 1 + alpha*a
	b1 := -2 * cosW0
	b2 := 1 - alpha*a
	a0 := 1 + alpha/a
	a1 := -2 * cosW0
	a2 := 1 - alpha/a

	return biquadCoeffs{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: a1 / a0,
		a2: a2 / a0,
	}
}

// lerpCoeffs linearly interpolates from prev to next with weight w
// (w=0 keeps prev, w=1 jumps straight to next).
func lerpCoeffs(prev, next biquadCoeffs, w float64) biquadCoeffs {
	lerp := func(a, b float64) float64 { return a + (b-a)*w }
	return biquadCoeffs{
		b0: lerp(prev.b0, next.b0),
		b1: lerp(prev.b1, next.b1),
		b2: lerp(prev.b2, next.b2),
		a1: lerp(prev.a1, next.a1),
		a2: lerp(prev.a2, next.a2),
	}
}

// biquadState is a single channel's transposed-direct-form-II delay
// line, mirroring the teacher equalizer package's in1/in2/out1/out2
// per-channel state arrays, collapsed to the TDF-II z1/z2 pair.
type biquadState struct {
	z1, z2 float64
}

// process runs one sample through the filter using transposed direct
// form II and returns the filtered sample, mutating s in place.
func (c biquadCoeffs) process(s *biquadState, x float64) float64 {
	y := c.b0*x + s.z1
	s.z1 = c.b1*x - c.a1*y + s.z2
	s.z2 = c.b2*x - c.a2*y
	return y
}

// softReset attenuates the filter's stored state by factor, used when a
// band's gain jumps by more than 6 dB between render passes to avoid an
// audible transient pop.
func (s *biquadState) softReset(factor float64) {
	s.z1 *= factor
	s.z2 *= factor
}

func (s *biquadState) clear() {
	s.z1, s.z2 = 0, 0
}
