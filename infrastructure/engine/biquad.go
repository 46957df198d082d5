package engine

import (
	"math"

	"vidflow/domain/graph"
)

type coefficients struct {
	b0, b1, b2, a1, a2 float64
}

var identity = coefficients{b0: 1}

// designBiquad computes normalized RBJ cookbook coefficients.
// Shelves use a slope of 1, so q only affects the peaking response.
func designBiquad(kind graph.FilterKind, sampleRate int, freq, q, gainDB float64) coefficients {
	nyquist := float64(sampleRate) / 2
	if freq <= 0 || freq >= nyquist || q <= 0 {
		return identity
	}

	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / float64(sampleRate)
	cosw, sinw := math.Cos(w0), math.Sin(w0)

	var b0, b1, b2, a0, a1, a2 float64
	switch kind {
	case graph.Peaking:
		alpha := sinw / (2 * q)
		b0 = 1 + alpha*a
		b1 = -2 * cosw
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cosw
		a2 = 1 - alpha/a
	case graph.LowShelf:
		alpha := sinw / 2 * math.Sqrt2
		sqrtA := math.Sqrt(a)
		b0 = a * ((a + 1) - (a-1)*cosw + 2*sqrtA*alpha)
		b1 = 2 * a * ((a - 1) - (a+1)*cosw)
		b2 = a * ((a + 1) - (a-1)*cosw - 2*sqrtA*alpha)
		a0 = (a + 1) + (a-1)*cosw + 2*sqrtA*alpha
		a1 = -2 * ((a - 1) + (a+1)*cosw)
		a2 = (a + 1) + (a-1)*cosw - 2*sqrtA*alpha
	case graph.HighShelf:
		alpha := sinw / 2 * math.Sqrt2
		sqrtA := math.Sqrt(a)
		b0 = a * ((a + 1) + (a-1)*cosw + 2*sqrtA*alpha)
		b1 = -2 * a * ((a - 1) + (a+1)*cosw)
		b2 = a * ((a + 1) + (a-1)*cosw - 2*sqrtA*alpha)
		a0 = (a + 1) - (a-1)*cosw + 2*sqrtA*alpha
		a1 = 2 * ((a - 1) - (a+1)*cosw)
		a2 = (a + 1) - (a-1)*cosw - 2*sqrtA*alpha
	default:
		return identity
	}

	return coefficients{b0: b0 / a0, b1: b1 / a0, b2: b2 / a0, a1: a1 / a0, a2: a2 / a0}
}

// magnitudeAt returns the filter's linear gain at freq.
func (c coefficients) magnitudeAt(freq float64, sampleRate int) float64 {
	w := 2 * math.Pi * freq / float64(sampleRate)
	z1 := complex(math.Cos(-w), math.Sin(-w))
	z2 := z1 * z1
	num := complex(c.b0, 0) + complex(c.b1, 0)*z1 + complex(c.b2, 0)*z2
	den := complex(1, 0) + complex(c.a1, 0)*z1 + complex(c.a2, 0)*z2
	return cmplxAbs(num / den)
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// biquadState is the transposed direct form II delay line for one channel.
type biquadState struct {
	z1, z2 float64
}

func (s *biquadState) process(c coefficients, samples []float32, out []float32) {
	for i, x := range samples {
		in := float64(x)
		y := c.b0*in + s.z1
		s.z1 = c.b1*in - c.a1*y + s.z2
		s.z2 = c.b2*in - c.a2*y
		out[i] = float32(y)
	}
}
