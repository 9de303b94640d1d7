package features

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// hannWindow returns the periodic Hann window 0.5*(1-cos(2*pi*n/N)).
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}

// powerSpectrum returns NumBins power values for a windowed frame. Bin 0
// carries both real-valued end points of the transform, DC and Nyquist,
// packed as real and imaginary parts.
func (e *Extractor) powerSpectrum(frame []float64) []float64 {
	fft := e.ffts.Get().(*fourier.FFT)
	// Coefficients is the unscaled DFT, which is already the packed real
	// FFT output halved; no further scaling is applied.
	coeffs := fft.Coefficients(nil, frame)
	e.ffts.Put(fft)

	power := make([]float64, NumBins)
	dc := real(coeffs[0])
	nyquist := real(coeffs[NumBins])
	power[0] = dc*dc + nyquist*nyquist
	for k := 1; k < NumBins; k++ {
		re, im := real(coeffs[k]), imag(coeffs[k])
		power[k] = re*re + im*im
	}
	return power
}
