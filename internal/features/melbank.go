package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterBank builds numFilters triangular filters over fftSize/2 bins.
// Breakpoints are evenly spaced in Mel between 0 Hz and sampleRate/2 and
// rounded to the nearest bin.
func melFilterBank(numFilters, fftSize int, sampleRate float64) [][]float64 {
	bins := fftSize / 2
	maxMel := hzToMel(sampleRate / 2)

	points := make([]int, numFilters+2)
	for i := range points {
		mel := float64(i) / float64(numFilters+1) * maxMel
		bin := int(math.Round(float64(fftSize) * melToHz(mel) / sampleRate))
		points[i] = min(bin, bins)
	}

	bank := make([][]float64, numFilters)
	for m := range bank {
		filter := make([]float64, bins)
		start, peak, end := points[m], points[m+1], points[m+2]
		for k := start; k < peak; k++ {
			filter[k] = float64(k-start) / float64(peak-start)
		}
		for k := peak; k < end; k++ {
			filter[k] = float64(end-k) / float64(end-peak)
		}
		bank[m] = filter
	}
	return bank
}

func applyFilters(bank [][]float64, power []float64) []float64 {
	out := make([]float64, len(bank))
	for i, filter := range bank {
		out[i] = floats.Dot(filter, power)
	}
	return out
}
