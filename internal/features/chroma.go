package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// pitchClasses maps each bin k >= 1 to round(69 + 12*log2(f/440)) mod 12.
// Bin 0 has no pitch and maps to -1.
func pitchClasses(bins, fftSize int, sampleRate float64) []int {
	classes := make([]int, bins)
	classes[0] = -1
	resolution := sampleRate / float64(fftSize)
	for k := 1; k < bins; k++ {
		midi := 69 + 12*math.Log2(float64(k)*resolution/440)
		pc := int(math.Round(midi)) % NumChroma
		if pc < 0 {
			pc += NumChroma
		}
		classes[k] = pc
	}
	return classes
}

// chromagram folds power into 12 pitch classes and normalises by the total
// when it is positive.
func chromagram(power []float64, classes []int) []float64 {
	chroma := make([]float64, NumChroma)
	for k, pc := range classes {
		if pc < 0 {
			continue
		}
		chroma[pc] += power[k]
	}
	if sum := floats.Sum(chroma); sum > 0 {
		floats.Scale(1/sum, chroma)
	}
	return chroma
}
