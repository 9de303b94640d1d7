package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// dctBasis returns the first `keep` rows of an n-point DCT-II matrix.
func dctBasis(n, keep int, norm DCTNorm) [][]float64 {
	basis := make([][]float64, keep)
	for k := range basis {
		row := make([]float64, n)
		for i := range row {
			row[i] = math.Cos(math.Pi / float64(n) * (float64(i) + 0.5) * float64(k))
		}
		if norm == DCTOrthonormal {
			scale := math.Sqrt(2 / float64(n))
			if k == 0 {
				scale = math.Sqrt(1 / float64(n))
			}
			floats.Scale(scale, row)
		}
		basis[k] = row
	}
	return basis
}

func applyDCT(basis [][]float64, x []float64) []float64 {
	out := make([]float64, len(basis))
	for k, row := range basis {
		out[k] = floats.Dot(row, x)
	}
	return out
}
