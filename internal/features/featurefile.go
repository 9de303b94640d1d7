package features

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ParseFeatureFile reads a precomputed feature vector: Dimension
// comma-separated decimal numbers with optional surrounding whitespace.
func ParseFeatureFile(r io.Reader) (Vector, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading feature file: %v", ErrInvalidSampleData, err)
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, fmt.Errorf("%w: empty feature file", ErrInvalidSampleData)
	}

	fields := strings.Split(text, ",")
	if len(fields) != Dimension {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrInvalidSampleData, len(fields), Dimension)
	}

	vec := make(Vector, Dimension)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: value %d: %v", ErrInvalidSampleData, i, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxFloat32 {
			return nil, fmt.Errorf("%w: value %d is not a finite float", ErrInvalidSampleData, i)
		}
		vec[i] = float32(v)
	}
	return vec, nil
}

// WriteFeatureFile writes v in the format read by ParseFeatureFile.
func WriteFeatureFile(w io.Writer, v Vector) error {
	if len(v) != Dimension {
		return &DimensionError{Got: len(v), Want: Dimension}
	}
	bw := bufio.NewWriter(w)
	for i, x := range v {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	bw.WriteByte('\n')
	return bw.Flush()
}
