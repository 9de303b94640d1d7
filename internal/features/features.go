// Package features converts raw mono audio into the fixed 180-value feature
// vector consumed by the voice mood model: 128 Mel band energies, 40
// cepstral coefficients and 12 chroma bins computed from a single
// 1024-sample frame.
package features

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Fixed analysis constants. The trained model expects exactly these.
const (
	SampleRate  = 16000
	FrameSize   = 1024
	NumBins     = FrameSize / 2
	NumMel      = 128
	NumCepstral = 40
	NumChroma   = 12
	Dimension   = NumMel + NumCepstral + NumChroma

	logFloor = 1e-8
)

// Sentinel errors.
var (
	// ErrInvalidSampleData is returned when audio cannot be read as PCM or a
	// feature file does not hold exactly Dimension finite values.
	ErrInvalidSampleData = errors.New("invalid sample data")

	// ErrDimension marks a violated vector length invariant. It indicates a
	// programming defect, not bad input.
	ErrDimension = errors.New("feature dimension mismatch")
)

// DimensionError reports an assembled vector of the wrong length.
type DimensionError struct {
	Got  int
	Want int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("feature vector has %d values, want %d", e.Got, e.Want)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimension
}

// DCTNorm selects the scaling convention of the cepstral DCT-II.
type DCTNorm string

const (
	// DCTUnnormalized computes X[k] = sum x[n] cos(pi/N (n+0.5) k).
	DCTUnnormalized DCTNorm = "unnormalized"
	// DCTOrthonormal scales X[0] by sqrt(1/N) and X[k>0] by sqrt(2/N).
	DCTOrthonormal DCTNorm = "orthonormal"
)

// ParseDCTNorm validates a configured DCT convention.
func ParseDCTNorm(s string) (DCTNorm, error) {
	switch DCTNorm(s) {
	case DCTUnnormalized, "":
		return DCTUnnormalized, nil
	case DCTOrthonormal:
		return DCTOrthonormal, nil
	default:
		return "", fmt.Errorf("unknown DCT normalization %q", s)
	}
}

// Extraction is the result of a single Extract call.
type Extraction struct {
	Vector Vector
	// SamplesRead is the number of input samples used, at most FrameSize.
	SamplesRead int
	// ShortInput is set when fewer than FrameSize samples were available
	// and the frame was zero-padded.
	ShortInput bool
}

// Extractor computes feature vectors. Its tables are built once and only
// read afterwards, so one Extractor may serve concurrent callers.
type Extractor struct {
	norm    DCTNorm
	window  []float64
	filters [][]float64
	dct     [][]float64
	pitch   []int
	ffts    sync.Pool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithDCTNorm sets the cepstral DCT convention.
func WithDCTNorm(n DCTNorm) Option {
	return func(e *Extractor) {
		if n != "" {
			e.norm = n
		}
	}
}

// NewExtractor builds the window, filterbank, DCT basis and pitch-class
// tables.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{norm: DCTUnnormalized}
	for _, opt := range opts {
		opt(e)
	}

	e.window = hannWindow(FrameSize)
	e.filters = melFilterBank(NumMel, FrameSize, SampleRate)
	e.dct = dctBasis(NumMel, NumCepstral, e.norm)
	e.pitch = pitchClasses(NumBins, FrameSize, SampleRate)
	e.ffts.New = func() any {
		return fourier.NewFFT(FrameSize)
	}
	return e
}

// Norm returns the configured DCT convention.
func (e *Extractor) Norm() DCTNorm {
	return e.norm
}

// Extract computes the feature vector for the first FrameSize samples.
// Shorter input is zero-padded on the right and flagged as ShortInput.
// Samples must be finite.
func (e *Extractor) Extract(samples []float32) (Extraction, error) {
	n := min(len(samples), FrameSize)

	frame := make([]float64, FrameSize)
	for i := 0; i < n; i++ {
		s := float64(samples[i])
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return Extraction{}, fmt.Errorf("%w: non-finite sample at index %d", ErrInvalidSampleData, i)
		}
		frame[i] = s * e.window[i]
	}

	power := e.powerSpectrum(frame)

	mel := applyFilters(e.filters, power)
	logMel := make([]float64, len(mel))
	for i, v := range mel {
		logMel[i] = math.Log(v + logFloor)
	}
	cepstral := applyDCT(e.dct, logMel)
	chroma := chromagram(power, e.pitch)

	vec, err := assemble(mel, cepstral, chroma)
	if err != nil {
		return Extraction{}, err
	}

	return Extraction{
		Vector:      vec,
		SamplesRead: n,
		ShortInput:  n < FrameSize,
	}, nil
}

// assemble concatenates the three blocks into a Vector, enforcing the
// length invariant.
func assemble(mel, cepstral, chroma []float64) (Vector, error) {
	out := make(Vector, 0, Dimension)
	for _, block := range [][]float64{mel, cepstral, chroma} {
		for _, v := range block {
			out = append(out, float32(v))
		}
	}
	if len(out) != Dimension {
		return nil, &DimensionError{Got: len(out), Want: Dimension}
	}
	return out, nil
}
