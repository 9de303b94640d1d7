// Package classifier defines the invocation contract for opaque, pre-trained
// fixed-shape mood models and provides ONNX, remote HTTP and
// nearest-prototype backends.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Sentinel errors.
var (
	// ErrShapeMismatch is returned when an input does not match the model's
	// declared input shape.
	ErrShapeMismatch = errors.New("input shape mismatch")

	// ErrModelNotLoaded is returned when a model is invoked before Load
	// succeeds or after Close.
	ErrModelNotLoaded = errors.New("model not loaded")

	// ErrScoreCount is returned when a model emits a different number of
	// scores than it has classes.
	ErrScoreCount = errors.New("score count does not match classes")
)

// Input is a fixed-shape float32 tensor.
type Input interface {
	Shape() []int64
	Data() []float32
}

// Prediction is the raw output of a model. Models emit per-class scores
// whose order follows their class table, a label string, or both.
type Prediction struct {
	Label  string
	Scores []float32
}

// Classifier invokes a model. Implementations return identical output for
// identical input.
type Classifier interface {
	Predict(ctx context.Context, in Input) (Prediction, error)
	InputShape() []int64
}

// Model is a Classifier with an explicit lifecycle: Load, then Ready, then
// Close. Predict fails with ErrModelNotLoaded outside that window.
type Model interface {
	Classifier
	Name() string
	Load(ctx context.Context) error
	Ready() bool
	Close() error
}

// CheckShape verifies in against the declared shape and data length.
func CheckShape(declared []int64, in Input) error {
	shape := in.Shape()
	if !slices.Equal(shape, declared) {
		return fmt.Errorf("%w: got %v, want %v", ErrShapeMismatch, shape, declared)
	}
	if n := elements(declared); int64(len(in.Data())) != n {
		return fmt.Errorf("%w: %d values for shape %v (%d elements)", ErrShapeMismatch, len(in.Data()), declared, n)
	}
	return nil
}

// checkScores verifies that a non-empty score vector has one score per
// class.
func checkScores(model string, scores []float32, classes int) error {
	if len(scores) > 0 && len(scores) != classes {
		return fmt.Errorf("%w: %s returned %d scores for %d classes", ErrScoreCount, model, len(scores), classes)
	}
	return nil
}

func elements(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

// rawInput adapts a bare shape and buffer to Input.
type rawInput struct {
	shape []int64
	data  []float32
}

func (r rawInput) Shape() []int64  { return r.shape }
func (r rawInput) Data() []float32 { return r.data }

// NewInput wraps a shape and buffer as an Input.
func NewInput(shape []int64, data []float32) Input {
	return rawInput{shape: shape, data: data}
}
