package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/justestif/go-moodify/internal/classifier"
	"github.com/justestif/go-moodify/internal/features"
	"github.com/justestif/go-moodify/internal/imagetensor"
)

func inf() float64 { return math.Inf(1) }

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{fmt.Errorf("x: %w", &features.DimensionError{Got: 1, Want: 180}), KindDefect},
		{fmt.Errorf("x: %w", classifier.ErrModelNotLoaded), KindUnavailable},
		{imagetensor.ErrDecode, KindInput},
		{features.ErrInvalidSampleData, KindInput},
		{classifier.ErrShapeMismatch, KindInput},
		{ErrEmptyText, KindInput},
		{context.Canceled, KindCanceled},
		{errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(fmt.Errorf("wrapped: %w", ErrEmptyText)); got != "Please provide an input" {
		t.Errorf("UserMessage(empty) = %q", got)
	}
	seen := map[string]bool{}
	for _, err := range []error{
		imagetensor.ErrDecode,
		features.ErrInvalidSampleData,
		features.ErrDimension,
		classifier.ErrShapeMismatch,
		classifier.ErrModelNotLoaded,
		errors.New("other"),
	} {
		msg := UserMessage(err)
		if msg == "" || seen[msg] {
			t.Errorf("UserMessage(%v) = %q, want a distinct message", err, msg)
		}
		seen[msg] = true
	}
}
