package pipeline

import (
	"context"
	"errors"

	"github.com/justestif/go-moodify/internal/classifier"
	"github.com/justestif/go-moodify/internal/features"
	"github.com/justestif/go-moodify/internal/imagetensor"
)

// Kind groups prediction errors by who has to act on them.
type Kind int

const (
	KindInternal Kind = iota
	// KindInput means the user supplied unusable input.
	KindInput
	// KindUnavailable means the model could not be invoked.
	KindUnavailable
	// KindDefect means an internal invariant was violated.
	KindDefect
	// KindCanceled means the caller gave up.
	KindCanceled
)

// Classify returns the Kind of err.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, features.ErrDimension):
		return KindDefect
	case errors.Is(err, classifier.ErrModelNotLoaded):
		return KindUnavailable
	case errors.Is(err, imagetensor.ErrDecode),
		errors.Is(err, features.ErrInvalidSampleData),
		errors.Is(err, classifier.ErrShapeMismatch),
		errors.Is(err, ErrEmptyText):
		return KindInput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

// UserMessage returns the message shown to the user for a failed attempt.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyText):
		return "Please provide an input"
	case errors.Is(err, imagetensor.ErrDecode):
		return "We couldn't read that photo. Please take another one."
	case errors.Is(err, features.ErrInvalidSampleData):
		return "We couldn't read that recording. Please record again."
	case errors.Is(err, features.ErrDimension):
		return "Something went wrong analysing your recording. Please try again."
	case errors.Is(err, classifier.ErrShapeMismatch):
		return "That input doesn't fit the mood model. Please try again."
	case errors.Is(err, classifier.ErrModelNotLoaded):
		return "The mood model isn't available right now. Please try again later."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was canceled."
	default:
		return "Something went wrong. Please try again."
	}
}
