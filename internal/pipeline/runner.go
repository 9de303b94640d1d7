package pipeline

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/justestif/go-moodify/internal/imagetensor"
	"github.com/justestif/go-moodify/internal/mood"
	"github.com/justestif/go-moodify/internal/transition"
)

// Scheduler is the part of transition.Scheduler a Runner drives.
type Scheduler interface {
	Begin() uint64
	ScheduleAttempt(token uint64, d mood.Decision, delay time.Duration, accepted func(mood.Decision)) (transition.Pending, bool)
	Cancel() bool
}

// Observer is told about every decision that is scheduled.
type Observer interface {
	DecisionMade(d mood.Decision)
}

// Result is a completed prediction attempt. Superseded is set when the
// user canceled or started another attempt while this one was running;
// the decision is then reported but nothing is scheduled.
type Result struct {
	Outcome
	Pending    transition.Pending
	Superseded bool
}

// Runner executes prediction attempts for one user. Each attempt first
// cancels the pending transition, so a failed attempt leaves nothing
// scheduled.
type Runner struct {
	svc      *Service
	sched    Scheduler
	observer Observer
}

// NewRunner binds the service to a user's scheduler. observer may be nil.
func (s *Service) NewRunner(sched Scheduler, observer Observer) *Runner {
	return &Runner{svc: s, sched: sched, observer: observer}
}

// Run cancels any pending transition, classifies with fn and schedules the
// resulting decision unless the attempt was superseded meanwhile.
func (r *Runner) Run(ctx context.Context, m mood.Modality, fn func(context.Context) (Outcome, error)) (Result, error) {
	token := r.sched.Begin()

	out, err := fn(ctx)
	if err != nil {
		return Result{}, err
	}

	var accepted func(mood.Decision)
	if r.observer != nil {
		accepted = r.observer.DecisionMade
	}
	p, ok := r.sched.ScheduleAttempt(token, out.Decision, r.svc.Delay(m), accepted)
	if !ok {
		r.svc.logger.Info("decision superseded before scheduling",
			zap.String("decisionID", out.Decision.ID().String()),
			zap.String("modality", string(m)))
		return Result{Outcome: out, Superseded: true}, nil
	}
	return Result{Outcome: out, Pending: p}, nil
}

// PredictImage runs an attempt on an encoded image.
func (r *Runner) PredictImage(ctx context.Context, img io.Reader) (Result, error) {
	return r.Run(ctx, mood.ModalityImage, func(ctx context.Context) (Outcome, error) {
		return r.svc.ClassifyImage(ctx, img)
	})
}

// PredictFrame runs an attempt on a raw frame.
func (r *Runner) PredictFrame(ctx context.Context, f imagetensor.Frame) (Result, error) {
	return r.Run(ctx, mood.ModalityImage, func(ctx context.Context) (Outcome, error) {
		return r.svc.ClassifyFrame(ctx, f)
	})
}

// PredictWAV runs an attempt on a WAV recording.
func (r *Runner) PredictWAV(ctx context.Context, wav io.ReadSeeker) (Result, error) {
	return r.Run(ctx, mood.ModalityAudio, func(ctx context.Context) (Outcome, error) {
		return r.svc.ClassifyWAV(ctx, wav)
	})
}

// PredictSamples runs an attempt on PCM samples.
func (r *Runner) PredictSamples(ctx context.Context, samples []float32) (Result, error) {
	return r.Run(ctx, mood.ModalityAudio, func(ctx context.Context) (Outcome, error) {
		return r.svc.ClassifySamples(ctx, samples)
	})
}

// PredictFeatures runs an attempt on a feature file.
func (r *Runner) PredictFeatures(ctx context.Context, file io.Reader) (Result, error) {
	return r.Run(ctx, mood.ModalityAudio, func(ctx context.Context) (Outcome, error) {
		return r.svc.ClassifyFeatures(ctx, file)
	})
}

// PredictText runs an attempt on free text.
func (r *Runner) PredictText(ctx context.Context, text string) (Result, error) {
	return r.Run(ctx, mood.ModalityText, func(ctx context.Context) (Outcome, error) {
		return r.svc.ClassifyText(ctx, text)
	})
}

var _ Scheduler = (*transition.Scheduler)(nil)
