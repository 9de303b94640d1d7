// Package pipeline runs mood prediction attempts: raw input goes through the
// tensor builder or feature extractor, the classifier and the resolver, and
// the resulting decision is handed to a transition scheduler.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/justestif/go-moodify/internal/classifier"
	"github.com/justestif/go-moodify/internal/features"
	"github.com/justestif/go-moodify/internal/imagetensor"
	"github.com/justestif/go-moodify/internal/mood"
	"github.com/justestif/go-moodify/internal/transition"
)

// ErrEmptyText is returned for blank text input.
var ErrEmptyText = errors.New("empty text input")

// Outcome is the result of classifying one input.
type Outcome struct {
	Decision mood.Decision
	// Scores are the raw class scores, when the model produced them.
	Scores []float32
	// ShortInput is set when audio was zero-padded to a full frame.
	ShortInput bool
}

// Service classifies inputs. It holds no per-user state and is safe for
// concurrent use.
type Service struct {
	imageModel classifier.Classifier
	imageTable mood.Table
	audioModel classifier.Classifier
	audioTable mood.Table
	labeler    classifier.TextLabeler
	extractor  *features.Extractor
	resolver   *mood.Resolver
	delay      time.Duration
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithImageModel sets the face model and its class table.
func WithImageModel(c classifier.Classifier, table mood.Table) Option {
	return func(s *Service) {
		s.imageModel = c
		s.imageTable = table
	}
}

// WithAudioModel sets the voice model and its class table.
func WithAudioModel(c classifier.Classifier, table mood.Table) Option {
	return func(s *Service) {
		s.audioModel = c
		s.audioTable = table
	}
}

// WithTextLabeler sets the labeller used for free text.
func WithTextLabeler(l classifier.TextLabeler) Option {
	return func(s *Service) {
		s.labeler = l
	}
}

// WithExtractor sets the audio feature extractor.
func WithExtractor(e *features.Extractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithResolver sets the mood resolver.
func WithResolver(r *mood.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithDelay sets how long image and audio decisions are shown before
// navigating.
func WithDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a Service. Models that are not configured make the
// matching pathway fail with classifier.ErrModelNotLoaded.
func NewService(opts ...Option) *Service {
	s := &Service{
		imageTable: mood.ImageTable,
		audioTable: mood.AudioTable,
		extractor:  features.NewExtractor(),
		resolver:   mood.NewResolver(mood.Happy),
		delay:      transition.DefaultDelay,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Delay returns the display delay before navigation for a modality.
func (s *Service) Delay(m mood.Modality) time.Duration {
	if m == mood.ModalityText {
		return 0
	}
	return s.delay
}

// ClassifyFrame classifies a captured camera frame.
func (s *Service) ClassifyFrame(ctx context.Context, f imagetensor.Frame) (Outcome, error) {
	tensor, err := imagetensor.Build(f)
	if err != nil {
		return s.fail(mood.ModalityImage, err)
	}
	return s.classify(ctx, mood.ModalityImage, s.imageModel, s.imageTable, tensor, false)
}

// ClassifyImage decodes an encoded image and classifies it.
func (s *Service) ClassifyImage(ctx context.Context, r io.Reader) (Outcome, error) {
	f, err := imagetensor.DecodeFrame(r)
	if err != nil {
		return s.fail(mood.ModalityImage, err)
	}
	return s.ClassifyFrame(ctx, f)
}

// ClassifySamples extracts features from PCM samples and classifies them.
func (s *Service) ClassifySamples(ctx context.Context, samples []float32) (Outcome, error) {
	ex, err := s.extractor.Extract(samples)
	if err != nil {
		return s.fail(mood.ModalityAudio, err)
	}
	if ex.ShortInput {
		s.logger.Warn("short audio input zero-padded",
			zap.Int("samplesRead", ex.SamplesRead),
			zap.Int("frameSize", features.FrameSize))
	}
	return s.classify(ctx, mood.ModalityAudio, s.audioModel, s.audioTable, ex.Vector, ex.ShortInput)
}

// ClassifyWAV reads a WAV recording and classifies it.
func (s *Service) ClassifyWAV(ctx context.Context, r io.ReadSeeker) (Outcome, error) {
	samples, err := features.ReadWAV(r)
	if err != nil {
		return s.fail(mood.ModalityAudio, err)
	}
	return s.ClassifySamples(ctx, samples)
}

// ClassifyFeatures classifies a precomputed feature file.
func (s *Service) ClassifyFeatures(ctx context.Context, r io.Reader) (Outcome, error) {
	vec, err := features.ParseFeatureFile(r)
	if err != nil {
		return s.fail(mood.ModalityAudio, err)
	}
	return s.classify(ctx, mood.ModalityAudio, s.audioModel, s.audioTable, vec, false)
}

// ClassifyText resolves free text against the voice model's classes. A
// configured labeller interprets the text first; if it fails, the raw text
// is matched directly.
func (s *Service) ClassifyText(ctx context.Context, text string) (Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return s.fail(mood.ModalityText, ErrEmptyText)
	}

	label := text
	if s.labeler != nil {
		got, err := s.labeler.LabelText(ctx, text)
		if err != nil {
			s.logger.Warn("text labeller failed, matching raw text", zap.Error(err))
		} else {
			label = got
		}
	}

	d := mood.NewDecision(s.resolver.ResolveText(label, s.audioTable), mood.ModalityText)
	s.logDecision(d)
	return Outcome{Decision: d}, nil
}

func (s *Service) classify(ctx context.Context, m mood.Modality, model classifier.Classifier, table mood.Table, in classifier.Input, short bool) (Outcome, error) {
	if model == nil {
		return s.fail(m, fmt.Errorf("%s model: %w", m, classifier.ErrModelNotLoaded))
	}

	pred, err := model.Predict(ctx, in)
	if err != nil {
		return s.fail(m, err)
	}

	var opts []mood.DecisionOption
	var label mood.Label
	if len(pred.Scores) > 0 {
		label = s.resolver.Resolve(pred.Scores, table)
		if i, ok := mood.Argmax(pred.Scores); ok && i < len(table) {
			opts = append(opts, mood.WithConfidence(pred.Scores[i]))
		}
	} else {
		label = s.resolver.ResolveText(pred.Label, table)
	}

	d := mood.NewDecision(label, m, opts...)
	s.logDecision(d)
	return Outcome{Decision: d, Scores: pred.Scores, ShortInput: short}, nil
}

func (s *Service) logDecision(d mood.Decision) {
	fields := []zap.Field{
		zap.String("decisionID", d.ID().String()),
		zap.String("modality", string(d.Source())),
		zap.String("label", d.Label().String()),
	}
	if c, ok := d.Confidence(); ok {
		fields = append(fields, zap.Float32("confidence", c))
	}
	s.logger.Info("mood resolved", fields...)
}

// fail logs err by category and returns it. Dimension violations are
// defects and are logged apart from input errors.
func (s *Service) fail(m mood.Modality, err error) (Outcome, error) {
	fields := []zap.Field{zap.String("modality", string(m)), zap.Error(err)}
	switch Classify(err) {
	case KindDefect:
		s.logger.Error("feature dimension invariant violated", append(fields, zap.Bool("defect", true))...)
	case KindUnavailable:
		s.logger.Error("model unavailable", fields...)
	case KindInput:
		s.logger.Warn("prediction rejected input", fields...)
	case KindCanceled:
		s.logger.Info("prediction canceled", fields...)
	default:
		s.logger.Error("prediction failed", fields...)
	}
	return Outcome{}, err
}
