package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/justestif/go-moodify/internal/classifier"
	"github.com/justestif/go-moodify/internal/config"
	"github.com/justestif/go-moodify/internal/features"
	"github.com/justestif/go-moodify/internal/mood"
	"github.com/justestif/go-moodify/internal/pipeline"
)

// defaultLoadRetry is the wait before each background reload of a model
// that failed to load; the last delay repeats until the load succeeds.
var defaultLoadRetry = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 30 * time.Second}

// app is the prediction stack built from configuration.
type app struct {
	svc      *pipeline.Service
	fallback mood.Label
	runtime  *classifier.Runtime
	models   []classifier.Model
	logger   *zap.Logger

	// loadRetry, when set, keeps models whose first Load fails and retries
	// them in the background. Their pathway reports ErrModelNotLoaded until
	// a retry succeeds.
	loadRetry []time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// appOption configures newApp.
type appOption func(*app)

// withLoadRetry retries failed model loads after the given delays.
func withLoadRetry(delays []time.Duration) appOption {
	return func(a *app) {
		a.loadRetry = delays
	}
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...appOption) (_ *app, err error) {
	a := &app{logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	fallback, ok := mood.Parse(cfg.Mood.Default)
	if !ok {
		return nil, fmt.Errorf("mood.default: unknown mood %q", cfg.Mood.Default)
	}
	a.fallback = fallback

	norm, err := features.ParseDCTNorm(cfg.Features.DCT)
	if err != nil {
		return nil, fmt.Errorf("features.dct: %w", err)
	}

	popts := []pipeline.Option{
		pipeline.WithExtractor(features.NewExtractor(features.WithDCTNorm(norm))),
		pipeline.WithResolver(mood.NewResolver(fallback)),
		pipeline.WithDelay(cfg.Transition.Delay),
		pipeline.WithLogger(logger),
	}

	if cfg.Models.Image.Enabled() {
		model, table, err := a.loadModel(ctx, cfg, "image", cfg.Models.Image)
		if err != nil {
			return nil, err
		}
		popts = append(popts, pipeline.WithImageModel(model, table))
	}
	if cfg.Models.Audio.Enabled() {
		model, table, err := a.loadModel(ctx, cfg, "audio", cfg.Models.Audio)
		if err != nil {
			return nil, err
		}
		popts = append(popts, pipeline.WithAudioModel(model, table))
	}

	if cfg.Text.GeminiKey != "" {
		labeler, err := classifier.NewGeminiLabeler(ctx, cfg.Text.GeminiKey, cfg.Text.Model, mood.AudioTable, logger)
		if err != nil {
			return nil, fmt.Errorf("creating text labeller: %w", err)
		}
		popts = append(popts, pipeline.WithTextLabeler(labeler))
	}

	a.svc = pipeline.NewService(popts...)
	return a, nil
}

// loadModel reads the manifest, applies configured overrides and loads
// the model.
func (a *app) loadModel(ctx context.Context, cfg config.Config, name string, mc config.ModelConfig) (classifier.Model, mood.Table, error) {
	m, err := classifier.LoadManifest(mc.Manifest)
	if err != nil {
		return nil, nil, fmt.Errorf("%s model: %w", name, err)
	}
	if mc.Backend != "" {
		m.Backend = classifier.Backend(mc.Backend)
	}
	if mc.URL != "" {
		m.URL = mc.URL
	}
	if mc.Timeout > 0 && m.Timeout == 0 {
		m.Timeout = mc.Timeout
	}
	if mc.References != "" {
		m.References = mc.References
	}

	table, err := m.Table()
	if err != nil {
		return nil, nil, fmt.Errorf("%s model: %w", name, err)
	}

	if m.Backend == classifier.BackendONNX && a.runtime == nil {
		rt, err := classifier.NewRuntime(cfg.ONNX.Library)
		if err != nil {
			return nil, nil, err
		}
		a.runtime = rt
	}

	model, err := classifier.New(m, classifier.Deps{Runtime: a.runtime, Logger: a.logger})
	if err != nil {
		return nil, nil, fmt.Errorf("%s model: %w", name, err)
	}
	a.models = append(a.models, model)

	if err := model.Load(ctx); err != nil {
		if len(a.loadRetry) == 0 {
			return nil, nil, fmt.Errorf("%s model: %w", name, err)
		}
		a.logger.Warn("model not loaded, retrying in background",
			zap.String("modality", name),
			zap.String("model", model.Name()),
			zap.Error(err))
		a.wg.Add(1)
		go a.retryLoad(name, model)
		return model, table, nil
	}
	a.logger.Info("model loaded",
		zap.String("modality", name),
		zap.String("model", model.Name()),
		zap.String("backend", string(m.Backend)),
		zap.Int64s("inputShape", model.InputShape()))
	return model, table, nil
}

// retryLoad calls Load until it succeeds or the app is closed.
func (a *app) retryLoad(name string, model classifier.Model) {
	defer a.wg.Done()

	for attempt := 0; ; attempt++ {
		delay := a.loadRetry[min(attempt, len(a.loadRetry)-1)]
		select {
		case <-a.ctx.Done():
			return
		case <-time.After(delay):
		}

		err := model.Load(a.ctx)
		if err == nil {
			a.logger.Info("model loaded after retry",
				zap.String("modality", name),
				zap.String("model", model.Name()),
				zap.Int("attempts", attempt+1))
			return
		}
		if a.ctx.Err() != nil {
			return
		}
		a.logger.Warn("model reload failed",
			zap.String("modality", name),
			zap.String("model", model.Name()),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
}

// Close stops background reloads, then releases models before the runtime
// they run on.
func (a *app) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	var errs []error
	for _, m := range a.models {
		errs = append(errs, m.Close())
	}
	if a.runtime != nil {
		errs = append(errs, a.runtime.Close())
	}
	return errors.Join(errs...)
}
