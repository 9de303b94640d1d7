package classifier

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// Runtime owns the process-wide ONNX Runtime environment. Create it once at
// startup, share it between models and Close it after every model is
// closed.
type Runtime struct {
	mu     sync.Mutex
	closed bool
}

// NewRuntime loads the ONNX Runtime shared library and initialises the
// environment.
func NewRuntime(libraryPath string) (*Runtime, error) {
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initializing onnx runtime: %w", err)
	}
	return &Runtime{}, nil
}

// Close destroys the environment.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return ort.DestroyEnvironment()
}

func (r *Runtime) ready() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && ort.IsInitialized()
}

// ONNXModel runs a single-input, single-output float32 ONNX graph.
type ONNXModel struct {
	manifest Manifest
	runtime  *Runtime
	logger   *zap.Logger

	mu      sync.RWMutex
	session *ort.DynamicAdvancedSession
}

// NewONNXModel creates an unloaded model. Call Load before Predict.
func NewONNXModel(m Manifest, runtime *Runtime, logger *zap.Logger) *ONNXModel {
	return &ONNXModel{
		manifest: m,
		runtime:  runtime,
		logger:   logger,
	}
}

func (m *ONNXModel) Name() string         { return m.manifest.Name }
func (m *ONNXModel) InputShape() []int64 { return slices.Clone(m.manifest.InputShape) }

// Load creates the inference session. Calling Load on a loaded model is a
// no-op.
func (m *ONNXModel) Load(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return nil
	}
	if !m.runtime.ready() {
		return fmt.Errorf("loading %s: %w: onnx runtime not initialized", m.manifest.Name, ErrModelNotLoaded)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("creating session options: %w", err)
	}
	defer opts.Destroy()

	if err := opts.SetIntraOpNumThreads(0); err != nil {
		m.logger.Warn("failed to set onnx thread count", zap.Error(err))
	}

	session, err := ort.NewDynamicAdvancedSession(
		m.manifest.Path,
		[]string{m.manifest.InputName},
		[]string{m.manifest.OutputName},
		opts,
	)
	if err != nil {
		return fmt.Errorf("creating session for %s: %w", m.manifest.Path, err)
	}

	m.session = session
	m.logger.Info("model loaded",
		zap.String("model", m.manifest.Name),
		zap.String("path", m.manifest.Path),
		zap.Int64s("inputShape", m.manifest.InputShape))
	return nil
}

// Ready reports whether Predict can run.
func (m *ONNXModel) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil
}

// Predict runs the graph and returns the first output as class scores.
func (m *ONNXModel) Predict(ctx context.Context, in Input) (Prediction, error) {
	if err := CheckShape(m.manifest.InputShape, in); err != nil {
		return Prediction{}, err
	}
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Prediction{}, fmt.Errorf("%s: %w", m.manifest.Name, ErrModelNotLoaded)
	}

	input, err := ort.NewTensor(ort.NewShape(in.Shape()...), in.Data())
	if err != nil {
		return Prediction{}, fmt.Errorf("creating input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := make([]ort.Value, 1)
	if err := m.session.Run([]ort.Value{input}, outputs); err != nil {
		return Prediction{}, fmt.Errorf("running %s: %w", m.manifest.Name, err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return Prediction{}, errors.New("output tensor is not float32")
	}

	// Copy before the output tensor is destroyed.
	scores := slices.Clone(out.GetData())
	if err := checkScores(m.manifest.Name, scores, len(m.manifest.Classes)); err != nil {
		return Prediction{}, err
	}
	return Prediction{Scores: scores}, nil
}

// Close destroys the session. The model may be loaded again afterwards.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}

var _ Model = (*ONNXModel)(nil)
