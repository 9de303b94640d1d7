package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultRemoteTimeout = 30 * time.Second

// Metadata is served by a remote model at GET /metadata.
type Metadata struct {
	Name       string   `json:"name"`
	InputShape []int64  `json:"input_shape"`
	Classes    []string `json:"classes"`
}

type predictRequest struct {
	Shape []int64   `json:"shape"`
	Data  []float32 `json:"data"`
}

type predictResponse struct {
	Label  string    `json:"label"`
	Scores []float32 `json:"scores"`
}

// RemoteModel calls a model served over HTTP.
type RemoteModel struct {
	manifest Manifest
	baseURL  string
	client   *http.Client
	logger   *zap.Logger
	ready    atomic.Bool
}

// NewRemoteModel creates an unloaded remote model. A nil client gets a
// default one using the manifest timeout.
func NewRemoteModel(m Manifest, client *http.Client, logger *zap.Logger) *RemoteModel {
	if client == nil {
		timeout := m.Timeout
		if timeout <= 0 {
			timeout = defaultRemoteTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &RemoteModel{
		manifest: m,
		baseURL:  strings.TrimRight(m.URL, "/"),
		client:   client,
		logger:   logger,
	}
}

func (m *RemoteModel) Name() string         { return m.manifest.Name }
func (m *RemoteModel) InputShape() []int64 { return slices.Clone(m.manifest.InputShape) }
func (m *RemoteModel) Ready() bool         { return m.ready.Load() }

// Load fetches the remote metadata and checks that it agrees with the
// manifest.
func (m *RemoteModel) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/metadata", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetching metadata: %v", ErrModelNotLoaded, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: metadata %s: %s", ErrModelNotLoaded, resp.Status, strings.TrimSpace(string(body)))
	}

	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return fmt.Errorf("decoding metadata: %w", err)
	}

	if !slices.Equal(meta.InputShape, m.manifest.InputShape) {
		return fmt.Errorf("%w: remote input shape %v, manifest %v", ErrShapeMismatch, meta.InputShape, m.manifest.InputShape)
	}
	if len(meta.Classes) > 0 && !equalFold(meta.Classes, m.manifest.Classes) {
		return fmt.Errorf("remote classes %v differ from manifest %v", meta.Classes, m.manifest.Classes)
	}

	m.ready.Store(true)
	m.logger.Info("model loaded",
		zap.String("model", m.manifest.Name),
		zap.String("url", m.baseURL))
	return nil
}

// Predict posts the input tensor to /predict.
func (m *RemoteModel) Predict(ctx context.Context, in Input) (Prediction, error) {
	if err := CheckShape(m.manifest.InputShape, in); err != nil {
		return Prediction{}, err
	}
	if !m.ready.Load() {
		return Prediction{}, fmt.Errorf("%s: %w", m.manifest.Name, ErrModelNotLoaded)
	}

	b, err := json.Marshal(predictRequest{Shape: in.Shape(), Data: in.Data()})
	if err != nil {
		return Prediction{}, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/predict", bytes.NewReader(b))
	if err != nil {
		return Prediction{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("calling %s: %w", m.manifest.Name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusServiceUnavailable:
		return Prediction{}, fmt.Errorf("%s: %w: remote unavailable", m.manifest.Name, ErrModelNotLoaded)
	case http.StatusUnprocessableEntity:
		return Prediction{}, fmt.Errorf("%s: %w: rejected by remote", m.manifest.Name, ErrShapeMismatch)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Prediction{}, fmt.Errorf("predict %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Prediction{}, fmt.Errorf("decoding prediction: %w", err)
	}
	if err := checkScores(m.manifest.Name, out.Scores, len(m.manifest.Classes)); err != nil {
		return Prediction{}, err
	}
	return Prediction{Label: out.Label, Scores: out.Scores}, nil
}

// Close marks the model unavailable.
func (m *RemoteModel) Close() error {
	m.ready.Store(false)
	return nil
}

func equalFold(a, b []string) bool {
	return slices.EqualFunc(a, b, strings.EqualFold)
}

var _ Model = (*RemoteModel)(nil)
