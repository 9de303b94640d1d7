package classifier

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Deps carries the shared collaborators model backends may need.
type Deps struct {
	Runtime    *Runtime
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// New builds an unloaded Model for the manifest's backend.
func New(m Manifest, deps Deps) (Model, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch m.Backend {
	case BackendONNX:
		if deps.Runtime == nil {
			return nil, fmt.Errorf("model %s: onnx backend needs a runtime", m.Name)
		}
		return NewONNXModel(m, deps.Runtime, logger), nil
	case BackendRemote:
		return NewRemoteModel(m, deps.HTTPClient, logger), nil
	case BackendPrototype:
		return NewPrototypeModel(m, logger), nil
	default:
		return nil, fmt.Errorf("model %s: unknown backend %q", m.Name, m.Backend)
	}
}
