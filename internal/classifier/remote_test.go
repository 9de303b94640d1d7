package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func voiceManifest(url string) Manifest {
	return Manifest{
		Name:       "voice",
		Backend:    BackendRemote,
		URL:        url,
		InputShape: []int64{1, 180},
		Classes:    []string{"happy", "sad"},
	}
}

func newModelServer(t *testing.T, meta Metadata, predict http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metadata", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(meta)
	})
	mux.HandleFunc("POST /predict", predict)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRemoteModel_Predict(t *testing.T) {
	var gotShape []int64
	server := newModelServer(t,
		Metadata{Name: "voice", InputShape: []int64{1, 180}, Classes: []string{"Happy", "Sad"}},
		func(w http.ResponseWriter, r *http.Request) {
			var req predictRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			gotShape = req.Shape
			json.NewEncoder(w).Encode(predictResponse{Label: "sad", Scores: []float32{0.3, 0.7}})
		})

	m := NewRemoteModel(voiceManifest(server.URL), nil, zap.NewNop())
	in := NewInput([]int64{1, 180}, make([]float32, 180))

	if _, err := m.Predict(context.Background(), in); !errors.Is(err, ErrModelNotLoaded) {
		t.Fatalf("before Load err = %v, want ErrModelNotLoaded", err)
	}

	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.Ready() {
		t.Fatal("expected Ready after Load")
	}

	pred, err := m.Predict(context.Background(), in)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.Label != "sad" || len(pred.Scores) != 2 || pred.Scores[1] != 0.7 {
		t.Errorf("Predict = %+v", pred)
	}
	if len(gotShape) != 2 || gotShape[1] != 180 {
		t.Errorf("server saw shape %v", gotShape)
	}

	if _, err := m.Predict(context.Background(), NewInput([]int64{1, 3}, make([]float32, 3))); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("wrong shape err = %v, want ErrShapeMismatch", err)
	}

	m.Close()
	if _, err := m.Predict(context.Background(), in); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("after Close err = %v, want ErrModelNotLoaded", err)
	}
}

func TestRemoteModel_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		wantErr error
	}{
		{"unavailable", http.StatusServiceUnavailable, nil, ErrModelNotLoaded},
		{"rejected shape", http.StatusUnprocessableEntity, nil, ErrShapeMismatch},
		{"score count mismatch", http.StatusOK, predictResponse{Scores: []float32{1, 2, 3}}, ErrScoreCount},
		{"server error", http.StatusInternalServerError, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newModelServer(t,
				Metadata{InputShape: []int64{1, 180}},
				func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					if tt.body != nil {
						json.NewEncoder(w).Encode(tt.body)
					}
				})

			m := NewRemoteModel(voiceManifest(server.URL), nil, zap.NewNop())
			if err := m.Load(context.Background()); err != nil {
				t.Fatalf("Load: %v", err)
			}

			_, err := m.Predict(context.Background(), NewInput([]int64{1, 180}, make([]float32, 180)))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRemoteModel_LoadMismatch(t *testing.T) {
	server := newModelServer(t,
		Metadata{InputShape: []int64{1, 3, 224, 224}},
		func(w http.ResponseWriter, r *http.Request) {})

	m := NewRemoteModel(voiceManifest(server.URL), nil, zap.NewNop())
	if err := m.Load(context.Background()); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("err = %v, want ErrShapeMismatch", err)
	}
	if m.Ready() {
		t.Error("model should not be ready after failed Load")
	}
}

func TestRemoteModel_LoadUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	m := NewRemoteModel(voiceManifest(url), nil, zap.NewNop())
	if err := m.Load(context.Background()); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("err = %v, want ErrModelNotLoaded", err)
	}
}
