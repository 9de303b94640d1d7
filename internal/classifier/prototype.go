package classifier

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/muesli/clusters"
	"go.uber.org/zap"

	"github.com/justestif/go-moodify/internal/features"
)

// prototype is one centroid of a class's reference vectors.
type prototype struct {
	class  int
	center clusters.Coordinates
}

// PrototypeModel is a nearest-centroid classifier. Each class is summarised
// by one or more centroids of labelled reference vectors; the scores are a
// softmax over negative squared distances to the nearest centroid of each
// class.
type PrototypeModel struct {
	manifest Manifest
	logger   *zap.Logger

	mu         sync.RWMutex
	prototypes []prototype
}

// NewPrototypeModel creates an unloaded prototype model. Load reads
// reference feature files from manifest.References.
func NewPrototypeModel(m Manifest, logger *zap.Logger) *PrototypeModel {
	return &PrototypeModel{manifest: m, logger: logger}
}

func (m *PrototypeModel) Name() string         { return m.manifest.Name }
func (m *PrototypeModel) InputShape() []int64 { return slices.Clone(m.manifest.InputShape) }

// Load reads <References>/<class>/*.txt feature files for every class and
// trains the prototypes.
func (m *PrototypeModel) Load(ctx context.Context) error {
	refs := make([][][]float32, len(m.manifest.Classes))
	for i, class := range m.manifest.Classes {
		dir := filepath.Join(m.manifest.References, strings.ToLower(class))
		vecs, err := readReferenceDir(ctx, dir)
		if err != nil {
			return fmt.Errorf("loading references for %s: %w", class, err)
		}
		refs[i] = vecs
	}
	return m.Train(refs)
}

// Train replaces the prototypes with centroids of refs, where refs[i] holds
// the reference vectors of class i.
func (m *PrototypeModel) Train(refs [][][]float32) error {
	if len(refs) != len(m.manifest.Classes) {
		return fmt.Errorf("got references for %d classes, want %d", len(refs), len(m.manifest.Classes))
	}
	want := elements(m.manifest.InputShape)

	var protos []prototype
	for class, vecs := range refs {
		if len(vecs) == 0 {
			return fmt.Errorf("class %s has no reference vectors", m.manifest.Classes[class])
		}

		var obs clusters.Observations
		for _, v := range vecs {
			if int64(len(v)) != want {
				return fmt.Errorf("%w: reference vector has %d values, want %d", ErrShapeMismatch, len(v), want)
			}
			obs = append(obs, toCoordinates(v))
		}

		centers, err := centroids(obs, m.manifest.Clusters)
		if err != nil {
			return fmt.Errorf("clustering %s: %w", m.manifest.Classes[class], err)
		}
		for _, c := range centers {
			protos = append(protos, prototype{class: class, center: c})
		}
	}

	m.mu.Lock()
	m.prototypes = protos
	m.mu.Unlock()

	m.logger.Info("model loaded",
		zap.String("model", m.manifest.Name),
		zap.Int("prototypes", len(protos)))
	return nil
}

// maxIterations bounds the refinement of centroids.
const maxIterations = 100

// centroids returns up to k centroids of obs. k <= 1 gives the mean. The
// result depends only on the set of observations: seeds are chosen by
// farthest-point traversal over the sorted observations and refined with
// Lloyd iterations.
func centroids(obs clusters.Observations, k int) ([]clusters.Coordinates, error) {
	if k <= 1 || len(obs) == 1 {
		c, err := obs.Center()
		if err != nil {
			return nil, err
		}
		return []clusters.Coordinates{c}, nil
	}

	sorted := slices.Clone(obs)
	slices.SortStableFunc(sorted, func(a, b clusters.Observation) int {
		return slices.Compare(a.Coordinates(), b.Coordinates())
	})

	cc, err := seedClusters(sorted, min(k, len(sorted)))
	if err != nil {
		return nil, err
	}

	assigned := make([]int, len(sorted))
	for i := range assigned {
		assigned[i] = -1
	}
	for iter := 0; iter < maxIterations; iter++ {
		changes := 0
		cc.Reset()
		for i, point := range sorted {
			ci := cc.Nearest(point)
			cc[ci].Append(point)
			if assigned[i] != ci {
				assigned[i] = ci
				changes++
			}
		}
		if changes == 0 {
			break
		}
		// An empty cluster keeps its previous center.
		cc.Recenter()
	}

	var out []clusters.Coordinates
	for _, cluster := range cc {
		if len(cluster.Observations) == 0 {
			continue
		}
		out = append(out, cluster.Center)
	}
	return out, nil
}

// seedClusters picks k initial centers: the observation nearest the mean,
// then repeatedly the observation farthest from every chosen center, the
// first one winning ties. Fewer than k clusters are returned when the
// observations have fewer distinct points.
func seedClusters(obs clusters.Observations, k int) (clusters.Clusters, error) {
	mean, err := obs.Center()
	if err != nil {
		return nil, err
	}

	first, best := 0, math.Inf(1)
	for i, o := range obs {
		if d := o.Distance(mean); d < best {
			first, best = i, d
		}
	}
	cc := clusters.Clusters{{Center: slices.Clone(obs[first].Coordinates())}}

	for len(cc) < k {
		next, far := -1, 0.0
		for i, o := range obs {
			d := o.Distance(cc[cc.Nearest(o)].Center)
			if d > far {
				next, far = i, d
			}
		}
		if next < 0 {
			break
		}
		cc = append(cc, clusters.Cluster{Center: slices.Clone(obs[next].Coordinates())})
	}
	return cc, nil
}

// Ready reports whether prototypes have been trained.
func (m *PrototypeModel) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.prototypes) > 0
}

// Predict scores in against every class.
func (m *PrototypeModel) Predict(ctx context.Context, in Input) (Prediction, error) {
	if err := CheckShape(m.manifest.InputShape, in); err != nil {
		return Prediction{}, err
	}
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.prototypes) == 0 {
		return Prediction{}, fmt.Errorf("%s: %w", m.manifest.Name, ErrModelNotLoaded)
	}

	point := toCoordinates(in.Data())
	nearest := make([]float64, len(m.manifest.Classes))
	for i := range nearest {
		nearest[i] = math.Inf(1)
	}
	for _, p := range m.prototypes {
		nearest[p.class] = math.Min(nearest[p.class], point.Distance(p.center))
	}

	return Prediction{Scores: softmin(nearest)}, nil
}

// Close discards the prototypes.
func (m *PrototypeModel) Close() error {
	m.mu.Lock()
	m.prototypes = nil
	m.mu.Unlock()
	return nil
}

// softmin converts distances into probabilities favouring the smallest.
func softmin(d []float64) []float32 {
	lo := slices.Min(d)
	out := make([]float32, len(d))
	var sum float64
	exps := make([]float64, len(d))
	for i, v := range d {
		exps[i] = math.Exp(-(v - lo))
		sum += exps[i]
	}
	for i, e := range exps {
		out[i] = float32(e / sum)
	}
	return out
}

func toCoordinates(v []float32) clusters.Coordinates {
	c := make(clusters.Coordinates, len(v))
	for i, x := range v {
		c[i] = float64(x)
	}
	return c
}

func readReferenceDir(ctx context.Context, dir string) ([][]float32, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var vecs [][]float32
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := readFeatureFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		vecs = append(vecs, vec)
	}
	return vecs, nil
}

func readFeatureFile(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vec, err := features.ParseFeatureFile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return vec, nil
}

var _ Model = (*PrototypeModel)(nil)
