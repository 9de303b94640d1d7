package classifier

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/justestif/go-moodify/internal/mood"
)

// Backend names a model implementation.
type Backend string

// Supported backends.
const (
	BackendONNX      Backend = "onnx"
	BackendRemote    Backend = "remote"
	BackendPrototype Backend = "prototype"
)

// Manifest describes a trained model: where it lives, what it expects and
// the class order of its output.
type Manifest struct {
	Name       string        `yaml:"name"`
	Backend    Backend       `yaml:"backend"`
	Path       string        `yaml:"path"`
	URL        string        `yaml:"url"`
	InputName  string        `yaml:"input_name"`
	OutputName string        `yaml:"output_name"`
	InputShape []int64       `yaml:"input_shape"`
	Classes    []string      `yaml:"classes"`
	Timeout    time.Duration `yaml:"timeout"`
	// References is a directory of labelled feature files for the
	// prototype backend, one sub-directory per class.
	References string `yaml:"references"`
	// Clusters is the number of prototypes per class for the prototype
	// backend.
	Clusters int `yaml:"clusters"`
}

// LoadManifest reads a YAML manifest. Relative paths inside it resolve
// against the manifest's directory.
func LoadManifest(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	var m Manifest
	if err := yaml.NewDecoder(f).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decoding manifest %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if m.Path != "" && !filepath.IsAbs(m.Path) {
		m.Path = filepath.Join(dir, m.Path)
	}
	if m.References != "" && !filepath.IsAbs(m.References) {
		m.References = filepath.Join(dir, m.References)
	}

	if err := m.Validate(); err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Validate checks that the manifest is usable by its backend.
func (m Manifest) Validate() error {
	if len(m.InputShape) == 0 {
		return fmt.Errorf("input_shape is required")
	}
	for _, d := range m.InputShape {
		if d <= 0 {
			return fmt.Errorf("input_shape %v has a non-positive dimension", m.InputShape)
		}
	}
	if _, err := m.Table(); err != nil {
		return err
	}

	switch m.Backend {
	case BackendONNX:
		if m.Path == "" || m.InputName == "" || m.OutputName == "" {
			return fmt.Errorf("onnx backend needs path, input_name and output_name")
		}
	case BackendRemote:
		if m.URL == "" {
			return fmt.Errorf("remote backend needs url")
		}
	case BackendPrototype:
		if m.References == "" {
			return fmt.Errorf("prototype backend needs references")
		}
	default:
		return fmt.Errorf("unknown backend %q", m.Backend)
	}
	return nil
}

// Table returns the ordered class labels.
func (m Manifest) Table() (mood.Table, error) {
	if len(m.Classes) == 0 {
		return nil, fmt.Errorf("classes are required")
	}
	table := make(mood.Table, len(m.Classes))
	for i, c := range m.Classes {
		l, ok := mood.Parse(c)
		if !ok {
			return nil, fmt.Errorf("class %d: unknown mood %q", i, c)
		}
		table[i] = l
	}
	return table, nil
}
