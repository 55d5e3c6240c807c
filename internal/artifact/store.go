// Package artifact keeps the files training produces and serving reads.
//
//	<root>/processed/schema.json         feature schema and encodings
//	<root>/processed/scaler.json         scaler state
//	<root>/processed/{X,y}_{train,test}.json
//	<root>/processed/feature_means.json  serving form defaults
//	<root>/models/model.json             classifier artifact
//	<root>/models/evaluation.png         evaluation chart
//
// Versioned files carry the schema version they were built with, and loading
// refuses to combine files from different versions.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"effpred/pkg/loader"
	"effpred/pkg/model"
	"effpred/pkg/pipeline"
	"effpred/pkg/schema"
	"effpred/pkg/stats"
)

const (
	SchemaFile       = "schema.json"
	ScalerFile       = "scaler.json"
	FeatureMeansFile = "feature_means.json"
	ModelFile        = "model.json"
	ChartFile        = "evaluation.png"
)

var _ pipeline.ArtifactStore = (*Store)(nil)

// Store reads and writes artifacts below a root directory.
type Store struct {
	root string
	log  *zap.Logger
}

func New(root string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{root: root, log: log}
}

func (s *Store) ProcessedDir() string { return filepath.Join(s.root, "processed") }
func (s *Store) ModelsDir() string    { return filepath.Join(s.root, "models") }
func (s *Store) ChartPath() string    { return filepath.Join(s.ModelsDir(), ChartFile) }
func (s *Store) FeatureMeansPath() string {
	return filepath.Join(s.ProcessedDir(), FeatureMeansFile)
}

type envelope struct {
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

func (s *Store) writeVersioned(path, version string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeJSON(path, envelope{SchemaVersion: version, Payload: payload})
}

func (s *Store) readVersioned(path, version string, v any) error {
	var env envelope
	if err := readJSON(path, &env); err != nil {
		return err
	}
	if env.SchemaVersion != version {
		return fmt.Errorf("%w: %s was built for schema %q, current schema is %q",
			pipeline.ErrSchemaMismatch, filepath.Base(path), env.SchemaVersion, version)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) SaveSchema(sc *schema.Schema) error {
	path := filepath.Join(s.ProcessedDir(), SchemaFile)
	if err := writeJSON(path, sc); err != nil {
		return err
	}
	s.log.Debug("saved schema", zap.String("path", path), zap.String("version", sc.Version))
	return nil
}

// LoadSchema reads and validates the persisted schema.
func (s *Store) LoadSchema() (*schema.Schema, error) {
	var sc schema.Schema
	if err := readJSON(filepath.Join(s.ProcessedDir(), SchemaFile), &sc); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", SchemaFile, err)
	}
	return &sc, nil
}

func (s *Store) SaveScaler(version string, sc *stats.StandardScaler) error {
	return s.writeVersioned(filepath.Join(s.ProcessedDir(), ScalerFile), version, sc)
}

func (s *Store) LoadScaler(version string) (*stats.StandardScaler, error) {
	var sc stats.StandardScaler
	if err := s.readVersioned(filepath.Join(s.ProcessedDir(), ScalerFile), version, &sc); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ScalerFile, err)
	}
	return &sc, nil
}

// SaveSplit writes the four partitions as separate files.
func (s *Store) SaveSplit(version string, sp *loader.Split) error {
	parts := []struct {
		name string
		v    any
	}{
		{"X_train.json", sp.XTrain},
		{"X_test.json", sp.XTest},
		{"y_train.json", sp.YTrain},
		{"y_test.json", sp.YTest},
	}
	for _, p := range parts {
		if err := s.writeVersioned(filepath.Join(s.ProcessedDir(), p.name), version, p.v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) LoadSplit(version string) (*loader.Split, error) {
	var sp loader.Split
	parts := []struct {
		name string
		v    any
	}{
		{"X_train.json", &sp.XTrain},
		{"X_test.json", &sp.XTest},
		{"y_train.json", &sp.YTrain},
		{"y_test.json", &sp.YTest},
	}
	for _, p := range parts {
		if err := s.readVersioned(filepath.Join(s.ProcessedDir(), p.name), version, p.v); err != nil {
			return nil, err
		}
	}
	return &sp, nil
}

func (s *Store) SaveFeatureMeans(means map[string]float64) error {
	return writeJSON(s.FeatureMeansPath(), means)
}

// LoadFeatureMeans reads the serving defaults. Entries that are not numbers
// are skipped. Callers treat any error as "no means available".
func (s *Store) LoadFeatureMeans() (map[string]float64, error) {
	var raw map[string]any
	if err := readJSON(s.FeatureMeansPath(), &raw); err != nil {
		return nil, err
	}
	means := make(map[string]float64, len(raw))
	for name, v := range raw {
		x, ok := v.(float64)
		if !ok {
			s.log.Debug("skipping non-numeric feature mean", zap.String("field", name))
			continue
		}
		means[name] = x
	}
	return means, nil
}

func (s *Store) SaveModel(a *model.Artifact) error {
	path := filepath.Join(s.ModelsDir(), ModelFile)
	if err := writeJSON(path, a); err != nil {
		return err
	}
	s.log.Debug("saved model", zap.String("path", path), zap.String("kind", a.Kind))
	return nil
}

func (s *Store) LoadModel(version string) (model.Classifier, error) {
	var a model.Artifact
	if err := readJSON(filepath.Join(s.ModelsDir(), ModelFile), &a); err != nil {
		return nil, err
	}
	if a.SchemaVersion != version {
		return nil, fmt.Errorf("%w: %s was built for schema %q, current schema is %q",
			pipeline.ErrSchemaMismatch, ModelFile, a.SchemaVersion, version)
	}
	return model.Decode(&a)
}

// LoadBundle assembles everything serving needs. Labels, when non-empty,
// replace the class names stored with the schema.
func (s *Store) LoadBundle(labels schema.LabelMap) (*pipeline.Bundle, error) {
	sc, err := s.LoadSchema()
	if err != nil {
		return nil, err
	}
	scaler, err := s.LoadScaler(sc.Version)
	if err != nil {
		return nil, err
	}
	m, err := s.LoadModel(sc.Version)
	if err != nil {
		return nil, err
	}
	b := &pipeline.Bundle{Schema: sc, Scaler: scaler, Model: m, Labels: labels}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	s.log.Info("loaded artifacts",
		zap.String("root", s.root),
		zap.String("schema_version", sc.Version),
		zap.String("model", m.Kind()))
	return b, nil
}

// writeJSON replaces path atomically: readers see the old file or the new
// one, never a partial write.
func writeJSON(path string, v any) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

var ErrCorrupt = errors.New("corrupt artifact")

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, filepath.Base(path), err)
	}
	return nil
}
