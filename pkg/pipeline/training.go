package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"effpred/pkg/data"
	"effpred/pkg/dataprep"
	"effpred/pkg/loader"
	"effpred/pkg/model"
	"effpred/pkg/schema"
	"effpred/pkg/stats"
)

// Stage is a position in the training state machine.
type Stage int

const (
	StageNew Stage = iota
	StageLoaded
	StagePreprocessed
	StageSplitScaled
	StageTrained
	StageEvaluated
)

var stageNames = [...]string{"new", "loaded", "preprocessed", "split_scaled", "trained", "evaluated"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// ArtifactStore persists what training produces. Versioned calls carry the
// schema version the artifact was built with.
type ArtifactStore interface {
	SaveSchema(s *schema.Schema) error
	LoadSchema() (*schema.Schema, error)
	SaveScaler(version string, sc *stats.StandardScaler) error
	SaveSplit(version string, sp *loader.Split) error
	LoadSplit(version string) (*loader.Split, error)
	SaveFeatureMeans(means map[string]float64) error
	SaveModel(a *model.Artifact) error
}

type Config struct {
	InputPath    string
	TestSize     float64
	Seed         int64
	ModelKind    string
	ModelOptions model.Options
}

func DefaultConfig() Config {
	return Config{
		InputPath:    "artifacts/raw/data.csv",
		TestSize:     0.2,
		Seed:         42,
		ModelKind:    model.KindLogistic,
		ModelOptions: model.DefaultOptions(),
	}
}

// TrainingPipeline runs load, preprocess, split&scale, train and evaluate in
// that order. Each step checks the current stage and fails fast otherwise.
type TrainingPipeline struct {
	cfg   Config
	store ArtifactStore
	log   *zap.Logger
	stage Stage

	records []data.Record
	schema  *schema.Schema
	X       []dataprep.FeatureVector
	y       []int
	scaler  *stats.StandardScaler
	split   *loader.Split
	model   model.Classifier
	report  *model.Report
}

func NewTrainingPipeline(cfg Config, store ArtifactStore, log *zap.Logger) *TrainingPipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &TrainingPipeline{cfg: cfg, store: store, log: log}
}

func (p *TrainingPipeline) Stage() Stage                  { return p.stage }
func (p *TrainingPipeline) Schema() *schema.Schema        { return p.schema }
func (p *TrainingPipeline) Scaler() *stats.StandardScaler { return p.scaler }
func (p *TrainingPipeline) Split() *loader.Split          { return p.split }
func (p *TrainingPipeline) Model() model.Classifier       { return p.model }
func (p *TrainingPipeline) Report() *model.Report         { return p.report }

func (p *TrainingPipeline) require(op string, want Stage) error {
	if p.stage != want {
		return &PipelineStateError{Op: op, Current: p.stage, Required: want}
	}
	return nil
}

// Load reads the raw CSV.
func (p *TrainingPipeline) Load() error {
	if err := p.require("load", StageNew); err != nil {
		return err
	}
	_, records, err := data.LoadFile(p.cfg.InputPath)
	if err != nil {
		return &DataLoadError{Path: p.cfg.InputPath, Err: err}
	}
	p.records = records
	p.stage = StageLoaded
	p.log.Info("loaded raw data", zap.String("path", p.cfg.InputPath), zap.Int("rows", len(records)))
	return nil
}

// Preprocess learns the encodings and builds one feature vector and one
// target code per record.
func (p *TrainingPipeline) Preprocess() error {
	if err := p.require("preprocess", StageLoaded); err != nil {
		return err
	}
	s := schema.New(schema.DefaultFields())
	if err := dataprep.LearnEncodings(p.records, s); err != nil {
		return &StageError{Stage: "preprocess", Err: err}
	}
	X, err := dataprep.NewPreprocessor(s).PrepareAll(p.records)
	if err != nil {
		return &StageError{Stage: "preprocess", Err: err}
	}
	y, err := dataprep.EncodeTargets(p.records, s)
	if err != nil {
		return &StageError{Stage: "preprocess", Err: err}
	}
	for name, enc := range s.Encodings {
		p.log.Info("learned encoding", zap.String("field", name), zap.Any("mapping", enc.Mapping()))
	}
	p.log.Info("learned encoding", zap.String("field", schema.Target), zap.Any("mapping", s.Target.Mapping()))

	p.schema, p.X, p.y = s, X, y
	p.records = nil
	p.stage = StagePreprocessed
	return nil
}

// SplitAndScale drops incomplete rows, fits the scaler on everything that is
// left, splits, and persists the processed artifacts. The scaler sees the test
// rows too; downstream results depend on that.
func (p *TrainingPipeline) SplitAndScale() error {
	if err := p.require("split_and_scale", StagePreprocessed); err != nil {
		return err
	}
	var (
		X [][]float64
		y []int
	)
	for i, v := range p.X {
		if v.HasMissing() {
			continue
		}
		X = append(X, v)
		y = append(y, p.y[i])
	}
	if dropped := len(p.X) - len(X); dropped > 0 {
		p.log.Warn("dropped rows with missing values", zap.Int("dropped", dropped), zap.Int("kept", len(X)))
	}
	if len(X) == 0 {
		return &StageError{Stage: "split_and_scale", Err: ErrNoUsableRows}
	}

	sc, err := stats.FitScaler(X)
	if err != nil {
		return &StageError{Stage: "split_and_scale", Err: err}
	}
	scaled, err := sc.TransformAll(X)
	if err != nil {
		return &StageError{Stage: "split_and_scale", Err: err}
	}
	sp, err := loader.StratifiedSplit(scaled, y, p.cfg.TestSize, p.cfg.Seed)
	if err != nil {
		return &StageError{Stage: "split_and_scale", Err: err}
	}

	version := p.schema.Version
	if err := p.store.SaveSchema(p.schema); err != nil {
		return &StageError{Stage: "split_and_scale", Err: err}
	}
	if err := p.store.SaveScaler(version, sc); err != nil {
		return &StageError{Stage: "split_and_scale", Err: err}
	}
	if err := p.store.SaveSplit(version, sp); err != nil {
		return &StageError{Stage: "split_and_scale", Err: err}
	}
	if err := p.store.SaveFeatureMeans(FeatureMeans(p.schema, sc)); err != nil {
		return &StageError{Stage: "split_and_scale", Err: err}
	}

	p.scaler, p.split = sc, sp
	p.X, p.y = nil, nil
	p.stage = StageSplitScaled
	classes := p.schema.Target.Len()
	p.log.Info("split and scaled",
		zap.String("schema_version", version),
		zap.Int("train_rows", len(sp.XTrain)),
		zap.Int("test_rows", len(sp.XTest)),
		zap.Float64s("train_class_share", stats.Proportions(sp.YTrain, classes)),
		zap.Float64s("test_class_share", stats.Proportions(sp.YTest, classes)))
	return nil
}

// Resume picks up persisted processed artifacts so training can run without
// repeating preparation.
func (p *TrainingPipeline) Resume() error {
	if err := p.require("resume", StageNew); err != nil {
		return err
	}
	s, err := p.store.LoadSchema()
	if err != nil {
		return &StageError{Stage: "resume", Err: err}
	}
	sp, err := p.store.LoadSplit(s.Version)
	if err != nil {
		return &StageError{Stage: "resume", Err: err}
	}
	if err := sp.Validate(); err != nil {
		return &StageError{Stage: "resume", Err: err}
	}
	p.schema, p.split = s, sp
	p.stage = StageSplitScaled
	p.log.Info("resumed from processed artifacts", zap.String("schema_version", s.Version))
	return nil
}

// Train fits the configured classifier on the training partition and persists it.
func (p *TrainingPipeline) Train() error {
	if err := p.require("train", StageSplitScaled); err != nil {
		return err
	}
	c, err := model.New(p.cfg.ModelKind, p.cfg.ModelOptions)
	if err != nil {
		return &StageError{Stage: "train", Err: err}
	}
	if err := c.Fit(p.split.XTrain, p.split.YTrain); err != nil {
		return &StageError{Stage: "train", Err: err}
	}
	a, err := model.Encode(c, p.schema.Version)
	if err != nil {
		return &StageError{Stage: "train", Err: err}
	}
	if err := p.store.SaveModel(a); err != nil {
		return &StageError{Stage: "train", Err: err}
	}
	p.model = c
	p.stage = StageTrained

	fields := []zap.Field{zap.String("kind", c.Kind()), zap.Int("features", c.NumFeatures())}
	if lr, ok := c.(*model.LogisticRegression); ok {
		fields = append(fields, zap.Int("iterations", lr.Iterations), zap.Float64("loss", lr.Loss))
	}
	p.log.Info("model trained", fields...)
	return nil
}

// Evaluate scores the model on the test partition.
func (p *TrainingPipeline) Evaluate() (*model.Report, error) {
	if err := p.require("evaluate", StageTrained); err != nil {
		return nil, err
	}
	pred, err := p.model.Predict(p.split.XTest)
	if err != nil {
		return nil, &StageError{Stage: "evaluate", Err: err}
	}
	rep, err := model.Evaluate(p.split.YTest, pred)
	if err != nil {
		return nil, &StageError{Stage: "evaluate", Err: err}
	}
	rep.TrainRows = len(p.split.XTrain)
	p.report = rep
	p.stage = StageEvaluated
	p.log.Info("model evaluated",
		zap.Float64("accuracy", rep.Accuracy),
		zap.Float64("precision", rep.Precision),
		zap.Float64("recall", rep.Recall),
		zap.Float64("f1", rep.F1))
	return rep, nil
}

// Prepare runs the data preparation steps.
func (p *TrainingPipeline) Prepare() error {
	if err := p.Load(); err != nil {
		return err
	}
	if err := p.Preprocess(); err != nil {
		return err
	}
	return p.SplitAndScale()
}

// Run executes every step in order.
func (p *TrainingPipeline) Run() (*model.Report, error) {
	if err := p.Prepare(); err != nil {
		return nil, err
	}
	if err := p.Train(); err != nil {
		return nil, err
	}
	return p.Evaluate()
}

// FeatureMeans returns the unscaled training means of the numeric telemetry
// fields, keyed by field name.
func FeatureMeans(s *schema.Schema, sc *stats.StandardScaler) map[string]float64 {
	out := make(map[string]float64)
	for i, f := range s.Fields {
		if f.Kind != schema.Numeric || f.Source != "" || i >= sc.Len() {
			continue
		}
		out[f.Name] = sc.Mean[i]
	}
	return out
}
