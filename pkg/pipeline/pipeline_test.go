package pipeline

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"effpred/pkg/data"
	"effpred/pkg/dataprep"
	"effpred/pkg/loader"
	"effpred/pkg/model"
	"effpred/pkg/schema"
	"effpred/pkg/stats"
)

type memStore struct {
	schema *schema.Schema
	scaler *stats.StandardScaler
	split  *loader.Split
	means  map[string]float64
	model  *model.Artifact

	versions map[string]string
}

func newMemStore() *memStore { return &memStore{versions: map[string]string{}} }

func (m *memStore) SaveSchema(s *schema.Schema) error { m.schema = s; return nil }

func (m *memStore) LoadSchema() (*schema.Schema, error) {
	if m.schema == nil {
		return nil, os.ErrNotExist
	}
	return m.schema, nil
}

func (m *memStore) SaveScaler(version string, sc *stats.StandardScaler) error {
	m.scaler, m.versions["scaler"] = sc, version
	return nil
}

func (m *memStore) SaveSplit(version string, sp *loader.Split) error {
	m.split, m.versions["split"] = sp, version
	return nil
}

func (m *memStore) LoadSplit(version string) (*loader.Split, error) {
	if m.split == nil {
		return nil, os.ErrNotExist
	}
	if m.versions["split"] != version {
		return nil, ErrSchemaMismatch
	}
	return m.split, nil
}

func (m *memStore) SaveFeatureMeans(means map[string]float64) error { m.means = means; return nil }

func (m *memStore) SaveModel(a *model.Artifact) error { m.model = a; return nil }

const header = "Timestamp,Machine_ID,Operation_Mode,Temperature_C,Vibration_Hz,Power_Consumption_kW," +
	"Network_Latency_ms,Packet_Loss_%,Quality_Control_Defect_Rate_%,Production_Speed_units_per_hr," +
	"Predictive_Maintenance_Score,Error_Rate_%,Efficiency_Status\n"

// writeTrainingCSV writes 60 complete rows, 20 per status, plus one row with
// an unparsable timestamp and one with a blank timestamp. High rows are cool with few errors, Medium rows
// run hot and Low rows have a high error rate.
func writeTrainingCSV(t *testing.T) string {
	t.Helper()
	statuses := []string{"High", "Medium", "Low"}
	modes := []string{"Active", "Idle", "Maintenance"}
	var b strings.Builder
	b.WriteString(header)
	for i := 0; i < 60; i++ {
		c := i % 3
		temp, errRate := 60.0, 1.0
		switch c {
		case 1:
			temp = 80
		case 2:
			errRate = 5
		}
		j := float64(i%5) * 0.2
		fmt.Fprintf(&b, "2024-01-%02d %02d:00:00,%d,%s,%.1f,%.1f,35,15,0.5,1,120,55,%.2f,%s\n",
			1+i%28, i%24, 39+i, modes[(i/3)%3], temp+j, 50+j, errRate+j/10, statuses[c])
	}
	b.WriteString("yesterday,99,Active,65,50,35,15,0.5,1,120,55,0.8,High\n")
	b.WriteString(",98,Idle,65,50,35,15,0.5,1,120,55,0.8,Low\n")

	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func newTestPipeline(t *testing.T, store ArtifactStore) *TrainingPipeline {
	cfg := DefaultConfig()
	cfg.InputPath = writeTrainingCSV(t)
	return NewTrainingPipeline(cfg, store, nil)
}

func scenario() data.Record {
	return data.Record{
		"Timestamp":                     "2024-01-15T10:00",
		"Machine_ID":                    "7",
		"Operation_Mode":                "Active",
		"Temperature_C":                 "65",
		"Vibration_Hz":                  "50",
		"Power_Consumption_kW":          "35",
		"Network_Latency_ms":            "15",
		"Packet_Loss_%":                 "0.5",
		"Quality_Control_Defect_Rate_%": "1",
		"Production_Speed_units_per_hr": "120",
		"Predictive_Maintenance_Score":  "55",
		"Error_Rate_%":                  "0.8",
	}
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "new", StageNew.String())
	assert.Equal(t, "split_scaled", StageSplitScaled.String())
	assert.Equal(t, "evaluated", StageEvaluated.String())
	assert.Equal(t, "stage(9)", Stage(9).String())
}

func TestTrainingPipeline_OutOfOrder(t *testing.T) {
	p := newTestPipeline(t, newMemStore())

	err := p.Train()
	var se *PipelineStateError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "train", se.Op)
	assert.Equal(t, StageNew, se.Current)
	assert.Equal(t, StageSplitScaled, se.Required)

	require.NoError(t, p.Load())
	err = p.SplitAndScale()
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageLoaded, se.Current)

	require.True(t, errors.As(p.Load(), &se))
	_, err = p.Evaluate()
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageLoaded, p.Stage())
}

func TestTrainingPipeline_MissingInput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputPath = filepath.Join(t.TempDir(), "nope.csv")
	p := NewTrainingPipeline(cfg, newMemStore(), nil)

	err := p.Load()
	var le *DataLoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, cfg.InputPath, le.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, StageNew, p.Stage())
}

func TestTrainingPipeline_MissingTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	csv := header + "2024-01-01 00:00:00,1,Active,65,50,35,15,0.5,1,120,55,0.8,\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
	cfg := DefaultConfig()
	cfg.InputPath = path
	p := NewTrainingPipeline(cfg, newMemStore(), nil)

	require.NoError(t, p.Load())
	err := p.Preprocess()
	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "preprocess", stageErr.Stage)
	var missing *dataprep.MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, schema.Target, missing.Field)
}

func TestTrainingPipeline_Run(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(t, store)

	rep, err := p.Run()
	require.NoError(t, err)
	assert.Equal(t, StageEvaluated, p.Stage())
	assert.GreaterOrEqual(t, rep.Accuracy, 0.9)
	assert.Equal(t, 48, rep.TrainRows)
	assert.Equal(t, 12, rep.TestRows)

	s := store.schema
	require.NotNil(t, s)
	assert.Equal(t, []string{"High", "Medium", "Low"}, s.Target.Classes)
	assert.Equal(t, []string{"Active", "Idle", "Maintenance"}, s.Encoding(schema.OperationMode).Classes)
	assert.Equal(t, s.Version, store.versions["scaler"])
	assert.Equal(t, s.Version, store.versions["split"])
	require.NotNil(t, store.model)
	assert.Equal(t, s.Version, store.model.SchemaVersion)
	assert.Equal(t, 14, store.model.Features)

	assert.Len(t, store.means, 9)
	assert.InDelta(t, 35, store.means["Power_Consumption_kW"], 1e-12)
	assert.NotContains(t, store.means, schema.Year)
	assert.NotContains(t, store.means, schema.OperationMode)

	// every kept row standardized together: mean 0, std 1 on a varying column
	sp := store.split
	col := make([]float64, 0, 60)
	for _, row := range append(append([][]float64{}, sp.XTrain...), sp.XTest...) {
		require.Len(t, row, 14)
		col = append(col, row[1])
		assert.Equal(t, 0.0, row[3], "constant column scales to 0")
	}
	assert.InDelta(t, 0, stats.Mean(col), 1e-9)
	assert.InDelta(t, 1, stats.Std(col), 1e-9)
}

func TestTrainingPipeline_BlankTimestampRowExcluded(t *testing.T) {
	p := newTestPipeline(t, newMemStore())
	require.NoError(t, p.Load())
	require.NoError(t, p.Preprocess())

	require.Len(t, p.X, 62)
	assert.Equal(t, []string{schema.Year, schema.Month, schema.Day, schema.Hour}, p.X[61].Missing(p.Schema()))

	require.NoError(t, p.SplitAndScale())
	assert.Len(t, p.Split().XTrain, 48)
	assert.Len(t, p.Split().XTest, 12)
}

func TestTrainingPipeline_Resume(t *testing.T) {
	store := newMemStore()
	require.NoError(t, newTestPipeline(t, store).Prepare())

	p := NewTrainingPipeline(DefaultConfig(), store, nil)
	require.NoError(t, p.Resume())
	assert.Equal(t, StageSplitScaled, p.Stage())
	require.NoError(t, p.Train())
	rep, err := p.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, 12, rep.TestRows)

	store.versions["split"] = "other"
	err = NewTrainingPipeline(DefaultConfig(), store, nil).Resume()
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func trainedBundle(t *testing.T) (*Bundle, *memStore) {
	t.Helper()
	store := newMemStore()
	p := newTestPipeline(t, store)
	_, err := p.Run()
	require.NoError(t, err)
	return &Bundle{Schema: p.Schema(), Scaler: p.Scaler(), Model: p.Model()}, store
}

func TestPredictor_EndToEnd(t *testing.T) {
	b, store := trainedBundle(t)
	pred, err := NewPredictor(b)
	require.NoError(t, err)

	res := pred.Predict(scenario())
	require.True(t, res.OK(), res.Message())
	assert.Contains(t, []string{"High", "Medium", "Low"}, res.Label)
	assert.Equal(t, res.Label, res.Message())

	// same point assembled and standardized by hand, scored by the model directly
	raw := []float64{0, 65, 50, 35, 15, 0.5, 1, 120, 55, 0.8, 2024, 1, 15, 10}
	scaled := make([]float64, len(raw))
	for i, x := range raw {
		if b.Scaler.Std[i] != 0 {
			scaled[i] = (x - b.Scaler.Mean[i]) / b.Scaler.Std[i]
		}
	}
	want, err := b.Model.Predict([][]float64{scaled})
	require.NoError(t, err)
	assert.Equal(t, want[0], res.Class)
	assert.Equal(t, b.Schema.LabelMap().Name(want[0]), res.Label)

	// the serving form sends date parts instead of a timestamp
	parts := scenario()
	delete(parts, schema.Timestamp)
	parts[schema.Year], parts[schema.Month], parts[schema.Day], parts[schema.Hour] = "2024", "1", "15", "10"
	assert.Equal(t, res, pred.Predict(parts))

	// a model decoded from its persisted artifact predicts the same
	restored, err := model.Decode(store.model)
	require.NoError(t, err)
	reloaded, err := NewPredictor(&Bundle{Schema: b.Schema, Scaler: b.Scaler, Model: restored})
	require.NoError(t, err)
	assert.Equal(t, res, reloaded.Predict(scenario()))
}

func TestPredictor_RequestErrors(t *testing.T) {
	b, _ := trainedBundle(t)
	pred, err := NewPredictor(b)
	require.NoError(t, err)

	rec := scenario()
	rec[schema.OperationMode] = "Turbo"
	res := pred.Predict(rec)
	var unknown *dataprep.UnknownCategoryError
	require.True(t, errors.As(res.Err, &unknown))
	assert.Equal(t, "Turbo", unknown.Value)
	assert.Equal(t, -1, res.Class)
	assert.True(t, strings.HasPrefix(res.Message(), "Error: "))

	rec = scenario()
	rec[schema.Timestamp] = "not a date"
	var incomplete *dataprep.IncompleteVectorError
	require.True(t, errors.As(pred.Predict(rec).Err, &incomplete))
	assert.Equal(t, []string{schema.Year, schema.Month, schema.Day, schema.Hour}, incomplete.Fields)

	rec = scenario()
	rec["Temperature_C"] = "warm"
	var invalid *dataprep.InvalidValueError
	assert.True(t, errors.As(pred.Predict(rec).Err, &invalid))
}

func TestPredictor_LabelOverride(t *testing.T) {
	b, _ := trainedBundle(t)
	b.Labels = schema.LabelMap{0: "Top"}
	pred, err := NewPredictor(b)
	require.NoError(t, err)

	res := pred.Predict(scenario())
	require.NoError(t, res.Err)
	if res.Class == 0 {
		assert.Equal(t, "Top", res.Label)
	} else {
		assert.Equal(t, fmt.Sprintf("Unknown (%d)", res.Class), res.Label)
	}
}

type panicModel struct{ n int }

func (m panicModel) MarshalBinary() ([]byte, error)      { return nil, nil }
func (m panicModel) Kind() string                        { return "panic" }
func (m panicModel) NumFeatures() int                    { return m.n }
func (m panicModel) Fit([][]float64, []int) error        { return nil }
func (m panicModel) Predict([][]float64) ([]int, error) { panic("boom") }

func TestPredictor_RecoversPanic(t *testing.T) {
	b, _ := trainedBundle(t)
	b.Model = panicModel{n: 14}
	pred, err := NewPredictor(b)
	require.NoError(t, err)

	res := pred.Predict(scenario())
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "boom")
}

func TestBundle_Validate(t *testing.T) {
	b, _ := trainedBundle(t)
	require.NoError(t, b.Validate())

	short := &stats.StandardScaler{Mean: b.Scaler.Mean[:13], Std: b.Scaler.Std[:13]}
	err := (&Bundle{Schema: b.Schema, Scaler: short, Model: b.Model}).Validate()
	assert.True(t, errors.Is(err, ErrBundleShape))

	err = (&Bundle{Schema: b.Schema, Scaler: b.Scaler, Model: panicModel{n: 3}}).Validate()
	assert.True(t, errors.Is(err, ErrBundleShape))

	_, err = NewPredictor(&Bundle{Schema: b.Schema})
	assert.Error(t, err)
}

func TestFeatureMeans(t *testing.T) {
	s := schema.New(schema.DefaultFields())
	sc := &stats.StandardScaler{Mean: make([]float64, 14), Std: make([]float64, 14)}
	for i := range sc.Mean {
		sc.Mean[i] = float64(i)
	}
	means := FeatureMeans(s, sc)
	assert.Len(t, means, 9)
	assert.Equal(t, 1.0, means["Temperature_C"])
	assert.Equal(t, 9.0, means["Error_Rate_%"])
	assert.False(t, math.IsNaN(means["Packet_Loss_%"]))
}
