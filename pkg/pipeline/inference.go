package pipeline

import (
	"errors"
	"fmt"

	"effpred/pkg/data"
	"effpred/pkg/dataprep"
	"effpred/pkg/model"
	"effpred/pkg/schema"
	"effpred/pkg/stats"
)

// Bundle is the frozen state serving needs: the schema and scaler from data
// preparation and the model trained on them.
type Bundle struct {
	Schema *schema.Schema
	Scaler *stats.StandardScaler
	Model  model.Classifier
	Labels schema.LabelMap
}

// Validate checks the parts are present and agree on the vector length.
func (b *Bundle) Validate() error {
	if b.Schema == nil || b.Scaler == nil || b.Model == nil {
		return errors.New("incomplete bundle")
	}
	if err := b.Schema.Validate(); err != nil {
		return err
	}
	if err := b.Scaler.Validate(); err != nil {
		return err
	}
	n := b.Schema.Len()
	if b.Scaler.Len() != n || b.Model.NumFeatures() != n {
		return fmt.Errorf("%w: schema %d, scaler %d, model %d",
			ErrBundleShape, n, b.Scaler.Len(), b.Model.NumFeatures())
	}
	return nil
}

// Result is the outcome of one prediction. Err is set instead of Label when
// the record could not be scored.
type Result struct {
	Label string
	Class int
	Err   error
}

func (r Result) OK() bool { return r.Err == nil }

// Message is what the serving layer shows for the result.
func (r Result) Message() string {
	if r.Err != nil {
		return "Error: " + r.Err.Error()
	}
	return r.Label
}

// Predictor scores single records against a Bundle. It holds no mutable
// state and is safe for concurrent use.
type Predictor struct {
	bundle *Bundle
	pre    *dataprep.Preprocessor
	labels schema.LabelMap
}

func NewPredictor(b *Bundle) (*Predictor, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	labels := b.Labels
	if len(labels) == 0 {
		labels = b.Schema.LabelMap()
	}
	return &Predictor{bundle: b, pre: dataprep.NewPreprocessor(b.Schema), labels: labels}, nil
}

func (p *Predictor) Schema() *schema.Schema { return p.bundle.Schema }

// Predict maps one raw record to a status label. Failures, including a
// panicking classifier, come back in Result.Err.
func (p *Predictor) Predict(rec data.Record) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Class: -1, Err: fmt.Errorf("prediction failed: %v", r)}
		}
	}()

	vec, err := p.pre.Prepare(rec)
	if err != nil {
		return Result{Class: -1, Err: err}
	}
	if vec.HasMissing() {
		return Result{Class: -1, Err: &dataprep.IncompleteVectorError{Fields: vec.Missing(p.bundle.Schema)}}
	}
	scaled, err := p.bundle.Scaler.Transform(vec)
	if err != nil {
		return Result{Class: -1, Err: err}
	}
	pred, err := p.bundle.Model.Predict([][]float64{scaled})
	if err != nil {
		return Result{Class: -1, Err: err}
	}
	if len(pred) != 1 {
		return Result{Class: -1, Err: fmt.Errorf("classifier returned %d predictions for one row", len(pred))}
	}
	return Result{Label: p.labels.Name(pred[0]), Class: pred[0]}
}
