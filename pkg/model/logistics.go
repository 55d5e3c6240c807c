package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"effpred/pkg/core"
	"effpred/pkg/nn"
	"effpred/pkg/optim"
)

const KindLogistic = "logistic"

var (
	ErrNotFitted     = errors.New("model is not fitted")
	ErrEmptyTraining = errors.New("no training rows")
	ErrFeatureCount  = errors.New("feature count mismatch between model and data")
	ErrBadLabel      = errors.New("class labels must be non-negative")
	ErrSingleClass   = errors.New("training data holds a single class")
	ErrNonFinite     = errors.New("non-finite feature value")
)

// LogisticRegression is a multinomial (softmax) logistic regression with an
// L2 penalty, trained by full-batch gradient descent.
type LogisticRegression struct {
	W       *core.Matrix // classes x features
	B       []float64
	Classes int
	Opts    Options

	// Iterations and Loss describe the last Fit.
	Iterations int
	Loss       float64
}

// NewLogisticRegression returns an untrained model.
func NewLogisticRegression(opts Options) *LogisticRegression {
	return &LogisticRegression{Opts: opts}
}

func (m *LogisticRegression) Kind() string { return KindLogistic }

func (m *LogisticRegression) NumFeatures() int {
	if m.W == nil {
		return 0
	}
	return m.W.C
}

// Fit trains on X with labels y in [0, classes). Weights start from small
// random values drawn from Opts.Seed, so the same data always gives the same model.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return ErrEmptyTraining
	}
	if len(X) != len(y) {
		return fmt.Errorf("%d rows, %d labels", len(X), len(y))
	}
	Xm, err := core.FromSlice(X)
	if err != nil {
		return err
	}
	if err := checkFinite(Xm.Data); err != nil {
		return err
	}
	k := 0
	for _, c := range y {
		if c < 0 {
			return fmt.Errorf("%w: got %d", ErrBadLabel, c)
		}
		k = max(k, c+1)
	}
	if k < 2 {
		return ErrSingleClass
	}

	n, d := Xm.R, Xm.C
	sampleW := sampleWeights(y, k, m.Opts.ClassWeight)
	sumW := 0.0
	for _, w := range sampleW {
		sumW += w
	}
	lambda := 0.0
	if m.Opts.C > 0 {
		lambda = 1 / m.Opts.C
	}

	rng := rand.New(rand.NewSource(m.Opts.Seed))
	W := core.NewMatrix(k, d)
	for c := 0; c < k; c++ {
		for j := 0; j < d; j++ {
			W.Set(c, j, rng.NormFloat64()*0.01)
		}
	}
	B := make([]float64, k)
	opt := optim.NewSGD(m.Opts.LearningRate)

	gW := core.NewMatrix(k, d)
	gB := make([]float64, k)
	prev := math.Inf(1)
	iters := 0
	loss := 0.0
	for iter := 0; iter < m.Opts.MaxIter; iter++ {
		logits, err := core.MatMul(Xm, W.Transpose())
		if err != nil {
			return err
		}
		clear(gW.Data)
		clear(gB)
		loss = 0

		for i := 0; i < n; i++ {
			z := logits.Row(i)
			for c := range z {
				z[c] += B[c]
			}
			l, g := nn.CrossEntropy(y[i], nn.Softmax(z))
			wi := sampleW[i]
			loss += wi * l
			x := Xm.Row(i)
			for c := 0; c < k; c++ {
				gc := wi * g[c]
				gB[c] += gc
				row := gW.Row(c)
				for j, xj := range x {
					row[j] += gc * xj
				}
			}
		}

		penalty := 0.0
		for j, w := range W.Data {
			penalty += w * w
			gW.Data[j] = (gW.Data[j] + lambda*w) / sumW
		}
		for c := range gB {
			gB[c] /= sumW
		}
		loss = (loss + 0.5*lambda*penalty) / sumW

		if err := opt.Step(W.Data, gW.Data); err != nil {
			return err
		}
		if err := opt.Step(B, gB); err != nil {
			return err
		}
		iters = iter + 1
		if math.Abs(prev-loss) <= m.Opts.Tolerance*math.Max(1, math.Abs(loss)) {
			break
		}
		prev = loss
	}

	m.W, m.B, m.Classes = W, B, k
	m.Iterations, m.Loss = iters, loss
	return nil
}

// PredictProba returns class probabilities for each row.
func (m *LogisticRegression) PredictProba(X [][]float64) ([][]float64, error) {
	if m.W == nil {
		return nil, ErrNotFitted
	}
	if len(X) == 0 {
		return nil, nil
	}
	Xm, err := core.FromSlice(X)
	if err != nil {
		return nil, err
	}
	if Xm.C != m.W.C {
		return nil, fmt.Errorf("%w: model has %d, data has %d", ErrFeatureCount, m.W.C, Xm.C)
	}
	if err := checkFinite(Xm.Data); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i := range out {
		z, err := m.W.MulVec(Xm.Row(i))
		if err != nil {
			return nil, err
		}
		for c := range z {
			z[c] += m.B[c]
		}
		out[i] = nn.Softmax(z)
	}
	return out, nil
}

// Predict returns the most probable class of each row.
func (m *LogisticRegression) Predict(X [][]float64) ([]int, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		out[i] = nn.Argmax(p)
	}
	return out, nil
}

type logisticState struct {
	W       *core.Matrix `json:"w"`
	B       []float64    `json:"b"`
	Classes int          `json:"classes"`
	Opts    Options      `json:"options"`
}

func (m *LogisticRegression) MarshalBinary() ([]byte, error) {
	if m.W == nil {
		return nil, ErrNotFitted
	}
	return json.Marshal(logisticState{W: m.W, B: m.B, Classes: m.Classes, Opts: m.Opts})
}

// DecodeLogisticRegression restores a model written by MarshalBinary.
func DecodeLogisticRegression(b []byte) (*LogisticRegression, error) {
	var st logisticState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode logistic regression: %w", err)
	}
	if st.W == nil {
		return nil, ErrNotFitted
	}
	if err := st.W.Validate(); err != nil {
		return nil, err
	}
	if st.W.R != st.Classes || len(st.B) != st.Classes {
		return nil, fmt.Errorf("decode logistic regression: %d classes, %dx%d weights, %d biases",
			st.Classes, st.W.R, st.W.C, len(st.B))
	}
	return &LogisticRegression{W: st.W, B: st.B, Classes: st.Classes, Opts: st.Opts}, nil
}

func sampleWeights(y []int, k int, mode string) []float64 {
	w := make([]float64, len(y))
	if mode != "balanced" {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	counts := make([]int, k)
	for _, c := range y {
		counts[c]++
	}
	for i, c := range y {
		w[i] = float64(len(y)) / (float64(k) * float64(counts[c]))
	}
	return w
}

func checkFinite(v []float64) error {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ErrNonFinite
		}
	}
	return nil
}
