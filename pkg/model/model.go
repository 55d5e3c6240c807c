package model

import (
	"encoding"
	"fmt"
)

// Classifier is a supervised multi-class model. After Fit it is only read, so
// a fitted value may be shared between goroutines.
type Classifier interface {
	encoding.BinaryMarshaler

	Kind() string
	NumFeatures() int
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) ([]int, error)
}

// Options are the training hyperparameters shared by all classifier kinds.
type Options struct {
	MaxIter      int     `yaml:"max_iter"`
	LearningRate float64 `yaml:"learning_rate"`
	C            float64 `yaml:"c"` // inverse L2 strength, 0 disables the penalty
	Tolerance    float64 `yaml:"tolerance"`
	Seed         int64   `yaml:"seed"`
	ClassWeight  string  `yaml:"class_weight"` // "" or "balanced"
}

func DefaultOptions() Options {
	return Options{
		MaxIter:      1000,
		LearningRate: 0.1,
		C:            1.0,
		Tolerance:    1e-6,
		Seed:         42,
	}
}

type Maker func(opts Options) Classifier
type Decoder func(b []byte) (Classifier, error)

var Makers = map[string]Maker{
	KindLogistic: func(opts Options) Classifier { return NewLogisticRegression(opts) },
}

var Decoders = map[string]Decoder{
	KindLogistic: func(b []byte) (Classifier, error) {
		m, err := DecodeLogisticRegression(b)
		if err != nil {
			return nil, err
		}
		return m, nil
	},
}

// New builds an untrained classifier of the given kind.
func New(kind string, opts Options) (Classifier, error) {
	mk, ok := Makers[kind]
	if !ok {
		return nil, fmt.Errorf("unknown classifier kind %q", kind)
	}
	return mk(opts), nil
}
