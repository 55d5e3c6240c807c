package stats

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmpty          = errors.New("no rows to fit")
	ErrRagged         = errors.New("rows have different lengths")
	ErrNonFinite      = errors.New("non-finite value")
	ErrLengthMismatch = errors.New("vector length does not match scaler")
)

// StandardScaler holds per-feature mean and population standard deviation.
// It is built once by FitScaler and only read afterwards, so a single value
// can serve concurrent Transform calls.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes column statistics over X.
func FitScaler(X [][]float64) (*StandardScaler, error) {
	if len(X) == 0 {
		return nil, ErrEmpty
	}
	r, c := len(X), len(X[0])
	col := make([]float64, r)
	s := &StandardScaler{Mean: make([]float64, c), Std: make([]float64, c)}
	for i, row := range X {
		if len(row) != c {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrRagged, i, len(row), c)
		}
	}
	for j := 0; j < c; j++ {
		constant := true
		for i := 0; i < r; i++ {
			v := X[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w at row %d, column %d", ErrNonFinite, i, j)
			}
			col[i] = v
			constant = constant && v == col[0]
		}
		// Rounding in the mean can leave a tiny spread on a constant column.
		if constant {
			s.Mean[j], s.Std[j] = col[0], 0
			continue
		}
		s.Mean[j] = Mean(col)
		s.Std[j] = Std(col)
	}
	return s, nil
}

func (s *StandardScaler) Len() int { return len(s.Mean) }

// Transform standardizes one vector into a new slice. A feature whose training
// std is exactly 0 maps to 0 regardless of the input; NaN stays NaN.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrLengthMismatch, len(x), len(s.Mean))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		switch {
		case math.IsNaN(v):
			out[j] = v
		case s.Std[j] == 0:
			out[j] = 0
		default:
			out[j] = (v - s.Mean[j]) / s.Std[j]
		}
	}
	return out, nil
}

// TransformAll applies Transform to every row.
func (s *StandardScaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		y, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = y
	}
	return out, nil
}

// Validate checks that a decoded scaler is usable.
func (s *StandardScaler) Validate() error {
	if len(s.Mean) == 0 {
		return ErrEmpty
	}
	if len(s.Std) != len(s.Mean) {
		return fmt.Errorf("%w: %d means, %d stds", ErrLengthMismatch, len(s.Mean), len(s.Std))
	}
	for j := range s.Mean {
		if math.IsNaN(s.Mean[j]) || math.IsInf(s.Mean[j], 0) || math.IsNaN(s.Std[j]) || s.Std[j] < 0 {
			return fmt.Errorf("%w in statistics of column %d", ErrNonFinite, j)
		}
	}
	return nil
}
