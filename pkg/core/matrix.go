package core

import (
	"errors"
	"fmt"
)

var ErrDimension = errors.New("dimension mismatch")

// Matrix is a dense row-major matrix.
type Matrix struct {
	R    int       `json:"rows"`
	C    int       `json:"cols"`
	Data []float64 `json:"data"`
}

// NewMatrix allocates a zero matrix.
func NewMatrix(r, c int) *Matrix {
	return &Matrix{R: r, C: c, Data: make([]float64, r*c)}
}

// FromSlice copies a nested slice into a Matrix. Rows must have equal length.
func FromSlice(a [][]float64) (*Matrix, error) {
	r := len(a)
	if r == 0 {
		return &Matrix{}, nil
	}
	c := len(a[0])
	m := NewMatrix(r, c)
	for i, row := range a {
		if len(row) != c {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrDimension, i, len(row), c)
		}
		copy(m.Data[i*c:(i+1)*c], row)
	}
	return m, nil
}

// Set sets element (i, j).
func (m *Matrix) Set(i, j int, v float64) { m.Data[i*m.C+j] = v }

// Row returns row i without copying.
func (m *Matrix) Row(i int) []float64 { return m.Data[i*m.C : (i+1)*m.C] }

func (m *Matrix) Transpose() *Matrix {
	t := NewMatrix(m.C, m.R)
	for i := 0; i < m.R; i++ {
		for j := 0; j < m.C; j++ {
			t.Data[j*t.C+i] = m.Data[i*m.C+j]
		}
	}
	return t
}

// Validate checks that Data matches the declared shape.
func (m *Matrix) Validate() error {
	if m.R < 0 || m.C < 0 || len(m.Data) != m.R*m.C {
		return fmt.Errorf("%w: %dx%d with %d values", ErrDimension, m.R, m.C, len(m.Data))
	}
	return nil
}

// MulVec returns m·x.
func (m *Matrix) MulVec(x []float64) ([]float64, error) {
	if len(x) != m.C {
		return nil, fmt.Errorf("%w: %dx%d times %d", ErrDimension, m.R, m.C, len(x))
	}
	out := make([]float64, m.R)
	for i := 0; i < m.R; i++ {
		row := m.Data[i*m.C : (i+1)*m.C]
		sum := 0.0
		for j, v := range row {
			sum += v * x[j]
		}
		out[i] = sum
	}
	return out, nil
}

// MatMul returns A·B. It runs on the calling goroutine.
func MatMul(A, B *Matrix) (*Matrix, error) {
	if A.C != B.R {
		return nil, fmt.Errorf("%w: %dx%d times %dx%d", ErrDimension, A.R, A.C, B.R, B.C)
	}
	C := NewMatrix(A.R, B.C)
	for i := 0; i < A.R; i++ {
		for k := 0; k < A.C; k++ {
			ai := A.Data[i*A.C+k]
			for j := 0; j < B.C; j++ {
				C.Data[i*C.C+j] += ai * B.Data[k*B.C+j]
			}
		}
	}
	return C, nil
}
