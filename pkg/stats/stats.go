package stats

import "math"

// Mean computes the average of a slice.
func Mean(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(n)
}

// Variance computes the population variance in two passes.
func Variance(x []float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return 0
	}
	m := Mean(x)
	ss := 0.0
	for _, v := range x {
		d := v - m
		ss += d * d
	}
	return ss / n
}

// Std computes the population standard deviation of a slice.
func Std(x []float64) float64 {
	return math.Sqrt(Variance(x))
}

// Proportions returns the share of each class label in y, indexed by label.
func Proportions(y []int, classes int) []float64 {
	out := make([]float64, classes)
	if len(y) == 0 {
		return out
	}
	for _, c := range y {
		if c >= 0 && c < classes {
			out[c]++
		}
	}
	for i := range out {
		out[i] /= float64(len(y))
	}
	return out
}
