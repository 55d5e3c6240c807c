package nn

import "math"

// CrossEntropy is the categorical cross-entropy of one sample with true class
// y, and its gradient with respect to the logits (p - onehot(y)).
// Use it with Softmax outputs for multi-class classification.
func CrossEntropy(y int, p []float64) (float64, []float64) {
	grad := make([]float64, len(p))
	copy(grad, p)
	grad[y] -= 1
	py := math.Min(math.Max(p[y], 1e-15), 1)
	return -math.Log(py), grad
}
