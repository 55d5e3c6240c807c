package optim

import "fmt"

// SGD is gradient descent with a fixed learning rate.
type SGD struct{ LearningRate float64 }

func NewSGD(lr float64) *SGD { return &SGD{LearningRate: lr} }

// Step updates weights in place: w -= lr * g.
func (o *SGD) Step(weights, grads []float64) error {
	if len(weights) != len(grads) {
		return fmt.Errorf("sgd: %d weights, %d gradients", len(weights), len(grads))
	}
	for i := range weights {
		weights[i] -= o.LearningRate * grads[i]
	}
	return nil
}
