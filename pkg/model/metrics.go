package model

import (
	"errors"
	"fmt"
	"sort"
)

// Accuracy is the share of positions where yPred equals yTrue.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// ClassMetrics are one-vs-rest scores of a single class.
type ClassMetrics struct {
	Class     int     `json:"class"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report summarizes a classifier on held-out data. Precision, Recall and F1
// are averaged over classes weighted by support; a class with no predicted or
// no true rows scores 0 for the undefined ratio.
type Report struct {
	Accuracy  float64        `json:"accuracy"`
	Precision float64        `json:"precision"`
	Recall    float64        `json:"recall"`
	F1        float64        `json:"f1"`
	PerClass  []ClassMetrics `json:"per_class"`
	Confusion [][]int        `json:"confusion"`
	TrainRows int            `json:"train_rows"`
	TestRows  int            `json:"test_rows"`
}

var ErrNoPredictions = errors.New("no predictions to evaluate")

// ConfusionMatrix counts rows by [true][predicted] class.
func ConfusionMatrix(yTrue, yPred []int, classes int) [][]int {
	cm := make([][]int, classes)
	for i := range cm {
		cm[i] = make([]int, classes)
	}
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t >= 0 && t < classes && p >= 0 && p < classes {
			cm[t][p]++
		}
	}
	return cm
}

// Evaluate scores yPred against yTrue over the union of labels in both.
func Evaluate(yTrue, yPred []int) (*Report, error) {
	if len(yTrue) == 0 {
		return nil, ErrNoPredictions
	}
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("%d labels, %d predictions", len(yTrue), len(yPred))
	}
	present := map[int]bool{}
	classes := 0
	for i := range yTrue {
		for _, c := range []int{yTrue[i], yPred[i]} {
			if c < 0 {
				return nil, fmt.Errorf("%w: got %d", ErrBadLabel, c)
			}
			present[c] = true
			classes = max(classes, c+1)
		}
	}
	labels := make([]int, 0, len(present))
	for c := range present {
		labels = append(labels, c)
	}
	sort.Ints(labels)

	cm := ConfusionMatrix(yTrue, yPred, classes)
	rep := &Report{Accuracy: Accuracy(yTrue, yPred), Confusion: cm, TestRows: len(yTrue)}
	total := float64(len(yTrue))
	for _, c := range labels {
		tp, predicted, actual := cm[c][c], 0, 0
		for k := 0; k < classes; k++ {
			predicted += cm[k][c]
			actual += cm[c][k]
		}
		m := ClassMetrics{Class: c, Support: actual}
		if predicted > 0 {
			m.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			m.Recall = float64(tp) / float64(actual)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		rep.PerClass = append(rep.PerClass, m)

		w := float64(actual) / total
		rep.Precision += w * m.Precision
		rep.Recall += w * m.Recall
		rep.F1 += w * m.F1
	}
	return rep, nil
}
