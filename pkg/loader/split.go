package loader

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Split holds the four partitions produced for training.
type Split struct {
	XTrain [][]float64 `json:"X_train"`
	XTest  [][]float64 `json:"X_test"`
	YTrain []int       `json:"y_train"`
	YTest  []int       `json:"y_test"`
}

var (
	ErrBadRatio       = errors.New("test ratio must be in (0, 1)")
	ErrLengthMismatch = errors.New("X and Y have different lengths")
	ErrTooFewSamples  = errors.New("not enough samples to stratify")
)

// StratifiedIndices partitions the indices of y into train and test sets so
// that each class keeps its share in both. The number of test rows is
// ceil(n*testRatio); per-class quotas are floored and the remainder goes to
// the classes with the largest fractional part. The same seed always yields
// the same partition.
func StratifiedIndices(y []int, testRatio float64, seed int64) (train, test []int, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, ErrBadRatio
	}
	n := len(y)
	byClass := map[int][]int{}
	var classes []int
	for i, c := range y {
		if _, ok := byClass[c]; !ok {
			classes = append(classes, c)
		}
		byClass[c] = append(byClass[c], i)
	}
	sort.Ints(classes)

	nTest := int(math.Ceil(float64(n) * testRatio))
	nTrain := n - nTest
	k := len(classes)
	if nTest < k || nTrain < k {
		return nil, nil, fmt.Errorf("%w: %d rows, %d classes, test size %d", ErrTooFewSamples, n, k, nTest)
	}
	for _, c := range classes {
		if len(byClass[c]) < 2 {
			return nil, nil, fmt.Errorf("%w: class %d has a single member", ErrTooFewSamples, c)
		}
	}

	quota := make(map[int]int, k)
	type remainder struct {
		class int
		frac  float64
	}
	rems := make([]remainder, 0, k)
	assigned := 0
	for _, c := range classes {
		exact := float64(len(byClass[c])) * float64(nTest) / float64(n)
		q := int(math.Floor(exact))
		quota[c] = q
		assigned += q
		rems = append(rems, remainder{class: c, frac: exact - float64(q)})
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; assigned < nTest; i = (i + 1) % k {
		c := rems[i].class
		if quota[c] < len(byClass[c])-1 {
			quota[c]++
			assigned++
		}
	}

	rng := rand.New(rand.NewSource(seed))
	for _, c := range classes {
		idx := append([]int(nil), byClass[c]...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		test = append(test, idx[:quota[c]]...)
		train = append(train, idx[quota[c]:]...)
	}
	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// StratifiedSplit splits X and Y by StratifiedIndices.
func StratifiedSplit(X [][]float64, Y []int, testRatio float64, seed int64) (*Split, error) {
	if len(X) != len(Y) {
		return nil, fmt.Errorf("%w: %d rows, %d labels", ErrLengthMismatch, len(X), len(Y))
	}
	trainIdx, testIdx, err := StratifiedIndices(Y, testRatio, seed)
	if err != nil {
		return nil, err
	}
	s := &Split{
		XTrain: make([][]float64, len(trainIdx)),
		YTrain: make([]int, len(trainIdx)),
		XTest:  make([][]float64, len(testIdx)),
		YTest:  make([]int, len(testIdx)),
	}
	for i, idx := range trainIdx {
		s.XTrain[i], s.YTrain[i] = X[idx], Y[idx]
	}
	for i, idx := range testIdx {
		s.XTest[i], s.YTest[i] = X[idx], Y[idx]
	}
	return s, nil
}

// Validate checks the partitions are consistent with each other.
func (s *Split) Validate() error {
	if len(s.XTrain) != len(s.YTrain) || len(s.XTest) != len(s.YTest) {
		return ErrLengthMismatch
	}
	if len(s.XTrain) == 0 || len(s.XTest) == 0 {
		return ErrTooFewSamples
	}
	return nil
}
