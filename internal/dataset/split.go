package dataset

import (
	"fmt"
	"math/rand"
)

type Splits struct {
	Train     []Example
	Test      []Example
	TrainEval []Example
}

// Split shuffles examples with seed, holds out numTest of them for test and takes the
// first numTrainEval training examples as the train-eval set.
func Split(examples []Example, numTest, numTrainEval int, seed int64) (Splits, error) {
	if numTest < 0 || numTrainEval < 0 {
		return Splits{}, fmt.Errorf("dataset: negative split size")
	}
	if numTest >= len(examples) {
		return Splits{}, fmt.Errorf("dataset: %v test examples leave nothing to train on (have %v)",
			numTest, len(examples))
	}
	var shuffled = make([]Example, len(examples))
	copy(shuffled, examples)
	var rnd = rand.New(rand.NewSource(seed))
	rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	var train = shuffled[numTest:]
	return Splits{
		Train:     train,
		Test:      shuffled[:numTest],
		TrainEval: train[:min(numTrainEval, len(train))],
	}, nil
}
