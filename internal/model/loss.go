package model

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// CrossEntropyLoss returns the mean softmax cross-entropy of data · weights
// against labels plus the L2 penalty 0.5 * regLambda * sum(weights²).
//
// data is N×K and weights K×C; when a bias is used the caller appends the
// constant column to data. A true-class probability that underflows to zero
// makes the loss +Inf, which is returned as is.
func CrossEntropyLoss(data mat.Matrix, labels []int, weights mat.Matrix, regLambda float64) (float64, error) {
	probs, err := probabilities("cross entropy loss", data, labels, weights)
	if err != nil {
		return 0, err
	}

	total := 0.0
	for i, l := range labels {
		total -= math.Log(probs.At(i, l))
	}
	return total/float64(len(labels)) + regularizationLoss(weights, regLambda), nil
}

func regularizationLoss(weights mat.Matrix, regLambda float64) float64 {
	if regLambda == 0 {
		return 0
	}
	return 0.5 * regLambda * sumSquares(weights)
}
