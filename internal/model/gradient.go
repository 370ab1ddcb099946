package model

import (
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Regularization selects how the L2 penalty enters the gradient.
type Regularization int

const (
	// ReferenceL2 adds the scalar regLambda * sum(weights) to every entry.
	// It shifts all logits of a row equally and so never changes the
	// softmax output.
	ReferenceL2 Regularization = iota
	// ElementwiseL2 adds regLambda * weights, the exact derivative of
	// 0.5 * regLambda * sum(weights²).
	ElementwiseL2
)

func (r Regularization) String() string {
	switch r {
	case ReferenceL2:
		return "reference"
	case ElementwiseL2:
		return "elementwise"
	default:
		return "unknown"
	}
}

// ParseRegularization maps a config value to a Regularization.
func ParseRegularization(s string) (Regularization, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reference":
		return ReferenceL2, nil
	case "elementwise", "l2":
		return ElementwiseL2, nil
	default:
		return 0, errors.Errorf("unknown regularization %q", s)
	}
}

// CrossEntropyLossGradient returns the gradient of CrossEntropyLoss with
// respect to weights, shaped like weights. The data term is
// dataᵀ · (p - onehot(labels)) / N; the penalty term is ReferenceL2.
func CrossEntropyLossGradient(data mat.Matrix, labels []int, weights mat.Matrix, regLambda float64) (*mat.Dense, error) {
	return gradient("cross entropy gradient", data, labels, weights, regLambda, ReferenceL2)
}

// CrossEntropyLossGradientL2 is CrossEntropyLossGradient with the
// ElementwiseL2 penalty term.
func CrossEntropyLossGradientL2(data mat.Matrix, labels []int, weights mat.Matrix, regLambda float64) (*mat.Dense, error) {
	return gradient("cross entropy gradient", data, labels, weights, regLambda, ElementwiseL2)
}

func gradient(op string, data mat.Matrix, labels []int, weights mat.Matrix, regLambda float64, reg Regularization) (*mat.Dense, error) {
	probs, err := probabilities(op, data, labels, weights)
	if err != nil {
		return nil, err
	}

	n := float64(len(labels))
	for i, l := range labels {
		probs.Set(i, l, probs.At(i, l)-1)
	}
	probs.Apply(func(_, _ int, v float64) float64 { return v / n }, probs)

	var grad mat.Dense
	grad.Mul(data.T(), probs)

	if regLambda == 0 {
		return &grad, nil
	}
	switch reg {
	case ElementwiseL2:
		var penalty mat.Dense
		penalty.Scale(regLambda, weights)
		grad.Add(&grad, &penalty)
	default:
		shift := regLambda * mat.Sum(weights)
		grad.Apply(func(_, _ int, v float64) float64 { return v + shift }, &grad)
	}
	return &grad, nil
}

// NumericalGradient approximates the gradient of loss at weights with
// central finite differences.
func NumericalGradient(loss func(weights *mat.Dense) float64, weights mat.Matrix) *mat.Dense {
	r, c := weights.Dims()
	x := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			x = append(x, weights.At(i, j))
		}
	}
	g := fd.Gradient(nil, func(w []float64) float64 {
		return loss(mat.NewDense(r, c, w))
	}, x, &fd.Settings{Formula: fd.Central, Step: 1e-5})
	return mat.NewDense(r, c, g)
}
