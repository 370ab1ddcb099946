package model

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// probabilities validates shapes and returns softmax(data · weights),
// one distribution per row.
func probabilities(op string, data mat.Matrix, labels []int, weights mat.Matrix) (*mat.Dense, error) {
	n, k := data.Dims()
	if n == 0 {
		return nil, errors.Wrap(ErrEmptyDataset, op)
	}
	rows, classes := weights.Dims()
	if k != rows {
		return nil, errors.Wrapf(ErrDimensionMismatch, "%s: data has %d columns, weights have %d rows", op, k, rows)
	}
	if len(labels) != n {
		return nil, errors.Wrapf(ErrDimensionMismatch, "%s: data has %d rows, got %d labels", op, n, len(labels))
	}
	for i, l := range labels {
		if l < 0 || l >= classes {
			return nil, errors.Wrapf(ErrLabelOutOfRange, "%s: label %d at row %d not in [0, %d)", op, l, i, classes)
		}
	}

	var scores mat.Dense
	scores.Mul(data, weights)
	softmaxRows(&scores)
	return &scores, nil
}

// softmaxRows replaces every row of m with its softmax. The row maximum is
// subtracted first so the largest exponent is exp(0).
func softmaxRows(m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		floats.AddConst(-floats.Max(row), row)
		for j, v := range row {
			row[j] = math.Exp(v)
		}
		sum := floats.Sum(row)
		for j := range row {
			row[j] /= sum
		}
	}
}

// sumSquares returns the sum of the squared entries of m.
func sumSquares(m mat.Matrix) float64 {
	if r, c := m.Dims(); r == 0 || c == 0 {
		return 0
	}
	norm := mat.Norm(m, 2)
	return norm * norm
}
