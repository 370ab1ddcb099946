package model

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// Batch represents one sampled minibatch. Inputs carry the appended bias
// column; Indices are the source rows, repeats allowed.
type Batch struct {
	Indices []int
	Inputs  *mat.Dense
	Labels  []int
	// Elapsed covers sampling, the gradient and the weight update.
	Elapsed time.Duration
}

// Model defines the training and inference surface used by the trainer.
type Model interface {
	Train(data mat.Matrix, labels []int, maxIters int) error
	Predict(data mat.Matrix) ([]int, error)
	Loss(data mat.Matrix, labels []int) (float64, error)
	BatchLoss(b Batch) (float64, error)
	Classes() int
}
