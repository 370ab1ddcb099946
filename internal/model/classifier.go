package model

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"softmax-forge/internal/dataset"
)

const (
	DefaultLearningRate = 0.01
	DefaultRegLambda    = 0.01
	DefaultBatchSize    = 1024
	DefaultMaxIters     = 1000

	initStdDev = 0.01
)

// StepFunc observes a finished training step. step counts from 1 and the
// weights have already been updated with batch. A non-nil error stops
// training and is returned by Train.
type StepFunc func(step int, batch Batch) error

// Option configures a Classifier.
type Option func(*Classifier)

// WithLearningRate sets the gradient descent step size. Non-positive values
// are ignored.
func WithLearningRate(lr float64) Option {
	return func(c *Classifier) {
		if lr > 0 {
			c.learningRate = lr
		}
	}
}

// WithRegLambda sets the L2 coefficient. Negative values are ignored.
func WithRegLambda(lambda float64) Option {
	return func(c *Classifier) {
		if lambda >= 0 {
			c.regLambda = lambda
		}
	}
}

// WithBatchSize sets the number of samples drawn per step. Non-positive
// values are ignored.
func WithBatchSize(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithSeed makes weight initialization and batch sampling deterministic.
func WithSeed(seed int64) Option {
	return func(c *Classifier) {
		c.rng = rand.New(rand.NewSource(seed))
	}
}

// WithRegularization selects the penalty term used by the gradient.
func WithRegularization(r Regularization) Option {
	return func(c *Classifier) {
		c.regularization = r
	}
}

// WithStepHook registers fn to run after every training step. Returning an
// error from fn aborts the run, e.g. when a context is canceled.
func WithStepHook(fn StepFunc) Option {
	return func(c *Classifier) {
		c.onStep = fn
	}
}

// Classifier is a linear softmax classifier trained by minibatch gradient
// descent. The zero state is untrained; Train allocates a (D+1)×C weight
// matrix whose last row holds the per-class bias.
//
// A Classifier is not safe for concurrent use.
type Classifier struct {
	learningRate   float64
	regLambda      float64
	batchSize      int
	regularization Regularization
	rng            *rand.Rand
	sampler        *dataset.Sampler
	onStep         StepFunc

	weights *mat.Dense
}

var _ Model = (*Classifier)(nil)

// NewClassifier constructs an untrained classifier.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		learningRate:   DefaultLearningRate,
		regLambda:      DefaultRegLambda,
		batchSize:      DefaultBatchSize,
		regularization: ReferenceL2,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	c.sampler = dataset.NewSampler(c.rng)
	return c
}

// Train fits the classifier to data (N×D) and labels for exactly maxIters
// steps, unless the step hook returns an error first. Any previous weights
// are discarded. The number of classes is the number of distinct labels,
// and every label must fall below it.
func (c *Classifier) Train(data mat.Matrix, labels []int, maxIters int) error {
	n, d := data.Dims()
	if n == 0 {
		return errors.Wrap(ErrEmptyDataset, "train")
	}
	if len(labels) != n {
		return errors.Wrapf(ErrDimensionMismatch, "train: data has %d rows, got %d labels", n, len(labels))
	}
	if maxIters < 0 {
		return errors.Wrapf(ErrNegativeIters, "train: got %d", maxIters)
	}
	classes := dataset.CountClasses(labels)
	for i, l := range labels {
		if l < 0 || l >= classes {
			return errors.Wrapf(ErrLabelOutOfRange, "train: label %d at row %d not in [0, %d)", l, i, classes)
		}
	}

	c.weights = c.initWeights(d+1, classes)

	for step := 1; step <= maxIters; step++ {
		start := time.Now()
		idx := c.sampler.Draw(n, c.batchSize)
		inputs, batchLabels := dataset.Gather(data, labels, idx)

		grad, err := gradient("train", inputs, batchLabels, c.weights, c.regLambda, c.regularization)
		if err != nil {
			return err
		}
		grad.Scale(c.learningRate, grad)
		c.weights.Sub(c.weights, grad)

		elapsed := time.Since(start)

		if c.onStep != nil {
			b := Batch{Indices: idx, Inputs: inputs, Labels: batchLabels, Elapsed: elapsed}
			if err := c.onStep(step, b); err != nil {
				return errors.Wrapf(err, "train: stopped at step %d", step)
			}
		}
	}
	return nil
}

func (c *Classifier) initWeights(rows, classes int) *mat.Dense {
	data := make([]float64, rows*classes)
	for i := range data {
		data[i] = initStdDev * c.rng.NormFloat64()
	}
	return mat.NewDense(rows, classes, data)
}

// Predict returns the arg-max class of every row of data. Ties resolve to
// the lowest class index.
func (c *Classifier) Predict(data mat.Matrix) ([]int, error) {
	if c.weights == nil {
		return nil, errors.WithStack(ErrNotTrained)
	}
	n, d := data.Dims()
	rows, _ := c.weights.Dims()
	if d+1 != rows {
		return nil, errors.Wrapf(ErrDimensionMismatch, "predict: data has %d features, model expects %d", d, rows-1)
	}
	if n == 0 {
		return []int{}, nil
	}

	var scores mat.Dense
	scores.Mul(dataset.AppendBias(data), c.weights)

	out := make([]int, n)
	for i := range out {
		out[i] = floats.MaxIdx(scores.RawRowView(i))
	}
	return out, nil
}

// Loss evaluates CrossEntropyLoss of the current weights on data (N×D),
// appending the bias column.
func (c *Classifier) Loss(data mat.Matrix, labels []int) (float64, error) {
	if c.weights == nil {
		return 0, errors.WithStack(ErrNotTrained)
	}
	if n, _ := data.Dims(); n == 0 {
		return 0, errors.Wrap(ErrEmptyDataset, "loss")
	}
	return CrossEntropyLoss(dataset.AppendBias(data), labels, c.weights, c.regLambda)
}

// BatchLoss evaluates CrossEntropyLoss of the current weights on a sampled
// batch, whose inputs already carry the bias column.
func (c *Classifier) BatchLoss(b Batch) (float64, error) {
	if c.weights == nil {
		return 0, errors.WithStack(ErrNotTrained)
	}
	return CrossEntropyLoss(b.Inputs, b.Labels, c.weights, c.regLambda)
}

// Trained reports whether Train has allocated weights.
func (c *Classifier) Trained() bool {
	return c.weights != nil
}

// Classes returns the number of classes seen by the last Train call.
func (c *Classifier) Classes() int {
	if c.weights == nil {
		return 0
	}
	_, classes := c.weights.Dims()
	return classes
}

// Weights returns a copy of the (D+1)×C weight matrix, or nil when untrained.
func (c *Classifier) Weights() *mat.Dense {
	if c.weights == nil {
		return nil
	}
	return mat.DenseCopyOf(c.weights)
}
