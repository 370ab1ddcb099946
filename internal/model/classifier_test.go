package model

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"softmax-forge/internal/dataset"
)

func TestClassifierSeparableBlobs(t *testing.T) {
	ds := dataset.Blobs(rand.New(rand.NewSource(1)), 2, 20, 2, 1.0)

	clf := NewClassifier(WithSeed(7))
	require.NoError(t, clf.Train(ds.Features, ds.Labels, 500))

	pred, err := clf.Predict(ds.Features)
	require.NoError(t, err)
	require.Len(t, pred, ds.Len())

	correct := 0
	for i, p := range pred {
		if p == ds.Labels[i] {
			correct++
		}
	}
	accuracy := float64(correct) / float64(len(pred))
	assert.GreaterOrEqual(t, accuracy, 0.95)
}

func TestClassifierTrainingLowersLoss(t *testing.T) {
	ds := dataset.Blobs(rand.New(rand.NewSource(2)), 2, 30, 2, 1.0)

	for _, reg := range []Regularization{ReferenceL2, ElementwiseL2} {
		clf := NewClassifier(WithSeed(3), WithRegularization(reg))
		require.NoError(t, clf.Train(ds.Features, ds.Labels, 0))
		before, err := clf.Loss(ds.Features, ds.Labels)
		require.NoError(t, err)

		clf = NewClassifier(WithSeed(3), WithRegularization(reg))
		require.NoError(t, clf.Train(ds.Features, ds.Labels, 200))
		after, err := clf.Loss(ds.Features, ds.Labels)
		require.NoError(t, err)

		assert.Less(t, after, before, reg.String())
	}
}

func TestClassifierPredictRange(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	ds := dataset.Blobs(rng, 3, 15, 4, 2.0)

	clf := NewClassifier(WithSeed(5), WithBatchSize(8))
	require.NoError(t, clf.Train(ds.Features, ds.Labels, 50))
	assert.Equal(t, 3, clf.Classes())

	probe := randomDense(rng, 25, 4, 20)
	pred, err := clf.Predict(probe)
	require.NoError(t, err)
	require.Len(t, pred, 25)
	for _, p := range pred {
		assert.True(t, p >= 0 && p < 3, "prediction %d out of range", p)
	}
}

func TestClassifierPredictTiesPickLowestIndex(t *testing.T) {
	clf := NewClassifier(WithSeed(1))
	require.NoError(t, clf.Train(mat.NewDense(3, 1, []float64{1, 2, 3}), []int{0, 1, 2}, 0))
	clf.weights = mat.NewDense(2, 3, nil)

	pred, err := clf.Predict(mat.NewDense(2, 1, []float64{4, -4}))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, pred)
}

func TestClassifierZeroItersKeepsInitialWeights(t *testing.T) {
	ds := dataset.Blobs(rand.New(rand.NewSource(6)), 2, 10, 3, 1.0)

	clf := NewClassifier(WithSeed(99))
	assert.False(t, clf.Trained())
	require.NoError(t, clf.Train(ds.Features, ds.Labels, 0))
	require.True(t, clf.Trained())

	w := clf.Weights()
	r, c := w.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)

	rng := rand.New(rand.NewSource(99))
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.Equal(t, 0.01*rng.NormFloat64(), w.At(i, j))
		}
	}
}

func TestClassifierInitialWeightScale(t *testing.T) {
	data := mat.NewDense(4, 400, nil)
	clf := NewClassifier(WithSeed(12))
	require.NoError(t, clf.Train(data, []int{0, 1, 2, 3}, 0))

	raw := clf.Weights().RawMatrix().Data
	assert.InDelta(t, 0.0, stat.Mean(raw, nil), 0.002)
	assert.InDelta(t, 0.01, stat.StdDev(raw, nil), 0.001)
}

func TestClassifierBatchClampedToDataset(t *testing.T) {
	ds := dataset.Blobs(rand.New(rand.NewSource(8)), 2, 3, 2, 1.0)
	n := ds.Len()

	steps := 0
	duplicates := false
	clf := NewClassifier(
		WithSeed(10),
		WithBatchSize(1000),
		WithStepHook(func(step int, b Batch) error {
			steps++
			assert.Equal(t, steps, step)
			assert.Len(t, b.Indices, n)
			assert.Len(t, b.Labels, n)
			r, c := b.Inputs.Dims()
			assert.Equal(t, n, r)
			assert.Equal(t, 3, c)

			seen := map[int]bool{}
			for i, idx := range b.Indices {
				assert.True(t, idx >= 0 && idx < n, "index %d out of range", idx)
				assert.Equal(t, ds.Labels[idx], b.Labels[i])
				assert.Equal(t, 1.0, b.Inputs.At(i, 2))
				if seen[idx] {
					duplicates = true
				}
				seen[idx] = true
			}
			return nil
		}),
	)
	require.NoError(t, clf.Train(ds.Features, ds.Labels, 40))
	assert.Equal(t, 40, steps)
	// Sampling is with replacement, so a full-size batch almost surely
	// repeats an index somewhere across 40 steps.
	assert.True(t, duplicates, "no repeated index in any batch")
}

func TestClassifierRetrainReinitializes(t *testing.T) {
	clf := NewClassifier(WithSeed(13))
	require.NoError(t, clf.Train(mat.NewDense(2, 2, []float64{0, 0, 1, 1}), []int{0, 1}, 5))
	assert.Equal(t, 2, clf.Classes())

	require.NoError(t, clf.Train(mat.NewDense(3, 4, nil), []int{0, 1, 2}, 5))
	r, c := clf.Weights().Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 3, c)
}

func TestClassifierPredictBeforeTrain(t *testing.T) {
	clf := NewClassifier()
	_, err := clf.Predict(mat.NewDense(2, 2, nil))
	assert.ErrorIs(t, err, ErrNotTrained)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = clf.Loss(mat.NewDense(2, 2, nil), []int{0, 1})
	assert.ErrorIs(t, err, ErrNotTrained)
	assert.Nil(t, clf.Weights())
}

func TestClassifierShapeErrors(t *testing.T) {
	clf := NewClassifier(WithSeed(1))

	err := clf.Train(mat.NewDense(3, 2, nil), []int{0, 1}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = clf.Train(mat.NewDense(2, 2, nil), []int{0, 2}, 1)
	assert.ErrorIs(t, err, ErrLabelOutOfRange)

	err = clf.Train(mat.NewDense(2, 2, nil), []int{0, 1}, -1)
	assert.ErrorIs(t, err, ErrNegativeIters)

	err = clf.Train(&mat.Dense{}, nil, 1)
	assert.ErrorIs(t, err, ErrEmptyDataset)
	assert.False(t, clf.Trained())

	require.NoError(t, clf.Train(mat.NewDense(2, 2, nil), []int{0, 1}, 1))
	_, err = clf.Predict(mat.NewDense(2, 3, nil))
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	pred, err := clf.Predict(&mat.Dense{})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Nil(t, pred)
}

func TestClassifierOptionsIgnoreInvalidValues(t *testing.T) {
	clf := NewClassifier(WithLearningRate(-1), WithRegLambda(-0.5), WithBatchSize(0))
	assert.Equal(t, DefaultLearningRate, clf.learningRate)
	assert.Equal(t, DefaultRegLambda, clf.regLambda)
	assert.Equal(t, DefaultBatchSize, clf.batchSize)
	assert.Equal(t, ReferenceL2, clf.regularization)

	clf = NewClassifier(WithRegLambda(0))
	assert.Equal(t, 0.0, clf.regLambda)
}

func TestClassifierBatchLoss(t *testing.T) {
	ds := dataset.Blobs(rand.New(rand.NewSource(14)), 2, 5, 2, 1.0)
	var losses []float64
	var clf *Classifier
	clf = NewClassifier(WithSeed(15), WithStepHook(func(_ int, b Batch) error {
		loss, err := clf.BatchLoss(b)
		require.NoError(t, err)
		losses = append(losses, loss)
		return nil
	}))
	require.NoError(t, clf.Train(ds.Features, ds.Labels, 3))
	require.Len(t, losses, 3)
	for _, l := range losses {
		assert.False(t, math.IsNaN(l))
		assert.Greater(t, l, 0.0)
	}
}

func TestClassifierStepHookStopsTraining(t *testing.T) {
	ds := dataset.Blobs(rand.New(rand.NewSource(16)), 2, 5, 2, 1.0)
	errHalt := errors.New("halt")

	steps := 0
	clf := NewClassifier(WithSeed(17), WithStepHook(func(step int, b Batch) error {
		steps = step
		assert.GreaterOrEqual(t, b.Elapsed, time.Duration(0))
		if step == 3 {
			return errHalt
		}
		return nil
	}))
	err := clf.Train(ds.Features, ds.Labels, 1000)
	require.ErrorIs(t, err, errHalt)
	assert.Contains(t, err.Error(), "step 3")
	assert.Equal(t, 3, steps)
	assert.True(t, clf.Trained())
}
