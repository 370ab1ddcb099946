package trainer

import (
	"context"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"softmax-forge/internal/dataset"
	"softmax-forge/internal/metrics"
	"softmax-forge/internal/model"
)

// SyntheticConfig describes the Gaussian blobs used when no training file
// is given.
type SyntheticConfig struct {
	Classes int
	Samples int
	Dims    int
	Spread  float64
}

// RunConfig captures the knobs required by the training loop.
type RunConfig struct {
	TrainPath    string
	TestPath     string
	TestFraction float64

	LearningRate   float64
	RegLambda      float64
	BatchSize      int
	MaxIters       int
	Regularization model.Regularization
	Seed           int64
	LogEvery       int

	Synthetic SyntheticConfig
}

// Result summarizes a finished run.
type Result struct {
	Steps         int
	Classes       int
	TrainSamples  int
	TestSamples   int
	FinalLoss     float64
	TrainAccuracy float64
	TestAccuracy  float64
	// Confusion is computed on the test split, or on the training data
	// when there is no test split.
	Confusion [][]int
}

// Run loads the data, trains a softmax classifier and evaluates it.
func Run(ctx context.Context, cfg RunConfig, logger *zap.SugaredLogger) (Result, error) {
	if cfg.MaxIters < 0 {
		return Result{}, errors.New("trainer: max iters must be >= 0")
	}
	if cfg.BatchSize <= 0 {
		return Result{}, errors.New("trainer: batch size must be > 0")
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 50
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	train, test, err := loadData(cfg, rng)
	if err != nil {
		return Result{}, err
	}
	logger.Infof("train_samples=%d test_samples=%d features=%d classes=%d",
		train.Len(), test.Len(), train.Dims(), train.Classes())

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var (
		window   metrics.Window
		clf      model.Model
		lastLoss = math.NaN()
		steps    int
	)
	hook := func(step int, b model.Batch) error {
		steps = step
		if step%cfg.LogEvery == 0 || step == cfg.MaxIters {
			loss, err := clf.BatchLoss(b)
			if err != nil {
				logger.Warnf("step=%d batch loss: %v", step, err)
			} else {
				lastLoss = loss
			}
		}
		window.Record(len(b.Indices), b.Elapsed, lastLoss)

		if step%cfg.LogEvery == 0 {
			snap := window.Snapshot()
			logger.Infof("step=%d samples_per_sec=%.1f compute_ms=%.2f loss=%.4f",
				step,
				snap.SamplesPerSec,
				snap.AvgComputeMS,
				snap.LastLoss,
			)
		}
		return ctx.Err()
	}

	clf = model.NewClassifier(
		model.WithLearningRate(cfg.LearningRate),
		model.WithRegLambda(cfg.RegLambda),
		model.WithBatchSize(cfg.BatchSize),
		model.WithRegularization(cfg.Regularization),
		model.WithSeed(cfg.Seed),
		model.WithStepHook(hook),
	)
	if err := clf.Train(train.Features, train.Labels, cfg.MaxIters); err != nil {
		if ctx.Err() != nil {
			logger.Warnf("training interrupted after %d steps", steps)
		}
		return Result{}, errors.Wrap(err, "train")
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res, err := evaluate(clf, train, test)
	if err != nil {
		return Result{}, err
	}
	res.Steps = steps
	if math.IsInf(res.FinalLoss, 0) || math.IsNaN(res.FinalLoss) {
		logger.Warnf("final loss is not finite: %v", res.FinalLoss)
	}
	logger.Infof("steps=%d loss=%.4f train_accuracy=%.4f test_accuracy=%.4f",
		res.Steps, res.FinalLoss, res.TrainAccuracy, res.TestAccuracy)
	return res, nil
}

func loadData(cfg RunConfig, rng *rand.Rand) (*dataset.Dataset, *dataset.Dataset, error) {
	var all *dataset.Dataset
	if cfg.TrainPath == "" {
		s := cfg.Synthetic
		if s.Classes <= 0 || s.Samples < s.Classes || s.Dims <= 0 {
			return nil, nil, errors.Errorf("trainer: invalid synthetic config %+v", s)
		}
		all = dataset.Blobs(rng, s.Classes, s.Samples/s.Classes, s.Dims, s.Spread)
	} else {
		ds, err := dataset.Load(cfg.TrainPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "load train set")
		}
		all = ds
	}
	if err := all.Validate(); err != nil {
		return nil, nil, err
	}

	if cfg.TestPath != "" {
		test, err := dataset.Load(cfg.TestPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "load test set")
		}
		if test.Dims() != all.Dims() {
			return nil, nil, errors.Wrapf(model.ErrDimensionMismatch,
				"test set has %d features, train set has %d", test.Dims(), all.Dims())
		}
		return all, test, nil
	}
	return dataset.Split(all, cfg.TestFraction, rng)
}

func evaluate(clf model.Model, train, test *dataset.Dataset) (Result, error) {
	res := Result{
		Classes:      clf.Classes(),
		TrainSamples: train.Len(),
		TestSamples:  test.Len(),
	}

	loss, err := clf.Loss(train.Features, train.Labels)
	if err != nil {
		return Result{}, errors.Wrap(err, "final loss")
	}
	res.FinalLoss = loss

	pred, err := clf.Predict(train.Features)
	if err != nil {
		return Result{}, errors.Wrap(err, "predict train set")
	}
	if res.TrainAccuracy, err = metrics.Accuracy(pred, train.Labels); err != nil {
		return Result{}, err
	}
	confusionPred, confusionTruth := pred, train.Labels

	if test.Len() > 0 {
		testPred, err := clf.Predict(test.Features)
		if err != nil {
			return Result{}, errors.Wrap(err, "predict test set")
		}
		if res.TestAccuracy, err = metrics.Accuracy(testPred, test.Labels); err != nil {
			return Result{}, err
		}
		confusionPred, confusionTruth = testPred, test.Labels
	}

	classes := res.Classes
	for _, l := range confusionTruth {
		if l >= classes {
			classes = l + 1
		}
	}
	res.Confusion, err = metrics.ConfusionMatrix(confusionPred, confusionTruth, classes)
	if err != nil {
		return Result{}, err
	}
	return res, nil
}
