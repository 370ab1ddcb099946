package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"softmax-forge/internal/config"
	"softmax-forge/internal/logging"
	"softmax-forge/internal/model"
	"softmax-forge/internal/trainer"
)

var (
	cfgPathFlag        string
	trainPathFlag      string
	testPathFlag       string
	learningRateFlag   float64
	regLambdaFlag      float64
	batchSizeFlag      int
	maxItersFlag       int
	regularizationFlag string
	seedFlag           int64
	logEveryFlag       int
	logLevelFlag       string
)

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("train", pflag.ContinueOnError)
	flags.StringVarP(&cfgPathFlag, "config", "c", "", "Path to YAML config")
	flags.StringVar(&trainPathFlag, "train", "", "Training CSV file or directory of CSV parts")
	flags.StringVar(&testPathFlag, "test", "", "Test CSV file or directory")
	flags.Float64Var(&learningRateFlag, "learning-rate", 0, "Gradient descent step size")
	flags.Float64Var(&regLambdaFlag, "reg-lambda", 0, "L2 regularization coefficient")
	flags.IntVar(&batchSizeFlag, "batch-size", 0, "Samples drawn per step")
	flags.IntVar(&maxItersFlag, "max-iters", 0, "Number of training steps")
	flags.StringVar(&regularizationFlag, "regularization", "", "Penalty gradient: reference or elementwise")
	flags.Int64Var(&seedFlag, "seed", 0, "PRNG seed")
	flags.IntVar(&logEveryFlag, "log-every", 0, "Log every N steps")
	flags.StringVar(&logLevelFlag, "log-level", "", "debug, info, warn or error")
	return flags
}

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a classifier and report its accuracy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd)
		},
	}
	cmd.Flags().AddFlagSet(newFlagSet())
	return cmd
}

func overridesFrom(flags *pflag.FlagSet) config.Overrides {
	o := config.Overrides{
		TrainPath:      trainPathFlag,
		TestPath:       testPathFlag,
		LearningRate:   learningRateFlag,
		BatchSize:      batchSizeFlag,
		Regularization: regularizationFlag,
		LogEvery:       logEveryFlag,
		LogLevel:       logLevelFlag,
	}
	if flags.Changed("reg-lambda") {
		o.RegLambda = &regLambdaFlag
	}
	if flags.Changed("max-iters") {
		o.MaxIters = &maxItersFlag
	}
	if flags.Changed("seed") {
		o.Seed = &seedFlag
	}
	return o
}

func runTrain(cmd *cobra.Command) error {
	cfg, err := config.Load(cfgPathFlag)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	cfg.ApplyOverrides(overridesFrom(cmd.Flags()))
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	reg, err := model.ParseRegularization(cfg.Regularization)
	if err != nil {
		return err
	}

	logger, err := logging.New("softmax", logging.Config{Level: cfg.LogLevel, Path: cfg.LogPath})
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := trainer.Run(ctx, trainer.RunConfig{
		TrainPath:      cfg.TrainPath,
		TestPath:       cfg.TestPath,
		TestFraction:   cfg.TestFraction,
		LearningRate:   cfg.LearningRate,
		RegLambda:      cfg.RegLambda,
		BatchSize:      cfg.BatchSize,
		MaxIters:       cfg.MaxIters,
		Regularization: reg,
		Seed:           cfg.Seed,
		LogEvery:       cfg.LogEvery,
		Synthetic: trainer.SyntheticConfig{
			Classes: cfg.SyntheticClasses,
			Samples: cfg.SyntheticSamples,
			Dims:    cfg.SyntheticDims,
			Spread:  cfg.SyntheticSpread,
		},
	}, logger)
	if err != nil {
		logger.Errorf("training failed: %v", err)
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "train_accuracy=%.4f test_accuracy=%.4f loss=%.4f\n",
		res.TrainAccuracy, res.TestAccuracy, res.FinalLoss)
	for k, row := range res.Confusion {
		fmt.Fprintf(out, "class %d: %v\n", k, row)
	}
	return nil
}
