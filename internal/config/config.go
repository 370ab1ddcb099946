package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"softmax-forge/internal/model"
)

// EnvPrefix is prepended to environment overrides, e.g. SOFTMAX_BATCH_SIZE.
const EnvPrefix = "softmax"

// Config captures the runtime knobs for a training run.
type Config struct {
	TrainPath    string  `mapstructure:"train_path"`
	TestPath     string  `mapstructure:"test_path"`
	TestFraction float64 `mapstructure:"test_fraction"`

	LearningRate   float64 `mapstructure:"learning_rate"`
	RegLambda      float64 `mapstructure:"reg_lambda"`
	BatchSize      int     `mapstructure:"batch_size"`
	MaxIters       int     `mapstructure:"max_iters"`
	Regularization string  `mapstructure:"regularization"`
	Seed           int64   `mapstructure:"seed"`
	LogEvery       int     `mapstructure:"log_every"`

	SyntheticClasses int     `mapstructure:"synthetic_classes"`
	SyntheticSamples int     `mapstructure:"synthetic_samples"`
	SyntheticDims    int     `mapstructure:"synthetic_dims"`
	SyntheticSpread  float64 `mapstructure:"synthetic_spread"`

	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

// Overrides captures CLI supplied values. Zero values and nil pointers are
// left alone.
type Overrides struct {
	TrainPath      string
	TestPath       string
	LearningRate   float64
	RegLambda      *float64
	BatchSize      int
	MaxIters       *int
	Regularization string
	Seed           *int64
	LogEvery       int
	LogLevel       string
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		TestFraction:     0.2,
		LearningRate:     model.DefaultLearningRate,
		RegLambda:        model.DefaultRegLambda,
		BatchSize:        model.DefaultBatchSize,
		MaxIters:         model.DefaultMaxIters,
		Regularization:   model.ReferenceL2.String(),
		Seed:             42,
		LogEvery:         100,
		SyntheticClasses: 2,
		SyntheticSamples: 200,
		SyntheticDims:    2,
		SyntheticSpread:  1.0,
		LogLevel:         "info",
	}
}

// Load reads a Config from the YAML file at path. An empty path yields the
// defaults. Environment variables prefixed with SOFTMAX_ take precedence
// over the file. Callers apply their overrides and then call Validate.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "read config")
		}
	}

	cfg := &Config{}
	if err := v.UnmarshalExact(cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("train_path", d.TrainPath)
	v.SetDefault("test_path", d.TestPath)
	v.SetDefault("test_fraction", d.TestFraction)
	v.SetDefault("learning_rate", d.LearningRate)
	v.SetDefault("reg_lambda", d.RegLambda)
	v.SetDefault("batch_size", d.BatchSize)
	v.SetDefault("max_iters", d.MaxIters)
	v.SetDefault("regularization", d.Regularization)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("log_every", d.LogEvery)
	v.SetDefault("synthetic_classes", d.SyntheticClasses)
	v.SetDefault("synthetic_samples", d.SyntheticSamples)
	v.SetDefault("synthetic_dims", d.SyntheticDims)
	v.SetDefault("synthetic_spread", d.SyntheticSpread)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_path", d.LogPath)
}

// ApplyOverrides updates cfg using any set override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.TrainPath != "" {
		c.TrainPath = o.TrainPath
	}
	if o.TestPath != "" {
		c.TestPath = o.TestPath
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.RegLambda != nil {
		c.RegLambda = *o.RegLambda
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.MaxIters != nil {
		c.MaxIters = *o.MaxIters
	}
	if o.Regularization != "" {
		c.Regularization = o.Regularization
	}
	if o.Seed != nil {
		c.Seed = *o.Seed
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.LearningRate <= 0 {
		return errors.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.RegLambda < 0 {
		return errors.Errorf("reg_lambda must be >= 0 (got %g)", c.RegLambda)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.MaxIters < 0 {
		return errors.Errorf("max_iters must be >= 0 (got %d)", c.MaxIters)
	}
	if _, err := model.ParseRegularization(c.Regularization); err != nil {
		return err
	}
	if c.TestFraction < 0 || c.TestFraction >= 1 {
		return errors.Errorf("test_fraction must be in [0, 1) (got %g)", c.TestFraction)
	}
	if c.TrainPath == "" {
		if c.SyntheticClasses < 2 {
			return errors.Errorf("synthetic_classes must be >= 2 (got %d)", c.SyntheticClasses)
		}
		if c.SyntheticSamples < c.SyntheticClasses {
			return errors.Errorf("synthetic_samples must be >= synthetic_classes (got %d)", c.SyntheticSamples)
		}
		if c.SyntheticDims <= 0 {
			return errors.Errorf("synthetic_dims must be > 0 (got %d)", c.SyntheticDims)
		}
	}
	if c.LogEvery <= 0 {
		return errors.Errorf("log_every must be > 0 (got %d)", c.LogEvery)
	}
	return nil
}
