package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainCommandSynthetic(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "softmax.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
synthetic_samples: 80
synthetic_spread: 0.5
batch_size: 32
log_level: error
`), 0o644))

	cmd := trainCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--config", cfgPath, "--max-iters", "300", "--seed", "3"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "train_accuracy=")
	assert.Contains(t, out.String(), "test_accuracy=")
	assert.Contains(t, out.String(), "class 1:")
}

func TestTrainCommandBadOverride(t *testing.T) {
	cmd := trainCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--regularization", "l1", "--log-level", "error"})
	assert.Error(t, cmd.Execute())
}

func TestTrainCommandFlagFixesConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "softmax.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
synthetic_samples: 40
synthetic_spread: 0.5
batch_size: 0
log_level: error
`), 0o644))

	cmd := trainCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "--batch-size", "16", "--max-iters", "20"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "train_accuracy=")
}

func TestOverridesOnlyChangedPointers(t *testing.T) {
	flags := newFlagSet()
	require.NoError(t, flags.Parse([]string{"--reg-lambda", "0", "--batch-size", "8", "--seed", "0"}))
	o := overridesFrom(flags)
	require.NotNil(t, o.RegLambda)
	assert.Equal(t, 0.0, *o.RegLambda)
	assert.Nil(t, o.MaxIters)
	require.NotNil(t, o.Seed)
	assert.Equal(t, int64(0), *o.Seed)
	assert.Equal(t, 8, o.BatchSize)
}
