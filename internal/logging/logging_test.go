package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"DEBUG":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewFiltersByLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New("trainer", Config{Level: "warn", Console: buf})
	require.NoError(t, err)

	logger.Infof("step=%d", 1)
	logger.Warnf("loss=%s", "+Inf")
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "step=1")
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "trainer")
	assert.Contains(t, out, "loss=+Inf")
}

func TestNewWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New("trainer", Config{Path: filepath.Join(dir, "train.log"), Console: &bytes.Buffer{}})
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, logger.Sync())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "train.log."))
}
