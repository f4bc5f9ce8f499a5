package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grape/optimize"
)

func quiet(t *testing.T) {
	t.Helper()
	level := logrus.GetLevel()
	logrus.SetLevel(logrus.ErrorLevel)
	t.Cleanup(func() { logrus.SetLevel(level) })
}

func shortRun(conv *optimize.Convergence) {
	conv.MaxIterations = 5
	conv.UpdateStep = 1
}

func TestRunOptimize(t *testing.T) {
	quiet(t)
	dir := t.TempDir()
	cfg := &config{
		Preset:    "x_gate",
		Out:       dir,
		HTML:      "debug.html",
		PNG:       "run",
		overrides: shortRun,
	}
	var buf bytes.Buffer
	require.NoError(t, runOptimize(context.Background(), cfg, &buf))

	text := buf.String()
	assert.Contains(t, text, "fidelity_loss")
	assert.Contains(t, text, "amplitude")
	assert.Contains(t, text, "迭代 5 次")

	for _, name := range []string{"00000_x_gate.json", "debug.html", "run_pulses.png", "run_loss.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	// 用检查点做前向演化
	cfg = &config{Preset: "x_gate", Weights: filepath.Join(dir, "00000_x_gate.json")}
	buf.Reset()
	require.NoError(t, runEvolve(context.Background(), cfg, &buf))
	assert.Contains(t, buf.String(), "FIDELITY")
	assert.NotContains(t, buf.String(), "迭代")
}

func TestRunErrors(t *testing.T) {
	quiet(t)
	var buf bytes.Buffer
	err := runOptimize(context.Background(), &config{Preset: "nope"}, &buf)
	assert.Error(t, err)

	err = runEvolve(context.Background(), &config{Preset: "x_gate", Weights: "missing.json"}, &buf)
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	quiet(t)
	require.NoError(t, setupLogger("debug"))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.Error(t, setupLogger("loud"))
}

func TestBindFlags(t *testing.T) {
	err := bindFlags(evolveCmd, false, map[string]string{"weights": "no-such-flag"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--no-such-flag")

	require.NoError(t, bindFlags(optimizeCmd, false, map[string]string{"max_iter": "max-iter"}))
	require.NoError(t, optimizeCmd.Flags().Set("max-iter", "7"))
	t.Cleanup(func() { optimizeCmd.Flags().Set("max-iter", "0") })
	assert.Equal(t, 7, viper.GetInt("max_iter"))
}
