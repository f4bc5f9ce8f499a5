package grape

import (
	"context"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grape/checkpoint"
	"grape/debug"
	"grape/load"
	"grape/optimize"
	"grape/types"
)

func xGate(t *testing.T, opts ...Option) *Grape {
	t.Helper()
	sys, err := load.Preset("x_gate")
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	g, err := FromSystem(sys, append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	return g
}

func TestRunWritesCheckpoint(t *testing.T) {
	dir := t.TempDir()
	logger, _ := test.NewNullLogger()
	rec := debug.NewRecord(debug.DefaultUnit, logger)
	conv := optimize.DefaultConvergence()
	conv.MaxIterations = 20
	conv.UpdateStep = 5
	g := xGate(t, WithDataDir(dir), WithRecord(rec), WithConvergence(conv), WithSeed(3))

	out, err := g.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out.Summary)
	assert.Equal(t, 20, out.Summary.Iterations)
	assert.Equal(t, filepath.Join(dir, "00000_x_gate.json"), out.Checkpoint)

	r, c := out.Final.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	require.Len(t, out.Amplitudes, 1)
	assert.Len(t, out.Amplitudes[0], 10)

	assert.Equal(t, []int{0, 5, 10, 15, 20}, rec.Iterations)
	assert.Less(t, rec.Loss[len(rec.Loss)-1], rec.Loss[0])

	cp, err := checkpoint.Load(out.Checkpoint)
	require.NoError(t, err)
	assert.Equal(t, 20, cp.Iteration)
	assert.Equal(t, out.Weights, cp.Weights)
	assert.Equal(t, []string{"x"}, cp.Channels)

	// 第二次运行分配新编号
	_, err = g.Run(context.Background())
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "00001_x_gate.json"))
	assert.NoError(t, err)
}

func TestEvolvePiPulse(t *testing.T) {
	g := xGate(t)
	w := make([]float64, g.Context.Controls.Size())
	for i := range w {
		w[i] = math.Atanh(math.Pi / 2 / types.DefaultMaxAmp)
	}
	out, err := g.Evolve(context.Background(), w)
	require.NoError(t, err)
	assert.Nil(t, out.Summary)
	assert.InDelta(t, 1, out.Fidelity(), 1e-6)
	// exp(-iπ/2·σx) = -iσx
	assert.InDelta(t, 0, cmplx.Abs(out.Final.At(0, 1)+1i), 1e-6)
	assert.InDelta(t, 0, cmplx.Abs(out.Final.At(0, 0)), 1e-6)
}

func TestInitialWeights(t *testing.T) {
	g := xGate(t, WithSeed(7))
	a, err := g.InitialWeights()
	require.NoError(t, err)
	b, err := g.InitialWeights()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	amps := [][]float64{make([]float64, 10)}
	amps[0][3] = 1
	g = xGate(t, WithInitialGuess(amps))
	w, err := g.InitialWeights()
	require.NoError(t, err)
	assert.InDelta(t, math.Atanh(1/types.DefaultMaxAmp), w[3], 1e-12)

	g = xGate(t, WithWeights([]float64{1, 2}))
	_, err = g.InitialWeights()
	assert.ErrorIs(t, err, types.ErrShape)
}

func TestLoadGrape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.yaml")
	src := `
gate: h
total_time: 1
steps: 8
h0: [[0, 0], [0, 0]]
controls:
  - name: x
    op: [[0, 1], [1, 0]]
target: [[0, 1], [1, 0]]
convergence:
  max_iterations: 3
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	logger, _ := test.NewNullLogger()
	g, err := LoadGrape(path, WithLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, "h", g.Gate)
	assert.Equal(t, 3, g.Convergence.MaxIterations)

	out, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, out.Summary.Iterations)
	assert.Empty(t, out.Checkpoint)
}

func TestRunCancelled(t *testing.T) {
	g := xGate(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := g.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out.Result)
}
