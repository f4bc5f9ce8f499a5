package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"grape/types"
)

func TestNextPath(t *testing.T) {
	dir := t.TempDir()
	p, err := NextPath(dir, "x_gate")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "00000_x_gate.json"), p)

	require.NoError(t, os.WriteFile(p, []byte("{}"), 0o644))
	p, err = NextPath(dir, "x_gate")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "00001_x_gate.json"), p)

	_, err = NextPath(dir, "")
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.json")
	cp := &Checkpoint{Gate: "x", Iteration: 3, Loss: 0.5, Weights: []float64{0.1, -0.2}, Channels: []string{"x"}}
	require.NoError(t, Save(path, cp))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cp.Weights, got.Weights)
	assert.Equal(t, 3, got.Iteration)
	assert.Equal(t, "x", got.Gate)

	require.NoError(t, Save(path, &Checkpoint{Gate: "x"}))
	_, err = Load(path)
	assert.ErrorIs(t, err, types.ErrShape)

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	params := &types.SystemParameters{
		H0:        mat.NewCDense(2, 2, nil),
		Controls:  []types.Control{{Name: "xy"}, {Name: "z"}},
		Steps:     4,
		TotalTime: 2,
	}
	w, err := NewWriter(dir, "cnot", params)
	require.NoError(t, err)
	assert.Equal(t, "00000_cnot.json", filepath.Base(w.Path))

	it := &types.Iteration{
		Index: 7, Loss: 0.25, FidelityLoss: 0.2,
		Terms: []types.TermValue{{Kind: types.PenaltyDwdt, Value: 0.05}},
	}
	weights := []float64{1, 2, 3}
	require.NoError(t, w.Save(it, weights))
	weights[0] = 100

	cp, err := Load(w.Path)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, cp.Weights)
	assert.Equal(t, []string{"xy", "z"}, cp.Channels)
	assert.Equal(t, 0.05, cp.Terms["dwdt"])
	assert.Equal(t, 4, cp.Steps)

	// 第二次运行分配新编号
	w2, err := NewWriter(dir, "cnot", params)
	require.NoError(t, err)
	assert.Equal(t, "00001_cnot.json", filepath.Base(w2.Path))
}
