package control

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"grape/types"
)

// testParams 两个通道：第 0 个直接参数化，第 1 个粗粒度 coarse 点
func testParams(steps, coarse int) *types.SystemParameters {
	x := mat.NewCDense(2, 2, []complex128{0, 1, 1, 0})
	y := mat.NewCDense(2, 2, []complex128{0, -1i, 1i, 0})
	total := 2.0
	return &types.SystemParameters{
		H0: mat.NewCDense(2, 2, nil),
		Controls: []types.Control{
			{Name: "x", Op: x, MaxAmp: 2},
			{Name: "y", Op: y, MaxAmp: 3, Dt: total / float64(coarse)},
		},
		TotalTime: total,
		Steps:     steps,
		Target:    x,
		Concerned: []int{0, 1},
	}
}

func TestSquash(t *testing.T) {
	for _, x := range []float64{-3, -0.5, 0, 0.2, 4} {
		assert.InDelta(t, x, Unsquash(Squash(x)), 1e-9)
		const eps = 1e-6
		fd := (Squash(x+eps) - Squash(x-eps)) / (2 * eps)
		assert.InDelta(t, fd, SquashDeriv(x), 1e-8)
	}
	assert.Less(t, Squash(50), 1.0+1e-15)
}

// TestTransferIdentity 粗粒度点数等于 steps 时样条与直接参数化一致
func TestTransferIdentity(t *testing.T) {
	p := testParams(20, 20)
	c, err := New(p)
	require.NoError(t, err)
	assert.Equal(t, ModeDirect, c.Layout.Segments[1].Mode)

	rng := rand.New(rand.NewSource(2))
	raw := make([]float64, 20)
	for i := range raw {
		raw[i] = rng.NormFloat64()
	}
	tr := BuildTransfer(20, p.StepDt(), 20, p.TotalTime)
	up := tr.MulVec(raw)
	for i := range raw {
		assert.InDelta(t, raw[i], up[i], 1e-12)
	}
}

// TestTransferWeights 行内至多四个非零元，内部行权重之和为 1
func TestTransferWeights(t *testing.T) {
	const steps, coarse = 40, 8
	tr := BuildTransfer(steps, 1.0/steps, coarse, 1)
	require.Equal(t, steps, tr.Rows())
	require.Equal(t, coarse, tr.Cols())
	for l := 0; l < steps; l++ {
		cols, vals := tr.GetRow(l)
		assert.LessOrEqual(t, len(cols), 4)
		if len(cols) == 4 {
			sum := 0.0
			for _, v := range vals {
				sum += v
			}
			assert.InDelta(t, 1, sum, 1e-12, "第 %d 行", l)
		}
	}
	// 常数控制点在内部被精确复现
	ones := make([]float64, coarse)
	for i := range ones {
		ones[i] = 1
	}
	up := tr.MulVec(ones)
	assert.InDelta(t, 1, up[steps/2], 1e-12)
}

func TestLayout(t *testing.T) {
	p := testParams(10, 5)
	l := NewLayout(p)
	require.NoError(t, l.Check(2))
	assert.Equal(t, 15, l.Size())
	assert.Equal(t, Segment{Channel: 1, Offset: 10, Length: 5, Mode: ModeSpline}, l.Segments[1])

	w := make([]float64, 15)
	for i := range w {
		w[i] = float64(i)
	}
	parts, err := l.Unpack(w)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, []float64{10, 11, 12, 13, 14}, parts[1])
	assert.Equal(t, w, l.Pack(parts))

	_, err = l.Unpack(w[:14])
	assert.ErrorIs(t, err, types.ErrShape)
}

func TestLayoutCheckMismatch(t *testing.T) {
	tests := []struct {
		name   string
		layout *Layout
	}{
		{"通道数不符", &Layout{Steps: 4, Segments: []Segment{{0, 0, 4, ModeDirect}}}},
		{"直接参数化长度不符", &Layout{Steps: 4, Segments: []Segment{{0, 0, 3, ModeDirect}, {1, 3, 4, ModeDirect}}}},
		{"偏移不连续", &Layout{Steps: 4, Segments: []Segment{{0, 0, 4, ModeDirect}, {1, 5, 2, ModeSpline}}}},
		{"通道顺序错误", &Layout{Steps: 4, Segments: []Segment{{1, 0, 4, ModeDirect}, {0, 4, 2, ModeSpline}}}},
		{"样条过长", &Layout{Steps: 4, Segments: []Segment{{0, 0, 4, ModeDirect}, {1, 4, 5, ModeSpline}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ce *types.ConfigurationError
			assert.ErrorAs(t, tt.layout.Check(2), &ce)
		})
	}
}

// TestControlsBounded 幅度严格位于 (-MaxAmp, MaxAmp)
func TestControlsBounded(t *testing.T) {
	c, err := New(testParams(12, 4))
	require.NoError(t, err)
	raw := make([]float64, c.Size())
	for i := range raw {
		raw[i] = float64(i%5-2) * 10
	}
	amps, err := c.Amplitudes(raw)
	require.NoError(t, err)
	require.Len(t, amps, 2)
	for ch, a := range amps {
		require.Len(t, a, 12)
		for _, v := range a {
			assert.LessOrEqual(t, math.Abs(v), c.MaxAmp[ch])
		}
	}
}

// TestControlsBackward 中心差分检验链式求导（含样条转置）
func TestControlsBackward(t *testing.T) {
	c, err := New(testParams(12, 4))
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(4))
	raw := c.InitialGuess(rng)
	for i := range raw {
		raw[i] *= 10
	}
	wAmp := [][]float64{make([]float64, 12), make([]float64, 12)}
	wNorm := [][]float64{make([]float64, 12), make([]float64, 12)}
	for ch := range wAmp {
		for i := range wAmp[ch] {
			wAmp[ch][i] = rng.NormFloat64()
			wNorm[ch][i] = rng.NormFloat64()
		}
	}
	loss := func(r []float64) float64 {
		norm, err := c.Normalized(r)
		require.NoError(t, err)
		amps := c.Scale(norm)
		s := 0.0
		for ch := range amps {
			for i := range amps[ch] {
				s += wAmp[ch][i]*amps[ch][i] + wNorm[ch][i]*norm[ch][i]
			}
		}
		return s
	}
	grad, err := c.Backward(raw, wAmp, wNorm)
	require.NoError(t, err)
	const eps = 1e-6
	for i := range raw {
		orig := raw[i]
		raw[i] = orig + eps
		fp := loss(raw)
		raw[i] = orig - eps
		fm := loss(raw)
		raw[i] = orig
		assert.InDelta(t, (fp-fm)/(2*eps), grad[i], 1e-6, "参数 %d", i)
	}
}

func TestInitialGuess(t *testing.T) {
	c, err := New(testParams(100, 25))
	require.NoError(t, err)
	w := c.InitialGuess(rand.New(rand.NewSource(8)))
	require.Len(t, w, 125)
	for _, s := range c.Layout.Segments {
		bound := 2 * initialScale / math.Sqrt(float64(s.Length))
		for _, v := range w[s.Offset : s.Offset+s.Length] {
			assert.LessOrEqual(t, math.Abs(v), bound)
		}
	}
}

func TestFromAmplitudes(t *testing.T) {
	c, err := New(testParams(6, 3))
	require.NoError(t, err)
	in := [][]float64{{0.5, -1, 1.9, 0, 0.1, -1.5}, {2, -2.5, 0.3}}
	raw, err := c.FromAmplitudes(in)
	require.NoError(t, err)
	amps, err := c.Amplitudes(raw)
	require.NoError(t, err)
	for i, v := range in[0] {
		assert.InDelta(t, v, amps[0][i], 1e-12)
	}

	_, err = c.FromAmplitudes([][]float64{{2, 0, 0, 0, 0, 0}, {0, 0, 0}})
	assert.ErrorIs(t, err, types.ErrConfiguration)
	_, err = c.FromAmplitudes([][]float64{{0}, {0, 0, 0}})
	assert.ErrorIs(t, err, types.ErrShape)
}
