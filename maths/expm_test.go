package maths

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"grape/types"
)

var pauliX = mat.NewCDense(2, 2, []complex128{0, 1, 1, 0})

// randomHermitian 随机厄米矩阵
func randomHermitian(rng *rand.Rand, n int) *mat.CDense {
	h := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		h.Set(i, i, complex(rng.NormFloat64(), 0))
		for j := i + 1; j < n; j++ {
			v := complex(rng.NormFloat64(), rng.NormFloat64())
			h.Set(i, j, v)
			h.Set(j, i, complex(real(v), -imag(v)))
		}
	}
	return h
}

// TestExpmPauliX 与闭式解 exp(-iθX) = cosθ·I − i·sinθ·X 比较
func TestExpmPauliX(t *testing.T) {
	tests := []struct {
		name  string
		theta float64
		terms int
		div   int
		tol   float64
	}{
		{"小角度", 0.1, 8, 2, 1e-12},
		{"中等角度", 1.3, 12, 4, 1e-12},
		{"大角度", 7.5, 20, 8, 1e-10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewExpm([]*mat.Dense{NegIScaled(pauliX, 1)}, tt.terms, tt.div)
			require.NoError(t, err)
			got, err := e.Forward([]float64{tt.theta})
			require.NoError(t, err)

			c, s := math.Cos(tt.theta), math.Sin(tt.theta)
			want := ComplexToReal(mat.NewCDense(2, 2, []complex128{
				complex(c, 0), complex(0, -s),
				complex(0, -s), complex(c, 0),
			}))
			assert.True(t, mat.EqualApprox(got, want, tt.tol), "exp(-iθX) 与闭式解不符:\n%v", mat.Formatted(got))
			assert.Less(t, UnitarityError(got), 1e-10)
		})
	}
}

// TestExpmAccuracyImproves 增加项数与平方次数时误差不增大
func TestExpmAccuracyImproves(t *testing.T) {
	theta := 1.3
	c, s := math.Cos(theta), math.Sin(theta)
	want := ComplexToReal(mat.NewCDense(2, 2, []complex128{
		complex(c, 0), complex(0, -s),
		complex(0, -s), complex(c, 0),
	}))
	errAt := func(terms, div int) float64 {
		e, err := NewExpm([]*mat.Dense{NegIScaled(pauliX, 1)}, terms, div)
		require.NoError(t, err)
		got, err := e.Forward([]float64{theta})
		require.NoError(t, err)
		var d mat.Dense
		d.Sub(got, want)
		return mat.Norm(&d, 2)
	}
	coarse := errAt(3, 0)
	fine := errAt(10, 4)
	assert.Greater(t, coarse, 1e-3)
	assert.Less(t, fine, coarse)
	assert.Less(t, fine, 1e-10)
}

// TestExpmGradient 用中心差分检验 Backward
func TestExpmGradient(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const n = 3
	basis := make([]*mat.Dense, 3)
	for i := range basis {
		basis[i] = NegIScaled(randomHermitian(rng, n), 0.3)
	}
	e, err := NewExpm(basis, 10, 3)
	require.NoError(t, err)

	coeffs := []float64{1, 0.7, -0.4}
	w := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < 2*n; i++ {
		for j := 0; j < 2*n; j++ {
			w.Set(i, j, rng.NormFloat64())
		}
	}
	loss := func(c []float64) float64 {
		u, err := e.Forward(c)
		require.NoError(t, err)
		return Frobenius(w, u)
	}

	grad, err := e.Backward(coeffs, w)
	require.NoError(t, err)
	require.Len(t, grad, len(coeffs))

	const eps = 1e-6
	for j := range coeffs {
		plus := append([]float64(nil), coeffs...)
		minus := append([]float64(nil), coeffs...)
		plus[j] += eps
		minus[j] -= eps
		fd := (loss(plus) - loss(minus)) / (2 * eps)
		assert.InDelta(t, fd, grad[j], 1e-6, "系数 %d", j)
	}
}

// TestExpmBatchDeterministic 批量结果与逐个计算逐位一致
func TestExpmBatchDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	basis := []*mat.Dense{
		NegIScaled(randomHermitian(rng, 2), 0.1),
		NegIScaled(pauliX, 0.1),
	}
	e, err := NewExpm(basis, 10, 3)
	require.NoError(t, err)
	e.Workers = 3

	coeffs := make([][]float64, 17)
	grads := make([]*mat.Dense, len(coeffs))
	for i := range coeffs {
		coeffs[i] = []float64{1, rng.NormFloat64()}
		grads[i] = Identity(4)
	}
	batch, err := e.ForwardBatch(context.Background(), coeffs)
	require.NoError(t, err)
	back, err := e.BackwardBatch(context.Background(), coeffs, grads)
	require.NoError(t, err)
	for i := range coeffs {
		single, err := e.Forward(coeffs[i])
		require.NoError(t, err)
		assert.True(t, mat.Equal(single, batch[i]), "第 %d 步", i)
		g, err := e.Backward(coeffs[i], grads[i])
		require.NoError(t, err)
		assert.Equal(t, g, back[i])
	}
}

// TestExpmErrors 维度、配置与非有限值错误
func TestExpmErrors(t *testing.T) {
	_, err := NewExpm(nil, 5, 1)
	assert.ErrorIs(t, err, types.ErrShape)

	_, err = NewExpm([]*mat.Dense{Identity(2), Identity(3)}, 5, 1)
	assert.ErrorIs(t, err, types.ErrShape)

	_, err = NewExpm([]*mat.Dense{Identity(2)}, 0, 1)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	e, err := NewExpm([]*mat.Dense{Identity(2)}, 5, 1)
	require.NoError(t, err)
	_, err = e.Forward([]float64{1, 2})
	assert.ErrorIs(t, err, types.ErrShape)

	_, err = e.ForwardBatch(context.Background(), [][]float64{{0.5}, {math.NaN()}})
	var ne *types.NumericalInstabilityError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, 1, ne.Step)
}
