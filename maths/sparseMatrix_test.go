package maths

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSparseMatrixSetGet 测试稀疏矩阵的插入、更新、删除与增量操作。
func TestSparseMatrixSetGet(t *testing.T) {
	m := NewSparseMatrix(3, 4)
	m.Set(0, 2, 1.5)
	m.Set(0, 0, -1)
	m.Set(2, 3, 4)
	require.Equal(t, 3, nonZero(m))
	assert.Equal(t, 1.5, m.Get(0, 2))
	assert.Equal(t, -1.0, m.Get(0, 0))
	assert.Equal(t, 0.0, m.Get(1, 1))

	// 行内列索引保持有序
	cols, vals := m.GetRow(0)
	assert.Equal(t, []int{0, 2}, cols)
	assert.Equal(t, []float64{-1, 1.5}, vals)

	m.Increment(2, 3, 1)
	assert.Equal(t, 5.0, m.Get(2, 3))
	m.Increment(1, 1, 2)
	assert.Equal(t, 2.0, m.Get(1, 1))

	// 置零即删除
	m.Set(0, 2, 0)
	assert.Equal(t, 3, nonZero(m))
	m.Increment(1, 1, -2)
	assert.Equal(t, 2, nonZero(m))

	assert.Panics(t, func() { m.Get(3, 0) })
}

func nonZero(m *SparseMatrix) int {
	n := 0
	for i := 0; i < m.Rows(); i++ {
		cols, _ := m.GetRow(i)
		n += len(cols)
	}
	return n
}

// TestSparseMatrixTranspose 验证 <y, A·x> == <Aᵗ·y, x>。
func TestSparseMatrixTranspose(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	m := NewSparseMatrix(6, 4)
	for i := 0; i < 6; i++ {
		for j := 0; j < 4; j++ {
			if rng.Float64() < 0.5 {
				m.Set(i, j, rng.NormFloat64())
			}
		}
	}
	x := []float64{1, -2, 0.5, 3}
	y := []float64{0.3, -1, 2, 0, 1, -0.7}
	ax := m.MulVec(x)
	aty := m.MulTransVec(y)

	lhs, rhs := 0.0, 0.0
	for i := range y {
		lhs += y[i] * ax[i]
	}
	for j := range x {
		rhs += aty[j] * x[j]
	}
	assert.InDelta(t, lhs, rhs, 1e-12)
}
