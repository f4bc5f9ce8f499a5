package maths

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// IsFinite 判断矩阵所有元素均为有限值
func IsFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// AllFinite 判断切片所有元素均为有限值
func AllFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Frobenius 计算两个同维矩阵的 Frobenius 内积 Σ a_ij*b_ij
func Frobenius(a, b mat.Matrix) float64 {
	r, c := a.Dims()
	br, bc := b.Dims()
	if r != br || c != bc {
		panic(mat.ErrShape)
	}
	sum := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			sum += a.At(i, j) * b.At(i, j)
		}
	}
	return sum
}

// Identity 实数单位阵
func Identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// UnitarityError 计算 ‖UᵗU − I‖_F，可作为运行期检查
func UnitarityError(u mat.Matrix) float64 {
	_, n := u.Dims()
	var p mat.Dense
	p.Mul(u.T(), u)
	for i := 0; i < n; i++ {
		p.Set(i, i, p.At(i, i)-1)
	}
	return mat.Norm(&p, 2)
}
