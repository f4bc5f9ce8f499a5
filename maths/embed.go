package maths

import (
	"gonum.org/v1/gonum/mat"
)

// ComplexToReal 将复矩阵 M = A + iB 嵌入为实分块矩阵 [[A, -B], [B, A]]。
// 嵌入对矩阵加法与乘法保持同态，单位阵嵌入后仍为单位阵。
func ComplexToReal(m mat.CMatrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(2*r, 2*c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			re, im := real(v), imag(v)
			out.Set(i, j, re)
			out.Set(i+r, j+c, re)
			out.Set(i, j+c, -im)
			out.Set(i+r, j, im)
		}
	}
	return out
}

// RealToComplex 从实分块矩阵恢复复矩阵，读取左侧两块 [A; B]
func RealToComplex(m mat.Matrix) *mat.CDense {
	r2, c2 := m.Dims()
	if r2%2 != 0 || c2%2 != 0 {
		panic("maths: embedded matrix must have even dimensions")
	}
	r, c := r2/2, c2/2
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, complex(m.At(i, j), m.At(i+r, j)))
		}
	}
	return out
}

// NegIScaled 返回 -i*s*M 的实嵌入，用于把哈密顿量与时间步长转为指数生成元
func NegIScaled(m mat.CMatrix, s float64) *mat.Dense {
	r, c := m.Dims()
	scaled := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			scaled.Set(i, j, complex(0, -s)*m.At(i, j))
		}
	}
	return ComplexToReal(scaled)
}

// EmbedVector 将复向量嵌入为实向量，后半部分为虚部
func EmbedVector(v []complex128) []float64 {
	n := len(v)
	out := make([]float64, 2*n)
	for i, x := range v {
		out[i] = real(x)
		out[i+n] = imag(x)
	}
	return out
}

// UnembedVector EmbedVector 的逆
func UnembedVector(v []float64) []complex128 {
	if len(v)%2 != 0 {
		panic("maths: embedded vector must have even length")
	}
	n := len(v) / 2
	out := make([]complex128, n)
	for i := range out {
		out[i] = complex(v[i], v[i+n])
	}
	return out
}

// CMul 复矩阵乘法 a*b
func CMul(a, b mat.CMatrix) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		panic(mat.ErrShape)
	}
	out := mat.NewCDense(ar, bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < bc; j++ {
			var sum complex128
			for k := 0; k < ac; k++ {
				sum += a.At(i, k) * b.At(k, j)
			}
			out.Set(i, j, sum)
		}
	}
	return out
}

// CMulVec 复矩阵乘向量
func CMulVec(a mat.CMatrix, v []complex128) []complex128 {
	r, c := a.Dims()
	if c != len(v) {
		panic(mat.ErrShape)
	}
	out := make([]complex128, r)
	for i := 0; i < r; i++ {
		var sum complex128
		for k := 0; k < c; k++ {
			sum += a.At(i, k) * v[k]
		}
		out[i] = sum
	}
	return out
}
