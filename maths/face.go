package maths

import (
	"context"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Number 是一个约束，允许任何浮点或复数类型
type Number interface {
	~float32 | ~float64 | ~complex64 | ~complex128
}

// Abs 是一个泛型函数，返回任何支持的 Number 类型的绝对值。
func Abs[T Number](v T) float64 {
	switch x := any(v).(type) {
	case float32:
		return math.Abs(float64(x))
	case float64:
		return math.Abs(x)
	case complex64:
		return cmplx.Abs(complex128(x))
	case complex128:
		return cmplx.Abs(x)
	}
	return 0
}

// Operator 由固定基矩阵的线性组合定义的矩阵函数。
// Forward 与 Backward 是一对匹配的操作：Backward 计算标量损失
// 对 Forward 输入系数的梯度，gradOut 为损失对 Forward 输出的梯度。
// Generator 返回系数对应的线性组合本身。
type Operator interface {
	Generator(coeffs []float64) (*mat.Dense, error)
	Forward(coeffs []float64) (*mat.Dense, error)
	Backward(coeffs []float64, gradOut mat.Matrix) ([]float64, error)
}

// BatchOperator 沿时间步批量执行的 Operator
type BatchOperator interface {
	Operator
	ForwardBatch(ctx context.Context, coeffs [][]float64) ([]*mat.Dense, error)
	BackwardBatch(ctx context.Context, coeffs [][]float64, gradOut []*mat.Dense) ([][]float64, error)
}
