package optimize

import "math"

// Adam 自适应矩估计优化器
//
//	m = β1·m + (1-β1)·g
//	v = β2·v + (1-β2)·g²
//	w -= rate·sqrt(1-β2^t)/(1-β1^t) · m/(sqrt(v)+ε)
type Adam struct {
	Beta1   float64
	Beta2   float64
	Epsilon float64

	m, v []float64
	t    int
}

// NewAdam 使用常用默认参数创建优化器
func NewAdam() *Adam {
	return &Adam{Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8}
}

// Reset 清除矩估计
func (a *Adam) Reset() {
	a.m, a.v, a.t = nil, nil, 0
}

// Steps 已执行的更新次数
func (a *Adam) Steps() int { return a.t }

// Step 按梯度原地更新参数
func (a *Adam) Step(weights, grad []float64, rate float64) {
	if len(a.m) != len(weights) {
		a.m = make([]float64, len(weights))
		a.v = make([]float64, len(weights))
		a.t = 0
	}
	a.t++
	lr := rate * math.Sqrt(1-math.Pow(a.Beta2, float64(a.t))) / (1 - math.Pow(a.Beta1, float64(a.t)))
	for i, g := range grad {
		a.m[i] = a.Beta1*a.m[i] + (1-a.Beta1)*g
		a.v[i] = a.Beta2*a.v[i] + (1-a.Beta2)*g*g
		weights[i] -= lr * a.m[i] / (math.Sqrt(a.v[i]) + a.Epsilon)
	}
}
