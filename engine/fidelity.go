package engine

import (
	"gonum.org/v1/gonum/mat"

	"grape/types"
)

// Overlap 关注态上的平均重叠 re + i·im
type Overlap struct {
	Re, Im float64
}

// Fidelity 保真度 re² + im²
func (o Overlap) Fidelity() float64 { return o.Re*o.Re + o.Im*o.Im }

// overlap 计算 inner = targetᵗ·final 在关注态上的对角平均：
// re = avg inner[i,i]，im = avg inner[N+i,i]
func overlap(target, final *mat.Dense, concerned []int, n int) (Overlap, error) {
	if len(concerned) == 0 {
		return Overlap{}, types.NewConfigurationError("engine.overlap", "关注态列表为空")
	}
	dim, _ := target.Dims()
	var o Overlap
	for _, i := range concerned {
		for r := 0; r < dim; r++ {
			f := final.At(r, i)
			o.Re += target.At(r, i) * f
			o.Im += target.At(r, n+i) * f
		}
	}
	k := float64(len(concerned))
	o.Re /= k
	o.Im /= k
	return o, nil
}

// FidelityLoss 保真度损失 |1 - (re²+im²)| 及其对末态传播子的梯度
func FidelityLoss(target, final *mat.Dense, concerned []int, n int) (float64, *mat.Dense, error) {
	o, err := overlap(target, final, concerned, n)
	if err != nil {
		return 0, nil, err
	}
	diff := 1 - o.Fidelity()
	loss, sign := diff, -1.0
	switch {
	case diff < 0:
		loss, sign = -diff, 1
	case diff == 0:
		sign = 0
	}
	k := float64(len(concerned))
	dRe := sign * 2 * o.Re / k
	dIm := sign * 2 * o.Im / k

	dim, _ := target.Dims()
	grad := mat.NewDense(dim, dim, nil)
	for _, i := range concerned {
		for r := 0; r < dim; r++ {
			grad.Set(r, i, grad.At(r, i)+target.At(r, i)*dRe+target.At(r, n+i)*dIm)
		}
	}
	return loss, grad, nil
}
