package engine

import (
	"gonum.org/v1/gonum/mat"

	"grape/maths"
	"grape/types"
)

// Basis 矩阵指数的基矩阵：B0 = embed(-i·dt·H0)，Bc = embed(-i·dt·Hop_c)
func Basis(params *types.SystemParameters) []*mat.Dense {
	dt := params.StepDt()
	basis := make([]*mat.Dense, 0, len(params.Controls)+1)
	basis = append(basis, maths.NegIScaled(params.H0, dt))
	for _, ctrl := range params.Controls {
		basis = append(basis, maths.NegIScaled(ctrl.Op, dt))
	}
	return basis
}

// Assemble 把各通道幅度组装为每个时间步的系数行 [1, amp_0, ..., amp_{C-1}]
func Assemble(amps [][]float64, steps int) [][]float64 {
	coeffs := make([][]float64, steps)
	for t := range coeffs {
		row := make([]float64, len(amps)+1)
		row[0] = 1
		for c, a := range amps {
			row[c+1] = a[t]
		}
		coeffs[t] = row
	}
	return coeffs
}

// disassemble 把系数梯度还原为各通道幅度梯度，漂移项系数为常数不回传
func disassemble(grads [][]float64, channels int) [][]float64 {
	out := make([][]float64, channels)
	for c := range out {
		out[c] = make([]float64, len(grads))
		for t, g := range grads {
			out[c][t] = g[c+1]
		}
	}
	return out
}

// Hamiltonian 第 t 步的生成元 -i·dt·H(t)（实数嵌入）
func (c *Context) Hamiltonian(coeffs []float64) (*mat.Dense, error) {
	return c.expm.Generator(coeffs)
}
