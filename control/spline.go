package control

import (
	"math"

	"grape/maths"
)

// BuildTransfer 构建三次样条传递算子 T（steps × coarse，CSR 存储）。
// 第 t 个细步由相邻四个粗控制点 j-1..j+2 混合得到：
//
//	j = floor((t·dt − Dt/2)/Dt)
//	τ = t·dt − j·Dt − Dt/2
//
// 超出 [0, coarse-1] 的控制点直接丢弃，不做回绕或外推。
// coarse == steps 时不需要上采样，返回单位算子。
func BuildTransfer(steps int, dt float64, coarse int, totalTime float64) *maths.SparseMatrix {
	t := maths.NewSparseMatrix(steps, coarse)
	if coarse == steps {
		for i := 0; i < steps; i++ {
			t.Set(i, i, 1)
		}
		return t
	}
	Dt := totalTime / float64(coarse)
	for l := 0; l < steps; l++ {
		j := int(math.Floor((float64(l)*dt - 0.5*Dt) / Dt))
		tau := float64(l)*dt - float64(j)*Dt - 0.5*Dt
		s := tau / Dt
		weights := [4]float64{
			-(s / 2) * (s - 1) * (s - 1),
			1 + 1.5*s*s*s - 2.5*s*s,
			s/2 + 2*s*s - 1.5*s*s*s,
			0.5*s*s*s - 0.5*s*s,
		}
		for k, w := range weights {
			col := j - 1 + k
			if col < 0 || col >= coarse {
				continue
			}
			t.Increment(l, col, w)
		}
	}
	return t
}
