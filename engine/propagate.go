package engine

import (
	"gonum.org/v1/gonum/mat"

	"grape/maths"
	"grape/types"
)

// Propagation 传播链结果
//
//	S(0) = U(0)·U0, S(t) = U(t)·S(t-1)
type Propagation struct {
	U0     *mat.Dense
	Steps  []*mat.Dense // 每步传播子 U(t)
	States []*mat.Dense // 累积传播子 S(t)
}

// Final 末态传播子 S(steps-1)
func (p *Propagation) Final() *mat.Dense { return p.States[len(p.States)-1] }

// propagate 严格按时间顺序累积传播子
func propagate(u0 *mat.Dense, us []*mat.Dense) (*Propagation, error) {
	p := &Propagation{U0: u0, Steps: us, States: make([]*mat.Dense, len(us))}
	prev := u0
	for t, u := range us {
		s := &mat.Dense{}
		s.Mul(u, prev)
		if !maths.IsFinite(s) {
			return nil, types.NewNumericalError("engine.propagate", t, "累积传播子出现非有限值")
		}
		p.States[t] = s
		prev = s
	}
	return p, nil
}

// previous 第 t 步之前的累积传播子，t=0 时为 U0
func (p *Propagation) previous(t int) *mat.Dense {
	if t == 0 {
		return p.U0
	}
	return p.States[t-1]
}

// Trajectory 初始向量 v 的轨迹，2N×(steps+1)，第 0 列为 v，第 t+1 列为 S(t)·v
func (p *Propagation) Trajectory(v []float64) *mat.Dense {
	dim := len(v)
	traj := mat.NewDense(dim, len(p.States)+1, nil)
	vec := mat.NewVecDense(dim, v)
	traj.SetCol(0, v)
	col := mat.NewVecDense(dim, nil)
	for t, s := range p.States {
		col.MulVec(s, vec)
		traj.SetCol(t+1, col.RawVector().Data)
	}
	return traj
}

// UnitaryScale 幺正性诊断量 (0.5/N)·Σ(finalᵗ·final)，精确幺正时为 1
func UnitaryScale(final *mat.Dense, n int) float64 {
	var p mat.Dense
	p.Mul(final.T(), final)
	return 0.5 / float64(n) * mat.Sum(&p)
}

// adjoint 由损失对每个 S(t) 的梯度计算对每个 U(t) 的梯度：
//
//	Λ(steps-1) = G(steps-1)
//	Λ(t) = G(t) + U(t+1)ᵗ·Λ(t+1)
//	∂L/∂U(t) = Λ(t)·S(t-1)ᵗ
//
// gS 中的 nil 视为零。
func (p *Propagation) adjoint(gS []*mat.Dense) []*mat.Dense {
	steps := len(p.States)
	r, c := p.U0.Dims()
	gU := make([]*mat.Dense, steps)
	lambda := mat.NewDense(r, c, nil)
	for t := steps - 1; t >= 0; t-- {
		next := mat.NewDense(r, c, nil)
		if t < steps-1 {
			next.Mul(p.Steps[t+1].T(), lambda)
		}
		if gS[t] != nil {
			next.Add(next, gS[t])
		}
		lambda = next
		g := mat.NewDense(r, c, nil)
		g.Mul(lambda, p.previous(t).T())
		gU[t] = g
	}
	return gU
}
