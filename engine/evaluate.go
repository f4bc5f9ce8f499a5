package engine

import (
	"context"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"grape/maths"
	"grape/types"
)

// Result 一次前向（及反向）计算的结果
type Result struct {
	Loss         float64           // 总损失 = 保真度损失 + Σ 惩罚项
	FidelityLoss float64           // |1 - (re²+im²)|
	Terms        []types.TermValue // 各惩罚项贡献
	Gradient     []float64         // 总损失对原始参数的梯度，Evolve 时为 nil
	Amplitudes   [][]float64       // 各通道物理幅度
	Final        *mat.Dense        // 嵌入后的末态传播子
	Trajectory   []*mat.Dense      // 每个初始向量的轨迹，2N×(steps+1)
	UnitaryScale float64
}

// Fidelity 1 - FidelityLoss
func (r *Result) Fidelity() float64 { return 1 - r.FidelityLoss }

// Term 查询某个惩罚项的贡献
func (r *Result) Term(kind types.PenaltyKind) (float64, bool) {
	for _, t := range r.Terms {
		if t.Kind == kind {
			return t.Value, true
		}
	}
	return 0, false
}

// forwardState 前向计算的中间量，反向复用
type forwardState struct {
	coeffs [][]float64
	prop   *Propagation
}

func (c *Context) forward(ctx context.Context, weights []float64) (*forwardState, *Result, *mat.Dense, *penaltyGrad, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, nil, err
	}
	norm, err := c.Controls.Normalized(weights)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	amps := c.Controls.Scale(norm)
	coeffs := Assemble(amps, c.steps)
	us, err := c.expm.ForwardBatch(ctx, coeffs)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	prop, err := propagate(c.u0, us)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	final := prop.Final()

	traj := make([]*mat.Dense, len(c.vectors))
	for k, v := range c.vectors {
		traj[k] = prop.Trajectory(v)
	}

	fidLoss, gFinal, err := FidelityLoss(c.target, final, c.Params.Concerned, c.n)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	in := &penaltyInput{raw: weights, norm: norm, traj: traj}
	terms, reg, pg := c.regularize(in)

	res := &Result{
		Loss:         fidLoss + reg,
		FidelityLoss: fidLoss,
		Terms:        terms,
		Amplitudes:   amps,
		Final:        final,
		Trajectory:   traj,
		UnitaryScale: UnitaryScale(final, c.n),
	}
	if !maths.AllFinite([]float64{res.Loss, res.UnitaryScale}) {
		return nil, nil, nil, nil, types.NewNumericalError("engine.forward", -1, "损失出现非有限值")
	}
	st := &forwardState{coeffs: coeffs, prop: prop}
	return st, res, gFinal, pg, nil
}

// Evolve 仅执行前向演化，不计算梯度
func (c *Context) Evolve(ctx context.Context, weights []float64) (*Result, error) {
	_, res, _, _, err := c.forward(ctx, weights)
	return res, err
}

// Evaluate 计算总损失及其对原始参数的梯度。weights 只读。
func (c *Context) Evaluate(ctx context.Context, weights []float64) (*Result, error) {
	st, res, gFinal, pg, err := c.forward(ctx, weights)
	if err != nil {
		return nil, err
	}

	// 损失对每个累积传播子的梯度
	gS := make([]*mat.Dense, c.steps)
	gS[c.steps-1] = gFinal
	if c.needsTrajectory() {
		for k, v := range c.vectors {
			gv := pg.traj[k]
			vec := mat.NewVecDense(len(v), v)
			for t := 0; t < c.steps; t++ {
				col := gv.ColView(t + 1)
				if mat.Norm(col, 2) == 0 {
					continue
				}
				var outer mat.Dense
				outer.Outer(1, col, vec)
				if gS[t] == nil {
					gS[t] = &outer
				} else {
					gS[t].Add(gS[t], &outer)
				}
			}
		}
	}

	gU := st.prop.adjoint(gS)
	gCoeffs, err := c.expm.BackwardBatch(ctx, st.coeffs, gU)
	if err != nil {
		return nil, err
	}
	gAmp := disassemble(gCoeffs, c.Controls.Channels())
	grad, err := c.Controls.Backward(weights, gAmp, pg.norm)
	if err != nil {
		return nil, err
	}
	floats.Add(grad, pg.raw)
	if !maths.AllFinite(grad) {
		return nil, types.NewNumericalError("engine.Evaluate", -1, "梯度出现非有限值")
	}
	res.Gradient = grad
	return res, nil
}

// Populations 第 k 个初始向量在各基矢上的布居随时间变化，pop[s][t] = v[s]² + v[N+s]²
func (r *Result) Populations(k int) [][]float64 {
	if k < 0 || k >= len(r.Trajectory) {
		return nil
	}
	traj := r.Trajectory[k]
	dim, cols := traj.Dims()
	n := dim / 2
	pop := make([][]float64, n)
	for s := range pop {
		pop[s] = make([]float64, cols)
		for t := range pop[s] {
			re, im := traj.At(s, t), traj.At(n+s, t)
			pop[s][t] = re*re + im*im
		}
	}
	return pop
}
