package engine

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"grape/maths"
	"grape/types"
)

// penaltyInput 惩罚项可读取的量
type penaltyInput struct {
	raw  []float64   // 原始参数
	norm [][]float64 // 归一化幅度 u
	traj []*mat.Dense
}

// penaltyGrad 惩罚项梯度，与 penaltyInput 一一对应
type penaltyGrad struct {
	raw  []float64
	norm [][]float64
	traj []*mat.Dense
}

func newPenaltyGrad(in *penaltyInput) *penaltyGrad {
	g := &penaltyGrad{
		raw:  make([]float64, len(in.raw)),
		norm: make([][]float64, len(in.norm)),
		traj: make([]*mat.Dense, len(in.traj)),
	}
	for i, u := range in.norm {
		g.norm[i] = make([]float64, len(u))
	}
	for i, v := range in.traj {
		r, c := v.Dims()
		g.traj[i] = mat.NewDense(r, c, nil)
	}
	return g
}

// l2 即 Σx²/2
func l2(x []float64) float64 { return floats.Dot(x, x) / 2 }

// regularize 计算全部启用的惩罚项。每项贡献为 Coeff/steps·term，
// 加速项为奖励，贡献取负。梯度已乘以同样的系数。
func (c *Context) regularize(in *penaltyInput) ([]types.TermValue, float64, *penaltyGrad) {
	g := newPenaltyGrad(in)
	terms := make([]types.TermValue, 0, len(c.Params.Penalties))
	total := 0.0
	for _, kind := range types.PenaltyKinds() {
		p, ok := types.FindPenalty(c.Params.Penalties, kind)
		if !ok {
			continue
		}
		scale := p.Coeff / float64(c.steps)
		var v float64
		switch kind {
		case types.PenaltyAmplitude:
			v = c.amplitudePenalty(in, g, scale)
		case types.PenaltyEnvelope:
			v = c.envelopePenalty(in, g, scale)
		case types.PenaltyDwdt:
			v = c.derivativePenalty(in, g, scale, 1)
		case types.PenaltyD2wdt2:
			v = c.derivativePenalty(in, g, scale, 2)
		case types.PenaltyBandpass:
			v = c.bandpassPenalty(in, g, scale, p.Band)
		case types.PenaltyForbidden:
			v = c.forbiddenPenalty(in, g, scale)
		case types.PenaltySpeedUp:
			v = c.speedUpPenalty(in, g, -scale)
		}
		terms = append(terms, types.TermValue{Kind: kind, Value: v})
		total += v
	}
	return terms, total, g
}

// amplitudePenalty l2(raw)
func (c *Context) amplitudePenalty(in *penaltyInput, g *penaltyGrad, scale float64) float64 {
	floats.AddScaled(g.raw, scale, in.raw)
	return scale * l2(in.raw)
}

// envelopePenalty l2((1-gauss)∘u)
func (c *Context) envelopePenalty(in *penaltyInput, g *penaltyGrad, scale float64) float64 {
	sum := 0.0
	for ch, u := range in.norm {
		for t, x := range u {
			e := c.envelope[t]
			sum += e * e * x * x / 2
			g.norm[ch][t] += scale * e * e * x
		}
	}
	return scale * sum
}

// padded 按边界策略返回差分序列及其与 u 的索引偏移
func (c *Context) padded(u []float64) ([]float64, int) {
	if c.Params.Boundary == types.BoundaryNone {
		return u, 0
	}
	p := make([]float64, len(u)+4)
	copy(p[2:], u)
	return p, 2
}

// derivativePenalty order 阶有限差分 l2(Δ^order p / dt^order)。
// 补零策略下 p 为两端各补两个零的脉冲。
func (c *Context) derivativePenalty(in *penaltyInput, g *penaltyGrad, scale float64, order int) float64 {
	dt := c.Params.StepDt()
	// 差分模板
	stencil := []float64{-1, 1}
	div := dt
	if order == 2 {
		stencil = []float64{1, -2, 1}
		div = dt * dt
	}
	sum := 0.0
	for ch, u := range in.norm {
		p, shift := c.padded(u)
		for i := 0; i+len(stencil) <= len(p); i++ {
			d := 0.0
			for k, w := range stencil {
				d += w * p[i+k]
			}
			d /= div
			sum += d * d / 2
			for k, w := range stencil {
				j := i + k - shift
				if j < 0 || j >= len(u) {
					continue
				}
				g.norm[ch][j] += scale * d * w / div
			}
		}
	}
	return scale * sum
}

// bandpassPenalty 半谱内频段 [lo·T, hi·T) 之外的幅度和
func (c *Context) bandpassPenalty(in *penaltyInput, g *penaltyGrad, scale float64, band [2]float64) float64 {
	lo := int(band[0] * c.Params.TotalTime)
	hi := int(band[1] * c.Params.TotalTime)
	sum := 0.0
	for ch, u := range in.norm {
		v, grad := maths.OutOfBand(u, lo, hi)
		sum += v
		floats.AddScaled(g.norm[ch], scale, grad)
	}
	return scale * sum
}

// forbiddenPenalty 禁止态布居 pop = v[s]² + v[N+s]² 的 l2，
// 启用缀饰基时先把轨迹变换到 Vᵗ·v
func (c *Context) forbiddenPenalty(in *penaltyInput, g *penaltyGrad, scale float64) float64 {
	n := c.n
	sum := 0.0
	for k, traj := range in.traj {
		w := traj
		if c.dressed != nil {
			w = &mat.Dense{}
			w.Mul(c.dressed.T(), traj)
		}
		_, cols := w.Dims()
		dw := mat.NewDense(2*n, cols, nil)
		for _, s := range c.Params.Forbidden {
			for t := 0; t < cols; t++ {
				re, im := w.At(s, t), w.At(n+s, t)
				pop := re*re + im*im
				sum += pop * pop / 2
				dw.Set(s, t, dw.At(s, t)+scale*pop*2*re)
				dw.Set(n+s, t, dw.At(n+s, t)+scale*pop*2*im)
			}
		}
		if c.dressed != nil {
			var back mat.Dense
			back.Mul(c.dressed, dw)
			g.traj[k].Add(g.traj[k], &back)
		} else {
			g.traj[k].Add(g.traj[k], dw)
		}
	}
	return scale * sum
}

// speedUpPenalty 目标态布居 |⟨target_k, V_k(t)⟩|² 的 l2，scale 为负
func (c *Context) speedUpPenalty(in *penaltyInput, g *penaltyGrad, scale float64) float64 {
	n := c.n
	sum := 0.0
	for k, traj := range in.traj {
		y := c.targets[k]
		_, cols := traj.Dims()
		for t := 0; t < cols; t++ {
			re, im := 0.0, 0.0
			for r := 0; r < n; r++ {
				vr, vi := traj.At(r, t), traj.At(n+r, t)
				re += y[r]*vr + y[n+r]*vi
				im += y[r]*vi - y[n+r]*vr
			}
			pop := re*re + im*im
			sum += pop * pop / 2
			dRe := scale * pop * 2 * re
			dIm := scale * pop * 2 * im
			for r := 0; r < n; r++ {
				g.traj[k].Set(r, t, g.traj[k].At(r, t)+dRe*y[r]-dIm*y[n+r])
				g.traj[k].Set(n+r, t, g.traj[k].At(n+r, t)+dRe*y[n+r]+dIm*y[r])
			}
		}
	}
	return scale * sum
}

// needsTrajectory 是否有惩罚项依赖向量轨迹
func (c *Context) needsTrajectory() bool {
	_, forbidden := types.FindPenalty(c.Params.Penalties, types.PenaltyForbidden)
	_, speed := types.FindPenalty(c.Params.Penalties, types.PenaltySpeedUp)
	return (forbidden && len(c.Params.Forbidden) > 0) || speed
}
