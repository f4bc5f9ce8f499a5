package control

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"grape/maths"
	"grape/types"
)

// initialScale 初始参数标准差为 initialScale/sqrt(区段长度)
const initialScale = 0.1

// Controls 原始参数到物理控制幅度的映射
//
//	直接参数化: amp[c,t] = MaxAmp[c]·tanh(raw[c,t])
//	样条参数化: amp[c,:] = MaxAmp[c]·tanh(T_c·raw_c)
type Controls struct {
	Layout   *Layout
	MaxAmp   []float64
	transfer []*maths.SparseMatrix // 直接参数化通道为 nil
}

// New 根据系统参数构建控制映射，样条算子在此一次性构建
func New(params *types.SystemParameters) (*Controls, error) {
	layout := NewLayout(params)
	if err := layout.Check(len(params.Controls)); err != nil {
		return nil, err
	}
	c := &Controls{
		Layout:   layout,
		MaxAmp:   make([]float64, len(params.Controls)),
		transfer: make([]*maths.SparseMatrix, len(params.Controls)),
	}
	for i, ctrl := range params.Controls {
		c.MaxAmp[i] = ctrl.MaxAmp
		if s := layout.Segments[i]; s.Mode == ModeSpline {
			c.transfer[i] = BuildTransfer(params.Steps, params.StepDt(), s.Length, params.TotalTime)
		}
	}
	return c, nil
}

// Channels 通道数
func (c *Controls) Channels() int { return len(c.MaxAmp) }

// Size 扁平参数长度
func (c *Controls) Size() int { return c.Layout.Size() }

// Transfer 返回通道的样条算子，直接参数化通道返回 nil
func (c *Controls) Transfer(ch int) *maths.SparseMatrix { return c.transfer[ch] }

// preActivation 每个通道在细步上的 tanh 输入
func (c *Controls) preActivation(raw []float64) ([][]float64, error) {
	parts, err := c.Layout.Unpack(raw)
	if err != nil {
		return nil, err
	}
	pre := make([][]float64, len(parts))
	for i, p := range parts {
		if c.transfer[i] != nil {
			pre[i] = c.transfer[i].MulVec(p)
		} else {
			pre[i] = append([]float64(nil), p...)
		}
	}
	return pre, nil
}

// Normalized 归一化幅度 tanh(·)，每个通道长度为 steps
func (c *Controls) Normalized(raw []float64) ([][]float64, error) {
	pre, err := c.preActivation(raw)
	if err != nil {
		return nil, err
	}
	for _, p := range pre {
		for t, x := range p {
			p[t] = Squash(x)
		}
	}
	return pre, nil
}

// Amplitudes 物理幅度 MaxAmp·tanh(·)，严格位于 (-MaxAmp, MaxAmp)
func (c *Controls) Amplitudes(raw []float64) ([][]float64, error) {
	norm, err := c.Normalized(raw)
	if err != nil {
		return nil, err
	}
	return c.Scale(norm), nil
}

// Scale 把归一化幅度乘以各通道最大幅度
func (c *Controls) Scale(norm [][]float64) [][]float64 {
	amps := make([][]float64, len(norm))
	for i, u := range norm {
		amps[i] = make([]float64, len(u))
		floats.ScaleTo(amps[i], c.MaxAmp[i], u)
	}
	return amps
}

// Backward 由损失对物理幅度的梯度 gAmp 与对归一化幅度的梯度 gNorm
// 计算对原始参数的梯度，两者均可为 nil。结果按 Layout 打包。
func (c *Controls) Backward(raw []float64, gAmp, gNorm [][]float64) ([]float64, error) {
	pre, err := c.preActivation(raw)
	if err != nil {
		return nil, err
	}
	grads := make([][]float64, len(pre))
	for i, p := range pre {
		g := make([]float64, len(p))
		for t, x := range p {
			d := 0.0
			if gAmp != nil {
				d += gAmp[i][t] * c.MaxAmp[i]
			}
			if gNorm != nil {
				d += gNorm[i][t]
			}
			g[t] = d * SquashDeriv(x)
		}
		if c.transfer[i] != nil {
			g = c.transfer[i].MulTransVec(g)
		}
		grads[i] = g
	}
	return c.Layout.Pack(grads), nil
}

// InitialGuess 截断正态初始参数，均值 0，标准差 0.1/sqrt(区段长度)，截断于两倍标准差
func (c *Controls) InitialGuess(rng *rand.Rand) []float64 {
	w := make([]float64, c.Size())
	for _, s := range c.Layout.Segments {
		stddev := initialScale / math.Sqrt(float64(s.Length))
		for i := s.Offset; i < s.Offset+s.Length; i++ {
			x := rng.NormFloat64()
			for math.Abs(x) > 2 {
				x = rng.NormFloat64()
			}
			w[i] = x * stddev
		}
	}
	return w
}

// FromAmplitudes 由用户给定的物理幅度反解原始参数 atanh(u/MaxAmp)。
// 每个通道长度须与其区段长度一致，样条通道给出粗控制点上的幅度。
func (c *Controls) FromAmplitudes(amps [][]float64) ([]float64, error) {
	const op = "Controls.FromAmplitudes"
	if len(amps) != c.Channels() {
		return nil, types.NewShapeError(op, "给出 %d 个通道，应为 %d", len(amps), c.Channels())
	}
	parts := make([][]float64, len(amps))
	for i, a := range amps {
		s := c.Layout.Segments[i]
		if len(a) != s.Length {
			return nil, types.NewShapeError(op, "通道 %d 长度 %d，应为 %d", i, len(a), s.Length)
		}
		parts[i] = make([]float64, len(a))
		for t, v := range a {
			u := v / c.MaxAmp[i]
			if !(math.Abs(u) < 1) {
				return nil, types.NewConfigurationError(op, "通道 %d 第 %d 点幅度 %g 超出 (-%g, %g)", i, t, v, c.MaxAmp[i], c.MaxAmp[i])
			}
			parts[i][t] = Unsquash(u)
		}
	}
	return c.Layout.Pack(parts), nil
}
