package engine

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"grape/control"
	"grape/maths"
	"grape/types"
)

// Backend 计算后端能力描述
type Backend struct {
	Name string
	FFT  bool // 是否支持 FFT，带通惩罚需要
}

// CPU 默认后端
var CPU = Backend{Name: "cpu", FFT: true}

// Option 上下文选项
type Option func(*Context)

// WithBackend 指定计算后端
func WithBackend(b Backend) Option {
	return func(c *Context) { c.backend = b }
}

// WithWorkers 指定批量矩阵指数的并发上限
func WithWorkers(n int) Option {
	return func(c *Context) { c.workers = n }
}

// Context 一次优化运行的全部只读状态。
// 创建后不再修改，Evaluate 可在同一 Context 上重复调用。
type Context struct {
	Params   *types.SystemParameters
	Controls *control.Controls
	Plan     maths.ExpPlan

	backend Backend
	workers int

	n, steps int
	expm     maths.BatchOperator
	u0       *mat.Dense // 嵌入后的初始幺正
	target   *mat.Dense // 嵌入后的目标幺正
	vectors  [][]float64
	targets  [][]float64 // Target·v_k，用于加速项
	dressed  *mat.Dense  // 排序后的缀饰本征向量，仅在禁止态按缀饰基计算时非空
	envelope []float64   // 1 - 高斯包络
}

// NewContext 校验参数并构建优化上下文
func NewContext(params *types.SystemParameters, opts ...Option) (*Context, error) {
	const op = "engine.NewContext"
	if err := params.Validate(); err != nil {
		return nil, err
	}
	c := &Context{
		Params:  params,
		backend: CPU,
		n:       params.StateNum(),
		steps:   params.Steps,
	}
	for _, o := range opts {
		o(c)
	}
	if _, ok := types.FindPenalty(params.Penalties, types.PenaltyBandpass); ok && !c.backend.FFT {
		return nil, types.NewConfigurationError(op, "后端 %s 不支持 FFT，无法启用带通惩罚", c.backend.Name)
	}

	ctrls, err := control.New(params)
	if err != nil {
		return nil, err
	}
	c.Controls = ctrls

	basis := Basis(params)
	if params.ExpTerms > 0 {
		c.Plan = maths.ExpPlan{Terms: params.ExpTerms, Div: params.Div}
	} else {
		c.Plan = maths.PlanExp(generatorBound(params, basis), params.Steps, params.Tolerance())
	}
	expm, err := maths.NewExpm(basis, c.Plan.Terms, c.Plan.Div)
	if err != nil {
		return nil, err
	}
	expm.Workers = c.workers
	c.expm = expm

	c.u0 = maths.ComplexToReal(params.U0())
	c.target = maths.ComplexToReal(params.Target)
	for _, v := range params.Vectors() {
		c.vectors = append(c.vectors, maths.EmbedVector(v))
		c.targets = append(c.targets, maths.EmbedVector(maths.CMulVec(params.Target, v)))
	}
	if d := params.Dressed; d != nil && d.ForbidDressed {
		c.dressed = maths.ComplexToReal(d.Sorted())
	}
	if _, ok := types.FindPenalty(params.Penalties, types.PenaltyEnvelope); ok {
		c.envelope = Envelope(params.Steps)
	}
	return c, nil
}

// generatorBound 单步生成元范数上界 ‖B0‖ + Σ MaxAmp·‖Bc‖
func generatorBound(params *types.SystemParameters, basis []*mat.Dense) float64 {
	norm := mat.Norm(basis[0], 2)
	for i, ctrl := range params.Controls {
		norm += ctrl.MaxAmp * mat.Norm(basis[i+1], 2)
	}
	return norm
}

// Envelope 计算 1-高斯包络：max(1-e^{-x²/2}, 0) + 0.01，x 在 [-2, 2] 上均匀取 steps 个点
func Envelope(steps int) []float64 {
	env := make([]float64, steps)
	for t := range env {
		x := 0.0
		if steps > 1 {
			x = -2 + 4*float64(t)/float64(steps-1)
		}
		env[t] = math.Max(1-math.Exp(-x*x/2), 0) + types.EnvelopeOffset
	}
	return env
}

// StateNum 量子态维度
func (c *Context) StateNum() int { return c.n }

// Steps 时间步数
func (c *Context) Steps() int { return c.steps }

// Backend 当前后端
func (c *Context) Backend() Backend { return c.backend }
