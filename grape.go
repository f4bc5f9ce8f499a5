// Package grape 把系统定义、传播与梯度引擎、优化循环、检查点和调试记录组装在一起，
// 对外提供一次完整的 GRAPE 脉冲优化。
package grape

import (
	"context"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"grape/checkpoint"
	"grape/debug"
	"grape/engine"
	"grape/load"
	"grape/maths"
	"grape/optimize"
	"grape/types"
)

// Grape 一次优化运行
type Grape struct {
	Params      *types.SystemParameters
	Context     *engine.Context
	Convergence optimize.Convergence
	Gate        string
	Logger      logrus.FieldLogger
	Record      *debug.Record // 为空时不记录调试数据
	DataDir     string        // 为空时不保存检查点

	initialGuess [][]float64
	weights      []float64
	seed         int64
	engineOpts   []engine.Option
}

// Option 运行选项
type Option func(*Grape)

// WithConvergence 驱动参数
func WithConvergence(conv optimize.Convergence) Option {
	return func(g *Grape) { g.Convergence = conv }
}

// WithLogger 日志
func WithLogger(logger logrus.FieldLogger) Option {
	return func(g *Grape) { g.Logger = logger }
}

// WithRecord 调试记录
func WithRecord(rec *debug.Record) Option {
	return func(g *Grape) { g.Record = rec }
}

// WithDataDir 检查点目录
func WithDataDir(dir string) Option {
	return func(g *Grape) { g.DataDir = dir }
}

// WithGate 门名称，用于检查点文件名
func WithGate(gate string) Option {
	return func(g *Grape) { g.Gate = gate }
}

// WithInitialGuess 由物理幅度给出初始脉冲
func WithInitialGuess(amps [][]float64) Option {
	return func(g *Grape) { g.initialGuess = amps }
}

// WithWeights 直接给出初始原始参数，优先于 WithInitialGuess
func WithWeights(w []float64) Option {
	return func(g *Grape) { g.weights = w }
}

// WithSeed 随机初始参数的种子
func WithSeed(seed int64) Option {
	return func(g *Grape) { g.seed = seed }
}

// WithEngine 传给 engine.NewContext 的选项
func WithEngine(opts ...engine.Option) Option {
	return func(g *Grape) { g.engineOpts = append(g.engineOpts, opts...) }
}

// Outcome 运行结果
type Outcome struct {
	Summary    *optimize.Summary // 仅优化时非空
	Result     *engine.Result
	Weights    []float64
	Amplitudes [][]float64 // 各通道物理幅度
	Final      *mat.CDense // 末态幺正
	Checkpoint string      // 检查点文件路径
}

// Fidelity 末态保真度
func (o *Outcome) Fidelity() float64 { return o.Result.Fidelity() }

// NewGrape 校验参数并创建运行
func NewGrape(params *types.SystemParameters, opts ...Option) (*Grape, error) {
	g := &Grape{
		Params:      params,
		Convergence: optimize.DefaultConvergence(),
		Gate:        "gate",
		Logger:      logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(g)
	}
	ctx, err := engine.NewContext(params, g.engineOpts...)
	if err != nil {
		return nil, err
	}
	g.Context = ctx
	if g.Record != nil {
		g.Record.Init(params)
	}
	return g, nil
}

// LoadGrape 由系统定义文件创建运行，opts 覆盖文件中的设置
func LoadGrape(path string, opts ...Option) (*Grape, error) {
	sys, err := load.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return FromSystem(sys, opts...)
}

// FromSystem 由已解析的系统定义创建运行
func FromSystem(sys *load.System, opts ...Option) (*Grape, error) {
	params, err := sys.Parameters()
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithConvergence(sys.Convergence),
		WithGate(sys.Gate),
		WithSeed(sys.Seed),
	}
	if len(sys.InitialGuess) > 0 {
		base = append(base, WithInitialGuess(sys.InitialGuess))
	}
	return NewGrape(params, append(base, opts...)...)
}

// InitialWeights 初始原始参数：显式参数、初始幅度或截断正态随机数
func (g *Grape) InitialWeights() ([]float64, error) {
	ctrls := g.Context.Controls
	switch {
	case g.weights != nil:
		if len(g.weights) != ctrls.Size() {
			return nil, types.NewShapeError("Grape.InitialWeights", "参数长度 %d，应为 %d", len(g.weights), ctrls.Size())
		}
		return append([]float64(nil), g.weights...), nil
	case g.initialGuess != nil:
		return ctrls.FromAmplitudes(g.initialGuess)
	}
	return ctrls.InitialGuess(rand.New(rand.NewSource(g.seed))), nil
}

// Run 执行优化，返回最终脉冲与末态幺正
func (g *Grape) Run(ctx context.Context) (*Outcome, error) {
	w, err := g.InitialWeights()
	if err != nil {
		return nil, err
	}
	opt := optimize.New(g.Context, g.Convergence)
	opt.Logger = g.Logger
	if g.Record != nil {
		opt.Debug = g.Record
	}
	out := &Outcome{}
	if g.DataDir != "" {
		writer, err := checkpoint.NewWriter(g.DataDir, g.Gate, g.Params)
		if err != nil {
			return nil, err
		}
		opt.Hook = writer.Save
		out.Checkpoint = writer.Path
	}
	g.Logger.WithFields(logrus.Fields{
		"gate":     g.Gate,
		"states":   g.Params.StateNum(),
		"steps":    g.Params.Steps,
		"channels": g.Context.Controls.Channels(),
		"terms":    g.Context.Plan.Terms,
		"div":      g.Context.Plan.Div,
	}).Info("grape 开始优化")

	sum, err := opt.Run(ctx, w)
	if sum != nil && sum.Result != nil {
		out.Summary = sum
		out.fill(sum.Result, sum.Weights)
	}
	if err != nil {
		return out, err
	}
	g.Logger.WithFields(logrus.Fields{
		"iterations": sum.Iterations,
		"converged":  sum.Converged,
		"fidelity":   sum.Result.Fidelity(),
		"elapsed":    sum.Elapsed,
	}).Info("grape 优化结束")
	return out, nil
}

// Evolve 只做前向演化，不计算梯度
func (g *Grape) Evolve(ctx context.Context, weights []float64) (*Outcome, error) {
	if weights == nil {
		var err error
		if weights, err = g.InitialWeights(); err != nil {
			return nil, err
		}
	}
	res, err := g.Context.Evolve(ctx, weights)
	if err != nil {
		if g.Record != nil {
			g.Record.Error(err)
		}
		return nil, err
	}
	out := &Outcome{}
	out.fill(res, weights)
	if g.Record != nil {
		g.Record.Update(&types.Iteration{
			Loss:         res.Loss,
			FidelityLoss: res.FidelityLoss,
			Terms:        res.Terms,
			UnitaryScale: res.UnitaryScale,
			Amplitudes:   res.Amplitudes,
			Populations:  res.Populations(0),
		})
	}
	return out, nil
}

func (o *Outcome) fill(res *engine.Result, weights []float64) {
	o.Result = res
	o.Weights = append([]float64(nil), weights...)
	o.Amplitudes = res.Amplitudes
	o.Final = maths.RealToComplex(res.Final)
}
