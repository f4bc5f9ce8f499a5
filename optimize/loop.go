package optimize

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"grape/engine"
	"grape/types"
)

// Evaluator 损失与梯度的计算方
type Evaluator interface {
	Evaluate(ctx context.Context, weights []float64) (*engine.Result, error)
}

// Hook 每个输出点调用，可用于保存中间结果
type Hook func(it *types.Iteration, weights []float64) error

// Optimizer 驱动循环：求值、输出、更新参数，直到收敛或达到最大迭代次数
type Optimizer struct {
	Evaluator   Evaluator
	Convergence Convergence
	Adam        *Adam
	Logger      logrus.FieldLogger
	Debug       types.Debug
	Hook        Hook
}

// Summary 一次优化的结果
type Summary struct {
	Weights    []float64      // 最后一次求值所用的参数
	Result     *engine.Result // 对应的求值结果
	Iterations int            // 参数更新次数
	Converged  bool           // 是否达到收敛阈值
	Elapsed    time.Duration
}

// New 创建优化器
func New(ev Evaluator, conv Convergence) *Optimizer {
	return &Optimizer{
		Evaluator:   ev,
		Convergence: conv,
		Adam:        NewAdam(),
		Logger:      logrus.StandardLogger(),
	}
}

// Run 从 weights 开始优化，不修改传入的切片。
// 仅在两次迭代之间检查 ctx，已开始的迭代会完整执行。
func (o *Optimizer) Run(ctx context.Context, weights []float64) (*Summary, error) {
	if err := o.Convergence.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	w := append([]float64(nil), weights...)
	sum := &Summary{}
	conv := o.Convergence
	for iter := 0; ; iter++ {
		if err := ctx.Err(); err != nil {
			sum.Elapsed = time.Since(start)
			return sum, err
		}
		res, err := o.Evaluator.Evaluate(context.WithoutCancel(ctx), w)
		if err != nil {
			if o.Debug != nil {
				o.Debug.Error(err)
			}
			sum.Elapsed = time.Since(start)
			return sum, fmt.Errorf("第 %d 次迭代: %w", iter, err)
		}
		sum.Weights = append(sum.Weights[:0], w...)
		sum.Result = res
		sum.Iterations = iter

		rate := conv.LearningRate(iter)
		converged := res.Loss <= conv.ConvTarget
		last := converged || iter >= conv.MaxIterations
		if last || (conv.UpdateStep > 0 && iter%conv.UpdateStep == 0) {
			if err := o.report(iter, rate, res, w); err != nil {
				sum.Elapsed = time.Since(start)
				return sum, err
			}
		}
		if last {
			sum.Converged = converged
			break
		}
		o.Adam.Step(w, res.Gradient, rate)
	}
	sum.Elapsed = time.Since(start)
	return sum, nil
}

func (o *Optimizer) report(iter int, rate float64, res *engine.Result, w []float64) error {
	fields := logrus.Fields{
		"iteration":     iter,
		"loss":          res.Loss,
		"fidelity_loss": res.FidelityLoss,
		"rate":          rate,
		"unitary_scale": res.UnitaryScale,
	}
	for _, t := range res.Terms {
		fields[t.Kind.String()] = t.Value
	}
	if o.Logger != nil {
		o.Logger.WithFields(fields).Info("grape 迭代")
	}
	it := &types.Iteration{
		Index:        iter,
		Rate:         rate,
		Loss:         res.Loss,
		FidelityLoss: res.FidelityLoss,
		Terms:        res.Terms,
		UnitaryScale: res.UnitaryScale,
		Amplitudes:   res.Amplitudes,
		Populations:  res.Populations(0),
	}
	if o.Debug != nil && o.Debug.IsDebug() {
		o.Debug.Update(it)
	}
	if o.Hook != nil {
		return o.Hook(it, w)
	}
	return nil
}
