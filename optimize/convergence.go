package optimize

import (
	"math"

	"grape/types"
)

// Convergence 驱动循环参数
type Convergence struct {
	Rate          float64 `json:"rate" yaml:"rate"`                               // 初始学习率
	UpdateStep    int     `json:"update_step" yaml:"update_step"`                 // 每隔多少次迭代输出一次
	MaxIterations int     `json:"max_iterations" yaml:"max_iterations"`           // 最大迭代次数
	ConvTarget    float64 `json:"conv_target" yaml:"conv_target"`                 // 总损失收敛阈值
	Decay         float64 `json:"learning_rate_decay" yaml:"learning_rate_decay"` // 学习率衰减时间常数
}

// DefaultConvergence 默认驱动参数
func DefaultConvergence() Convergence {
	return Convergence{
		Rate:          0.01,
		UpdateStep:    100,
		MaxIterations: 5000,
		ConvTarget:    1e-8,
		Decay:         2500,
	}
}

// LearningRate 第 iter 次迭代的学习率 rate·exp(-iter/decay)
func (c Convergence) LearningRate(iter int) float64 {
	if c.Decay <= 0 {
		return c.Rate
	}
	return c.Rate * math.Exp(-float64(iter)/c.Decay)
}

// Validate 检查参数
func (c Convergence) Validate() error {
	const op = "Convergence.Validate"
	if !(c.Rate > 0) {
		return types.NewConfigurationError(op, "学习率必须大于0，得到 %g", c.Rate)
	}
	if c.MaxIterations < 0 {
		return types.NewConfigurationError(op, "最大迭代次数不能为负")
	}
	if c.UpdateStep < 0 {
		return types.NewConfigurationError(op, "输出间隔不能为负")
	}
	if c.Decay < 0 || c.ConvTarget < 0 {
		return types.NewConfigurationError(op, "衰减常数与收敛阈值不能为负")
	}
	return nil
}
