package types

import (
	"errors"
	"fmt"
)

// 错误类别哨兵，配合 errors.Is 使用
var (
	ErrConfiguration = errors.New("grape: 配置错误")
	ErrShape         = errors.New("grape: 维度错误")
	ErrNumerical     = errors.New("grape: 数值不稳定")
)

// ConfigurationError 配置不合法（惩罚项缺少后端能力、分段长度不匹配、关注态为空等）
type ConfigurationError struct {
	Op  string // 出错的操作
	Msg string // 错误描述
}

func (e *ConfigurationError) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Msg) }
func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError 创建配置错误
func NewConfigurationError(op, format string, args ...any) error {
	return &ConfigurationError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// ShapeError 矩阵、向量或参数张量维度与 state_num/steps 不一致
type ShapeError struct {
	Op  string
	Msg string
}

func (e *ShapeError) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Msg) }
func (e *ShapeError) Unwrap() error { return ErrShape }

// NewShapeError 创建维度错误
func NewShapeError(op, format string, args ...any) error {
	return &ShapeError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NumericalInstabilityError 指数级数或轨迹中出现 NaN/Inf
type NumericalInstabilityError struct {
	Op   string
	Step int // 出现非有限值的时间步，-1 表示与时间步无关
	Msg  string
}

func (e *NumericalInstabilityError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: 第 %d 步 %s", e.Op, e.Step, e.Msg)
}
func (e *NumericalInstabilityError) Unwrap() error { return ErrNumerical }

// NewNumericalError 创建数值不稳定错误
func NewNumericalError(op string, step int, format string, args ...any) error {
	return &NumericalInstabilityError{Op: op, Step: step, Msg: fmt.Sprintf(format, args...)}
}
