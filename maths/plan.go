package maths

import (
	"math"

	"grape/types"
)

// ExpPlan 矩阵指数的级数阶数与平方次数
type ExpPlan struct {
	Terms int
	Div   int
}

// PlanExp 根据生成元范数估计选择平方次数与级数阶数。
// norm 为单步生成元 -i·H·dt 的范数上界，steps 为时间步数，
// unitaryError 为整个演化允许的幺正误差。
func PlanExp(norm float64, steps int, unitaryError float64) ExpPlan {
	div := 3
	if norm > 0 {
		div += max(int(2*math.Log2(norm)), 0)
	}
	if norm == 0 {
		return ExpPlan{Terms: types.MinExpTerms, Div: div}
	}
	terms := types.MaxExpTerms
	for terms > types.MinExpTerms {
		if float64(steps)*truncationError(norm, terms-1, div) >= unitaryError {
			break
		}
		terms--
	}
	return ExpPlan{Terms: terms, Div: div}
}

// truncationError 估计截断到 k 阶时首个被舍去项的大小 norm^k / (2^(k·div)·k!)
func truncationError(norm float64, k, div int) float64 {
	lg, _ := math.Lgamma(float64(k + 1))
	return math.Exp(float64(k)*math.Log(norm) - float64(k*div)*math.Ln2 - lg)
}
