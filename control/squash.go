package control

import "math"

// Squash 把无约束参数压缩到 (-1, 1)
func Squash(x float64) float64 { return math.Tanh(x) }

// SquashDeriv Squash 的导数 1 - tanh²(x)
func SquashDeriv(x float64) float64 {
	t := math.Tanh(x)
	return 1 - t*t
}

// Unsquash Squash 的逆，输入必须位于 (-1, 1)
func Unsquash(u float64) float64 { return math.Atanh(u) }
