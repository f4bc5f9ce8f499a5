package types

import "strings"

// PenaltyKind 正则化惩罚项类型
type PenaltyKind int

const (
	PenaltyAmplitude PenaltyKind = iota // 原始参数平方和
	PenaltyEnvelope                     // 高斯包络
	PenaltyDwdt                         // 一阶导数
	PenaltyD2wdt2                       // 二阶导数
	PenaltyBandpass                     // 带通滤波
	PenaltyForbidden                    // 禁止态布居
	PenaltySpeedUp                      // 加速到达目标态（奖励项）
	penaltyKindCount
)

var penaltyNames = [...]string{
	PenaltyAmplitude: "amplitude",
	PenaltyEnvelope:  "envelope",
	PenaltyDwdt:      "dwdt",
	PenaltyD2wdt2:    "d2wdt2",
	PenaltyBandpass:  "bandpass",
	PenaltyForbidden: "forbidden",
	PenaltySpeedUp:   "speed_up",
}

// PenaltyKinds 全部惩罚项，按固定顺序
func PenaltyKinds() []PenaltyKind {
	kinds := make([]PenaltyKind, penaltyKindCount)
	for i := range kinds {
		kinds[i] = PenaltyKind(i)
	}
	return kinds
}

func (k PenaltyKind) String() string {
	if k < 0 || k >= penaltyKindCount {
		return "unknown"
	}
	return penaltyNames[k]
}

// ParsePenaltyKind 由名称得到惩罚项类型
func ParsePenaltyKind(name string) (PenaltyKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range penaltyNames {
		if n == name {
			return PenaltyKind(i), nil
		}
	}
	return 0, NewConfigurationError("ParsePenaltyKind", "未知的惩罚项: %q", name)
}

// Penalty 一个启用的惩罚项
type Penalty struct {
	Kind  PenaltyKind
	Coeff float64    // 系数，最终贡献为 term*Coeff/steps
	Band  [2]float64 // 带通频段（仅 bandpass），单位与 1/TotalTime 一致
}

// FindPenalty 查找指定类型的惩罚项
func FindPenalty(list []Penalty, kind PenaltyKind) (Penalty, bool) {
	for _, p := range list {
		if p.Kind == kind {
			return p, true
		}
	}
	return Penalty{}, false
}
