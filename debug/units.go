package debug

import "grape/types"

// Unit 频率与对应的时间单位
type Unit struct {
	Freq string
	Time string
}

var units = []Unit{
	{Freq: "GHz", Time: "ns"},
	{Freq: "MHz", Time: "us"},
	{Freq: "KHz", Time: "ms"},
	{Freq: "Hz", Time: "s"},
}

// DefaultUnit GHz/ns
var DefaultUnit = units[0]

// ParseUnit 由频率单位名得到单位对，空字符串返回默认单位
func ParseUnit(freq string) (Unit, error) {
	if freq == "" {
		return DefaultUnit, nil
	}
	for _, u := range units {
		if u.Freq == freq {
			return u, nil
		}
	}
	return Unit{}, types.NewConfigurationError("debug.ParseUnit", "未知的频率单位: %q", freq)
}
