package control

import (
	"fmt"

	"grape/types"
)

// Mode 通道参数化方式
type Mode int

const (
	ModeDirect Mode = iota // 每个细步一个参数
	ModeSpline             // 粗控制点经样条上采样
)

func (m Mode) String() string {
	if m == ModeSpline {
		return "spline"
	}
	return "direct"
}

// Segment 扁平参数张量中属于一个通道的连续区段
type Segment struct {
	Channel int
	Offset  int
	Length  int
	Mode    Mode
}

// Layout 扁平参数张量的分段描述，前向拆分与反向打包共用同一份描述
type Layout struct {
	Steps    int
	Segments []Segment
}

// NewLayout 根据系统参数生成分段描述，通道顺序即打包顺序
func NewLayout(params *types.SystemParameters) *Layout {
	l := &Layout{Steps: params.Steps}
	offset := 0
	for c := range params.Controls {
		length := params.CoarseSteps(c)
		mode := ModeDirect
		if length != params.Steps {
			mode = ModeSpline
		}
		l.Segments = append(l.Segments, Segment{Channel: c, Offset: offset, Length: length, Mode: mode})
		offset += length
	}
	return l
}

// Size 扁平参数总长度
func (l *Layout) Size() int {
	n := 0
	for _, s := range l.Segments {
		n += s.Length
	}
	return n
}

// Check 校验分段连续、覆盖全部通道且长度与参数化方式一致
func (l *Layout) Check(channels int) error {
	const op = "Layout.Check"
	if len(l.Segments) != channels {
		return types.NewConfigurationError(op, "分段数 %d 与通道数 %d 不一致", len(l.Segments), channels)
	}
	offset := 0
	for i, s := range l.Segments {
		if s.Channel != i {
			return types.NewConfigurationError(op, "第 %d 个分段属于通道 %d", i, s.Channel)
		}
		if s.Offset != offset {
			return types.NewConfigurationError(op, "通道 %d 偏移 %d，应为 %d", i, s.Offset, offset)
		}
		switch s.Mode {
		case ModeDirect:
			if s.Length != l.Steps {
				return types.NewConfigurationError(op, "直接参数化通道 %d 长度 %d，应为 %d", i, s.Length, l.Steps)
			}
		case ModeSpline:
			if s.Length < 1 || s.Length > l.Steps {
				return types.NewConfigurationError(op, "样条通道 %d 长度 %d 超出 [1, %d]", i, s.Length, l.Steps)
			}
		default:
			return types.NewConfigurationError(op, "通道 %d 参数化方式未知", i)
		}
		offset += s.Length
	}
	return nil
}

// Unpack 把扁平参数拆分为各通道切片（共享底层数组）
func (l *Layout) Unpack(w []float64) ([][]float64, error) {
	if len(w) != l.Size() {
		return nil, types.NewShapeError("Layout.Unpack", "参数长度 %d，应为 %d", len(w), l.Size())
	}
	parts := make([][]float64, len(l.Segments))
	for i, s := range l.Segments {
		parts[i] = w[s.Offset : s.Offset+s.Length : s.Offset+s.Length]
	}
	return parts, nil
}

// Pack 把各通道切片按分段顺序拼接为扁平张量
func (l *Layout) Pack(parts [][]float64) []float64 {
	if len(parts) != len(l.Segments) {
		panic(fmt.Sprintf("segment count mismatch: %d parts, %d segments", len(parts), len(l.Segments)))
	}
	out := make([]float64, l.Size())
	for i, s := range l.Segments {
		if len(parts[i]) != s.Length {
			panic(fmt.Sprintf("segment %d length mismatch: %d, want %d", i, len(parts[i]), s.Length))
		}
		copy(out[s.Offset:], parts[i])
	}
	return out
}
