package types

// 默认参数常量定义
var (
	DefaultMaxAmp       = 4.0  // 默认最大控制幅度
	DefaultUnitaryError = 1e-4 // 默认幺正误差容差（用于选择级数项数）
	MaxExpTerms         = 30   // 泰勒级数最大项数
	MinExpTerms         = 3    // 泰勒级数最小项数
	EnvelopeOffset      = 0.01 // 高斯包络整体偏移
	SegmentTolerance    = 1e-9 // 粗粒度段长度整除判定容差
)

// Boundary 有限差分边界策略
type Boundary int

const (
	// BoundaryZeroPad 两端各补两个零后求差分
	BoundaryZeroPad Boundary = iota
	// BoundaryNone 不补零，直接对脉冲求差分
	BoundaryNone
)

// String 策略名称
func (b Boundary) String() string {
	switch b {
	case BoundaryZeroPad:
		return "zeropad"
	case BoundaryNone:
		return "none"
	}
	return "unknown"
}

// ParseBoundary 解析策略名称
func ParseBoundary(s string) (Boundary, error) {
	switch s {
	case "", "zeropad":
		return BoundaryZeroPad, nil
	case "none":
		return BoundaryNone, nil
	}
	return 0, NewConfigurationError("ParseBoundary", "未知的边界策略: %q", s)
}
