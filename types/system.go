package types

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Control 一个控制通道
type Control struct {
	Name   string      // 通道名称
	Op     *mat.CDense // 控制哈密顿量（复数 N×N）
	MaxAmp float64     // 最大幅度，物理幅度严格位于 (-MaxAmp, MaxAmp)
	Dt     float64     // 粗粒度时间间隔，0 表示逐步直接参数化
}

// SystemParameters 一次运行内不可变的系统参数
type SystemParameters struct {
	H0        *mat.CDense // 漂移哈密顿量
	Controls  []Control   // 控制通道，顺序即参数打包顺序
	TotalTime float64     // 总演化时间
	Steps     int         // 时间步数

	InitialState   *mat.CDense    // 初始幺正 U0，为空时取单位阵
	Target         *mat.CDense    // 目标幺正（或目标态列）
	InitialVectors [][]complex128 // 初始态向量，为空时取关注态对应的基矢
	Concerned      []int          // 计入保真度平均的态索引
	Forbidden      []int          // 禁止态索引
	Dressed        *DressedInfo   // 缀饰基信息，可为空

	Penalties    []Penalty // 启用的惩罚项
	Boundary     Boundary  // dwdt/d2wdt2 边界策略
	ExpTerms     int       // 泰勒级数项数，0 表示自动选择
	Div          int       // 平方次数，0 且 ExpTerms 为 0 时自动选择
	UnitaryError float64   // 自动选择项数时的幺正误差容差
}

// StateNum 量子态维度 N
func (p *SystemParameters) StateNum() int {
	if p.H0 == nil {
		return 0
	}
	r, _ := p.H0.Dims()
	return r
}

// Dim 实数嵌入后的维度 2N
func (p *SystemParameters) Dim() int { return 2 * p.StateNum() }

// StepDt 单步时间增量 dt = TotalTime/Steps
func (p *SystemParameters) StepDt() float64 { return p.TotalTime / float64(p.Steps) }

// CoarseSteps 返回通道的粗粒度控制点数量，直接参数化的通道返回 Steps
func (p *SystemParameters) CoarseSteps(c int) int {
	ctrl := p.Controls[c]
	if ctrl.Dt <= 0 {
		return p.Steps
	}
	return int(math.Round(p.TotalTime / ctrl.Dt))
}

// U0 初始幺正
func (p *SystemParameters) U0() *mat.CDense {
	if p.InitialState != nil {
		return p.InitialState
	}
	return IdentityC(p.StateNum())
}

// Vectors 初始态向量列表
func (p *SystemParameters) Vectors() [][]complex128 {
	if len(p.InitialVectors) > 0 {
		return p.InitialVectors
	}
	n := p.StateNum()
	vecs := make([][]complex128, len(p.Concerned))
	for i, s := range p.Concerned {
		vecs[i] = make([]complex128, n)
		vecs[i][s] = 1
	}
	return vecs
}

// Tolerance 幺正误差容差（带默认值）
func (p *SystemParameters) Tolerance() float64 {
	if p.UnitaryError > 0 {
		return p.UnitaryError
	}
	return DefaultUnitaryError
}

// Validate 检查参数一致性
func (p *SystemParameters) Validate() error {
	const op = "SystemParameters.Validate"
	if p.H0 == nil {
		return NewShapeError(op, "缺少漂移哈密顿量 H0")
	}
	n, c := p.H0.Dims()
	if n != c || n == 0 {
		return NewShapeError(op, "H0 必须为非空方阵，得到 %dx%d", n, c)
	}
	if p.Steps <= 0 {
		return NewConfigurationError(op, "steps 必须大于0，得到 %d", p.Steps)
	}
	if !(p.TotalTime > 0) {
		return NewConfigurationError(op, "总时间必须大于0，得到 %g", p.TotalTime)
	}
	if len(p.Controls) == 0 {
		return NewConfigurationError(op, "至少需要一个控制通道")
	}
	for i, ctrl := range p.Controls {
		if err := checkSquare(op, "控制 "+ctrl.Name, ctrl.Op, n); err != nil {
			return err
		}
		if !(ctrl.MaxAmp > 0) {
			return NewConfigurationError(op, "控制 %d 最大幅度必须大于0", i)
		}
		if ctrl.Dt < 0 {
			return NewConfigurationError(op, "控制 %d 粗粒度间隔不能为负", i)
		}
		if ctrl.Dt > 0 {
			ratio := p.TotalTime / ctrl.Dt
			coarse := math.Round(ratio)
			if math.Abs(ratio-coarse) > SegmentTolerance*math.Max(1, ratio) {
				return NewConfigurationError(op, "控制 %d 的分段长度 %g 不能整除总时间 %g", i, ctrl.Dt, p.TotalTime)
			}
			if coarse < 1 || int(coarse) > p.Steps {
				return NewConfigurationError(op, "控制 %d 的粗粒度点数 %d 必须位于 [1, %d]", i, int(coarse), p.Steps)
			}
		}
	}
	if p.InitialState != nil {
		if err := checkSquare(op, "初始幺正", p.InitialState, n); err != nil {
			return err
		}
	}
	if err := checkSquare(op, "目标", p.Target, n); err != nil {
		return err
	}
	if len(p.Concerned) == 0 {
		return NewConfigurationError(op, "关注态列表为空")
	}
	if err := checkIndices(op, "关注态", p.Concerned, n); err != nil {
		return err
	}
	if err := checkIndices(op, "禁止态", p.Forbidden, n); err != nil {
		return err
	}
	for i, v := range p.InitialVectors {
		if len(v) != n {
			return NewShapeError(op, "初始向量 %d 长度 %d，应为 %d", i, len(v), n)
		}
	}
	if p.Dressed != nil {
		if err := p.Dressed.validate(n); err != nil {
			return err
		}
	}
	seen := make(map[PenaltyKind]bool, len(p.Penalties))
	for _, pen := range p.Penalties {
		if seen[pen.Kind] {
			return NewConfigurationError(op, "惩罚项 %s 重复", pen.Kind)
		}
		seen[pen.Kind] = true
		if pen.Coeff < 0 || math.IsNaN(pen.Coeff) {
			return NewConfigurationError(op, "惩罚项 %s 系数不能为负", pen.Kind)
		}
		if pen.Kind == PenaltyBandpass && pen.Band[0] > pen.Band[1] {
			return NewConfigurationError(op, "带通频段下限 %g 大于上限 %g", pen.Band[0], pen.Band[1])
		}
	}
	if p.ExpTerms < 0 || p.Div < 0 {
		return NewConfigurationError(op, "级数项数与平方次数不能为负")
	}
	return nil
}

func checkSquare(op, name string, m *mat.CDense, n int) error {
	if m == nil {
		return NewShapeError(op, "缺少%s矩阵", name)
	}
	r, c := m.Dims()
	if r != n || c != n {
		return NewShapeError(op, "%s维度 %dx%d，应为 %dx%d", name, r, c, n, n)
	}
	return nil
}

func checkIndices(op, name string, idx []int, n int) error {
	for _, i := range idx {
		if i < 0 || i >= n {
			return NewShapeError(op, "%s索引 %d 超出 [0, %d)", name, i, n)
		}
	}
	return nil
}

// IdentityC 复数单位阵
func IdentityC(n int) *mat.CDense {
	m := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
