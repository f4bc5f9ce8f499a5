// Package load 读取 YAML 格式的系统定义文件，
// 生成 types.SystemParameters 以及优化所需的运行参数。
package load

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"grape/maths"
	"grape/optimize"
	"grape/types"
)

// ControlDef 一个控制通道的定义
type ControlDef struct {
	Name   string  `yaml:"name"`
	Op     Matrix  `yaml:"op"`
	MaxAmp float64 `yaml:"max_amp"` // 0 表示自动选择
	Dt     float64 `yaml:"dt"`      // 粗粒度间隔，0 表示逐步参数化
}

// PenaltyDef 惩罚项定义，可直接写系数，也可写为 {coeff, band}
type PenaltyDef struct {
	Coeff float64    `yaml:"coeff"`
	Band  [2]float64 `yaml:"band"`
}

// UnmarshalYAML 支持标量简写
func (p *PenaltyDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&p.Coeff)
	}
	type plain PenaltyDef
	return node.Decode((*plain)(p))
}

// DressedDef 缀饰基定义。from_drift 为真时由 H0 本征分解得到，否则使用给定本征向量
type DressedDef struct {
	FromDrift    bool   `yaml:"from_drift"`
	Eigenvectors Matrix `yaml:"eigenvectors"`
	DressedID    []int  `yaml:"dressed_id"`
	Forbid       *bool  `yaml:"forbid"` // 默认 true
}

// System 系统定义文件
type System struct {
	Gate           string                `yaml:"gate"`
	FreqUnit       string                `yaml:"freq_unit"`
	TotalTime      float64               `yaml:"total_time"`
	Steps          int                   `yaml:"steps"`
	H0             Matrix                `yaml:"h0"`
	Controls       []ControlDef          `yaml:"controls"`
	Target         Matrix                `yaml:"target"`
	InitialState   Matrix                `yaml:"initial_state"`
	InitialVectors []Vector              `yaml:"initial_vectors"`
	Concerned      []int                 `yaml:"concerned"`
	Forbidden      []int                 `yaml:"forbidden"`
	Dressed        *DressedDef           `yaml:"dressed"`
	Penalties      map[string]PenaltyDef `yaml:"penalties"`
	Boundary       string                `yaml:"boundary"`
	ExpTerms       int                   `yaml:"exp_terms"`
	Div            int                   `yaml:"div"`
	UnitaryError   float64               `yaml:"unitary_error"`
	InitialGuess   [][]float64           `yaml:"initial_guess"` // 各通道物理幅度 u0
	Seed           int64                 `yaml:"seed"`
	Convergence    optimize.Convergence  `yaml:"convergence"`
}

// Load 从 r 读取系统定义，未填写的驱动参数取默认值
func Load(r io.Reader) (*System, error) {
	sys := &System{Convergence: optimize.DefaultConvergence()}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(sys); err != nil {
		if err == io.EOF {
			return nil, types.NewConfigurationError("load.Load", "系统定义为空")
		}
		return nil, types.NewConfigurationError("load.Load", "%v", err)
	}
	if sys.Gate == "" {
		sys.Gate = "gate"
	}
	return sys, nil
}

// LoadString 从字符串读取
func LoadString(s string) (*System, error) {
	return Load(strings.NewReader(s))
}

// LoadFile 从文件读取
func LoadFile(path string) (*System, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sys, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sys, nil
}

// Parameters 转换为不可变的系统参数并检查一致性
func (sys *System) Parameters() (*types.SystemParameters, error) {
	const op = "System.Parameters"
	h0, err := sys.H0.CDense("h0")
	if err != nil {
		return nil, types.NewShapeError(op, "%v", err)
	}
	params := &types.SystemParameters{
		H0:           h0,
		TotalTime:    sys.TotalTime,
		Steps:        sys.Steps,
		Concerned:    sys.Concerned,
		Forbidden:    sys.Forbidden,
		ExpTerms:     sys.ExpTerms,
		Div:          sys.Div,
		UnitaryError: sys.UnitaryError,
	}
	if params.Target, err = sys.Target.CDense("target"); err != nil {
		return nil, types.NewShapeError(op, "%v", err)
	}
	if !sys.InitialState.Empty() {
		if params.InitialState, err = sys.InitialState.CDense("initial_state"); err != nil {
			return nil, types.NewShapeError(op, "%v", err)
		}
	}
	for _, v := range sys.InitialVectors {
		params.InitialVectors = append(params.InitialVectors, v.Values())
	}
	if len(params.Concerned) == 0 {
		params.Concerned = defaultConcerned(params.StateNum())
	}

	if len(sys.InitialGuess) > 0 && len(sys.InitialGuess) != len(sys.Controls) {
		return nil, types.NewShapeError(op, "initial_guess 有 %d 个通道，应为 %d", len(sys.InitialGuess), len(sys.Controls))
	}
	defaultAmp := types.DefaultMaxAmp
	if len(sys.InitialGuess) > 0 {
		defaultAmp = guessMaxAmp(sys.InitialGuess)
	}
	for i, c := range sys.Controls {
		ctrl := types.Control{Name: c.Name, MaxAmp: c.MaxAmp, Dt: c.Dt}
		if ctrl.Name == "" {
			ctrl.Name = fmt.Sprintf("c%d", i)
		}
		if ctrl.Op, err = c.Op.CDense("controls." + ctrl.Name); err != nil {
			return nil, types.NewShapeError(op, "%v", err)
		}
		if ctrl.MaxAmp == 0 {
			ctrl.MaxAmp = defaultAmp
		}
		params.Controls = append(params.Controls, ctrl)
	}

	if params.Boundary, err = types.ParseBoundary(sys.Boundary); err != nil {
		return nil, err
	}
	if params.Penalties, err = sys.penalties(); err != nil {
		return nil, err
	}
	if sys.Dressed != nil {
		if params.Dressed, err = sys.dressed(); err != nil {
			return nil, err
		}
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// penalties 按名称排序，保证结果与 map 遍历顺序无关
func (sys *System) penalties() ([]types.Penalty, error) {
	names := make([]string, 0, len(sys.Penalties))
	for name := range sys.Penalties {
		names = append(names, name)
	}
	sort.Strings(names)
	list := make([]types.Penalty, 0, len(names))
	for _, name := range names {
		kind, err := types.ParsePenaltyKind(name)
		if err != nil {
			return nil, err
		}
		def := sys.Penalties[name]
		list = append(list, types.Penalty{Kind: kind, Coeff: def.Coeff, Band: def.Band})
	}
	return list, nil
}

func (sys *System) dressed() (*types.DressedInfo, error) {
	const op = "System.dressed"
	def := sys.Dressed
	var info *types.DressedInfo
	if def.FromDrift {
		h, err := sys.H0.CDense("h0")
		if err != nil {
			return nil, types.NewShapeError(op, "%v", err)
		}
		if info, err = types.DressedFromDrift(h); err != nil {
			return nil, err
		}
	} else {
		ev, err := def.Eigenvectors.CDense("dressed.eigenvectors")
		if err != nil {
			return nil, types.NewShapeError(op, "%v", err)
		}
		info = &types.DressedInfo{Eigenvectors: ev, DressedID: def.DressedID, ForbidDressed: true}
	}
	if def.Forbid != nil {
		info.ForbidDressed = *def.Forbid
	}
	return info, nil
}

// guessMaxAmp 给定初始幅度时所有通道共用 1.5·max|u0|，最大值取自全部通道
func guessMaxAmp(u0 [][]float64) float64 {
	m := 0.0
	for _, row := range u0 {
		for _, v := range row {
			m = math.Max(m, maths.Abs(v))
		}
	}
	if m == 0 {
		return types.DefaultMaxAmp
	}
	return 1.5 * m
}

func defaultConcerned(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Unit 频率单位名，空时为 GHz
func (sys *System) Unit() string {
	if sys.FreqUnit == "" {
		return "GHz"
	}
	return sys.FreqUnit
}
