package types

import "io"

// TermValue 单个惩罚项对总损失的贡献（已乘系数/steps）
type TermValue struct {
	Kind  PenaltyKind
	Value float64
}

// Iteration 一次迭代的快照
type Iteration struct {
	Index        int         // 迭代序号
	Rate         float64     // 当前学习率
	Loss         float64     // 总损失
	FidelityLoss float64     // 仅保真度损失
	Terms        []TermValue // 各惩罚项贡献
	UnitaryScale float64     // 幺正性诊断量
	Amplitudes   [][]float64 // 各通道物理幅度（仅在需要记录时填充）
	Populations  [][]float64 // 第一个初始向量在各基矢上的布居随时间变化
}

// Debug 调试接口
type Debug interface {
	Init(params *SystemParameters)
	IsDebug() bool
	SetDebug(is bool)
	Update(it *Iteration)
	Render(w io.Writer) error
	Error(err error)
}
