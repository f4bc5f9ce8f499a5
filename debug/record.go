package debug

import (
	"encoding/json"
	"io"

	"github.com/sirupsen/logrus"

	"grape/types"
)

// Record 记录优化历史
type Record struct {
	Unit     Unit     // 绘图单位
	Channels []string // 控制通道名称
	States   int      // 量子态维度
	Time     []float64

	Iterations   []int                // 输出点的迭代序号
	Rate         []float64            // 学习率
	Loss         []float64            // 总损失
	FidelityLoss []float64            // 保真度损失
	Terms        map[string][]float64 // 各惩罚项随迭代变化
	Amplitudes   [][]float64          // 最近一次输出的控制幅度
	Populations  [][]float64          // 最近一次输出的布居

	is     bool
	logger logrus.FieldLogger
}

// NewRecord 创建记录器
func NewRecord(unit Unit, logger logrus.FieldLogger) *Record {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Record{Unit: unit, is: true, logger: logger}
}

// Init 初始化
func (list *Record) Init(params *types.SystemParameters) {
	list.Channels = list.Channels[:0]
	for _, c := range params.Controls {
		list.Channels = append(list.Channels, c.Name)
	}
	list.States = params.StateNum()
	dt := params.StepDt()
	list.Time = make([]float64, params.Steps)
	for t := range list.Time {
		list.Time[t] = float64(t) * dt
	}
	list.Terms = make(map[string][]float64)
}

func (list *Record) IsDebug() bool    { return list.is }
func (list *Record) SetDebug(is bool) { list.is = is }

// Render 格式和输出内容
func (list *Record) Render(w io.Writer) error { return json.NewEncoder(w).Encode(list) }

// Update 记录数据
func (list *Record) Update(it *types.Iteration) {
	list.Iterations = append(list.Iterations, it.Index)
	list.Rate = append(list.Rate, it.Rate)
	list.Loss = append(list.Loss, it.Loss)
	list.FidelityLoss = append(list.FidelityLoss, it.FidelityLoss)
	if list.Terms == nil {
		list.Terms = make(map[string][]float64)
	}
	for _, t := range it.Terms {
		name := t.Kind.String()
		list.Terms[name] = append(list.Terms[name], t.Value)
	}
	list.Amplitudes = copyRows(it.Amplitudes)
	list.Populations = copyRows(it.Populations)
}

func (list *Record) Error(err error) { list.logger.WithError(err).Error("grape 调试") }

func copyRows(src [][]float64) [][]float64 {
	if src == nil {
		return nil
	}
	out := make([][]float64, len(src))
	for i, r := range src {
		out[i] = append([]float64(nil), r...)
	}
	return out
}
