package debug

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// Charts 曲线绘制
type Charts struct {
	*Record
}

// newLine 统一样式的折线图
func newLine(title, subtitle, yName string, log bool) *charts.Line {
	yAxis := opts.YAxis{Name: yName, Scale: opts.Bool(true)}
	if log {
		yAxis.Type = "log"
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(yAxis),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithAnimation(true),
	)
	return line
}

func lineData(v []float64) []opts.LineData {
	items := make([]opts.LineData, len(v))
	for i, x := range v {
		items[i] = opts.LineData{Value: x}
	}
	return items
}

// Render 格式化
func (c *Charts) Render(w io.Writer) error {
	lineL := newLine("损失曲线", "总损失与保真度损失随迭代变化", "loss", true)
	lineT := newLine("惩罚项", "各惩罚项贡献随迭代变化", "term", false)
	lineP := newLine("控制脉冲", "最近一次输出的控制幅度", c.Unit.Freq, false)
	lineS := newLine("布居", "第一个初始向量的布居随时间变化", "population", false)

	// 损失信息
	lineL.SetXAxis(c.Iterations)
	lineL.AddSeries("loss", lineData(c.Loss))
	lineL.AddSeries("fidelity_loss", lineData(c.FidelityLoss))

	// 惩罚项信息
	{
		lineT.SetXAxis(c.Iterations)
		names := make([]string, 0, len(c.Terms))
		for name := range c.Terms {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			lineT.AddSeries(name, lineData(c.Terms[name]))
		}
	}
	// 脉冲信息
	{
		xs := make([]string, len(c.Time))
		for i, t := range c.Time {
			xs[i] = fmt.Sprintf("%.4g", t)
		}
		lineP.SetXAxis(xs)
		for i, amp := range c.Amplitudes {
			name := fmt.Sprintf("%d", i)
			if i < len(c.Channels) {
				name = c.Channels[i]
			}
			lineP.AddSeries(name, lineData(amp))
		}
		lineP.SetGlobalOptions(charts.WithXAxisOpts(opts.XAxis{Name: "time (" + c.Unit.Time + ")"}))
	}
	// 布居信息
	if len(c.Populations) > 0 {
		xs := make([]int, len(c.Populations[0]))
		for i := range xs {
			xs[i] = i
		}
		lineS.SetXAxis(xs)
		for s, pop := range c.Populations {
			lineS.AddSeries(fmt.Sprintf("|%d⟩", s), lineData(pop))
		}
	}
	// 构建界面
	page := components.NewPage()
	page.AddCharts(
		lineL,
		lineT,
		lineP,
		lineS,
	)
	return page.Render(w)
}

// Handler 发布到网页面
func (c *Charts) Handler(w http.ResponseWriter, _ *http.Request) {
	if err := c.Render(w); err != nil {
		c.Error(err)
	}
}
