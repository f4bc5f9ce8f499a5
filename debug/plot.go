package debug

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// PulsePlot 最近一次输出的控制脉冲图
func (list *Record) PulsePlot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Control pulses"
	p.X.Label.Text = "time (" + list.Unit.Time + ")"
	p.Y.Label.Text = "amplitude (" + list.Unit.Freq + ")"
	p.Add(plotter.NewGrid())
	for i, amp := range list.Amplitudes {
		if len(amp) != len(list.Time) {
			return nil, fmt.Errorf("通道 %d 幅度长度 %d 与时间轴 %d 不一致", i, len(amp), len(list.Time))
		}
		pts := make(plotter.XYs, len(amp))
		for t := range amp {
			pts[t].X = list.Time[t]
			pts[t].Y = amp[t]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		name := fmt.Sprintf("%d", i)
		if i < len(list.Channels) {
			name = list.Channels[i]
		}
		p.Legend.Add(name, line)
	}
	p.Legend.Top = true
	return p, nil
}

// LossPlot 损失随迭代变化图，纵轴取对数
func (list *Record) LossPlot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Loss"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "loss"
	p.Add(plotter.NewGrid())
	positive := false
	for i, series := range [][]float64{list.Loss, list.FidelityLoss} {
		pts := make(plotter.XYs, 0, len(series))
		for k, v := range series {
			// 对数坐标下跳过非正值
			if v <= 0 {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(list.Iterations[k]), Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add([]string{"loss", "fidelity_loss"}[i], line)
		positive = true
	}
	if positive {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	return p, nil
}

// WritePNG 把图以 PNG 格式写入 w
func WritePNG(p *plot.Plot, widthIn, heightIn float64, w io.Writer) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(150),
	)
	p.Draw(draw.New(c))
	bw := bufio.NewWriter(w)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("写入 png 失败: %w", err)
	}
	return bw.Flush()
}

// SavePNG 把脉冲图与损失图保存到 dir 下的 <prefix>_pulses.png 与 <prefix>_loss.png
func (list *Record) SavePNG(dir, prefix string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	pulse, err := list.PulsePlot()
	if err != nil {
		return err
	}
	loss, err := list.LossPlot()
	if err != nil {
		return err
	}
	for name, p := range map[string]*plot.Plot{"pulses": pulse, "loss": loss} {
		if err := savePlot(p, filepath.Join(dir, prefix+"_"+name+".png")); err != nil {
			return err
		}
	}
	return nil
}

func savePlot(p *plot.Plot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WritePNG(p, 8, 4, f)
}
