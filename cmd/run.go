package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"grape"
	"grape/checkpoint"
	"grape/debug"
	"grape/engine"
	"grape/load"
	"grape/optimize"
)

// config 命令行与环境变量合并后的运行配置
type config struct {
	System  string
	Preset  string
	Gate    string
	Out     string
	HTML    string
	PNG     string
	Weights string
	Workers int

	Seed    int64
	seedSet bool

	overrides func(*optimize.Convergence)
}

func loadConfig() (*config, error) {
	cfg := &config{
		System:  viper.GetString("system"),
		Preset:  viper.GetString("preset"),
		Gate:    viper.GetString("gate"),
		Out:     viper.GetString("out"),
		HTML:    viper.GetString("html"),
		PNG:     viper.GetString("png"),
		Weights: viper.GetString("weights"),
		Workers: viper.GetInt("workers"),
		Seed:    viper.GetInt64("seed"),
		seedSet: viper.IsSet("seed"),
	}
	if cfg.System == "" && cfg.Preset == "" {
		return nil, fmt.Errorf("需要 --system 或 --preset，内置系统: %v", load.Presets())
	}
	if (cfg.HTML != "" || cfg.PNG != "") && cfg.Out == "" {
		cfg.Out = "."
	}
	cfg.overrides = func(conv *optimize.Convergence) {
		if viper.IsSet("rate") {
			conv.Rate = viper.GetFloat64("rate")
		}
		if viper.IsSet("max_iter") {
			conv.MaxIterations = viper.GetInt("max_iter")
		}
		if viper.IsSet("target") {
			conv.ConvTarget = viper.GetFloat64("target")
		}
		if viper.IsSet("decay") {
			conv.Decay = viper.GetFloat64("decay")
		}
		if viper.IsSet("update_step") {
			conv.UpdateStep = viper.GetInt("update_step")
		}
	}
	return cfg, nil
}

func (cfg *config) system() (*load.System, error) {
	if cfg.System != "" {
		return load.LoadFile(cfg.System)
	}
	return load.Preset(cfg.Preset)
}

// build 读取系统定义并按配置创建运行
func (cfg *config) build() (*grape.Grape, error) {
	sys, err := cfg.system()
	if err != nil {
		return nil, err
	}
	conv := sys.Convergence
	if cfg.overrides != nil {
		cfg.overrides(&conv)
	}
	opts := []grape.Option{
		grape.WithConvergence(conv),
		grape.WithLogger(logrus.StandardLogger()),
		grape.WithEngine(engine.WithWorkers(cfg.Workers)),
	}
	if cfg.Gate != "" {
		opts = append(opts, grape.WithGate(cfg.Gate))
	}
	if cfg.Out != "" {
		opts = append(opts, grape.WithDataDir(cfg.Out))
	}
	if cfg.seedSet {
		opts = append(opts, grape.WithSeed(cfg.Seed))
	}
	if cfg.HTML != "" || cfg.PNG != "" {
		unit, err := debug.ParseUnit(sys.FreqUnit)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grape.WithRecord(debug.NewRecord(unit, logrus.StandardLogger())))
	}
	return grape.FromSystem(sys, opts...)
}

func runOptimize(ctx context.Context, cfg *config, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	g, err := cfg.build()
	if err != nil {
		return err
	}
	out, err := g.Run(ctx)
	if out != nil && out.Result != nil {
		printSummary(w, out)
		if derr := writeDebug(cfg, g.Record); derr != nil {
			logrus.WithError(derr).Error("写出调试图表失败")
		}
	}
	return err
}

func runEvolve(ctx context.Context, cfg *config, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg.Out, cfg.overrides = "", nil
	g, err := cfg.build()
	if err != nil {
		return err
	}
	var weights []float64
	if cfg.Weights != "" {
		cp, err := checkpoint.Load(cfg.Weights)
		if err != nil {
			return err
		}
		weights = cp.Weights
	}
	out, err := g.Evolve(ctx, weights)
	if err != nil {
		return err
	}
	printSummary(w, out)
	return writeDebug(cfg, g.Record)
}

// writeDebug 按配置写出 echarts 页面与 PNG
func writeDebug(cfg *config, rec *debug.Record) error {
	if rec == nil {
		return nil
	}
	dir := cfg.Out
	if dir == "" {
		dir = "."
	}
	if cfg.HTML != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		f, err := os.Create(filepath.Join(dir, cfg.HTML))
		if err != nil {
			return err
		}
		defer f.Close()
		if err := (&debug.Charts{Record: rec}).Render(f); err != nil {
			return err
		}
	}
	if cfg.PNG != "" {
		return rec.SavePNG(dir, cfg.PNG)
	}
	return nil
}

// printSummary 以表格输出各项损失
func printSummary(w io.Writer, out *grape.Outcome) {
	res := out.Result
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"项", "值"})
	table.Append([]string{"fidelity_loss", fmt.Sprintf("%.6e", res.FidelityLoss)})
	for _, t := range res.Terms {
		table.Append([]string{t.Kind.String(), fmt.Sprintf("%.6e", t.Value)})
	}
	table.Append([]string{"loss", fmt.Sprintf("%.6e", res.Loss)})
	table.Append([]string{"unitary_scale", fmt.Sprintf("%.6f", res.UnitaryScale)})
	table.SetFooter([]string{"fidelity", fmt.Sprintf("%.8f", res.Fidelity())})
	table.Render()

	if out.Summary != nil {
		fmt.Fprintf(w, "迭代 %d 次，收敛: %v，用时 %s\n", out.Summary.Iterations, out.Summary.Converged, out.Summary.Elapsed)
	}
	if out.Checkpoint != "" {
		fmt.Fprintf(w, "检查点: %s\n", out.Checkpoint)
	}
}
