package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	_ "go.uber.org/automaxprocs"
)

var rootCmd = &cobra.Command{
	Use:          "grape",
	Short:        "GRAPE 量子门脉冲优化",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger(viper.GetString("log_level"))
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "优化控制脉冲",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runOptimize(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "用给定脉冲做前向演化",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runEvolve(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("system", "", "系统定义文件（YAML）")
	pf.String("preset", "", "内置系统名称，未给出 --system 时使用")
	pf.String("gate", "", "门名称，覆盖系统定义")
	pf.String("out", "", "输出目录，检查点与图表写入此处")
	pf.String("log-level", "info", "日志级别")
	pf.Int("workers", 0, "矩阵指数并发数，0 表示 GOMAXPROCS")
	pf.String("html", "", "写出 echarts 调试页面的文件名")
	pf.String("png", "", "写出脉冲与损失 PNG 的文件名前缀")

	of := optimizeCmd.Flags()
	of.Float64("rate", 0, "初始学习率")
	of.Int("max-iter", 0, "最大迭代次数")
	of.Float64("target", 0, "总损失收敛阈值")
	of.Float64("decay", 0, "学习率衰减时间常数")
	of.Int("update-step", 0, "输出间隔")
	of.Int64("seed", 0, "随机初始参数种子")

	evolveCmd.Flags().String("weights", "", "检查点文件，为空时使用初始参数")

	cobra.CheckErr(bindFlags(rootCmd, true, map[string]string{
		"system":    "system",
		"preset":    "preset",
		"gate":      "gate",
		"out":       "out",
		"log_level": "log-level",
		"workers":   "workers",
		"html":      "html",
		"png":       "png",
	}))
	cobra.CheckErr(bindFlags(optimizeCmd, false, map[string]string{
		"rate":        "rate",
		"max_iter":    "max-iter",
		"target":      "target",
		"decay":       "decay",
		"update_step": "update-step",
		"seed":        "seed",
	}))
	cobra.CheckErr(bindFlags(evolveCmd, false, map[string]string{"weights": "weights"}))

	viper.SetEnvPrefix("GRAPE")
	viper.AutomaticEnv()

	rootCmd.AddCommand(optimizeCmd, evolveCmd)
}

// bindFlags 把命令参数绑定到 viper 键，key 为 viper 键名，value 为参数名
func bindFlags(cmd *cobra.Command, persistent bool, keys map[string]string) error {
	fs := cmd.Flags()
	if persistent {
		fs = cmd.PersistentFlags()
	}
	for key, name := range keys {
		flag := fs.Lookup(name)
		if flag == nil {
			return fmt.Errorf("命令 %s 未定义参数 --%s", cmd.Name(), name)
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

func setupLogger(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
