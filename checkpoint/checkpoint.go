package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"grape/types"
)

// Checkpoint 一次保存的优化状态
type Checkpoint struct {
	Gate         string             `json:"gate"`
	Iteration    int                `json:"iteration"`
	Loss         float64            `json:"loss"`
	FidelityLoss float64            `json:"fidelity_loss"`
	Terms        map[string]float64 `json:"terms,omitempty"`
	Steps        int                `json:"steps"`
	TotalTime    float64            `json:"total_time"`
	Channels     []string           `json:"channels"`
	Weights      []float64          `json:"weights"`
	Amplitudes   [][]float64        `json:"amplitudes,omitempty"`
	Saved        time.Time          `json:"saved"`
}

// NextPath 在 dir 中找到第一个不存在的 NNNNN_<gate>.json
func NextPath(dir, gate string) (string, error) {
	if gate == "" {
		return "", types.NewConfigurationError("checkpoint.NextPath", "未指定门名称")
	}
	for num := 0; num < 100000; num++ {
		path := filepath.Join(dir, fmt.Sprintf("%05d_%s.json", num, gate))
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("目录 %s 中 %s 的编号已用尽", dir, gate)
}

// Save 写入检查点，先写临时文件再改名
func Save(path string, cp *Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load 读取检查点
func Load(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cp := &Checkpoint{}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("解析检查点 %s: %w", path, err)
	}
	if len(cp.Weights) == 0 {
		return nil, types.NewShapeError("checkpoint.Load", "检查点 %s 不含参数", path)
	}
	return cp, nil
}

// Writer 一次运行对应一个检查点文件，每次输出覆盖写入
type Writer struct {
	Path     string
	gate     string
	params   *types.SystemParameters
	channels []string
}

// NewWriter 在 dir 中分配新的检查点文件
func NewWriter(dir, gate string, params *types.SystemParameters) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path, err := NextPath(dir, gate)
	if err != nil {
		return nil, err
	}
	w := &Writer{Path: path, gate: gate, params: params}
	for _, c := range params.Controls {
		w.channels = append(w.channels, c.Name)
	}
	return w, nil
}

// Save 保存一次迭代，签名与优化器的输出回调一致
func (w *Writer) Save(it *types.Iteration, weights []float64) error {
	cp := &Checkpoint{
		Gate:         w.gate,
		Iteration:    it.Index,
		Loss:         it.Loss,
		FidelityLoss: it.FidelityLoss,
		Steps:        w.params.Steps,
		TotalTime:    w.params.TotalTime,
		Channels:     w.channels,
		Weights:      append([]float64(nil), weights...),
		Amplitudes:   it.Amplitudes,
		Saved:        time.Now(),
	}
	if len(it.Terms) > 0 {
		cp.Terms = make(map[string]float64, len(it.Terms))
		for _, t := range it.Terms {
			cp.Terms[t.Kind.String()] = t.Value
		}
	}
	return Save(w.Path, cp)
}
