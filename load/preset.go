package load

import (
	"sort"

	"grape/types"
)

// 内置系统定义
var presets = map[string]string{
	// 单比特翻转：H0 = 0，σx 控制，目标 X 门
	"x_gate": `
gate: x_gate
total_time: 1
steps: 10
h0: [[0, 0], [0, 0]]
controls:
  - name: x
    op: [[0, 1], [1, 0]]
target: [[0, 1], [1, 0]]
concerned: [0, 1]
penalties:
  amplitude: 1e-4
exp_terms: 12
div: 4
convergence:
  rate: 0.01
  update_step: 100
  max_iterations: 1000
  conv_target: 1e-6
  learning_rate_decay: 1000
`,
	// 单比特 Hadamard：σx、σz 两路控制
	"hadamard": `
gate: hadamard
total_time: 2
steps: 20
h0: [[0, 0], [0, 0]]
controls:
  - name: x
    op: [[0, 1], [1, 0]]
  - name: z
    op: [[1, 0], [0, -1]]
target:
  - [0.7071067811865476, 0.7071067811865476]
  - [0.7071067811865476, -0.7071067811865476]
concerned: [0, 1]
penalties:
  dwdt: 1e-4
convergence:
  rate: 0.01
  max_iterations: 2000
  conv_target: 1e-6
  learning_rate_decay: 2000
`,
	// 三能级 transmon 的 X 门，第三能级为禁止态，z 通道样条参数化
	"qutrit_x": `
gate: qutrit_x
total_time: 4
steps: 40
h0:
  - [0, 0, 0]
  - [0, 0, 0]
  - [0, 0, -0.3]
controls:
  - name: x
    op:
      - [0, 1, 0]
      - [1, 0, 1.4142135623730951]
      - [0, 1.4142135623730951, 0]
    max_amp: 2
  - name: y
    op:
      - [0, -1i, 0]
      - [1i, 0, -1.4142135623730951i]
      - [0, 1.4142135623730951i, 0]
    max_amp: 2
    dt: 0.5
target:
  - [0, 1, 0]
  - [1, 0, 0]
  - [0, 0, 1]
concerned: [0, 1]
forbidden: [2]
dressed:
  from_drift: true
penalties:
  forbidden: 1
  envelope: 1e-3
`,
}

// Preset 按名称取内置系统定义
func Preset(name string) (*System, error) {
	src, ok := presets[name]
	if !ok {
		return nil, types.NewConfigurationError("load.Preset", "未知的内置系统: %q", name)
	}
	return LoadString(src)
}

// Presets 全部内置系统名称
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
