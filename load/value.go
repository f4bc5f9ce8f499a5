package load

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// Complex 复数标量，可写为数字或 "1+2i" 形式的字符串
type Complex complex128

// UnmarshalYAML 解析标量节点
func (c *Complex) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("第 %d 行: 复数必须为标量", node.Line)
	}
	v, err := ParseComplex(node.Value)
	if err != nil {
		return fmt.Errorf("第 %d 行: %w", node.Line, err)
	}
	*c = Complex(v)
	return nil
}

// ParseComplex 解析复数，支持 "i"、"-i" 这类单独的虚数单位
func ParseComplex(s string) (complex128, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	switch s {
	case "i", "+i":
		return 1i, nil
	case "-i":
		return -1i, nil
	}
	v, err := strconv.ParseComplex(s, 128)
	if err != nil {
		return 0, fmt.Errorf("无法解析复数 %q", s)
	}
	return v, nil
}

// Matrix 按行书写的复数矩阵
type Matrix [][]Complex

// Empty 是否未填写
func (m Matrix) Empty() bool { return len(m) == 0 }

// CDense 转换为 gonum 复数矩阵，各行长度必须一致
func (m Matrix) CDense(name string) (*mat.CDense, error) {
	if len(m) == 0 {
		return nil, fmt.Errorf("%s: 矩阵为空", name)
	}
	cols := len(m[0])
	if cols == 0 {
		return nil, fmt.Errorf("%s: 矩阵第 0 行为空", name)
	}
	out := mat.NewCDense(len(m), cols, nil)
	for i, row := range m {
		if len(row) != cols {
			return nil, fmt.Errorf("%s: 第 %d 行有 %d 个元素，应为 %d", name, i, len(row), cols)
		}
		for j, v := range row {
			out.Set(i, j, complex128(v))
		}
	}
	return out, nil
}

// Vector 复数向量
type Vector []Complex

// Values 转换为 []complex128
func (v Vector) Values() []complex128 {
	out := make([]complex128, len(v))
	for i, c := range v {
		out[i] = complex128(c)
	}
	return out
}
