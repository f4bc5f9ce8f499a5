package maths

import (
	"fmt"
	"sort"
)

// SparseMatrix 稀疏矩阵数据结构
// 使用CSR (Compressed Sparse Row) 格式存储，用于样条传递算子这类每行仅少量非零元的线性算子
type SparseMatrix struct {
	rows, cols int
	rowPtr     []int     // 行指针数组
	colInd     []int     // 列索引数组
	values     []float64 // 非零元素值
}

// NewSparseMatrix 创建新的稀疏矩阵
func NewSparseMatrix(rows, cols int) *SparseMatrix {
	return &SparseMatrix{
		rows:   rows,
		cols:   cols,
		rowPtr: make([]int, rows+1), // 多一个元素用于存储结束位置
		colInd: make([]int, 0),
		values: make([]float64, 0),
	}
}

// search 在行内二分查找列索引的位置
func (m *SparseMatrix) search(row, col int) (pos, end int) {
	start := m.rowPtr[row]
	end = m.rowPtr[row+1]
	pos = sort.Search(end-start, func(i int) bool {
		return m.colInd[start+i] >= col
	}) + start
	return pos, end
}

func (m *SparseMatrix) checkIndex(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("index out of range: (%d,%d) in %dx%d", row, col, m.rows, m.cols))
	}
}

// Set 设置矩阵元素
func (m *SparseMatrix) Set(row, col int, value float64) {
	m.checkIndex(row, col)
	pos, end := m.search(row, col)
	if pos < end && m.colInd[pos] == col {
		if value == 0 {
			m.deleteElement(row, pos)
		} else {
			m.values[pos] = value
		}
	} else if value != 0 {
		m.insertElement(row, col, value, pos)
	}
}

// Increment 增量设置矩阵元素
func (m *SparseMatrix) Increment(row, col int, value float64) {
	m.checkIndex(row, col)
	if value == 0 {
		return
	}
	pos, end := m.search(row, col)
	if pos < end && m.colInd[pos] == col {
		m.values[pos] += value
		if m.values[pos] == 0 {
			m.deleteElement(row, pos)
		}
	} else {
		m.insertElement(row, col, value, pos)
	}
}

// Get 获取矩阵元素
func (m *SparseMatrix) Get(row, col int) float64 {
	m.checkIndex(row, col)
	pos, end := m.search(row, col)
	if pos < end && m.colInd[pos] == col {
		return m.values[pos]
	}
	return 0
}

// GetRow 获取指定行的非零元素（列索引+值）
func (m *SparseMatrix) GetRow(row int) ([]int, []float64) {
	start, end := m.rowPtr[row], m.rowPtr[row+1]
	return m.colInd[start:end], m.values[start:end]
}

// deleteElement 删除指定位置的元素
func (m *SparseMatrix) deleteElement(row, pos int) {
	m.colInd = append(m.colInd[:pos], m.colInd[pos+1:]...)
	m.values = append(m.values[:pos], m.values[pos+1:]...)
	// 更新后续行的指针
	for i := row + 1; i <= m.rows; i++ {
		m.rowPtr[i]--
	}
}

// insertElement 在指定位置插入元素
func (m *SparseMatrix) insertElement(row, col int, value float64, pos int) {
	m.colInd = append(m.colInd, 0)
	copy(m.colInd[pos+1:], m.colInd[pos:])
	m.colInd[pos] = col
	m.values = append(m.values, 0)
	copy(m.values[pos+1:], m.values[pos:])
	m.values[pos] = value
	for i := row + 1; i <= m.rows; i++ {
		m.rowPtr[i]++
	}
}

// Rows 返回行数
func (m *SparseMatrix) Rows() int { return m.rows }

// Cols 返回列数
func (m *SparseMatrix) Cols() int { return m.cols }

// MulVec 计算 y = A*x
func (m *SparseMatrix) MulVec(x []float64) []float64 {
	if len(x) != m.cols {
		panic(fmt.Sprintf("vector dimension mismatch: x length=%d, matrix cols=%d", len(x), m.cols))
	}
	y := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		sum := 0.0
		cols, vals := m.GetRow(i)
		for k, j := range cols {
			sum += vals[k] * x[j]
		}
		y[i] = sum
	}
	return y
}

// MulTransVec 计算 y = Aᵗ*x，用于把细粒度梯度回传到粗粒度控制点
func (m *SparseMatrix) MulTransVec(x []float64) []float64 {
	if len(x) != m.rows {
		panic(fmt.Sprintf("vector dimension mismatch: x length=%d, matrix rows=%d", len(x), m.rows))
	}
	y := make([]float64, m.cols)
	for i := 0; i < m.rows; i++ {
		cols, vals := m.GetRow(i)
		for k, j := range cols {
			y[j] += vals[k] * x[i]
		}
	}
	return y
}
