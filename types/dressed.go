package types

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// DressedInfo 缀饰基信息
type DressedInfo struct {
	Eigenvectors  *mat.CDense // 本征向量（按列）
	DressedID     []int       // 第 j 个本征向量对应的裸态索引
	ForbidDressed bool        // 禁止态惩罚是否在缀饰基下计算
}

func (d *DressedInfo) validate(n int) error {
	const op = "DressedInfo.validate"
	if err := checkSquare(op, "本征向量", d.Eigenvectors, n); err != nil {
		return err
	}
	if len(d.DressedID) == 0 {
		return nil
	}
	if len(d.DressedID) != n {
		return NewShapeError(op, "dressed_id 长度 %d，应为 %d", len(d.DressedID), n)
	}
	seen := make([]bool, n)
	for _, id := range d.DressedID {
		if id < 0 || id >= n || seen[id] {
			return NewConfigurationError(op, "dressed_id 不是 0..%d 的排列", n-1)
		}
		seen[id] = true
	}
	return nil
}

// Sorted 按裸态顺序排列的本征向量：第 i 列为对应裸态 i 的本征向量
func (d *DressedInfo) Sorted() *mat.CDense {
	n, _ := d.Eigenvectors.Dims()
	sorted := mat.NewCDense(n, n, nil)
	for bare := 0; bare < n; bare++ {
		col := bare
		for j, id := range d.DressedID {
			if id == bare {
				col = j
				break
			}
		}
		for r := 0; r < n; r++ {
			sorted.Set(r, bare, d.Eigenvectors.At(r, col))
		}
	}
	return sorted
}

// DressedFromDrift 由实对称漂移哈密顿量求缀饰基。
// 每个本征向量对应与其重叠最大的裸态。
func DressedFromDrift(h0 *mat.CDense) (*DressedInfo, error) {
	const op = "DressedFromDrift"
	n, c := h0.Dims()
	if n != c {
		return nil, NewShapeError(op, "H0 必须为方阵，得到 %dx%d", n, c)
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := h0.At(i, j)
			if imag(v) != 0 || cmplx.Abs(v-cmplx.Conj(h0.At(j, i))) > 1e-12 {
				return nil, NewConfigurationError(op, "仅支持实对称漂移哈密顿量")
			}
			sym.SetSym(i, j, real(v))
		}
	}
	var es mat.EigenSym
	if !es.Factorize(sym, true) {
		return nil, NewNumericalError(op, -1, "本征分解失败")
	}
	var ev mat.Dense
	es.VectorsTo(&ev)

	info := &DressedInfo{
		Eigenvectors:  mat.NewCDense(n, n, nil),
		DressedID:     make([]int, n),
		ForbidDressed: true,
	}
	for j := 0; j < n; j++ {
		best, bestAbs := 0, -1.0
		for i := 0; i < n; i++ {
			v := ev.At(i, j)
			info.Eigenvectors.Set(i, j, complex(v, 0))
			if a := math.Abs(v); a > bestAbs {
				best, bestAbs = i, a
			}
		}
		info.DressedID[j] = best
	}
	if err := info.validate(n); err != nil {
		return nil, err
	}
	return info, nil
}
