package maths

import (
	"context"
	"errors"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"grape/types"
)

// Expm 缩放-平方法矩阵指数算子。
// 输入为基矩阵线性组合的系数 c，计算 exp(Σ c_j B_j)：
//
//	A = M / 2^Div
//	S = I + A + A²/2! + ... + A^Terms/Terms!
//	S ← S·S，共 Div 次
//
// Backward 按相同递推逆序求导，不依赖通用自动微分。
type Expm struct {
	Basis   []*mat.Dense // 基矩阵，全部为 dim×dim
	Terms   int          // 级数截断阶数
	Div     int          // 平方次数
	Workers int          // 批量执行的并发上限，0 表示 GOMAXPROCS

	dim      int
	invFact  []float64 // 1/k!
	identity *mat.Dense
}

var _ BatchOperator = (*Expm)(nil)

// tape 一次前向计算保存的中间量
type tape struct {
	a       *mat.Dense   // 缩放后的生成元
	powers  []*mat.Dense // A^0..A^Terms
	squares []*mat.Dense // 每次平方前的矩阵
	out     *mat.Dense
}

// NewExpm 创建矩阵指数算子
func NewExpm(basis []*mat.Dense, terms, div int) (*Expm, error) {
	const op = "NewExpm"
	if len(basis) == 0 {
		return nil, types.NewShapeError(op, "基矩阵列表为空")
	}
	dim, c := basis[0].Dims()
	for i, b := range basis {
		r, c2 := b.Dims()
		if r != dim || c2 != c || r != c {
			return nil, types.NewShapeError(op, "基矩阵 %d 维度 %dx%d，应为 %dx%d", i, r, c2, dim, dim)
		}
	}
	if terms < 1 {
		return nil, types.NewConfigurationError(op, "级数项数必须大于0，得到 %d", terms)
	}
	if div < 0 {
		return nil, types.NewConfigurationError(op, "平方次数不能为负，得到 %d", div)
	}
	invFact := make([]float64, terms+1)
	invFact[0] = 1
	for k := 1; k <= terms; k++ {
		invFact[k] = invFact[k-1] / float64(k)
	}
	return &Expm{
		Basis:    basis,
		Terms:    terms,
		Div:      div,
		dim:      dim,
		invFact:  invFact,
		identity: Identity(dim),
	}, nil
}

// Dim 算子作用的实矩阵维度
func (e *Expm) Dim() int { return e.dim }

// Generator 计算 M = Σ c_j B_j
func (e *Expm) Generator(coeffs []float64) (*mat.Dense, error) {
	if len(coeffs) != len(e.Basis) {
		return nil, types.NewShapeError("Expm.Generator", "系数长度 %d，应为 %d", len(coeffs), len(e.Basis))
	}
	m := mat.NewDense(e.dim, e.dim, nil)
	for j, c := range coeffs {
		if c == 0 {
			continue
		}
		var term mat.Dense
		term.Scale(c, e.Basis[j])
		m.Add(m, &term)
	}
	return m, nil
}

func (e *Expm) forward(coeffs []float64) (*tape, error) {
	m, err := e.Generator(coeffs)
	if err != nil {
		return nil, err
	}
	t := &tape{a: mat.NewDense(e.dim, e.dim, nil)}
	t.a.Scale(math.Ldexp(1, -e.Div), m)

	// 截断级数
	t.powers = make([]*mat.Dense, e.Terms+1)
	t.powers[0] = e.identity
	s := mat.DenseCopyOf(e.identity)
	for k := 1; k <= e.Terms; k++ {
		p := mat.NewDense(e.dim, e.dim, nil)
		p.Mul(t.powers[k-1], t.a)
		t.powers[k] = p
		var term mat.Dense
		term.Scale(e.invFact[k], p)
		s.Add(s, &term)
	}

	// 反复平方
	t.squares = make([]*mat.Dense, e.Div)
	x := s
	for i := 0; i < e.Div; i++ {
		t.squares[i] = x
		next := mat.NewDense(e.dim, e.dim, nil)
		next.Mul(x, x)
		x = next
	}
	t.out = x
	return t, nil
}

// Forward 计算 exp(Σ c_j B_j)
func (e *Expm) Forward(coeffs []float64) (*mat.Dense, error) {
	t, err := e.forward(coeffs)
	if err != nil {
		return nil, err
	}
	if !IsFinite(t.out) {
		return nil, types.NewNumericalError("Expm.Forward", -1, "矩阵指数出现非有限值")
	}
	return t.out, nil
}

// Backward 由损失对输出矩阵的梯度 gradOut 计算损失对系数的梯度。
// 与 Forward 为匹配的一对，内部重新执行前向递推以获得中间量。
func (e *Expm) Backward(coeffs []float64, gradOut mat.Matrix) ([]float64, error) {
	const op = "Expm.Backward"
	if r, c := gradOut.Dims(); r != e.dim || c != e.dim {
		return nil, types.NewShapeError(op, "输出梯度维度 %dx%d，应为 %dx%d", r, c, e.dim, e.dim)
	}
	t, err := e.forward(coeffs)
	if err != nil {
		return nil, err
	}

	// 平方链逆序：Y = X·X ⇒ dX = G·Xᵗ + Xᵗ·G
	g := mat.DenseCopyOf(gradOut)
	for i := e.Div - 1; i >= 0; i-- {
		x := t.squares[i]
		var left, right mat.Dense
		left.Mul(g, x.T())
		right.Mul(x.T(), g)
		g = mat.NewDense(e.dim, e.dim, nil)
		g.Add(&left, &right)
	}

	// 级数逆序：P_k = P_{k-1}·A，S = Σ P_k/k!
	gS := g
	dA := mat.NewDense(e.dim, e.dim, nil)
	dP := mat.NewDense(e.dim, e.dim, nil)
	dP.Scale(e.invFact[e.Terms], gS)
	for k := e.Terms; k >= 1; k-- {
		var contrib mat.Dense
		contrib.Mul(t.powers[k-1].T(), dP)
		dA.Add(dA, &contrib)
		if k > 1 {
			next := mat.NewDense(e.dim, e.dim, nil)
			next.Mul(dP, t.a.T())
			var direct mat.Dense
			direct.Scale(e.invFact[k-1], gS)
			next.Add(next, &direct)
			dP = next
		}
	}
	dA.Scale(math.Ldexp(1, -e.Div), dA)

	grads := make([]float64, len(e.Basis))
	for j, b := range e.Basis {
		grads[j] = Frobenius(dA, b)
	}
	if !AllFinite(grads) {
		return nil, types.NewNumericalError(op, -1, "系数梯度出现非有限值")
	}
	return grads, nil
}

func (e *Expm) limit() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// ForwardBatch 对每个时间步的系数并行计算矩阵指数，结果按时间步顺序返回
func (e *Expm) ForwardBatch(ctx context.Context, coeffs [][]float64) ([]*mat.Dense, error) {
	out := make([]*mat.Dense, len(coeffs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit())
	for i := range coeffs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			u, err := e.Forward(coeffs[i])
			if err != nil {
				return withStep(err, i)
			}
			out[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// BackwardBatch 对每个时间步并行计算系数梯度
func (e *Expm) BackwardBatch(ctx context.Context, coeffs [][]float64, gradOut []*mat.Dense) ([][]float64, error) {
	if len(gradOut) != len(coeffs) {
		return nil, types.NewShapeError("Expm.BackwardBatch", "梯度数量 %d 与时间步数 %d 不一致", len(gradOut), len(coeffs))
	}
	out := make([][]float64, len(coeffs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit())
	for i := range coeffs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			grad, err := e.Backward(coeffs[i], gradOut[i])
			if err != nil {
				return withStep(err, i)
			}
			out[i] = grad
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func withStep(err error, step int) error {
	var ne *types.NumericalInstabilityError
	if errors.As(err, &ne) {
		ne.Step = step
	}
	return err
}
