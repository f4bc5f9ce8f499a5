package maths

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrum 计算实序列的离散傅里叶系数 X_k = Σ x_t e^{-2πikt/n}
func Spectrum(x []float64) []complex128 {
	seq := make([]complex128, len(x))
	for i, v := range x {
		seq[i] = complex(v, 0)
	}
	fft := fourier.NewCmplxFFT(len(x))
	return fft.Coefficients(nil, seq)
}

// OutOfBand 计算频段 [lo, hi) 之外、半谱 [0, n/2) 之内的幅度和
// Σ_{k<lo} |X_k| + Σ_{hi≤k<n/2} |X_k|，以及它对 x 的梯度。
// |X_k| 为零的分量取零次梯度。
func OutOfBand(x []float64, lo, hi int) (float64, []float64) {
	n := len(x)
	half := n / 2
	lo = min(max(lo, 0), half)
	hi = min(max(hi, lo), half)

	coeff := Spectrum(x)
	phasor := make([]complex128, n)
	sum := 0.0
	for k := 0; k < half; k++ {
		if k >= lo && k < hi {
			continue
		}
		mag := Abs(coeff[k])
		sum += mag
		if mag > 0 {
			phasor[k] = coeff[k] / complex(mag, 0)
		}
	}
	// d|X_k|/dx_t = Re(conj(X_k)/|X_k| · e^{-2πikt/n})，对 k 求和即未归一化逆变换的实部
	fft := fourier.NewCmplxFFT(n)
	back := fft.Sequence(nil, phasor)
	grad := make([]float64, n)
	for t := range grad {
		grad[t] = real(back[t])
	}
	return sum, grad
}
