package dsp

import "math"

// biquad 二阶 IIR 滤波器系数（已按 a0 归一化）
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// apply 直接 I 型前向滤波
func (f biquad) apply(x []float64) []float64 {
	out := make([]float64, len(x))
	var x1, x2, y1, y2 float64
	for i, v := range x {
		y := f.b0*v + f.b1*x1 + f.b2*x2 - f.a1*y1 - f.a2*y2
		x2, x1 = x1, v
		y2, y1 = y1, y
		out[i] = y
	}
	return out
}

// filtfilt 前向-反向滤波，消除相位偏移（心搏位置不被滤波器平移）
func filtfilt(f biquad, x []float64) []float64 {
	y := f.apply(x)
	reverse(y)
	y = f.apply(y)
	reverse(y)
	return y
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

// highpassCoeffs 二阶 Butterworth 高通系数（Q=1/√2）
func highpassCoeffs(cutoff, sampleRate float64) biquad {
	w0 := 2 * math.Pi * cutoff / sampleRate
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / math.Sqrt2
	a0 := 1 + alpha
	return biquad{
		b0: (1 + cosW0) / 2 / a0,
		b1: -(1 + cosW0) / a0,
		b2: (1 + cosW0) / 2 / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha) / a0,
	}
}

// lowpassCoeffs 二阶 Butterworth 低通系数（Q=1/√2）
func lowpassCoeffs(cutoff, sampleRate float64) biquad {
	w0 := 2 * math.Pi * cutoff / sampleRate
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / math.Sqrt2
	a0 := 1 + alpha
	return biquad{
		b0: (1 - cosW0) / 2 / a0,
		b1: (1 - cosW0) / a0,
		b2: (1 - cosW0) / 2 / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha) / a0,
	}
}

// RemoveBaselineWander 去除低频基线漂移
//
// 二阶 Butterworth 高通（零相位），cutoff 通常为 0.05 Hz。
func RemoveBaselineWander(signal []float64, sampleRate, cutoff float64) []float64 {
	if len(signal) == 0 {
		return nil
	}
	return filtfilt(highpassCoeffs(cutoff, sampleRate), signal)
}

// Bandpass 带通滤波（零相位）
//
// 由二阶高通与二阶低通级联实现，心搏检测用 0.5–20 Hz。
func Bandpass(signal []float64, low, high, sampleRate float64) []float64 {
	if len(signal) == 0 {
		return nil
	}
	out := filtfilt(highpassCoeffs(low, sampleRate), signal)
	out = filtfilt(lowpassCoeffs(high, sampleRate), out)
	return out
}
