package dsp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// Options 心搏提取参数
type Options struct {
	WindowSize float64 // 滑动均值窗口长度，秒
	BPMMin     float64 // 可接受的最小心率
	BPMMax     float64 // 可接受的最大心率
}

// Result 单路信号的提取结果
type Result struct {
	BPM           float64 // 心率
	SDNN          float64 // RR 间期标准差，毫秒
	BreathingRate float64 // 呼吸频率，Hz（无可靠谱峰时为 0）
}

// ErrNoBeats 信号中找不到落在可接受心率范围内的心搏序列
var ErrNoBeats = errors.New("dsp: no plausible beats detected")

// 候选阈值抬升量（信号标准差的百分比），逐个尝试后取
// RR 间期最稳定（标准差最小）的一组心搏
var liftPercentages = []float64{5, 10, 15, 20, 25, 30, 40, 50}

// Process 从调理后的波形提取心搏并计算 BPM / SDNN / 呼吸率
//
// 检测方法：信号滑动均值加自适应抬升作为阈值，阈值上方的每个
// 连续区段取最大值位置为一次心搏。对每个候选抬升量计算 RR 间期
// 序列，保留 BPM 在 [BPMMin, BPMMax] 内且 RR 标准差最小的候选，
// 再经商滤波剔除异常间期。
func Process(signal []float64, sampleRate float64, opts Options) (*Result, error) {
	if len(signal) < int(sampleRate) {
		return nil, fmt.Errorf("dsp: signal too short: %d samples", len(signal))
	}

	window := int(opts.WindowSize * sampleRate)
	if window < 1 {
		window = 1
	}
	rolMean := rollingMean(signal, window)
	sd := stat.PopStdDev(signal, nil)

	type candidate struct {
		rr   []float64
		rrsd float64
	}
	var best *candidate

	for _, lift := range liftPercentages {
		peaks := detectPeaks(signal, rolMean, sd*lift/100)
		if len(peaks) < 2 {
			continue
		}
		rr := rrIntervals(peaks, sampleRate)
		bpm := 60000 / stat.Mean(rr, nil)
		if bpm < opts.BPMMin || bpm > opts.BPMMax {
			continue
		}
		rrsd := stat.PopStdDev(rr, nil)
		if best == nil || rrsd < best.rrsd {
			best = &candidate{rr: rr, rrsd: rrsd}
		}
	}
	if best == nil {
		return nil, ErrNoBeats
	}

	clean := quotientFilter(best.rr)
	if len(clean) == 0 {
		clean = best.rr
	}

	return &Result{
		BPM:           60000 / stat.Mean(clean, nil),
		SDNN:          stat.PopStdDev(clean, nil),
		BreathingRate: breathingRate(clean),
	}, nil
}

// rollingMean 居中滑动均值；两端不足整窗的位置用整体均值填充
func rollingMean(signal []float64, window int) []float64 {
	n := len(signal)
	out := make([]float64, n)
	overall := stat.Mean(signal, nil)
	half := window / 2

	// 前缀和避免 O(n·window)
	prefix := make([]float64, n+1)
	for i, v := range signal {
		prefix[i+1] = prefix[i] + v
	}
	for i := 0; i < n; i++ {
		lo, hi := i-half, i+half+1
		if lo < 0 || hi > n {
			out[i] = overall
			continue
		}
		out[i] = (prefix[hi] - prefix[lo]) / float64(hi-lo)
	}
	return out
}

// detectPeaks 返回阈值上方各连续区段内最大值的样本下标
func detectPeaks(signal, rolMean []float64, lift float64) []int {
	var peaks []int
	inRegion := false
	maxIdx := 0
	for i, v := range signal {
		if v > rolMean[i]+lift {
			if !inRegion {
				inRegion = true
				maxIdx = i
			} else if v > signal[maxIdx] {
				maxIdx = i
			}
			continue
		}
		if inRegion {
			peaks = append(peaks, maxIdx)
			inRegion = false
		}
	}
	if inRegion {
		peaks = append(peaks, maxIdx)
	}
	return peaks
}

// rrIntervals 由心搏下标计算 RR 间期序列，毫秒
func rrIntervals(peaks []int, sampleRate float64) []float64 {
	rr := make([]float64, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		rr[i-1] = float64(peaks[i]-peaks[i-1]) / sampleRate * 1000
	}
	return rr
}

// quotientFilter 商滤波：相邻 RR 间期之比超出 [0.8, 1.2] 的
// 两个间期都视为异常剔除
func quotientFilter(rr []float64) []float64 {
	n := len(rr)
	if n < 2 {
		return append([]float64(nil), rr...)
	}
	bad := make([]bool, n)
	for i := 0; i < n-1; i++ {
		if rr[i+1] == 0 {
			bad[i], bad[i+1] = true, true
			continue
		}
		q := rr[i] / rr[i+1]
		if q < 0.8 || q > 1.2 {
			bad[i], bad[i+1] = true, true
		}
	}
	var out []float64
	for i, v := range rr {
		if !bad[i] {
			out = append(out, v)
		}
	}
	return out
}

// breathingRate 用谱方法从 RR 序列估计呼吸频率
//
// RR 序列按累计时刻线性插值重采样到 4 Hz，去均值后做 FFT，
// 取 0.1–0.5 Hz 内的最大谱峰。序列太短或无明显谱峰返回 0。
func breathingRate(rr []float64) float64 {
	const resampleRate = 4.0
	if len(rr) < 4 {
		return 0
	}

	// 心搏时刻（秒）与对应 RR 值
	times := make([]float64, len(rr))
	acc := 0.0
	for i, v := range rr {
		acc += v / 1000
		times[i] = acc
	}

	duration := times[len(times)-1] - times[0]
	n := int(duration * resampleRate)
	if n < 8 {
		return 0
	}

	resampled := make([]float64, n)
	j := 0
	for i := 0; i < n; i++ {
		t := times[0] + float64(i)/resampleRate
		for j < len(times)-2 && times[j+1] < t {
			j++
		}
		t0, t1 := times[j], times[j+1]
		if t1 == t0 {
			resampled[i] = rr[j]
			continue
		}
		frac := (t - t0) / (t1 - t0)
		resampled[i] = rr[j] + (rr[j+1]-rr[j])*frac
	}

	mean := stat.Mean(resampled, nil)
	for i := range resampled {
		resampled[i] -= mean
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, resampled)

	bestFreq, bestMag := 0.0, 0.0
	for i, c := range coeffs {
		freq := fft.Freq(i) * resampleRate
		if freq < 0.1 || freq > 0.5 {
			continue
		}
		mag := math.Hypot(real(c), imag(c))
		if mag > bestMag {
			bestMag = mag
			bestFreq = freq
		}
	}
	if bestMag < 1e-9 {
		return 0
	}
	return bestFreq
}
