// Package dsp 提供压电波形的信号调理与心搏提取
//
// 处理链（固定顺序）：
//  1. 百分位带外离群样本插值（InterpolateOutliers）
//  2. 幅值归一化到固定区间（Scale）
//  3. 基线漂移去除（RemoveBaselineWander）
//  4. 带通滤波（Bandpass）
//  5. 心搏提取（Process）：BPM / SDNN / 呼吸率
//
// 各函数均为纯函数，不持有状态；异常数据通过 error 返回，
// 不会 panic 到调用方可见的路径之外。
package dsp

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PeakToPeak 返回信号的峰峰值；空信号返回 0
func PeakToPeak(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	return floats.Max(signal) - floats.Min(signal)
}

// InterpolateOutliers 将百分位带外的离群样本用线性插值替换
//
// lowerPct/upperPct 为百分位（如 0.2 / 99.8）。带外的连续样本段
// 用段前后最近的带内样本做线性插值；信号两端的带外段用最近
// 带内样本填充。
func InterpolateOutliers(signal []float64, lowerPct, upperPct float64) []float64 {
	n := len(signal)
	if n == 0 {
		return nil
	}

	sorted := append([]float64(nil), signal...)
	sort.Float64s(sorted)
	lo := stat.Quantile(lowerPct/100, stat.LinInterp, sorted, nil)
	hi := stat.Quantile(upperPct/100, stat.LinInterp, sorted, nil)

	out := append([]float64(nil), signal...)
	inBand := func(v float64) bool { return v >= lo && v <= hi }

	i := 0
	for i < n {
		if inBand(out[i]) {
			i++
			continue
		}
		// [i, j) 是一段连续的带外样本
		j := i
		for j < n && !inBand(out[j]) {
			j++
		}
		switch {
		case i == 0 && j == n:
			// 全部带外，保持原样
		case i == 0:
			for k := i; k < j; k++ {
				out[k] = out[j]
			}
		case j == n:
			for k := i; k < j; k++ {
				out[k] = out[i-1]
			}
		default:
			prev, next := out[i-1], out[j]
			span := float64(j - i + 1)
			for k := i; k < j; k++ {
				frac := float64(k-i+1) / span
				out[k] = prev + (next-prev)*frac
			}
		}
		i = j
	}
	return out
}

// Scale 将信号线性缩放到 [lower, upper]
//
// 常量信号（无幅值）整体置为 lower。
func Scale(signal []float64, lower, upper float64) []float64 {
	n := len(signal)
	if n == 0 {
		return nil
	}
	min, max := floats.Min(signal), floats.Max(signal)
	out := make([]float64, n)
	if max == min {
		for i := range out {
			out[i] = lower
		}
		return out
	}
	scale := (upper - lower) / (max - min)
	for i, v := range signal {
		out[i] = lower + (v-min)*scale
	}
	return out
}
