package models

// Measurement 单个 epoch 的融合生命体征记录
//
// 由处理器对 1~2 路压电信号的提取结果融合而成，
// 是持久化（vitals 表）和输出流的统一数据形状。
type Measurement struct {
	Side          string  `json:"side"`           // 床侧："left" 或 "right"
	Timestamp     int64   `json:"timestamp"`      // Unix 秒
	HeartRate     float64 `json:"heart_rate"`     // BPM
	HRV           float64 `json:"hrv"`            // SDNN，毫秒；超出 [30,120] 置 0
	BreathingRate float64 `json:"breathing_rate"` // 次/分；超出 [8,25] 置 0
}

// DebugMeasurement 调试模式下的增强记录
//
// 在周期性落库点上生成：保留原始记录，附加平滑后心率、
// 当前统计边界和可读时间戳，仅驻留内存，供排查和测试使用。
type DebugMeasurement struct {
	Measurement
	CurrentTS         string    `json:"current_ts"`                // 当前 epoch 的 ISO-8601 时间
	LastCombinedAt    string    `json:"last_combined_measurement"` // 最近一条融合记录的 ISO-8601 时间
	SmoothedHeartRate float64   `json:"smoothed_heart_rate"`       // 滚动平均后的心率
	LastHeartRates    []float64 `json:"last_heart_rates"`
	HRMovingAvg       *float64  `json:"hr_moving_avg"`
	LowerBound        *float64  `json:"lower_bound"`
	UpperBound        *float64  `json:"upper_bound"`
	HRStdBand         *float64  `json:"hr_std_2"`
	HistoryLength     int       `json:"length"`
}

// RuntimeParams 信号处理运行时参数（构造后不可变）
type RuntimeParams struct {
	Window           int        // 分析窗口长度，秒（当前仅作记录）
	SlideBy          int        // 滑动步长，秒（当前仅作记录）
	MovingAvgSize    int        // 心率历史容量（epoch 数）
	HRStdRange       [2]float64 // 标准差带宽允许范围 [min, max]
	HRPercentile     [2]float64 // 心率合理区间的分位数 [低, 高]
	SignalPercentile [2]float64 // 原始信号离群值插值的百分位带 [低, 高]
	WindowSize       float64    // 心搏提取的滑动均值窗口，秒
}

// DefaultRuntimeParams 返回默认运行时参数
func DefaultRuntimeParams() RuntimeParams {
	return RuntimeParams{
		Window:           3,
		SlideBy:          1,
		MovingAvgSize:    120,
		HRStdRange:       [2]float64{1, 10},
		HRPercentile:     [2]float64{15, 80},
		SignalPercentile: [2]float64{0.2, 99.8},
		WindowSize:       0.65,
	}
}
