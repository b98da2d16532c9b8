package processor

import (
	"math"

	"wisefido-vitals/internal/dsp"
	"wisefido-vitals/internal/models"

	"go.uber.org/zap"
)

// 压电传感器固定以 500 Hz 采样
const sampleRate = 500.0

// 信号调理与心搏提取的固定参数
const (
	baselineCutoffHz = 0.05
	bandpassLowHz    = 0.5
	bandpassHighHz   = 20.0
	bpmMin           = 40.0
	bpmMax           = 90.0
)

// Reason 单路信号未产生测量值的原因
//
// 提取失败不是错误：本 epoch 该路无测量值，处理继续。
type Reason int

const (
	ReasonOK               Reason = iota // 产生了有效测量值
	ReasonProcessingFailed               // DSP 阶段失败（噪声、数据缺失）
	ReasonInvalidBPM                     // BPM 为 NaN 或超过硬上限
	ReasonOutOfBand                      // BPM 落在合理区间之外
)

func (r Reason) String() string {
	switch r {
	case ReasonOK:
		return "ok"
	case ReasonProcessingFailed:
		return "processing_failed"
	case ReasonInvalidBPM:
		return "invalid_bpm"
	case ReasonOutOfBand:
		return "out_of_band"
	default:
		return "unknown"
	}
}

// Bounds 当前的心率合理区间（分位数边界）
type Bounds struct {
	Lower float64
	Upper float64
}

// Extractor 单路信号的生命体征提取接口
//
// 返回 nil 测量值时 Reason 说明原因；实现不得让 DSP 阶段的
// 任何异常逃逸到调用方。
type Extractor interface {
	Extract(signal []float64, epoch int64, bounds *Bounds) (*models.Measurement, Reason)
}

// SignalExtractor 基于 DSP 链的提取器实现
//
// 流程：离群插值 → 缩放到 0–1024 → 去基线漂移（500 Hz / 0.05 Hz）
// → 带通 0.5–20 Hz → 心搏提取与校验。
type SignalExtractor struct {
	side   string
	params models.RuntimeParams
	debug  bool
	logger *zap.Logger
}

// NewSignalExtractor 创建提取器
func NewSignalExtractor(side string, params models.RuntimeParams, debug bool, logger *zap.Logger) *SignalExtractor {
	return &SignalExtractor{
		side:   side,
		params: params,
		debug:  debug,
		logger: logger,
	}
}

// Extract 对一路原始波形执行完整 DSP 链并校验结果
func (e *SignalExtractor) Extract(signal []float64, epoch int64, bounds *Bounds) (m *models.Measurement, reason Reason) {
	// DSP 阶段的任何异常都折叠为"本 epoch 无测量值"，绝不中断整个处理
	defer func() {
		if r := recover(); r != nil {
			m, reason = nil, ReasonProcessingFailed
			if e.debug {
				e.logger.Debug("Signal processing panicked",
					zap.String("side", e.side),
					zap.Int64("epoch", epoch),
					zap.Any("panic", r),
				)
			}
		}
	}()

	data := dsp.InterpolateOutliers(signal, e.params.SignalPercentile[0], e.params.SignalPercentile[1])
	data = dsp.Scale(data, 0, 1024)
	data = dsp.RemoveBaselineWander(data, sampleRate, baselineCutoffHz)
	data = dsp.Bandpass(data, bandpassLowHz, bandpassHighHz, sampleRate)

	result, err := dsp.Process(data, sampleRate, dsp.Options{
		WindowSize: e.params.WindowSize,
		BPMMin:     bpmMin,
		BPMMax:     bpmMax,
	})
	if err != nil {
		if e.debug {
			e.logger.Debug("Beat extraction failed",
				zap.String("side", e.side),
				zap.Int64("epoch", epoch),
				zap.Error(err),
			)
		}
		return nil, ReasonProcessingFailed
	}

	if math.IsNaN(result.BPM) || result.BPM > bpmMax {
		return nil, ReasonInvalidBPM
	}
	// 合理区间建立后，只接受严格落在区间内的读数
	if bounds != nil && (result.BPM <= bounds.Lower || result.BPM >= bounds.Upper) {
		return nil, ReasonOutOfBand
	}

	hrv := result.SDNN
	if hrv < 30 || hrv > 120 {
		hrv = 0
	}
	breathingRate := result.BreathingRate * 60
	if breathingRate < 8 || breathingRate > 25 {
		breathingRate = 0
	}

	return &models.Measurement{
		Side:          e.side,
		Timestamp:     epoch,
		HeartRate:     result.BPM,
		HRV:           hrv,
		BreathingRate: breathingRate,
	}, ReasonOK
}
