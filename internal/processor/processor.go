// Package processor 实现按床侧的生命体征处理流水线
//
// 每个床侧一个 Processor 实例，单线程逐 epoch 推进：
// 在床检测（峰峰值门限 + 容忍计数）→ 每路信号提取 → 双传感器
// 融合与离群钳制 → 滚动统计更新 → 周期性输出。
//
// 实例之间无共享可变状态，不同床侧可以在各自的 goroutine 中
// 并发驱动，前提是落库与日志下游本身并发安全。
package processor

import (
	"fmt"
	"math"
	"sort"

	"wisefido-vitals/internal/dsp"
	"wisefido-vitals/internal/models"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

const (
	// 原始信号峰峰值超过该值（ADC 计数）视为有人在床
	presenceRangeThreshold = 200_000
	// 连续低幅值 epoch 达到该数量后确认离床并重置
	noPresenceTolerance = 10
	// 融合记录环容量
	combinedCapacity = 100
	// 分位数边界的最小宽度（BPM），过窄时对称扩展
	minBoundWidth = 25.0
)

// Processor 单个床侧的生命体征处理器
//
// 所有运行状态（在床标志、心率历史、边界、滚动均值）都集中在
// 本结构体内，仅经 CalculateVitals 逐 epoch 修改；确认离床时
// 整体清空（融合记录环除外）。
type Processor struct {
	side               string
	sensorCount        int
	insertionFrequency int
	rollingAverageSize int
	params             models.RuntimeParams
	extractor          Extractor
	sink               VitalsSink
	logger             *zap.Logger

	present        bool
	notPresentFor  int
	iterationCount int
	epoch          int64

	heartRates  *floatRing
	lowerBound  *float64
	upperBound  *float64
	hrMovingAvg *float64
	hrStd2      *float64

	combined *measurementRing
}

// New 创建一个床侧处理器
func New(
	side string,
	sensorCount int,
	params models.RuntimeParams,
	insertionFrequency int,
	rollingAverageSize int,
	extractor Extractor,
	sink VitalsSink,
	logger *zap.Logger,
) *Processor {
	p := &Processor{
		side:               side,
		sensorCount:        sensorCount,
		insertionFrequency: insertionFrequency,
		rollingAverageSize: rollingAverageSize,
		params:             params,
		extractor:          extractor,
		sink:               sink,
		logger:             logger,
	}
	p.initTracking()
	p.combined = newMeasurementRing(combinedCapacity)
	return p
}

// initTracking 初始化运行统计状态
func (p *Processor) initTracking() {
	p.heartRates = newFloatRing(p.params.MovingAvgSize)
	p.lowerBound = nil
	p.upperBound = nil
	p.hrMovingAvg = nil
	p.hrStd2 = nil
}

// reset 确认离床后的硬重置；融合记录环保留
func (p *Processor) reset() {
	p.iterationCount = 0
	p.initTracking()
}

// DetectPresence 基于原始信号峰峰值更新在床状态
//
// 峰峰值超过门限立即标记在床并清零容忍计数；否则计数递增，
// 恰好到达容忍值时确认离床并硬重置。到达前的一次在床信号
// 即可取消计数（防抖动）。
func (p *Processor) DetectPresence(signal []float64) {
	if dsp.PeakToPeak(signal) > presenceRangeThreshold {
		p.notPresentFor = 0
		p.present = true
		return
	}
	p.notPresentFor++
	if p.notPresentFor == noPresenceTolerance {
		p.logger.Debug("User not detected, resetting tracking state",
			zap.String("side", p.side),
			zap.Int("tolerance_s", noPresenceTolerance),
		)
		p.present = false
		p.reset()
	}
}

// CalculateVitals 处理一个 epoch 的数据
//
// 两路信号独立提取，单路失败不影响另一路。融合规则：
//   - 双路有效：心率取两路平均，若已有滚动均值再与其平均一次
//     （向历史双重阻尼）；HRV 取平均。
//   - 仅第 1 路：直接用该路心率（不做预阻尼）。
//   - 仅第 2 路：若已有滚动均值先与其平均一次。
//   - 均无效：不产生记录，仅推进计数。
//
// 融合后的心率经标准差带钳制后进入历史与记录环。
// 返回的 error 只可能来自周期性落库（持久化失败向上传播）。
func (p *Processor) CalculateVitals(epoch int64, signal1, signal2 []float64) error {
	p.epoch = epoch

	p.DetectPresence(signal1)
	if !p.present {
		return p.next()
	}

	bounds := p.plausibilityBounds()

	m1, reason1 := p.extractor.Extract(signal1, epoch, bounds)
	if m1 == nil {
		p.logger.Debug("No measurement from sensor 1",
			zap.String("side", p.side),
			zap.Int64("epoch", epoch),
			zap.Stringer("reason", reason1),
		)
	}

	var m2 *models.Measurement
	if len(signal2) > 0 {
		var reason2 Reason
		m2, reason2 = p.extractor.Extract(signal2, epoch, bounds)
		if m2 == nil {
			p.logger.Debug("No measurement from sensor 2",
				zap.String("side", p.side),
				zap.Int64("epoch", epoch),
				zap.Stringer("reason", reason2),
			)
		}
	}

	switch {
	case m1 != nil && m2 != nil:
		heartRate := (m1.HeartRate + m2.HeartRate) / 2
		if p.hrMovingAvg != nil {
			heartRate = (heartRate + *p.hrMovingAvg) / 2
		}
		heartRate = p.clampToBand(heartRate)
		p.heartRates.Push(heartRate)
		p.combined.Push(models.Measurement{
			Side:      p.side,
			Timestamp: epoch,
			HeartRate: heartRate,
			HRV:       (m1.HRV + m2.HRV) / 2,
			// 呼吸率这里是相加而不是平均，与单传感器路径不一致；
			// 沿用现网行为，待产品侧确认
			BreathingRate: m1.BreathingRate + m2.BreathingRate,
		})

	case m1 != nil:
		heartRate := p.clampToBand(m1.HeartRate)
		p.heartRates.Push(heartRate)
		record := *m1
		record.HeartRate = heartRate
		p.combined.Push(record)

	case m2 != nil:
		heartRate := m2.HeartRate
		if p.hrMovingAvg != nil {
			heartRate = (heartRate + *p.hrMovingAvg) / 2
		}
		heartRate = p.clampToBand(heartRate)
		p.heartRates.Push(heartRate)
		record := *m2
		record.HeartRate = heartRate
		p.combined.Push(record)
	}

	return p.next()
}

// clampToBand 将心率钳制进 [均值−带宽, 均值+带宽]；边界未建立时原样返回
func (p *Processor) clampToBand(heartRate float64) float64 {
	if p.hrMovingAvg == nil || p.hrStd2 == nil {
		return heartRate
	}
	if math.Abs(heartRate-*p.hrMovingAvg) <= *p.hrStd2 {
		return heartRate
	}
	if heartRate < *p.hrMovingAvg {
		return *p.hrMovingAvg - *p.hrStd2
	}
	return *p.hrMovingAvg + *p.hrStd2
}

// plausibilityBounds 返回当前合理区间；历史未满时为 nil
func (p *Processor) plausibilityBounds() *Bounds {
	if p.lowerBound == nil || p.upperBound == nil {
		return nil
	}
	return &Bounds{Lower: *p.lowerBound, Upper: *p.upperBound}
}

// next 每个 epoch 结束时推进一步（无论本 epoch 是否产生记录）
//
//  1. 迭代计数递增。
//  2. 到达落库周期且存在融合记录时：取历史中最近
//     rollingAverageSize 个心率的均值，交给输出策略。
//  3. 历史满时重算滚动均值、分位数边界（最小宽度 25 BPM）和
//     2σ 带宽（钳制进配置范围）。每个 epoch 都重算，不冻结。
func (p *Processor) next() error {
	p.iterationCount++

	if p.iterationCount%p.insertionFrequency == 0 && p.combined.Len() > 0 {
		lastN := p.heartRates.LastN(p.rollingAverageSize)
		// 刚重置后历史可能为空而记录环不为空，此时没有可平滑的值
		if len(lastN) > 0 {
			smoothed := stat.Mean(lastN, nil)
			if err := p.sink.Emit(p.combined.Last(), smoothed, p.snapshot(lastN)); err != nil {
				return fmt.Errorf("failed to emit vitals for side %s: %w", p.side, err)
			}
		}
	}

	if p.heartRates.Len() >= p.params.MovingAvgSize {
		hrs := p.heartRates.Slice()
		avg := stat.Mean(hrs, nil)

		sorted := append([]float64(nil), hrs...)
		sort.Float64s(sorted)
		lower := stat.Quantile(p.params.HRPercentile[0]/100, stat.LinInterp, sorted, nil)
		upper := stat.Quantile(p.params.HRPercentile[1]/100, stat.LinInterp, sorted, nil)
		if upper-lower < minBoundWidth {
			upper = avg + minBoundWidth/2
			lower = avg - minBoundWidth/2
		}

		std2 := stat.PopStdDev(hrs, nil) * 2
		if std2 < p.params.HRStdRange[0] {
			std2 = p.params.HRStdRange[0]
		} else if std2 > p.params.HRStdRange[1] {
			std2 = p.params.HRStdRange[1]
		}

		p.hrMovingAvg = &avg
		p.lowerBound = &lower
		p.upperBound = &upper
		p.hrStd2 = &std2
	}

	return nil
}

func (p *Processor) snapshot(lastHeartRates []float64) StatsSnapshot {
	return StatsSnapshot{
		Epoch:          p.epoch,
		LastHeartRates: lastHeartRates,
		HRMovingAvg:    p.hrMovingAvg,
		LowerBound:     p.lowerBound,
		UpperBound:     p.upperBound,
		HRStdBand:      p.hrStd2,
		HistoryLength:  p.heartRates.Len(),
	}
}

// Side 返回处理器负责的床侧
func (p *Processor) Side() string { return p.side }

// Present 返回当前在床状态
func (p *Processor) Present() bool { return p.present }

// IterationCount 返回自上次重置以来处理过的 epoch 数
func (p *Processor) IterationCount() int { return p.iterationCount }

// HistoryLen 返回心率历史当前长度
func (p *Processor) HistoryLen() int { return p.heartRates.Len() }

// CombinedLen 返回融合记录环当前长度
func (p *Processor) CombinedLen() int { return p.combined.Len() }

// LastCombined 返回最近一条融合记录
func (p *Processor) LastCombined() (models.Measurement, bool) {
	last := p.combined.Last()
	if last == nil {
		return models.Measurement{}, false
	}
	return *last, true
}

// MovingAvg 返回当前滚动均值；历史未满时 ok 为 false
func (p *Processor) MovingAvg() (avg float64, ok bool) {
	if p.hrMovingAvg == nil {
		return 0, false
	}
	return *p.hrMovingAvg, true
}

// StdBand 返回当前标准差带宽；历史未满时 ok 为 false
func (p *Processor) StdBand() (band float64, ok bool) {
	if p.hrStd2 == nil {
		return 0, false
	}
	return *p.hrStd2, true
}

// PlausibilityBounds 返回当前合理区间；历史未满时 ok 为 false
func (p *Processor) PlausibilityBounds() (lower, upper float64, ok bool) {
	if p.lowerBound == nil || p.upperBound == nil {
		return 0, 0, false
	}
	return *p.lowerBound, *p.upperBound, true
}
