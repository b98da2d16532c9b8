package processor

import (
	"fmt"
	"time"

	"wisefido-vitals/internal/models"

	"go.uber.org/zap"
)

// StatsSnapshot 落库点上的统计状态快照
type StatsSnapshot struct {
	Epoch          int64
	LastHeartRates []float64
	HRMovingAvg    *float64
	LowerBound     *float64
	UpperBound     *float64
	HRStdBand      *float64
	HistoryLength  int
}

// VitalsSink 周期性输出策略
//
// last 是最近一条融合记录（环内指针），smoothed 是短窗滚动平均
// 后的心率。生产实现覆写心率后落库；调试实现只追加内存记录。
type VitalsSink interface {
	Emit(last *models.Measurement, smoothed float64, snap StatsSnapshot) error
}

// VitalsInserter 持久化接口（repository.VitalsRepository 实现）
type VitalsInserter interface {
	Insert(m *models.Measurement) (int64, error)
}

// RepositorySink 生产模式输出：覆写最近记录的心率后写入数据库，
// 并可选发布到下游输出流
type RepositorySink struct {
	repo    VitalsInserter
	publish func(m *models.Measurement) error
	logger  *zap.Logger
}

// NewRepositorySink 创建生产模式输出；publish 可为 nil
func NewRepositorySink(repo VitalsInserter, publish func(m *models.Measurement) error, logger *zap.Logger) *RepositorySink {
	return &RepositorySink{
		repo:    repo,
		publish: publish,
		logger:  logger,
	}
}

// Emit 覆写心率、落库、发布；落库失败向上传播
func (s *RepositorySink) Emit(last *models.Measurement, smoothed float64, snap StatsSnapshot) error {
	last.HeartRate = smoothed

	id, err := s.repo.Insert(last)
	if err != nil {
		return fmt.Errorf("failed to insert vitals: %w", err)
	}

	// 输出流失败不影响已完成的落库
	if s.publish != nil {
		if err := s.publish(last); err != nil {
			s.logger.Warn("Failed to publish vitals to output stream",
				zap.String("side", last.Side),
				zap.Error(err),
			)
		}
	}

	s.logger.Debug("Persisted smoothed vitals",
		zap.Int64("id", id),
		zap.String("side", last.Side),
		zap.Float64("heart_rate", smoothed),
		zap.Int("history_length", snap.HistoryLength),
	)
	return nil
}

// DebugSink 调试模式输出：不产生外部副作用，
// 仅在内存中追加增强记录供检查
type DebugSink struct {
	entries []models.DebugMeasurement
}

// NewDebugSink 创建调试模式输出
func NewDebugSink() *DebugSink {
	return &DebugSink{}
}

// Emit 构造增强记录（原始记录 + 平滑心率 + 当前边界 + 可读时间）
func (s *DebugSink) Emit(last *models.Measurement, smoothed float64, snap StatsSnapshot) error {
	s.entries = append(s.entries, models.DebugMeasurement{
		Measurement:       *last,
		CurrentTS:         isoTime(snap.Epoch),
		LastCombinedAt:    isoTime(last.Timestamp),
		SmoothedHeartRate: smoothed,
		LastHeartRates:    snap.LastHeartRates,
		HRMovingAvg:       snap.HRMovingAvg,
		LowerBound:        snap.LowerBound,
		UpperBound:        snap.UpperBound,
		HRStdBand:         snap.HRStdBand,
		HistoryLength:     snap.HistoryLength,
	})
	return nil
}

// Measurements 返回累计的增强记录
func (s *DebugSink) Measurements() []models.DebugMeasurement {
	return s.entries
}

func isoTime(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format("2006-01-02T15:04:05")
}
