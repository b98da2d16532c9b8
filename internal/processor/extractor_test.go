package processor_test

import (
	"math"
	"testing"

	"wisefido-vitals/internal/models"
	proc "wisefido-vitals/internal/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// genSine 生成 500 Hz 采样的正弦波形
//
// 1 Hz 的正弦对心搏提取器来说是一个理想化的 60 BPM 信号：
// 每秒一个波峰，RR 间期恒定 1000 ms。
func genSine(freqHz, amplitude, durationSec float64) []float64 {
	n := int(durationSec * 500)
	signal := make([]float64, n)
	for i := range signal {
		t := float64(i) / 500
		signal[i] = amplitude * math.Sin(2*math.Pi*freqHz*t)
	}
	return signal
}

func newExtractor() *proc.SignalExtractor {
	return proc.NewSignalExtractor("left", models.DefaultRuntimeParams(), false, zap.NewNop())
}

func TestSignalExtractor_SineYieldsSixtyBPM(t *testing.T) {
	m, reason := newExtractor().Extract(genSine(1.0, 150_000, 10), 1700000000, nil)

	require.NotNil(t, m)
	assert.Equal(t, proc.ReasonOK, reason)
	assert.Equal(t, "left", m.Side)
	assert.Equal(t, int64(1700000000), m.Timestamp)
	assert.InDelta(t, 60, m.HeartRate, 2)
	// 恒定 RR 间期：SDNN 接近 0，低于下限钳制为 0
	assert.Equal(t, 0.0, m.HRV)
	// 呼吸率要么无可靠谱峰为 0，要么落在有效范围内
	assert.GreaterOrEqual(t, m.BreathingRate, 0.0)
	assert.LessOrEqual(t, m.BreathingRate, 25.0)
}

func TestSignalExtractor_ReadingOutsideBoundsRejected(t *testing.T) {
	bounds := &proc.Bounds{Lower: 61, Upper: 80}

	m, reason := newExtractor().Extract(genSine(1.0, 150_000, 10), 1, bounds)

	assert.Nil(t, m)
	assert.Equal(t, proc.ReasonOutOfBand, reason)
}

func TestSignalExtractor_FlatSignalFails(t *testing.T) {
	flat := make([]float64, 5000)

	m, reason := newExtractor().Extract(flat, 1, nil)

	assert.Nil(t, m)
	assert.Equal(t, proc.ReasonProcessingFailed, reason)
}

func TestSignalExtractor_ShortSignalFails(t *testing.T) {
	m, reason := newExtractor().Extract(genSine(1.0, 150_000, 0.2), 1, nil)

	assert.Nil(t, m)
	assert.Equal(t, proc.ReasonProcessingFailed, reason)
}
