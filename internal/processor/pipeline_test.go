package processor_test

import (
	"testing"

	"wisefido-vitals/internal/models"
	proc "wisefido-vitals/internal/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 完整流水线：真实 DSP 提取器 + 调试输出，默认运行参数。
// 两路都喂 1 Hz 正弦（理想化 60 BPM），驱动 120 个 epoch，
// 覆盖两个完整的落库周期。
func TestPipeline_SineInputEndToEnd(t *testing.T) {
	params := models.DefaultRuntimeParams()
	sink := proc.NewDebugSink()
	extractor := proc.NewSignalExtractor("left", params, false, zap.NewNop())
	p := proc.New("left", 2, params, 60, 25, extractor, sink, zap.NewNop())

	signal := genSine(1.0, 150_000, 3)
	for i := 0; i < 120; i++ {
		require.NoError(t, p.CalculateVitals(int64(i+1), signal, signal))
	}

	assert.True(t, p.Present())
	assert.Equal(t, 120, p.HistoryLen())
	assert.Equal(t, 120, p.CombinedLen())

	// 历史满后统计建立：均值接近 60，2σ 带与边界都在约束范围内
	avg, ok := p.MovingAvg()
	require.True(t, ok)
	assert.InDelta(t, 60, avg, 2)

	band, ok := p.StdBand()
	require.True(t, ok)
	assert.GreaterOrEqual(t, band, 1.0)
	assert.LessOrEqual(t, band, 10.0)

	lower, upper, ok := p.PlausibilityBounds()
	require.True(t, ok)
	assert.Less(t, lower, avg)
	assert.Greater(t, upper, avg)
	assert.GreaterOrEqual(t, upper-lower, 25.0)

	// 第 60 和第 120 个 epoch 各输出一条平滑记录
	entries := sink.Measurements()
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.InDelta(t, 60, entry.SmoothedHeartRate, 2)
		assert.Equal(t, "left", entry.Side)
		assert.Len(t, entry.LastHeartRates, 25)
	}
	assert.Equal(t, 60, entries[0].HistoryLength)
	assert.Equal(t, 120, entries[1].HistoryLength)
}
