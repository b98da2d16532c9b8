package processor_test

import (
	"errors"
	"testing"

	"wisefido-vitals/internal/models"
	proc "wisefido-vitals/internal/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInserter struct {
	inserted []models.Measurement
	err      error
}

func (f *fakeInserter) Insert(m *models.Measurement) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.inserted = append(f.inserted, *m)
	return int64(len(f.inserted)), nil
}

func sampleSnapshot() proc.StatsSnapshot {
	avg, band := 62.0, 4.0
	return proc.StatsSnapshot{
		Epoch:          120,
		LastHeartRates: []float64{60, 64},
		HRMovingAvg:    &avg,
		HRStdBand:      &band,
		HistoryLength:  80,
	}
}

func TestRepositorySink_OverwritesHeartRateAndInserts(t *testing.T) {
	repo := &fakeInserter{}
	var published []models.Measurement
	publish := func(m *models.Measurement) error {
		published = append(published, *m)
		return nil
	}
	sink := proc.NewRepositorySink(repo, publish, zap.NewNop())

	last := &models.Measurement{Side: "left", Timestamp: 100, HeartRate: 71, HRV: 40, BreathingRate: 14}
	require.NoError(t, sink.Emit(last, 62.5, sampleSnapshot()))

	// 落库前最近记录的心率被平滑值覆写
	assert.Equal(t, 62.5, last.HeartRate)
	require.Len(t, repo.inserted, 1)
	assert.Equal(t, 62.5, repo.inserted[0].HeartRate)
	assert.Equal(t, "left", repo.inserted[0].Side)
	require.Len(t, published, 1)
	assert.Equal(t, 62.5, published[0].HeartRate)
}

func TestRepositorySink_InsertErrorPropagates(t *testing.T) {
	insertErr := errors.New("connection refused")
	sink := proc.NewRepositorySink(&fakeInserter{err: insertErr}, nil, zap.NewNop())

	err := sink.Emit(&models.Measurement{Side: "left"}, 60, sampleSnapshot())
	require.Error(t, err)
	assert.ErrorIs(t, err, insertErr)
}

func TestRepositorySink_PublishErrorIsNotFatal(t *testing.T) {
	repo := &fakeInserter{}
	publish := func(m *models.Measurement) error {
		return errors.New("stream unavailable")
	}
	sink := proc.NewRepositorySink(repo, publish, zap.NewNop())

	err := sink.Emit(&models.Measurement{Side: "left"}, 60, sampleSnapshot())
	assert.NoError(t, err)
	assert.Len(t, repo.inserted, 1)
}

func TestDebugSink_RecordsEnrichedMeasurement(t *testing.T) {
	sink := proc.NewDebugSink()
	last := &models.Measurement{Side: "right", Timestamp: 90, HeartRate: 71, HRV: 40, BreathingRate: 14}

	require.NoError(t, sink.Emit(last, 62.5, sampleSnapshot()))

	entries := sink.Measurements()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "right", entry.Side)
	assert.Equal(t, 62.5, entry.SmoothedHeartRate)
	assert.Equal(t, []float64{60, 64}, entry.LastHeartRates)
	require.NotNil(t, entry.HRMovingAvg)
	assert.Equal(t, 62.0, *entry.HRMovingAvg)
	assert.Equal(t, 80, entry.HistoryLength)
	// epoch 120 / 90 的 UTC 可读时间
	assert.Equal(t, "1970-01-01T00:02:00", entry.CurrentTS)
	assert.Equal(t, "1970-01-01T00:01:30", entry.LastCombinedAt)
	// 调试输出不覆写原记录
	assert.Equal(t, 71.0, last.HeartRate)
}
