package consumer

import (
	"errors"
	"testing"

	"wisefido-vitals/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProcessor struct {
	epochs []int64
	err    error
}

func (f *fakeProcessor) CalculateVitals(epoch int64, signal1, signal2 []float64) error {
	if f.err != nil {
		return f.err
	}
	f.epochs = append(f.epochs, epoch)
	return nil
}

func newTestConsumer(processors map[string]VitalsProcessor) *FrameConsumer {
	cfg := &config.Config{}
	cfg.Vitals.Topic = "vitals/piezo/#"
	return NewFrameConsumer(cfg, nil, processors, zap.NewNop())
}

func TestHandleMessage_DispatchesBySide(t *testing.T) {
	left := &fakeProcessor{}
	right := &fakeProcessor{}
	c := newTestConsumer(map[string]VitalsProcessor{"left": left, "right": right})

	payload := []byte(`{"device_id":"bed-01","side":"left","timestamp":1700000000,"signal1":[1,2,3],"signal2":[4,5,6]}`)
	require.NoError(t, c.handleMessage("vitals/piezo/bed-01", payload))

	assert.Equal(t, []int64{1700000000}, left.epochs)
	assert.Empty(t, right.epochs)
}

func TestHandleMessage_UnknownSideIgnored(t *testing.T) {
	left := &fakeProcessor{}
	c := newTestConsumer(map[string]VitalsProcessor{"left": left})

	payload := []byte(`{"side":"middle","timestamp":1,"signal1":[1]}`)
	assert.NoError(t, c.handleMessage("vitals/piezo/bed-01", payload))
	assert.Empty(t, left.epochs)
}

func TestHandleMessage_InvalidPayload(t *testing.T) {
	c := newTestConsumer(map[string]VitalsProcessor{})

	err := c.handleMessage("vitals/piezo/bed-01", []byte("not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse piezo frame")

	// 缺少必填字段
	err = c.handleMessage("vitals/piezo/bed-01", []byte(`{"side":"left"}`))
	assert.Error(t, err)
}

func TestHandleMessage_ProcessorErrorPropagates(t *testing.T) {
	procErr := errors.New("insert failed")
	c := newTestConsumer(map[string]VitalsProcessor{"left": &fakeProcessor{err: procErr}})

	payload := []byte(`{"side":"left","timestamp":5,"signal1":[1,2]}`)
	err := c.handleMessage("vitals/piezo/bed-01", payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, procErr)
}
