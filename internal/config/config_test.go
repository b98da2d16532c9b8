package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"DB_HOST", "DB_PORT", "DB_NAME",
		"VITALS_TOPIC", "STREAM_OUTPUT", "VITALS_SIDES",
		"SENSOR_COUNT", "INSERTION_FREQUENCY", "ROLLING_AVERAGE_SIZE",
		"DEBUG_MODE", "MOVING_AVG_SIZE", "MQTT_CLIENT_ID",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "owlrd", cfg.Database.Database)

	assert.Equal(t, "vitals/piezo/#", cfg.Vitals.Topic)
	assert.Equal(t, "vitals:data:stream", cfg.Vitals.OutputStream)
	assert.Equal(t, []string{"left", "right"}, cfg.Vitals.Sides)
	assert.Equal(t, 2, cfg.Vitals.SensorCount)
	assert.Equal(t, 60, cfg.Vitals.InsertionFrequency)
	assert.Equal(t, 25, cfg.Vitals.RollingAverageSize)
	assert.False(t, cfg.Vitals.Debug)

	// 运行参数默认值
	assert.Equal(t, 120, cfg.Vitals.Runtime.MovingAvgSize)
	assert.Equal(t, [2]float64{1, 10}, cfg.Vitals.Runtime.HRStdRange)
	assert.Equal(t, [2]float64{15, 80}, cfg.Vitals.Runtime.HRPercentile)
	assert.Equal(t, [2]float64{0.2, 99.8}, cfg.Vitals.Runtime.SignalPercentile)
	assert.Equal(t, 0.65, cfg.Vitals.Runtime.WindowSize)

	// 未指定 ClientID 时生成实例唯一的默认值
	assert.True(t, strings.HasPrefix(cfg.MQTT.ClientID, "wisefido-vitals-"))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("VITALS_SIDES", "left")
	t.Setenv("SENSOR_COUNT", "1")
	t.Setenv("INSERTION_FREQUENCY", "30")
	t.Setenv("DEBUG_MODE", "true")
	t.Setenv("MOVING_AVG_SIZE", "60")
	t.Setenv("HR_STD_MAX", "8.5")
	t.Setenv("MQTT_QOS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, []string{"left"}, cfg.Vitals.Sides)
	assert.Equal(t, 1, cfg.Vitals.SensorCount)
	assert.Equal(t, 30, cfg.Vitals.InsertionFrequency)
	assert.True(t, cfg.Vitals.Debug)
	assert.Equal(t, 60, cfg.Vitals.Runtime.MovingAvgSize)
	assert.Equal(t, 8.5, cfg.Vitals.Runtime.HRStdRange[1])
	assert.Equal(t, byte(2), cfg.MQTT.QoS)
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("INSERTION_FREQUENCY", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Vitals.InsertionFrequency)
}
