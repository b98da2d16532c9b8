package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"wisefido-vitals/internal/models"

	"github.com/google/uuid"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// VitalsConfig 生命体征处理服务特定配置
type VitalsConfig struct {
	Topic        string   // 压电帧订阅主题，如 "vitals/piezo/#"
	OutputStream string   // 输出数据流，如 "vitals:data:stream"
	Sides        []string // 处理的床侧，每侧一个独立处理器
	SensorCount  int      // 每侧传感器数量（1 或 2）

	InsertionFrequency int  // 每多少个 epoch 落库一次
	RollingAverageSize int  // 落库前的短窗滚动平均长度
	Debug              bool // 调试模式：落库改为内存增强记录

	Runtime models.RuntimeParams
}

// Config 服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	Vitals   VitalsConfig

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（环境变量，带默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "owlrd")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	// 实例唯一的 ClientID，避免多副本互踢
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-vitals-"+uuid.NewString()[:8])
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))

	cfg.Vitals.Topic = getEnv("VITALS_TOPIC", "vitals/piezo/#")
	cfg.Vitals.OutputStream = getEnv("STREAM_OUTPUT", "vitals:data:stream")
	cfg.Vitals.Sides = strings.Split(getEnv("VITALS_SIDES", "left,right"), ",")
	cfg.Vitals.SensorCount = getEnvInt("SENSOR_COUNT", 2)
	cfg.Vitals.InsertionFrequency = getEnvInt("INSERTION_FREQUENCY", 60)
	cfg.Vitals.RollingAverageSize = getEnvInt("ROLLING_AVERAGE_SIZE", 25)
	cfg.Vitals.Debug = getEnvBool("DEBUG_MODE", false)

	params := models.DefaultRuntimeParams()
	params.Window = getEnvInt("VITALS_WINDOW", params.Window)
	params.SlideBy = getEnvInt("VITALS_SLIDE_BY", params.SlideBy)
	params.MovingAvgSize = getEnvInt("MOVING_AVG_SIZE", params.MovingAvgSize)
	params.HRStdRange[0] = getEnvFloat("HR_STD_MIN", params.HRStdRange[0])
	params.HRStdRange[1] = getEnvFloat("HR_STD_MAX", params.HRStdRange[1])
	params.HRPercentile[0] = getEnvFloat("HR_PERCENTILE_LOW", params.HRPercentile[0])
	params.HRPercentile[1] = getEnvFloat("HR_PERCENTILE_HIGH", params.HRPercentile[1])
	params.SignalPercentile[0] = getEnvFloat("SIGNAL_PERCENTILE_LOW", params.SignalPercentile[0])
	params.SignalPercentile[1] = getEnvFloat("SIGNAL_PERCENTILE_HIGH", params.SignalPercentile[1])
	params.WindowSize = getEnvFloat("BEAT_WINDOW_SIZE", params.WindowSize)
	cfg.Vitals.Runtime = params

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
