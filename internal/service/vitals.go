package service

import (
	"context"
	"database/sql"
	"fmt"

	"wisefido-vitals/internal/config"
	"wisefido-vitals/internal/consumer"
	"wisefido-vitals/internal/database"
	"wisefido-vitals/internal/models"
	"wisefido-vitals/internal/mqtt"
	"wisefido-vitals/internal/processor"
	rediscommon "wisefido-vitals/internal/redis"
	"wisefido-vitals/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// VitalsService 生命体征处理服务
//
// 组装数据库、Redis、MQTT、各床侧处理器和帧消费者。
type VitalsService struct {
	config     *config.Config
	logger     *zap.Logger
	db         *sql.DB
	redis      *redis.Client
	mqttClient *mqtt.Client
	consumer   *consumer.FrameConsumer
	debugSinks map[string]*processor.DebugSink // 仅调试模式
}

// NewVitalsService 创建生命体征处理服务
func NewVitalsService(cfg *config.Config, logger *zap.Logger) (*VitalsService, error) {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	mqttClient, err := mqtt.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	vitalsRepo := repository.NewVitalsRepository(db, logger)

	s := &VitalsService{
		config:     cfg,
		logger:     logger,
		db:         db,
		redis:      redisClient,
		mqttClient: mqttClient,
		debugSinks: make(map[string]*processor.DebugSink),
	}

	// 每个床侧一个独立处理器；调试模式改用内存记录
	processors := make(map[string]consumer.VitalsProcessor, len(cfg.Vitals.Sides))
	for _, side := range cfg.Vitals.Sides {
		var sink processor.VitalsSink
		if cfg.Vitals.Debug {
			debugSink := processor.NewDebugSink()
			s.debugSinks[side] = debugSink
			sink = debugSink
		} else {
			sink = processor.NewRepositorySink(vitalsRepo, s.publishVitals, logger)
		}

		extractor := processor.NewSignalExtractor(side, cfg.Vitals.Runtime, cfg.Vitals.Debug, logger)
		processors[side] = processor.New(
			side,
			cfg.Vitals.SensorCount,
			cfg.Vitals.Runtime,
			cfg.Vitals.InsertionFrequency,
			cfg.Vitals.RollingAverageSize,
			extractor,
			sink,
			logger,
		)
	}

	s.consumer = consumer.NewFrameConsumer(cfg, mqttClient, processors, logger)
	return s, nil
}

// publishVitals 将落库后的记录发布到输出流（下游报警/聚合服务）
func (s *VitalsService) publishVitals(m *models.Measurement) error {
	_, err := rediscommon.PublishJSONToStream(
		context.Background(),
		s.redis,
		s.config.Vitals.OutputStream,
		m,
	)
	return err
}

// Start 启动服务
func (s *VitalsService) Start(ctx context.Context) error {
	s.logger.Info("Starting vitals service components",
		zap.Strings("sides", s.config.Vitals.Sides),
		zap.Bool("debug", s.config.Vitals.Debug),
	)

	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start frame consumer: %w", err)
	}

	return nil
}

// Stop 停止服务
func (s *VitalsService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping vitals service")

	if s.consumer != nil {
		if err := s.consumer.Stop(ctx); err != nil {
			s.logger.Error("Error stopping consumer", zap.Error(err))
		}
	}

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	if s.redis != nil {
		rediscommon.Close(s.redis)
	}

	if s.db != nil {
		database.Close(s.db)
	}

	s.logger.Info("Vitals service stopped")
	return nil
}
