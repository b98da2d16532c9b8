package consumer

import (
	"context"
	"fmt"

	"wisefido-vitals/internal/config"
	"wisefido-vitals/internal/models"
	"wisefido-vitals/internal/mqtt"

	"go.uber.org/zap"
)

// VitalsProcessor 一个床侧的 epoch 处理接口（processor.Processor 实现）
type VitalsProcessor interface {
	CalculateVitals(epoch int64, signal1, signal2 []float64) error
}

// FrameConsumer 压电帧 MQTT 消费者
//
// 订阅传感器上报主题，把每帧派发给对应床侧的处理器。
// 同一订阅的回调按到达顺序串行执行，各处理器因此天然单线程。
type FrameConsumer struct {
	config     *config.Config
	mqttClient *mqtt.Client
	processors map[string]VitalsProcessor // 按床侧索引
	logger     *zap.Logger
}

// NewFrameConsumer 创建压电帧消费者
func NewFrameConsumer(
	cfg *config.Config,
	mqttClient *mqtt.Client,
	processors map[string]VitalsProcessor,
	logger *zap.Logger,
) *FrameConsumer {
	return &FrameConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		processors: processors,
		logger:     logger,
	}
}

// Start 启动消费者
func (c *FrameConsumer) Start(ctx context.Context) error {
	topic := c.config.Vitals.Topic
	if topic == "" {
		return fmt.Errorf("vitals MQTT topic not configured")
	}

	if err := c.mqttClient.Subscribe(topic, c.config.MQTT.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to vitals topic: %w", err)
	}

	c.logger.Info("Frame consumer started",
		zap.String("topic", topic),
		zap.Int("processors", len(c.processors)),
	)

	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *FrameConsumer) Stop(ctx context.Context) error {
	topic := c.config.Vitals.Topic
	if topic != "" {
		if err := c.mqttClient.Unsubscribe(topic); err != nil {
			c.logger.Error("Failed to unsubscribe", zap.Error(err))
		}
	}

	c.logger.Info("Frame consumer stopped")
	return nil
}

// handleMessage 处理单帧：解析后派发给对应床侧的处理器
//
// 单帧的解析或处理失败只记录日志，不中断订阅。
func (c *FrameConsumer) handleMessage(topic string, payload []byte) error {
	frame, err := models.ParsePiezoFrame(payload)
	if err != nil {
		return fmt.Errorf("failed to parse piezo frame: %w", err)
	}

	proc, ok := c.processors[frame.Side]
	if !ok {
		c.logger.Warn("No processor for side",
			zap.String("side", frame.Side),
			zap.String("device_id", frame.DeviceID),
		)
		return nil
	}

	if err := proc.CalculateVitals(frame.Timestamp, frame.Signal1, frame.Signal2); err != nil {
		return fmt.Errorf("failed to process epoch %d for side %s: %w", frame.Timestamp, frame.Side, err)
	}

	c.logger.Debug("Processed piezo frame",
		zap.String("side", frame.Side),
		zap.Int64("epoch", frame.Timestamp),
		zap.Int("samples", len(frame.Signal1)),
		zap.Bool("dual_sensor", len(frame.Signal2) > 0),
	)
	return nil
}
