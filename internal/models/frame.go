package models

import (
	"encoding/json"
	"fmt"
)

// PiezoFrame 压电床垫传感器的原始数据帧（MQTT 载荷）
//
// 每个 epoch（约 1 秒）每个床侧上报一帧，包含 1~2 路
// 原始采样序列（500 Hz，ADC 计数）。signal2 在单传感器
// 配置下缺省。
type PiezoFrame struct {
	DeviceID  string    `json:"device_id"`
	TenantID  string    `json:"tenant_id"`
	Side      string    `json:"side"`      // "left" 或 "right"
	Timestamp int64     `json:"timestamp"` // Unix 秒
	Signal1   []float64 `json:"signal1"`
	Signal2   []float64 `json:"signal2,omitempty"`
}

// ParsePiezoFrame 解析 MQTT 载荷为 PiezoFrame
func ParsePiezoFrame(payload []byte) (*PiezoFrame, error) {
	var frame PiezoFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return nil, fmt.Errorf("failed to unmarshal piezo frame: %w", err)
	}
	if frame.Side == "" {
		return nil, fmt.Errorf("piezo frame missing side")
	}
	if len(frame.Signal1) == 0 {
		return nil, fmt.Errorf("piezo frame missing signal1")
	}
	return &frame, nil
}
