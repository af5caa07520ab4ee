//go:build !linux

package watch

import (
	"context"

	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/pkg/bluetooth"
)

// BlueZSource 非 Linux 平台的占位实现，启动时直接报错
type BlueZSource struct {
	events chan bluetooth.Event // 事件通道，始终为空
}

// NewBlueZSource 创建新的 BlueZ 事件源占位
func NewBlueZSource(config bluetooth.SourceConfig) *BlueZSource {
	return &BlueZSource{
		events: make(chan bluetooth.Event),
	}
}

// Start 启动事件源，非 Linux 平台不支持
func (s *BlueZSource) Start(ctx context.Context) error {
	return bluetooth.NewBluetoothError(bluetooth.ErrCodeSourceUnavailable,
		"BlueZ 事件源仅支持 Linux 平台")
}

// Stop 停止事件源
func (s *BlueZSource) Stop() error {
	return nil
}

// GetStatus 获取组件状态
func (s *BlueZSource) GetStatus() bluetooth.ComponentStatus {
	return bluetooth.StatusStopped
}

// Events 返回事件通道
func (s *BlueZSource) Events() <-chan bluetooth.Event {
	return s.events
}
