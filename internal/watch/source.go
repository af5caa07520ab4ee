package watch

import (
	"context"
	"fmt"
	"sync"

	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/pkg/bluetooth"
)

// EventSource 外部事件源接口。事件源观察蓝牙栈的变化并翻译为策略
// 引擎的事件，守护进程把事件通道泵入引擎收件箱
type EventSource interface {
	// Start 启动事件源
	Start(ctx context.Context) error
	// Stop 停止事件源并关闭事件通道
	Stop() error
	// GetStatus 获取组件状态
	GetStatus() bluetooth.ComponentStatus
	// Events 返回事件通道，事件源停止后通道被关闭
	Events() <-chan bluetooth.Event
}

// NewSource 根据配置创建事件源
func NewSource(config bluetooth.SourceConfig) (EventSource, error) {
	switch config.Kind {
	case bluetooth.SourceKindMock:
		return NewMockSource(), nil
	case bluetooth.SourceKindBLE:
		return NewBLESource(config), nil
	case bluetooth.SourceKindBlueZ:
		return NewBlueZSource(config), nil
	default:
		return nil, bluetooth.NewBluetoothError(bluetooth.ErrCodeInvalidParameter,
			fmt.Sprintf("未知的事件源类型: %s", config.Kind))
	}
}

// MockSource 模拟事件源，用于测试和演示。事件由调用方通过 Emit 注入
type MockSource struct {
	events chan bluetooth.Event
	status bluetooth.ComponentStatus
	mu     sync.Mutex
}

// NewMockSource 创建新的模拟事件源
func NewMockSource() *MockSource {
	return &MockSource{
		events: make(chan bluetooth.Event, bluetooth.DefaultEventChanSize),
		status: bluetooth.StatusStopped,
	}
}

// Start 启动模拟事件源
func (ms *MockSource) Start(ctx context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.status == bluetooth.StatusRunning {
		return bluetooth.NewBluetoothError(bluetooth.ErrCodeAlreadyExists, "模拟事件源已在运行")
	}
	ms.status = bluetooth.StatusRunning
	return nil
}

// Stop 停止模拟事件源并关闭事件通道
func (ms *MockSource) Stop() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.status != bluetooth.StatusRunning {
		return nil
	}
	ms.status = bluetooth.StatusStopped
	close(ms.events)
	return nil
}

// GetStatus 获取组件状态
func (ms *MockSource) GetStatus() bluetooth.ComponentStatus {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.status
}

// Events 返回事件通道
func (ms *MockSource) Events() <-chan bluetooth.Event {
	return ms.events
}

// Emit 注入一个事件，事件源未运行或通道已满时事件被丢弃（用于测试）
func (ms *MockSource) Emit(event bluetooth.Event) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.status != bluetooth.StatusRunning {
		return
	}
	select {
	case ms.events <- event:
	default:
	}
}
