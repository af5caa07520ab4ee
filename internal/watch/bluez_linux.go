//go:build linux

package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dbus "github.com/godbus/dbus/v5"

	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/pkg/bluetooth"
)

// BlueZSource 基于 BlueZ D-Bus 信号的事件源。订阅适配器和设备对象的
// 属性变化，翻译为策略引擎事件：适配器上电、设备服务UUID集合、
// 设备链路建立。配置文件粒度的状态变化由各子系统自行上报，
// 不经过本事件源
type BlueZSource struct {
	config bluetooth.SourceConfig    // 事件源配置
	bus    *dbus.Conn                // 系统总线连接
	sigCh  chan *dbus.Signal         // D-Bus 信号通道
	events chan bluetooth.Event      // 翻译后的事件通道
	status bluetooth.ComponentStatus // 组件状态
	mu     sync.Mutex                // 保护 status 和 bus
	ctx    context.Context           // 上下文
	cancel context.CancelFunc        // 取消函数
	wg     sync.WaitGroup            // 等待组
	logger *slog.Logger              // 日志记录器
}

// NewBlueZSource 创建新的 BlueZ 事件源
func NewBlueZSource(config bluetooth.SourceConfig) *BlueZSource {
	return &BlueZSource{
		config: config,
		events: make(chan bluetooth.Event, bluetooth.DefaultEventChanSize),
		status: bluetooth.StatusStopped,
		logger: slog.Default().With("component", "bluez_source"),
	}
}

// Start 连接系统总线并开始订阅信号
func (s *BlueZSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == bluetooth.StatusRunning {
		return bluetooth.NewBluetoothError(bluetooth.ErrCodeAlreadyExists, "BlueZ 事件源已在运行")
	}
	s.status = bluetooth.StatusStarting

	bus, err := dbus.SystemBus()
	if err != nil {
		s.status = bluetooth.StatusError
		return bluetooth.WrapError(err, bluetooth.ErrCodeBusConnect,
			"无法连接系统总线", "", "start")
	}
	s.bus = bus

	if err := bus.AddMatchSignal(
		dbus.WithMatchInterface(propsIface),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		s.status = bluetooth.StatusError
		return bluetooth.WrapError(err, bluetooth.ErrCodeSourceUnavailable,
			"无法订阅属性变化信号", "", "start")
	}
	if err := bus.AddMatchSignal(
		dbus.WithMatchInterface(objManagerIface),
		dbus.WithMatchMember("InterfacesAdded"),
	); err != nil {
		s.status = bluetooth.StatusError
		return bluetooth.WrapError(err, bluetooth.ErrCodeSourceUnavailable,
			"无法订阅对象新增信号", "", "start")
	}

	s.sigCh = make(chan *dbus.Signal, 16)
	bus.Signal(s.sigCh)

	// 用当前已存在的对象预热，错过启动前状态的事件在这里补上
	if err := s.primeFromManagedObjects(); err != nil {
		s.logger.Warn("读取托管对象失败，跳过预热", "error", err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run()

	s.status = bluetooth.StatusRunning
	s.logger.Info("BlueZ 事件源已启动", "adapter", s.config.AdapterName)
	return nil
}

// Stop 停止事件源并关闭事件通道
func (s *BlueZSource) Stop() error {
	s.mu.Lock()
	if s.status != bluetooth.StatusRunning {
		s.mu.Unlock()
		return nil
	}
	s.status = bluetooth.StatusStopping
	s.mu.Unlock()

	s.cancel()
	s.bus.RemoveSignal(s.sigCh)
	_ = s.bus.RemoveMatchSignal(
		dbus.WithMatchInterface(propsIface),
		dbus.WithMatchMember("PropertiesChanged"),
	)
	_ = s.bus.RemoveMatchSignal(
		dbus.WithMatchInterface(objManagerIface),
		dbus.WithMatchMember("InterfacesAdded"),
	)
	s.wg.Wait()
	s.bus.Close()
	close(s.events)

	s.mu.Lock()
	s.status = bluetooth.StatusStopped
	s.mu.Unlock()

	s.logger.Info("BlueZ 事件源已停止")
	return nil
}

// GetStatus 获取组件状态
func (s *BlueZSource) GetStatus() bluetooth.ComponentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Events 返回事件通道
func (s *BlueZSource) Events() <-chan bluetooth.Event {
	return s.events
}

// run 信号处理主循环
func (s *BlueZSource) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case sig := <-s.sigCh:
			if sig == nil {
				continue
			}
			s.handleSignal(sig)
		}
	}
}

// handleSignal 翻译单个 D-Bus 信号
func (s *BlueZSource) handleSignal(sig *dbus.Signal) {
	switch sig.Name {
	case propertiesChangedSignal:
		if len(sig.Body) < 2 {
			return
		}
		iface, _ := sig.Body[0].(string)
		changed, _ := sig.Body[1].(map[string]dbus.Variant)
		if changed == nil {
			return
		}

		switch iface {
		case adapterIface:
			s.handleAdapterProperties(sig.Path, changed)
		case deviceIface:
			s.handleDeviceProperties(sig.Path, changed)
		}

	case interfacesAddedSignal:
		if len(sig.Body) < 2 {
			return
		}
		path, _ := sig.Body[0].(dbus.ObjectPath)
		ifaces, _ := sig.Body[1].(map[string]map[string]dbus.Variant)
		if props, ok := ifaces[deviceIface]; ok {
			s.handleDeviceProperties(path, props)
		}
	}
}

// handleAdapterProperties 处理适配器属性变化，只关注配置的适配器
func (s *BlueZSource) handleAdapterProperties(path dbus.ObjectPath, props map[string]dbus.Variant) {
	if path != adapterObjectPath(s.config.AdapterName) {
		return
	}

	if v, ok := props["Powered"]; ok {
		if powered, ok := boolFromVariant(v); ok && powered {
			s.logger.Info("适配器已上电", "adapter", s.config.AdapterName)
			s.emit(bluetooth.Event{
				Type:      bluetooth.EventTypeAdapterPoweredOn,
				Timestamp: time.Now(),
			})
		}
	}
}

// handleDeviceProperties 处理设备属性变化
func (s *BlueZSource) handleDeviceProperties(path dbus.ObjectPath, props map[string]dbus.Variant) {
	peer, ok := addressFromObjectPath(path)
	if !ok {
		return
	}

	if v, ok := props["UUIDs"]; ok {
		if uuids, ok := uuidsFromVariant(v); ok && len(uuids) > 0 {
			s.emit(bluetooth.Event{
				Type:      bluetooth.EventTypeServiceUUIDsCollected,
				Peer:      peer,
				UUIDs:     uuids,
				Timestamp: time.Now(),
			})
		}
	}

	if v, ok := props["Connected"]; ok {
		if connected, ok := boolFromVariant(v); ok && connected {
			s.emit(bluetooth.Event{
				Type:      bluetooth.EventTypeLinkEstablished,
				Peer:      peer,
				Timestamp: time.Now(),
			})
		}
	}
}

// primeFromManagedObjects 读取当前托管对象，补发启动前已存在的状态
func (s *BlueZSource) primeFromManagedObjects() error {
	obj := s.bus.Object(bluezService, bluezRootPath)

	var objs map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := obj.Call(objManagerIface+".GetManagedObjects", 0).Store(&objs); err != nil {
		return err
	}

	for path, ifaces := range objs {
		if props, ok := ifaces[adapterIface]; ok {
			s.handleAdapterProperties(path, props)
		}
		if props, ok := ifaces[deviceIface]; ok {
			s.handleDeviceProperties(path, props)
		}
	}
	return nil
}

// emit 非阻塞发送事件，通道满时丢弃并记录日志
func (s *BlueZSource) emit(event bluetooth.Event) {
	select {
	case s.events <- event:
	default:
		s.logger.Debug("事件通道已满，丢弃事件", "event_type", event.Type.String())
	}
}
