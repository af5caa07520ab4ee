package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tinybt "tinygo.org/x/bluetooth"

	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/pkg/bluetooth"
)

// BLESource 基于 BLE 广播扫描的事件源。持续扫描周边广播，
// 把广播携带的服务UUID翻译为服务发现事件。适用于没有 BlueZ
// 管理通道的部署，只能产生服务发现类事件，连接状态变化
// 仍需各子系统自行上报
type BLESource struct {
	config  bluetooth.SourceConfig          // 事件源配置
	adapter *tinybt.Adapter                 // 底层 BLE 适配器
	events  chan bluetooth.Event            // 翻译后的事件通道
	seen    map[bluetooth.Address]time.Time // 每设备最近上报时间，用于去重
	status  bluetooth.ComponentStatus       // 组件状态
	mu      sync.Mutex                      // 保护 status 和 seen
	ctx     context.Context                 // 上下文
	cancel  context.CancelFunc              // 取消函数
	wg      sync.WaitGroup                  // 等待组
	logger  *slog.Logger                    // 日志记录器
}

// NewBLESource 创建新的 BLE 扫描事件源
func NewBLESource(config bluetooth.SourceConfig) *BLESource {
	if config.ScanTimeout <= 0 {
		config.ScanTimeout = 30 * time.Second
	}
	return &BLESource{
		config: config,
		events: make(chan bluetooth.Event, bluetooth.DefaultEventChanSize),
		seen:   make(map[bluetooth.Address]time.Time),
		status: bluetooth.StatusStopped,
		logger: slog.Default().With("component", "ble_source"),
	}
}

// Start 启用适配器并开始后台扫描
func (s *BLESource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == bluetooth.StatusRunning {
		return bluetooth.NewBluetoothError(bluetooth.ErrCodeAlreadyExists, "BLE 事件源已在运行")
	}
	s.status = bluetooth.StatusStarting

	s.adapter = tinybt.DefaultAdapter
	if err := s.adapter.Enable(); err != nil {
		s.status = bluetooth.StatusError
		return bluetooth.WrapError(err, bluetooth.ErrCodeAdapterEnable,
			"无法启用蓝牙适配器", "", "start")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run()

	s.status = bluetooth.StatusRunning
	s.logger.Info("BLE 事件源已启动", "scan_window", s.config.ScanTimeout)

	// 适配器启用成功即视为上电
	s.emit(bluetooth.Event{
		Type:      bluetooth.EventTypeAdapterPoweredOn,
		Timestamp: time.Now(),
	})
	return nil
}

// Stop 停止扫描并关闭事件通道
func (s *BLESource) Stop() error {
	s.mu.Lock()
	if s.status != bluetooth.StatusRunning {
		s.mu.Unlock()
		return nil
	}
	s.status = bluetooth.StatusStopping
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	close(s.events)

	s.mu.Lock()
	s.status = bluetooth.StatusStopped
	s.mu.Unlock()

	s.logger.Info("BLE 事件源已停止")
	return nil
}

// GetStatus 获取组件状态
func (s *BLESource) GetStatus() bluetooth.ComponentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Events 返回事件通道
func (s *BLESource) Events() <-chan bluetooth.Event {
	return s.events
}

// run 扫描主循环，Scan 会阻塞直到 StopScan 被调用
func (s *BLESource) run() {
	defer s.wg.Done()

	go func() {
		<-s.ctx.Done()
		if err := s.adapter.StopScan(); err != nil {
			s.logger.Debug("停止扫描失败", "error", err)
		}
	}()

	err := s.adapter.Scan(func(adapter *tinybt.Adapter, result tinybt.ScanResult) {
		s.handleAdvertisement(result)
	})
	if err != nil && s.ctx.Err() == nil {
		s.logger.Error("扫描循环异常退出", "error", err)
	}
}

// handleAdvertisement 翻译单条广播，同一设备在扫描窗口内只上报一次
func (s *BLESource) handleAdvertisement(result tinybt.ScanResult) {
	peer := bluetooth.Address(result.Address.String())
	if peer.IsZero() {
		return
	}

	raw := result.AdvertisementPayload.ServiceUUIDs()
	if len(raw) == 0 {
		return
	}
	values := make([]string, 0, len(raw))
	for _, u := range raw {
		values = append(values, u.String())
	}
	uuids := parseServiceUUIDs(values)
	if len(uuids) == 0 {
		return
	}

	s.mu.Lock()
	if last, ok := s.seen[peer]; ok && time.Since(last) < s.config.ScanTimeout {
		s.mu.Unlock()
		return
	}
	s.seen[peer] = time.Now()
	s.mu.Unlock()

	s.logger.Debug("收到设备广播",
		"peer", peer.String(),
		"name", result.LocalName(),
		"rssi", result.RSSI,
		"uuid_count", len(uuids))

	s.emit(bluetooth.Event{
		Type:      bluetooth.EventTypeServiceUUIDsCollected,
		Peer:      peer,
		UUIDs:     uuids,
		Timestamp: time.Now(),
	})
}

// emit 非阻塞发送事件，通道满时丢弃并记录日志
func (s *BLESource) emit(event bluetooth.Event) {
	select {
	case s.events <- event:
	default:
		s.logger.Debug("事件通道已满，丢弃事件", "event_type", event.Type.String())
	}
}
