package bluetooth

import (
	"fmt"
	"time"
)

// 事件源类型常量
const (
	SourceKindBlueZ = "bluez" // BlueZ D-Bus 事件源
	SourceKindBLE   = "ble"   // BLE 广播扫描事件源
	SourceKindMock  = "mock"  // 模拟事件源
)

// PolicyConfig 策略引擎组件配置
type PolicyConfig struct {
	EngineConfig  EngineConfig  `json:"engine_config"`  // 策略引擎配置
	FlagsConfig   FlagsConfig   `json:"flags_config"`   // 功能开关配置
	StorageConfig StorageConfig `json:"storage_config"` // 连接历史存储配置
	SourceConfig  SourceConfig  `json:"source_config"`  // 事件源配置
	LogConfig     LogConfig     `json:"log_config"`     // 日志配置
}

// EngineConfig 策略引擎核心配置
type EngineConfig struct {
	ConnectOtherTimeout time.Duration `json:"connect_other_timeout"` // 跨配置文件补连延迟
	QuietMode           bool          `json:"quiet_mode"`            // 静默模式初始值
}

// FlagsConfig 功能开关配置，控制服务发现时的策略提升范围
type FlagsConfig struct {
	NetworkAccessPromotion bool `json:"network_access_promotion"` // 允许网络访问配置文件策略提升
	HearingAidSupported    bool `json:"hearing_aid_supported"`    // 支持助听器配置文件
	LEAudioEnabled         bool `json:"le_audio_enabled"`         // 启用 LE 音频配置文件
}

// StorageConfig 连接历史存储配置
type StorageConfig struct {
	DataDir     string `json:"data_dir"`     // 数据目录
	HistoryFile string `json:"history_file"` // 连接历史文件名
}

// SourceConfig 事件源配置
type SourceConfig struct {
	Kind        string        `json:"kind"`         // 事件源类型：bluez、ble 或 mock
	AdapterName string        `json:"adapter_name"` // 适配器名称（bluez 事件源使用）
	ScanTimeout time.Duration `json:"scan_timeout"` // 单轮扫描时长（ble 事件源使用）
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `json:"level"`  // 日志级别
	Format string `json:"format"` // 日志格式：text 或 json
	Output string `json:"output"` // 输出目标
}

// DefaultConfig 返回默认配置
func DefaultConfig() PolicyConfig {
	return PolicyConfig{
		EngineConfig: EngineConfig{
			ConnectOtherTimeout: DefaultConnectOtherTimeout,
			QuietMode:           false,
		},
		FlagsConfig: FlagsConfig{
			NetworkAccessPromotion: true,
			HearingAidSupported:    true,
			LEAudioEnabled:         false,
		},
		StorageConfig: StorageConfig{
			DataDir:     DefaultDataDir,
			HistoryFile: DefaultHistoryFileName,
		},
		SourceConfig: SourceConfig{
			Kind:        SourceKindMock,
			AdapterName: "hci0",
			ScanTimeout: 30 * time.Second,
		},
		LogConfig: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Validate 验证配置的有效性
func (c *PolicyConfig) Validate() error {
	if c.EngineConfig.ConnectOtherTimeout <= 0 {
		return NewBluetoothError(ErrCodeInvalidParameter, "补连延迟时间必须大于0")
	}

	switch c.SourceConfig.Kind {
	case SourceKindBlueZ, SourceKindBLE, SourceKindMock:
	default:
		return NewBluetoothError(ErrCodeInvalidParameter,
			fmt.Sprintf("未知的事件源类型: %s", c.SourceConfig.Kind))
	}
	if c.SourceConfig.Kind == SourceKindBLE && c.SourceConfig.ScanTimeout <= 0 {
		return NewBluetoothError(ErrCodeInvalidParameter, "扫描时长必须大于0")
	}

	if c.StorageConfig.DataDir == "" {
		return NewBluetoothError(ErrCodeInvalidParameter, "数据目录不能为空")
	}
	if c.StorageConfig.HistoryFile == "" {
		return NewBluetoothError(ErrCodeInvalidParameter, "连接历史文件名不能为空")
	}

	return nil
}

// EngineBuilder 策略引擎构建器，支持链式配置
type EngineBuilder struct {
	config   PolicyConfig
	store    HistoryStore
	services []ProfileService
}

// NewEngineBuilder 创建新的策略引擎构建器
func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{
		config: DefaultConfig(),
	}
}

// WithConfig 设置完整配置
func (b *EngineBuilder) WithConfig(config PolicyConfig) *EngineBuilder {
	b.config = config
	return b
}

// WithConnectOtherTimeout 设置跨配置文件补连延迟
func (b *EngineBuilder) WithConnectOtherTimeout(timeout time.Duration) *EngineBuilder {
	b.config.EngineConfig.ConnectOtherTimeout = timeout
	return b
}

// WithFlags 设置功能开关
func (b *EngineBuilder) WithFlags(flags FlagsConfig) *EngineBuilder {
	b.config.FlagsConfig = flags
	return b
}

// EnableQuietMode 启用静默模式
func (b *EngineBuilder) EnableQuietMode() *EngineBuilder {
	b.config.EngineConfig.QuietMode = true
	return b
}

// WithHistoryStore 设置连接历史存储
func (b *EngineBuilder) WithHistoryStore(store HistoryStore) *EngineBuilder {
	b.store = store
	return b
}

// RegisterProfile 注册配置文件子系统
func (b *EngineBuilder) RegisterProfile(service ProfileService) *EngineBuilder {
	b.services = append(b.services, service)
	return b
}

// GetConfig 获取当前配置
func (b *EngineBuilder) GetConfig() PolicyConfig {
	return b.config
}

// Validate 验证构建器配置
func (b *EngineBuilder) Validate() error {
	if err := b.config.Validate(); err != nil {
		return err
	}
	if b.store == nil {
		return NewBluetoothError(ErrCodeInvalidParameter, "连接历史存储不能为空")
	}
	return nil
}

// Build 构建策略引擎实例
func (b *EngineBuilder) Build() (*PolicyEngine, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("构建验证失败: %w", err)
	}

	registry := NewProfileRegistry()
	for _, service := range b.services {
		registry.Register(service)
	}

	return NewPolicyEngine(b.config, registry, b.store), nil
}
