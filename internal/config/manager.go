package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/pkg/bluetooth"
)

// watchInterval 配置文件变化的轮询间隔
const watchInterval = 1 * time.Second

// ChangeCallback 配置变更回调函数类型，首次应用配置时 oldCfg 为 nil
type ChangeCallback func(oldCfg, newCfg *bluetooth.PolicyConfig) error

// Manager 策略配置管理器接口
type Manager interface {
	// Load 从文件加载策略配置，文件缺失时返回默认配置
	Load(path string) (*bluetooth.PolicyConfig, error)
	// Save 原子写入策略配置到文件
	Save(path string, cfg *bluetooth.PolicyConfig) error
	// Watch 轮询监控配置文件变化，返回新配置的通道
	Watch(ctx context.Context, path string) (<-chan *bluetooth.PolicyConfig, error)
	// Subscribe 注册配置变更回调，返回取消注册函数
	Subscribe(cb ChangeCallback) (cancel func())
	// Current 返回当前生效配置的副本
	Current() *bluetooth.PolicyConfig
	// Apply 校验并应用新配置，随后通知全部订阅者
	Apply(cfg *bluetooth.PolicyConfig) error
}

// fileManager 基于 JSON 文件与轮询监控的策略配置管理器
type fileManager struct {
	mu       sync.RWMutex
	current  *bluetooth.PolicyConfig        // 当前生效配置
	subs     map[int]ChangeCallback         // 订阅者表，按注册序号索引
	nextSub  int                            // 下一个订阅序号
	watchers map[string]context.CancelFunc  // 按路径索引的监控取消函数
	logger   *slog.Logger
}

// NewManager 创建策略配置管理器
func NewManager() Manager {
	return &fileManager{
		subs:     make(map[int]ChangeCallback),
		watchers: make(map[string]context.CancelFunc),
		logger:   slog.Default().With("component", "config_manager"),
	}
}

// Load 从文件加载策略配置，文件缺失时返回默认配置
func (m *fileManager) Load(path string) (*bluetooth.PolicyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Warn("策略配置文件不存在，使用默认配置", "path", path)
			cfg := bluetooth.DefaultConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("无法读取策略配置文件 %s: %w", path, err)
	}

	var cfg bluetooth.PolicyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("无法解析策略配置文件 %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("策略配置验证失败: %w", err)
	}

	m.logger.Info("策略配置加载成功", "path", path)
	return &cfg, nil
}

// Save 原子写入策略配置到文件，先写临时文件再重命名
func (m *fileManager) Save(path string, cfg *bluetooth.PolicyConfig) error {
	if cfg == nil {
		return fmt.Errorf("策略配置不能为空")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("策略配置验证失败: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("无法创建配置目录 %s: %w", filepath.Dir(path), err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("无法序列化策略配置: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("无法写入临时配置文件 %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("无法替换配置文件 %s: %w", path, err)
	}

	m.logger.Info("策略配置保存成功", "path", path)
	return nil
}

// Watch 轮询监控配置文件变化，重复监控同一路径时取消之前的监控
func (m *fileManager) Watch(ctx context.Context, path string) (<-chan *bluetooth.PolicyConfig, error) {
	m.mu.Lock()
	if cancel, ok := m.watchers[path]; ok {
		cancel()
	}
	watchCtx, cancel := context.WithCancel(ctx)
	m.watchers[path] = cancel
	m.mu.Unlock()

	changes := make(chan *bluetooth.PolicyConfig, 1)
	go m.pollFile(watchCtx, path, changes)

	m.logger.Info("开始监控策略配置文件", "path", path)
	return changes, nil
}

// pollFile 按固定间隔检查文件修改时间，变化时重新加载并推送新配置
func (m *fileManager) pollFile(ctx context.Context, path string, changes chan<- *bluetooth.PolicyConfig) {
	defer close(changes)

	var lastMod time.Time
	if stat, err := os.Stat(path); err == nil {
		lastMod = stat.ModTime()
	}

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("停止监控策略配置文件", "path", path)
			return
		case <-ticker.C:
		}

		stat, err := os.Stat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				m.logger.Error("检查配置文件状态失败", "path", path, "error", err)
			}
			continue
		}
		if !stat.ModTime().After(lastMod) {
			continue
		}
		lastMod = stat.ModTime()
		m.logger.Info("检测到策略配置文件变化", "path", path)

		cfg, err := m.Load(path)
		if err != nil {
			m.logger.Error("重新加载策略配置失败", "path", path, "error", err)
			continue
		}

		select {
		case changes <- cfg:
		case <-ctx.Done():
			return
		default:
			m.logger.Warn("配置变更通道已满，跳过本次通知", "path", path)
		}
	}
}

// Subscribe 注册配置变更回调，返回的函数用于取消注册
func (m *fileManager) Subscribe(cb ChangeCallback) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = cb
	m.logger.Debug("注册配置变更回调", "subscribers", len(m.subs))

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Current 返回当前生效配置的副本，尚未应用过配置时返回默认配置
func (m *fileManager) Current() *bluetooth.PolicyConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		cfg := bluetooth.DefaultConfig()
		return &cfg
	}
	cfg := *m.current
	return &cfg
}

// Apply 校验并应用新配置，逐个通知订阅者，回调失败不回滚配置
func (m *fileManager) Apply(cfg *bluetooth.PolicyConfig) error {
	if cfg == nil {
		return fmt.Errorf("策略配置不能为空")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("策略配置验证失败: %w", err)
	}

	m.mu.Lock()
	oldCfg := m.current
	m.current = cfg
	subs := make([]ChangeCallback, 0, len(m.subs))
	for _, cb := range m.subs {
		subs = append(subs, cb)
	}
	m.mu.Unlock()

	for _, cb := range subs {
		if err := cb(oldCfg, cfg); err != nil {
			m.logger.Error("配置变更回调执行失败", "error", err)
		}
	}

	m.logger.Info("策略配置更新成功")
	return nil
}
