package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/pkg/bluetooth"
)

// writeConfigFile 将配置序列化写入指定路径（测试辅助）
func writeConfigFile(t *testing.T, path string, cfg bluetooth.PolicyConfig) {
	t.Helper()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		t.Fatalf("序列化配置失败: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
}

// TestManager_LoadMissingFile 测试加载不存在的配置文件时返回默认配置
func TestManager_LoadMissingFile(t *testing.T) {
	manager := NewManager()
	path := filepath.Join(t.TempDir(), "missing.json")

	cfg, err := manager.Load(path)
	if err != nil {
		t.Fatalf("加载不存在的配置文件失败: %v", err)
	}
	if cfg == nil {
		t.Fatal("配置不应该为空")
	}

	defaults := bluetooth.DefaultConfig()
	if cfg.EngineConfig.ConnectOtherTimeout != defaults.EngineConfig.ConnectOtherTimeout {
		t.Errorf("期望默认补连延迟 %v，实际得到 %v",
			defaults.EngineConfig.ConnectOtherTimeout, cfg.EngineConfig.ConnectOtherTimeout)
	}
}

// TestManager_LoadValidFile 测试加载有效的配置文件
func TestManager_LoadValidFile(t *testing.T) {
	manager := NewManager()
	path := filepath.Join(t.TempDir(), "policy.json")

	want := bluetooth.DefaultConfig()
	want.EngineConfig.ConnectOtherTimeout = 10 * time.Second
	want.FlagsConfig.LEAudioEnabled = true
	writeConfigFile(t, path, want)

	cfg, err := manager.Load(path)
	if err != nil {
		t.Fatalf("加载配置文件失败: %v", err)
	}
	if cfg.EngineConfig.ConnectOtherTimeout != 10*time.Second {
		t.Errorf("期望补连延迟 10s，实际得到 %v", cfg.EngineConfig.ConnectOtherTimeout)
	}
	if !cfg.FlagsConfig.LEAudioEnabled {
		t.Error("期望 LE 音频开关为打开")
	}
}

// TestManager_LoadRejectsBadInput 测试加载损坏或无效的配置文件时返回错误
func TestManager_LoadRejectsBadInput(t *testing.T) {
	manager := NewManager()
	dir := t.TempDir()

	garbled := filepath.Join(dir, "garbled.json")
	if err := os.WriteFile(garbled, []byte("not json"), 0644); err != nil {
		t.Fatalf("写入损坏配置文件失败: %v", err)
	}
	if _, err := manager.Load(garbled); err == nil {
		t.Fatal("期望加载损坏的配置文件时返回错误")
	}

	// JSON 合法但配置值非法
	invalid := bluetooth.DefaultConfig()
	invalid.EngineConfig.ConnectOtherTimeout = -1
	invalidPath := filepath.Join(dir, "invalid.json")
	writeConfigFile(t, invalidPath, invalid)
	if _, err := manager.Load(invalidPath); err == nil {
		t.Fatal("期望加载非法配置值时返回错误")
	}
}

// TestManager_SaveRoundTrip 测试保存后可重新加载出相同内容
func TestManager_SaveRoundTrip(t *testing.T) {
	manager := NewManager()
	path := filepath.Join(t.TempDir(), "nested", "policy.json")

	cfg := bluetooth.DefaultConfig()
	cfg.SourceConfig.Kind = bluetooth.SourceKindBLE
	cfg.SourceConfig.ScanTimeout = 15 * time.Second

	if err := manager.Save(path, &cfg); err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("配置文件未创建: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("期望临时文件在保存后被清理")
	}

	loaded, err := manager.Load(path)
	if err != nil {
		t.Fatalf("重新加载配置失败: %v", err)
	}
	if loaded.SourceConfig.Kind != bluetooth.SourceKindBLE {
		t.Errorf("期望事件源类型 'ble'，实际得到 '%s'", loaded.SourceConfig.Kind)
	}
}

// TestManager_SaveRejectsInvalid 测试保存空配置或非法配置时返回错误
func TestManager_SaveRejectsInvalid(t *testing.T) {
	manager := NewManager()
	path := filepath.Join(t.TempDir(), "policy.json")

	if err := manager.Save(path, nil); err == nil {
		t.Fatal("期望保存空配置时返回错误")
	}

	invalid := bluetooth.DefaultConfig()
	invalid.EngineConfig.ConnectOtherTimeout = -1
	if err := manager.Save(path, &invalid); err == nil {
		t.Fatal("期望保存非法配置时返回错误")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("期望非法配置不产生配置文件")
	}
}

// TestManager_WatchDeliversChange 测试文件变化后监控通道收到新配置
func TestManager_WatchDeliversChange(t *testing.T) {
	manager := NewManager()
	path := filepath.Join(t.TempDir(), "policy.json")
	writeConfigFile(t, path, bluetooth.DefaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changes, err := manager.Watch(ctx, path)
	if err != nil {
		t.Fatalf("开始监控配置文件失败: %v", err)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		updated := bluetooth.DefaultConfig()
		updated.EngineConfig.QuietMode = true
		data, _ := json.MarshalIndent(updated, "", "  ")
		os.WriteFile(path, data, 0644)
	}()

	select {
	case cfg := <-changes:
		if cfg == nil {
			t.Fatal("接收到空配置")
		}
		if !cfg.EngineConfig.QuietMode {
			t.Error("期望变更后的配置启用静默模式")
		}
	case <-ctx.Done():
		t.Fatal("等待配置变更通知超时")
	}
}

// TestManager_WatchStopsOnCancel 测试取消上下文后监控通道被关闭
func TestManager_WatchStopsOnCancel(t *testing.T) {
	manager := NewManager()
	path := filepath.Join(t.TempDir(), "policy.json")
	writeConfigFile(t, path, bluetooth.DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	changes, err := manager.Watch(ctx, path)
	if err != nil {
		t.Fatalf("开始监控配置文件失败: %v", err)
	}
	cancel()

	select {
	case _, ok := <-changes:
		if ok {
			t.Error("期望取消后不再收到配置变更")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("等待监控通道关闭超时")
	}
}

// TestManager_ApplyNotifiesSubscribers 测试应用配置后订阅者收到新旧配置
func TestManager_ApplyNotifiesSubscribers(t *testing.T) {
	manager := NewManager()

	var gotOld, gotNew *bluetooth.PolicyConfig
	manager.Subscribe(func(oldCfg, newCfg *bluetooth.PolicyConfig) error {
		gotOld = oldCfg
		gotNew = newCfg
		return nil
	})

	cfg := bluetooth.DefaultConfig()
	cfg.EngineConfig.ConnectOtherTimeout = 8 * time.Second
	if err := manager.Apply(&cfg); err != nil {
		t.Fatalf("应用配置失败: %v", err)
	}

	if gotNew == nil {
		t.Fatal("配置变更回调未被调用")
	}
	if gotOld != nil {
		t.Error("期望首次应用配置时旧配置为空")
	}
	if manager.Current().EngineConfig.ConnectOtherTimeout != 8*time.Second {
		t.Errorf("期望补连延迟 8s，实际得到 %v",
			manager.Current().EngineConfig.ConnectOtherTimeout)
	}
}

// TestManager_ApplyRejectsInvalid 测试应用非法配置时返回错误且不覆盖当前配置
func TestManager_ApplyRejectsInvalid(t *testing.T) {
	manager := NewManager()

	good := bluetooth.DefaultConfig()
	good.EngineConfig.ConnectOtherTimeout = 8 * time.Second
	if err := manager.Apply(&good); err != nil {
		t.Fatalf("应用有效配置失败: %v", err)
	}

	if err := manager.Apply(nil); err == nil {
		t.Fatal("期望应用空配置时返回错误")
	}
	bad := bluetooth.DefaultConfig()
	bad.StorageConfig.DataDir = ""
	if err := manager.Apply(&bad); err == nil {
		t.Fatal("期望应用非法配置时返回错误")
	}

	if manager.Current().EngineConfig.ConnectOtherTimeout != 8*time.Second {
		t.Error("期望非法配置不覆盖当前配置")
	}
}

// TestManager_SubscribeCancel 测试取消订阅后回调不再被调用
func TestManager_SubscribeCancel(t *testing.T) {
	manager := NewManager()

	var firstCalls, secondCalls int
	unsubscribe := manager.Subscribe(func(oldCfg, newCfg *bluetooth.PolicyConfig) error {
		firstCalls++
		return nil
	})
	manager.Subscribe(func(oldCfg, newCfg *bluetooth.PolicyConfig) error {
		secondCalls++
		return nil
	})

	cfg := bluetooth.DefaultConfig()
	if err := manager.Apply(&cfg); err != nil {
		t.Fatalf("应用配置失败: %v", err)
	}
	if firstCalls != 1 || secondCalls != 1 {
		t.Fatalf("期望两个订阅者各被调用一次，实际 %d/%d", firstCalls, secondCalls)
	}

	unsubscribe()

	next := bluetooth.DefaultConfig()
	next.EngineConfig.ConnectOtherTimeout = 7 * time.Second
	if err := manager.Apply(&next); err != nil {
		t.Fatalf("应用配置失败: %v", err)
	}
	if firstCalls != 1 {
		t.Errorf("期望已取消的订阅者不再被调用，实际调用 %d 次", firstCalls)
	}
	if secondCalls != 2 {
		t.Errorf("期望保留的订阅者再次被调用，实际调用 %d 次", secondCalls)
	}
}

// TestManager_CurrentDefaults 测试未应用任何配置时返回默认配置副本
func TestManager_CurrentDefaults(t *testing.T) {
	manager := NewManager()

	cfg := manager.Current()
	defaults := bluetooth.DefaultConfig()
	if cfg.EngineConfig.ConnectOtherTimeout != defaults.EngineConfig.ConnectOtherTimeout {
		t.Errorf("期望默认补连延迟 %v，实际得到 %v",
			defaults.EngineConfig.ConnectOtherTimeout, cfg.EngineConfig.ConnectOtherTimeout)
	}

	// 修改返回的副本不影响管理器内部状态
	cfg.EngineConfig.QuietMode = true
	if manager.Current().EngineConfig.QuietMode {
		t.Error("期望返回的配置为副本")
	}
}
