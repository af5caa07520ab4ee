package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/pkg/bluetooth"
)

// PeerRecord 单个设备的连接历史记录
type PeerRecord struct {
	Policies        map[bluetooth.Profile]bluetooth.PolicyDecision `json:"policies"`          // 每配置文件的连接策略
	LastConnected   time.Time                                      `json:"last_connected"`    // 最近一次连接时间
	LastAudioActive time.Time                                      `json:"last_audio_active"` // 最近一次音频活动时间
}

// Store 基于JSON文件的连接历史存储。每次写入后整体持久化，
// 通过临时文件加原子替换保证文件不会出现半写状态
type Store struct {
	path    string                            // 历史文件路径
	records map[bluetooth.Address]*PeerRecord // 设备历史记录
	mu      sync.RWMutex                      // 读写锁
	logger  *slog.Logger                      // 日志记录器
}

// NewStore 创建连接历史存储，不执行任何文件操作
func NewStore(dataDir, fileName string) *Store {
	return &Store{
		path:    filepath.Join(dataDir, fileName),
		records: make(map[bluetooth.Address]*PeerRecord),
		logger:  slog.Default().With("component", "history_store"),
	}
}

// Path 返回历史文件路径
func (s *Store) Path() string {
	return s.path
}

// Load 从文件加载历史记录。文件不存在时以空记录启动，不视为错误
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		s.logger.Info("历史文件不存在，以空记录启动", "path", s.path)
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return bluetooth.WrapError(err, bluetooth.ErrCodeHistoryLoad,
			fmt.Sprintf("无法读取历史文件 %s", s.path), "", "load")
	}

	records := make(map[bluetooth.Address]*PeerRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		return bluetooth.WrapError(err, bluetooth.ErrCodeHistoryLoad,
			fmt.Sprintf("无法解析历史文件 %s", s.path), "", "load")
	}

	for _, record := range records {
		if record.Policies == nil {
			record.Policies = make(map[bluetooth.Profile]bluetooth.PolicyDecision)
		}
	}

	s.records = records
	s.logger.Info("历史记录加载成功", "path", s.path, "peers", len(records))
	return nil
}

// MostRecentlyConnectedAudioPeer 返回最近有音频活动的设备。
// 从未有音频活动记录时第二个返回值为 false
func (s *Store) MostRecentlyConnectedAudioPeer() (bluetooth.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best bluetooth.Address
	var bestTime time.Time
	for peer, record := range s.records {
		if record.LastAudioActive.IsZero() {
			continue
		}
		if record.LastAudioActive.After(bestTime) ||
			(record.LastAudioActive.Equal(bestTime) && peer < best) {
			best = peer
			bestTime = record.LastAudioActive
		}
	}

	if best.IsZero() {
		return "", false
	}
	return best, true
}

// SetConnection 记录设备建立了连接。isAudioActive 标记该连接是否
// 对应音频配置文件的活动状态，只有音频活动连接影响最近设备排序
func (s *Store) SetConnection(peer bluetooth.Address, isAudioActive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.ensureRecord(peer)
	now := time.Now()
	record.LastConnected = now
	if isAudioActive {
		record.LastAudioActive = now
	}

	return s.saveLocked()
}

// SetDisconnection 记录音频设备断开连接。曾有音频活动的设备在断开时
// 刷新活动时间戳，保证它在下次上电时仍是最近设备
func (s *Store) SetDisconnection(peer bluetooth.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[peer]
	if !ok {
		return nil
	}
	if !record.LastAudioActive.IsZero() {
		record.LastAudioActive = time.Now()
	}

	return s.saveLocked()
}

// SetProfilePolicy 持久化设备某配置文件的连接策略
func (s *Store) SetProfilePolicy(peer bluetooth.Address, profile bluetooth.Profile, policy bluetooth.PolicyDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.ensureRecord(peer)
	record.Policies[profile] = policy

	return s.saveLocked()
}

// ProfilePolicy 返回设备某配置文件的已存储策略，无记录时为未知
func (s *Store) ProfilePolicy(peer bluetooth.Address, profile bluetooth.Profile) bluetooth.PolicyDecision {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[peer]
	if !ok {
		return bluetooth.PolicyUnknown
	}
	return record.Policies[profile]
}

// Record 返回设备历史记录的副本
func (s *Store) Record(peer bluetooth.Address) (PeerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[peer]
	if !ok {
		return PeerRecord{}, false
	}

	copied := PeerRecord{
		Policies:        make(map[bluetooth.Profile]bluetooth.PolicyDecision, len(record.Policies)),
		LastConnected:   record.LastConnected,
		LastAudioActive: record.LastAudioActive,
	}
	for profile, policy := range record.Policies {
		copied.Policies[profile] = policy
	}
	return copied, true
}

// Peers 返回所有有历史记录的设备地址，按地址排序
func (s *Store) Peers() []bluetooth.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()

	peers := make([]bluetooth.Address, 0, len(s.records))
	for peer := range s.records {
		peers = append(peers, peer)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
	return peers
}

// PeerCount 返回有历史记录的设备数量
func (s *Store) PeerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ensureRecord 获取或创建设备记录，调用方需持有写锁
func (s *Store) ensureRecord(peer bluetooth.Address) *PeerRecord {
	record, ok := s.records[peer]
	if !ok {
		record = &PeerRecord{
			Policies: make(map[bluetooth.Profile]bluetooth.PolicyDecision),
		}
		s.records[peer] = record
	}
	return record
}

// saveLocked 持久化全部记录，调用方需持有写锁。
// 先写临时文件再原子替换，避免历史文件出现半写状态
func (s *Store) saveLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return bluetooth.WrapError(err, bluetooth.ErrCodeHistorySave,
			fmt.Sprintf("无法创建数据目录 %s", dir), "", "save")
	}

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return bluetooth.WrapError(err, bluetooth.ErrCodeHistorySave,
			"无法序列化历史记录", "", "save")
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return bluetooth.WrapError(err, bluetooth.ErrCodeHistorySave,
			fmt.Sprintf("无法写入临时历史文件 %s", tempPath), "", "save")
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return bluetooth.WrapError(err, bluetooth.ErrCodeHistorySave,
			fmt.Sprintf("无法替换历史文件 %s", s.path), "", "save")
	}

	return nil
}
