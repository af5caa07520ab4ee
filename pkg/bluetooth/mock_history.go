package bluetooth

import "sync"

// ConnectionRecord 一次连接记录写入，用于测试断言
type ConnectionRecord struct {
	Peer        Address // 设备地址
	AudioActive bool    // 是否为音频活动连接
}

// MockHistoryStore 模拟连接历史存储实现，用于测试和开发
type MockHistoryStore struct {
	mostRecent     Address
	policies       map[Address]map[Profile]PolicyDecision
	connections    []ConnectionRecord
	disconnections []Address
	forcedErr      error
	mu             sync.RWMutex
}

// NewMockHistoryStore 创建新的模拟历史存储
func NewMockHistoryStore() *MockHistoryStore {
	return &MockHistoryStore{
		policies: make(map[Address]map[Profile]PolicyDecision),
	}
}

// MostRecentlyConnectedAudioPeer 返回预设的最近连接音频设备
func (mh *MockHistoryStore) MostRecentlyConnectedAudioPeer() (Address, bool) {
	mh.mu.RLock()
	defer mh.mu.RUnlock()

	if mh.mostRecent.IsZero() {
		return "", false
	}
	return mh.mostRecent, true
}

// SetConnection 记录连接写入。音频活动连接会更新最近连接设备，
// 模拟真实存储的排序效果
func (mh *MockHistoryStore) SetConnection(peer Address, isAudioActive bool) error {
	mh.mu.Lock()
	defer mh.mu.Unlock()

	if mh.forcedErr != nil {
		return mh.forcedErr
	}

	mh.connections = append(mh.connections, ConnectionRecord{Peer: peer, AudioActive: isAudioActive})
	if isAudioActive {
		mh.mostRecent = peer
	}
	return nil
}

// SetDisconnection 记录断开写入
func (mh *MockHistoryStore) SetDisconnection(peer Address) error {
	mh.mu.Lock()
	defer mh.mu.Unlock()

	if mh.forcedErr != nil {
		return mh.forcedErr
	}

	mh.disconnections = append(mh.disconnections, peer)
	return nil
}

// SetProfilePolicy 记录策略写入
func (mh *MockHistoryStore) SetProfilePolicy(peer Address, profile Profile, policy PolicyDecision) error {
	mh.mu.Lock()
	defer mh.mu.Unlock()

	if mh.forcedErr != nil {
		return mh.forcedErr
	}

	if mh.policies[peer] == nil {
		mh.policies[peer] = make(map[Profile]PolicyDecision)
	}
	mh.policies[peer][profile] = policy
	return nil
}

// SetMostRecentAudioPeer 预设最近连接的音频设备，零值地址表示无记录（用于测试）
func (mh *MockHistoryStore) SetMostRecentAudioPeer(peer Address) {
	mh.mu.Lock()
	defer mh.mu.Unlock()
	mh.mostRecent = peer
}

// ForceError 使后续所有写入操作返回指定错误，nil 恢复正常（用于测试）
func (mh *MockHistoryStore) ForceError(err error) {
	mh.mu.Lock()
	defer mh.mu.Unlock()
	mh.forcedErr = err
}

// PolicyFor 返回记录到的设备策略写入结果（用于测试）
func (mh *MockHistoryStore) PolicyFor(peer Address, profile Profile) PolicyDecision {
	mh.mu.RLock()
	defer mh.mu.RUnlock()

	if mh.policies[peer] == nil {
		return PolicyUnknown
	}
	return mh.policies[peer][profile]
}

// ConnectionRecords 返回连接写入记录（用于测试）
func (mh *MockHistoryStore) ConnectionRecords() []ConnectionRecord {
	mh.mu.RLock()
	defer mh.mu.RUnlock()
	records := make([]ConnectionRecord, len(mh.connections))
	copy(records, mh.connections)
	return records
}

// DisconnectionRecords 返回断开写入记录（用于测试）
func (mh *MockHistoryStore) DisconnectionRecords() []Address {
	mh.mu.RLock()
	defer mh.mu.RUnlock()
	records := make([]Address, len(mh.disconnections))
	copy(records, mh.disconnections)
	return records
}
