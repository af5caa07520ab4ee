package bluetooth

import (
	"sort"
	"sync"
)

// MockProfileService 模拟配置文件子系统实现，用于测试和开发
type MockProfileService struct {
	profile      Profile
	policies     map[Address]PolicyDecision
	states       map[Address]ConnectionState
	connectCalls []Address
	mu           sync.RWMutex
}

// NewMockProfileService 创建指定配置文件的模拟子系统
func NewMockProfileService(profile Profile) *MockProfileService {
	return &MockProfileService{
		profile:  profile,
		policies: make(map[Address]PolicyDecision),
		states:   make(map[Address]ConnectionState),
	}
}

// Profile 返回本子系统对应的配置文件
func (ms *MockProfileService) Profile() Profile {
	return ms.profile
}

// Connect 记录连接请求。模拟子系统不自动推进连接状态，
// 状态转换由测试方显式驱动
func (ms *MockProfileService) Connect(peer Address) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.connectCalls = append(ms.connectCalls, peer)
}

// ConnectionPolicy 返回设备的连接策略，未设置时为未知
func (ms *MockProfileService) ConnectionPolicy(peer Address) PolicyDecision {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.policies[peer]
}

// ConnectionState 返回设备的连接状态，未设置时为已断开
func (ms *MockProfileService) ConnectionState(peer Address) ConnectionState {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.states[peer]
}

// ConnectedPeers 返回当前处于已连接状态的设备列表
func (ms *MockProfileService) ConnectedPeers() []Address {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	peers := make([]Address, 0)
	for peer, state := range ms.states {
		if state == StateConnected {
			peers = append(peers, peer)
		}
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
	return peers
}

// SetPolicy 设置设备的连接策略（用于测试）
func (ms *MockProfileService) SetPolicy(peer Address, policy PolicyDecision) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.policies[peer] = policy
}

// SetState 设置设备的连接状态（用于测试）
func (ms *MockProfileService) SetState(peer Address, state ConnectionState) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.states[peer] = state
}

// ConnectCalls 返回收到的连接请求记录（用于测试）
func (ms *MockProfileService) ConnectCalls() []Address {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	calls := make([]Address, len(ms.connectCalls))
	copy(calls, ms.connectCalls)
	return calls
}

// ConnectCallCount 返回针对指定设备的连接请求次数（用于测试）
func (ms *MockProfileService) ConnectCallCount(peer Address) int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	count := 0
	for _, call := range ms.connectCalls {
		if call == peer {
			count++
		}
	}
	return count
}

// Reset 清空所有状态和记录（用于测试）
func (ms *MockProfileService) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.policies = make(map[Address]PolicyDecision)
	ms.states = make(map[Address]ConnectionState)
	ms.connectCalls = nil
}
