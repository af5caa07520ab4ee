package watch

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/pkg/bluetooth"
)

// PolicyReader 连接策略读取接口，由连接历史存储实现
type PolicyReader interface {
	// ProfilePolicy 返回设备指定配置文件的连接策略
	ProfilePolicy(peer bluetooth.Address, profile bluetooth.Profile) bluetooth.PolicyDecision
}

// ProfileConnector 连接发起接口。把策略引擎的连接请求转发给
// 真实的蓝牙管理通道
type ProfileConnector interface {
	// ConnectProfile 请求与设备建立指定配置文件的连接
	ConnectProfile(peer bluetooth.Address, profile bluetooth.Profile) error
}

// connectUUIDs 发起连接时传给管理通道的首选服务UUID
var connectUUIDs = map[bluetooth.Profile]string{
	bluetooth.ProfileHeadset:       bluetooth.UUIDHandsfree.String(),
	bluetooth.ProfileA2DP:          bluetooth.UUIDAudioSink.String(),
	bluetooth.ProfileHIDHost:       bluetooth.UUIDHIDService.String(),
	bluetooth.ProfileNetworkAccess: bluetooth.UUIDPANU.String(),
	bluetooth.ProfileHearingAid:    bluetooth.UUIDHearingAid.String(),
	bluetooth.ProfileLEAudio:       bluetooth.UUIDStreamCtrl.String(),
}

// TrackedProfile 守护进程侧的配置文件子系统适配。策略从连接历史
// 存储读取，连接状态由事件泵通过 ObserveState 馈入，连接请求转发
// 给底层连接器。真实部署中配置文件状态机跑在各自的子系统里，
// 这个适配器只做镜像和转发
type TrackedProfile struct {
	profile   bluetooth.Profile                               // 负责的配置文件类型
	policies  PolicyReader                                    // 策略读取层
	connector ProfileConnector                                // 连接发起层
	states    map[bluetooth.Address]bluetooth.ConnectionState // 镜像的连接状态
	mu        sync.RWMutex                                    // 保护 states
	logger    *slog.Logger                                    // 日志记录器
}

// NewTrackedProfile 创建新的配置文件适配器
func NewTrackedProfile(profile bluetooth.Profile, policies PolicyReader, connector ProfileConnector) *TrackedProfile {
	return &TrackedProfile{
		profile:   profile,
		policies:  policies,
		connector: connector,
		states:    make(map[bluetooth.Address]bluetooth.ConnectionState),
		logger:    slog.Default().With("component", "tracked_profile", "profile", profile.String()),
	}
}

// Profile 返回该适配器负责的配置文件类型
func (tp *TrackedProfile) Profile() bluetooth.Profile {
	return tp.profile
}

// Connect 发起连接请求。转发在后台进行，结果通过后续的
// 连接状态变化事件上报
func (tp *TrackedProfile) Connect(peer bluetooth.Address) {
	go func() {
		if err := tp.connector.ConnectProfile(peer, tp.profile); err != nil {
			tp.logger.Warn("连接请求转发失败", "peer", peer.String(), "error", err)
		}
	}()
}

// ConnectionPolicy 返回设备在该配置文件上的持久化连接策略
func (tp *TrackedProfile) ConnectionPolicy(peer bluetooth.Address) bluetooth.PolicyDecision {
	if tp.policies == nil {
		return bluetooth.PolicyUnknown
	}
	return tp.policies.ProfilePolicy(peer, tp.profile)
}

// ConnectionState 返回设备在该配置文件上的镜像连接状态
func (tp *TrackedProfile) ConnectionState(peer bluetooth.Address) bluetooth.ConnectionState {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return tp.states[peer]
}

// ConnectedPeers 返回该配置文件当前已连接的设备列表
func (tp *TrackedProfile) ConnectedPeers() []bluetooth.Address {
	tp.mu.RLock()
	defer tp.mu.RUnlock()

	peers := make([]bluetooth.Address, 0, len(tp.states))
	for peer, state := range tp.states {
		if state == bluetooth.StateConnected {
			peers = append(peers, peer)
		}
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
	return peers
}

// ObserveState 馈入一次连接状态变化，已断开的设备不再保留
func (tp *TrackedProfile) ObserveState(peer bluetooth.Address, state bluetooth.ConnectionState) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if state == bluetooth.StateDisconnected {
		delete(tp.states, peer)
		return
	}
	tp.states[peer] = state
}

// LogConnector 只记录日志的连接器，用于没有管理通道的部署。
// 连接决定仍然可见，执行交给外部系统
type LogConnector struct {
	logger *slog.Logger
}

// NewLogConnector 创建新的日志连接器
func NewLogConnector() *LogConnector {
	return &LogConnector{
		logger: slog.Default().With("component", "log_connector"),
	}
}

// ConnectProfile 记录连接请求
func (lc *LogConnector) ConnectProfile(peer bluetooth.Address, profile bluetooth.Profile) error {
	lc.logger.Info("连接请求",
		"peer", peer.String(),
		"profile", profile.String(),
		"uuid", connectUUIDs[profile])
	return nil
}
