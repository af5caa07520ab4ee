package bluetooth

import (
	"context"
)

// Address 远端设备的稳定标识（链路层地址）。相等性仅由标识本身决定，
// 设备的其他属性不参与比较和哈希
type Address string

// String 返回地址的字符串表示
func (a Address) String() string {
	return string(a)
}

// IsZero 判断地址是否为空
func (a Address) IsZero() bool {
	return a == ""
}

// Component 可启动组件的通用生命周期接口
type Component interface {
	// Start 启动组件
	Start(ctx context.Context) error
	// Stop 停止组件并等待内部协程退出
	Stop() error
	// GetStatus 获取组件状态
	GetStatus() ComponentStatus
}

// ProfileService 配置文件子系统接口。每个实例负责一种服务类型的
// 真实链路状态机，策略引擎只通过该接口发起连接和读取实时状态
type ProfileService interface {
	// Profile 返回该子系统负责的配置文件类型
	Profile() Profile
	// Connect 发起连接请求。调用即返回，结果通过后续的
	// 连接状态变化事件上报，引擎不等待结果
	Connect(peer Address)
	// ConnectionPolicy 返回设备在该配置文件上的持久化连接策略
	ConnectionPolicy(peer Address) PolicyDecision
	// ConnectionState 返回设备在该配置文件上的实时连接状态
	ConnectionState(peer Address) ConnectionState
	// ConnectedPeers 返回该配置文件当前已连接的设备列表
	ConnectedPeers() []Address
}

// HistoryStore 连接历史存储接口。持久化每设备每配置文件的连接策略
// 和最近连接时间戳，供上电自动连接时排序使用
type HistoryStore interface {
	// MostRecentlyConnectedAudioPeer 返回最近一次处于音频活动状态的设备，
	// 无候选设备时第二个返回值为 false
	MostRecentlyConnectedAudioPeer() (Address, bool)
	// SetConnection 记录一次连接事件，isAudioActive 标记音频配置文件
	// 是否处于活动状态（影响最近连接排序权重）
	SetConnection(peer Address, isAudioActive bool) error
	// SetDisconnection 记录一次断开事件
	SetDisconnection(peer Address) error
	// SetProfilePolicy 写入设备指定配置文件的连接策略
	SetProfilePolicy(peer Address, profile Profile, policy PolicyDecision) error
}
