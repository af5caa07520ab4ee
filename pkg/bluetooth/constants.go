package bluetooth

import "time"

// Profile 配置文件类型枚举，标识一种独立的蓝牙服务
type Profile int

const (
	ProfileUnknown       Profile = iota // 未知配置文件
	ProfileHeadset                      // 耳机配置文件（HSP/HFP）
	ProfileA2DP                         // 音频配置文件（A2DP）
	ProfileHIDHost                      // 人机接口配置文件（HID/HOGP）
	ProfileNetworkAccess                // 网络访问配置文件（PAN）
	ProfileHearingAid                   // 助听器配置文件
	ProfileLEAudio                      // LE 音频配置文件
)

// String 返回配置文件类型的字符串表示
func (p Profile) String() string {
	switch p {
	case ProfileHeadset:
		return "headset"
	case ProfileA2DP:
		return "a2dp"
	case ProfileHIDHost:
		return "hid_host"
	case ProfileNetworkAccess:
		return "network_access"
	case ProfileHearingAid:
		return "hearing_aid"
	case ProfileLEAudio:
		return "le_audio"
	default:
		return "unknown"
	}
}

// PolicyDecision 连接策略枚举，按设备按配置文件持久化
type PolicyDecision int

const (
	PolicyUnknown   PolicyDecision = iota // 未知策略，首次接触前的默认值
	PolicyForbidden                       // 禁止自动连接
	PolicyAllowed                         // 允许自动连接
)

// String 返回连接策略的字符串表示
func (pd PolicyDecision) String() string {
	switch pd {
	case PolicyForbidden:
		return "forbidden"
	case PolicyAllowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// ConnectionState 连接状态枚举，由配置文件子系统上报
type ConnectionState int

const (
	StateDisconnected  ConnectionState = iota // 已断开
	StateConnecting                           // 连接中
	StateConnected                            // 已连接
	StateDisconnecting                        // 断开中
)

// String 返回连接状态的字符串表示
func (cs ConnectionState) String() string {
	switch cs {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// EventType 策略引擎事件类型枚举
type EventType int

const (
	EventTypeAdapterPoweredOn      EventType = iota // 适配器上电
	EventTypeServiceUUIDsCollected                  // 发现对端服务UUID
	EventTypeProfileStateChanged                    // 配置文件连接状态变化
	EventTypeActiveDeviceChanged                    // 活动设备变化
	EventTypeLinkEstablished                        // 链路层连接建立
	EventTypeConnectOtherProfiles                   // 内部事件：补连其余配置文件
)

// String 返回事件类型的字符串表示
func (et EventType) String() string {
	switch et {
	case EventTypeAdapterPoweredOn:
		return "adapter_powered_on"
	case EventTypeServiceUUIDsCollected:
		return "service_uuids_collected"
	case EventTypeProfileStateChanged:
		return "profile_state_changed"
	case EventTypeActiveDeviceChanged:
		return "active_device_changed"
	case EventTypeLinkEstablished:
		return "link_established"
	case EventTypeConnectOtherProfiles:
		return "connect_other_profiles"
	default:
		return "unknown"
	}
}

// ComponentStatus 组件状态枚举
type ComponentStatus int

const (
	StatusStopped  ComponentStatus = iota // 已停止
	StatusStarting                        // 启动中
	StatusRunning                         // 运行中
	StatusStopping                        // 停止中
	StatusError                           // 错误状态
)

// String 返回组件状态的字符串表示
func (cs ComponentStatus) String() string {
	switch cs {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// AllProfiles 返回全部已知配置文件类型，顺序固定
func AllProfiles() []Profile {
	return []Profile{
		ProfileHeadset,
		ProfileA2DP,
		ProfileHIDHost,
		ProfileNetworkAccess,
		ProfileHearingAid,
		ProfileLEAudio,
	}
}

// RetryProfiles 返回参与跨配置文件补连的配置文件类型，顺序固定
func RetryProfiles() []Profile {
	return []Profile{
		ProfileHeadset,
		ProfileA2DP,
		ProfileNetworkAccess,
	}
}

// 默认配置常量
const (
	// 策略引擎相关常量
	DefaultConnectOtherTimeout = 6000 * time.Millisecond // 默认补连延迟时间
	DefaultInboxBacklog        = 64                      // 默认收件箱初始容量
	DefaultEventChanSize       = 64                      // 默认事件源通道大小

	// 生命周期相关常量
	DefaultShutdownTimeout = 30 * time.Second // 默认优雅关闭超时时间
	DefaultStopTimeout     = 5 * time.Second  // 默认组件停止超时时间

	// 存储相关常量
	DefaultDataDir         = "data"                    // 默认数据目录
	DefaultHistoryFileName = "connection_history.json" // 默认连接历史文件名
	DefaultConfigFileName  = "btpolicyd"               // 默认配置文件名（不含扩展名）
)

// 错误代码常量
const (
	ErrCodeSuccess           = 0    // 成功
	ErrCodeGeneral           = 1000 // 通用错误
	ErrCodeInvalidParameter  = 1001 // 无效参数
	ErrCodeTimeout           = 1002 // 超时错误
	ErrCodeNotFound          = 1003 // 未找到
	ErrCodeAlreadyExists     = 1004 // 已存在
	ErrCodeNotSupported      = 1005 // 不支持
	ErrCodeEngineNotRunning  = 2000 // 策略引擎未运行
	ErrCodeEngineRunning     = 2001 // 策略引擎已在运行
	ErrCodeInboxClosed       = 2002 // 事件收件箱已关闭
	ErrCodeMalformedEvent    = 2003 // 事件缺少必需字段
	ErrCodeProfileMissing    = 3000 // 配置文件子系统不可用
	ErrCodePolicyWrite       = 3001 // 策略写入失败
	ErrCodeHistoryLoad       = 4000 // 连接历史加载失败
	ErrCodeHistorySave       = 4001 // 连接历史保存失败
	ErrCodeSourceUnavailable = 5000 // 事件源不可用
	ErrCodeBusConnect        = 5001 // 系统总线连接失败
	ErrCodeAdapterEnable     = 5002 // 蓝牙适配器启用失败
)
