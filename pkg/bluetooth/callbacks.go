package bluetooth

import "time"

// ConnectReason 连接请求的触发原因
type ConnectReason int

const (
	ReasonAutoConnect ConnectReason = iota // 适配器上电自动连接
	ReasonRetry                            // 跨配置文件补连
)

// String 返回触发原因的字符串表示
func (cr ConnectReason) String() string {
	switch cr {
	case ReasonAutoConnect:
		return "auto_connect"
	case ReasonRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// ConnectCallback 连接请求回调函数类型，引擎每发起一次连接调用一次
type ConnectCallback func(peer Address, profile Profile, reason ConnectReason)

// PolicyCallback 策略提升回调函数类型，服务发现促成策略提升时调用
type PolicyCallback func(peer Address, profile Profile, policy PolicyDecision)

// RetryCallback 补连调度回调函数类型，延迟补连事件入队时调用
type RetryCallback func(peer Address, delay time.Duration)

// ResetCallback 会话重置回调函数类型
type ResetCallback func()

// CallbackManager 回调管理器，向嵌入方暴露引擎动作。注册应在引擎
// 启动前完成
type CallbackManager struct {
	connectCallbacks []ConnectCallback
	policyCallbacks  []PolicyCallback
	retryCallbacks   []RetryCallback
	resetCallbacks   []ResetCallback
}

// NewCallbackManager 创建新的回调管理器
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		connectCallbacks: make([]ConnectCallback, 0),
		policyCallbacks:  make([]PolicyCallback, 0),
		retryCallbacks:   make([]RetryCallback, 0),
		resetCallbacks:   make([]ResetCallback, 0),
	}
}

// RegisterConnectCallback 注册连接请求回调
func (cm *CallbackManager) RegisterConnectCallback(callback ConnectCallback) {
	cm.connectCallbacks = append(cm.connectCallbacks, callback)
}

// RegisterPolicyCallback 注册策略提升回调
func (cm *CallbackManager) RegisterPolicyCallback(callback PolicyCallback) {
	cm.policyCallbacks = append(cm.policyCallbacks, callback)
}

// RegisterRetryCallback 注册补连调度回调
func (cm *CallbackManager) RegisterRetryCallback(callback RetryCallback) {
	cm.retryCallbacks = append(cm.retryCallbacks, callback)
}

// RegisterResetCallback 注册会话重置回调
func (cm *CallbackManager) RegisterResetCallback(callback ResetCallback) {
	cm.resetCallbacks = append(cm.resetCallbacks, callback)
}

// NotifyConnect 通知连接请求
func (cm *CallbackManager) NotifyConnect(peer Address, profile Profile, reason ConnectReason) {
	for _, callback := range cm.connectCallbacks {
		go callback(peer, profile, reason) // 异步调用回调函数
	}
}

// NotifyPolicy 通知策略提升
func (cm *CallbackManager) NotifyPolicy(peer Address, profile Profile, policy PolicyDecision) {
	for _, callback := range cm.policyCallbacks {
		go callback(peer, profile, policy) // 异步调用回调函数
	}
}

// NotifyRetry 通知补连调度
func (cm *CallbackManager) NotifyRetry(peer Address, delay time.Duration) {
	for _, callback := range cm.retryCallbacks {
		go callback(peer, delay) // 异步调用回调函数
	}
}

// NotifyReset 通知会话重置
func (cm *CallbackManager) NotifyReset() {
	for _, callback := range cm.resetCallbacks {
		go callback() // 异步调用回调函数
	}
}
