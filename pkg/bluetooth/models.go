package bluetooth

import (
	"time"

	"github.com/google/uuid"
)

// Event 策略引擎的统一事件结构。外部通知和内部定时事件都以该结构
// 进入收件箱，由单一消费者按到达顺序处理
type Event struct {
	Type      EventType       `json:"type"`       // 事件类型
	Peer      Address         `json:"peer"`       // 目标设备，适配器上电事件为空
	Profile   Profile         `json:"profile"`    // 相关配置文件
	PrevState ConnectionState `json:"prev_state"` // 变化前的连接状态
	NextState ConnectionState `json:"next_state"` // 变化后的连接状态
	UUIDs     []uuid.UUID     `json:"uuids"`      // 发现的服务UUID列表
	Timestamp time.Time       `json:"timestamp"`  // 事件产生时间
}

// EngineStats 策略引擎统计信息
type EngineStats struct {
	EventsProcessed  uint64    `json:"events_processed"`  // 已处理事件数
	EventsDropped    uint64    `json:"events_dropped"`    // 因缺少必需字段被丢弃的事件数
	ConnectsIssued   uint64    `json:"connects_issued"`   // 已发起的连接请求数
	RetriesScheduled uint64    `json:"retries_scheduled"` // 已调度的补连定时事件数
	PoliciesPromoted uint64    `json:"policies_promoted"` // 已提升的连接策略数
	SessionResets    uint64    `json:"session_resets"`    // 会话重置次数
	LastEventAt      time.Time `json:"last_event_at"`     // 最后一次事件处理时间
}

// InboxStats 事件收件箱统计信息
type InboxStats struct {
	Posted    uint64 `json:"posted"`     // 已入队事件数
	Delivered uint64 `json:"delivered"`  // 已交付消费者的事件数
	Pending   int    `json:"pending"`    // 当前待处理事件数
	TimersSet uint64 `json:"timers_set"` // 已创建的延迟定时器数
}
