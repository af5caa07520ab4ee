package bluetooth

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// PolicyEngine 连接编排策略引擎。位于各配置文件子系统之上，根据持久化
// 的连接策略、实时连接状态事件和最近连接历史，决定何时对哪个设备发起
// 哪个配置文件的连接。所有决策在收件箱的单一消费者协程上串行执行，
// 引擎内部状态不加锁；对外的 Notify 方法只入队事件，可安全并发调用
type PolicyEngine struct {
	config    PolicyConfig     // 引擎配置
	registry  *ProfileRegistry // 配置文件子系统注册表
	store     HistoryStore     // 连接历史存储
	inbox     *EventInbox      // 串行化事件收件箱
	ledger    *retryLedger     // 补连去重账本，仅消费者协程访问
	callbacks *CallbackManager // 动作回调管理器
	quietMode int32            // 静默模式开关，原子访问
	status    ComponentStatus  // 组件状态
	mu        sync.RWMutex     // 保护 status
	logger    *slog.Logger     // 日志记录器

	// 统计计数器，原子访问
	eventsProcessed  uint64
	eventsDropped    uint64
	connectsIssued   uint64
	retriesScheduled uint64
	policiesPromoted uint64
	sessionResets    uint64
	lastEventNano    int64
}

// NewPolicyEngine 创建新的策略引擎
func NewPolicyEngine(config PolicyConfig, registry *ProfileRegistry, store HistoryStore) *PolicyEngine {
	e := &PolicyEngine{
		config:    config,
		registry:  registry,
		store:     store,
		ledger:    newRetryLedger(),
		callbacks: NewCallbackManager(),
		status:    StatusStopped,
		logger:    slog.Default().With("component", "policy_engine"),
	}

	if config.EngineConfig.QuietMode {
		e.quietMode = 1
	}

	e.inbox = NewEventInbox(e.dispatch)
	return e
}

// Start 启动策略引擎
func (e *PolicyEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == StatusRunning {
		return ErrEngineRunning
	}

	e.status = StatusStarting
	if err := e.inbox.Start(ctx); err != nil {
		e.status = StatusError
		return err
	}
	e.status = StatusRunning

	e.logger.Info("策略引擎已启动",
		"connect_other_timeout", e.config.EngineConfig.ConnectOtherTimeout,
		"profiles", e.registry.Count())
	return nil
}

// Stop 停止策略引擎
func (e *PolicyEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusRunning {
		return nil
	}

	e.status = StatusStopping
	err := e.inbox.Stop()
	e.status = StatusStopped

	e.logger.Info("策略引擎已停止")
	return err
}

// GetStatus 获取组件状态
func (e *PolicyEngine) GetStatus() ComponentStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Callbacks 返回动作回调管理器，注册应在 Start 之前完成
func (e *PolicyEngine) Callbacks() *CallbackManager {
	return e.callbacks
}

// SetQuietMode 设置静默模式。启用后引擎不再发起任何连接请求，
// 事件仍正常处理
func (e *PolicyEngine) SetQuietMode(enabled bool) {
	var v int32
	if enabled {
		v = 1
	}
	atomic.StoreInt32(&e.quietMode, v)
	e.logger.Info("静默模式已更新", "enabled", enabled)
}

// QuietMode 返回静默模式是否启用
func (e *PolicyEngine) QuietMode() bool {
	return atomic.LoadInt32(&e.quietMode) == 1
}

// GetStats 获取引擎统计信息
func (e *PolicyEngine) GetStats() EngineStats {
	stats := EngineStats{
		EventsProcessed:  atomic.LoadUint64(&e.eventsProcessed),
		EventsDropped:    atomic.LoadUint64(&e.eventsDropped),
		ConnectsIssued:   atomic.LoadUint64(&e.connectsIssued),
		RetriesScheduled: atomic.LoadUint64(&e.retriesScheduled),
		PoliciesPromoted: atomic.LoadUint64(&e.policiesPromoted),
		SessionResets:    atomic.LoadUint64(&e.sessionResets),
	}
	if nano := atomic.LoadInt64(&e.lastEventNano); nano != 0 {
		stats.LastEventAt = time.Unix(0, nano)
	}
	return stats
}

// PostEvent 入队一个外部事件，立即返回
func (e *PolicyEngine) PostEvent(event Event) {
	e.inbox.Post(event)
}

// NotifyAdapterPoweredOn 通知适配器已上电
func (e *PolicyEngine) NotifyAdapterPoweredOn() {
	e.inbox.Post(Event{
		Type:      EventTypeAdapterPoweredOn,
		Timestamp: time.Now(),
	})
}

// NotifyProfileStateChanged 通知配置文件连接状态变化
func (e *PolicyEngine) NotifyProfileStateChanged(peer Address, profile Profile, prev, next ConnectionState) {
	e.inbox.Post(Event{
		Type:      EventTypeProfileStateChanged,
		Peer:      peer,
		Profile:   profile,
		PrevState: prev,
		NextState: next,
		Timestamp: time.Now(),
	})
}

// NotifyActiveDeviceChanged 通知配置文件的活动设备变化
func (e *PolicyEngine) NotifyActiveDeviceChanged(peer Address, profile Profile) {
	e.inbox.Post(Event{
		Type:      EventTypeActiveDeviceChanged,
		Peer:      peer,
		Profile:   profile,
		Timestamp: time.Now(),
	})
}

// NotifyServiceUUIDs 通知发现了对端设备的服务UUID集合
func (e *PolicyEngine) NotifyServiceUUIDs(peer Address, uuids []uuid.UUID) {
	e.inbox.Post(Event{
		Type:      EventTypeServiceUUIDsCollected,
		Peer:      peer,
		UUIDs:     uuids,
		Timestamp: time.Now(),
	})
}

// NotifyLinkEstablished 通知与对端设备的链路层连接已建立
func (e *PolicyEngine) NotifyLinkEstablished(peer Address) {
	e.inbox.Post(Event{
		Type:      EventTypeLinkEstablished,
		Peer:      peer,
		Timestamp: time.Now(),
	})
}

// dispatch 收件箱消费者的事件分发入口。同一时刻最多一个事件在处理，
// 处理函数内部不加锁。所有异常在此吸收，事件流是引擎唯一的驱动来源，
// 没有调用方可以接收错误
func (e *PolicyEngine) dispatch(event Event) {
	atomic.AddUint64(&e.eventsProcessed, 1)
	atomic.StoreInt64(&e.lastEventNano, time.Now().UnixNano())

	switch event.Type {
	case EventTypeAdapterPoweredOn:
		e.handleAdapterPoweredOn()

	case EventTypeServiceUUIDsCollected:
		if event.Peer.IsZero() {
			e.dropEvent(event, "缺少设备标识")
			return
		}
		e.handleServiceUUIDs(event.Peer, event.UUIDs)

	case EventTypeProfileStateChanged:
		if event.Peer.IsZero() || event.Profile == ProfileUnknown {
			e.dropEvent(event, "缺少设备标识或配置文件")
			return
		}
		e.handleProfileStateChanged(event.Peer, event.Profile, event.PrevState, event.NextState)

	case EventTypeActiveDeviceChanged:
		if event.Peer.IsZero() || event.Profile == ProfileUnknown {
			e.dropEvent(event, "缺少设备标识或配置文件")
			return
		}
		e.handleActiveDeviceChanged(event.Peer, event.Profile)

	case EventTypeLinkEstablished:
		if event.Peer.IsZero() {
			e.dropEvent(event, "缺少设备标识")
			return
		}
		e.handleLinkEstablished(event.Peer)

	case EventTypeConnectOtherProfiles:
		if event.Peer.IsZero() {
			e.dropEvent(event, "缺少设备标识")
			return
		}
		e.handleConnectOtherTimeout(event.Peer, event.Profile)

	default:
		e.dropEvent(event, "未知事件类型")
	}
}

// dropEvent 丢弃无法处理的事件并记录日志
func (e *PolicyEngine) dropEvent(event Event, reason string) {
	atomic.AddUint64(&e.eventsDropped, 1)
	e.logger.Warn("丢弃事件",
		"event_type", event.Type.String(),
		"peer", event.Peer.String(),
		"reason", reason)
}

// handleAdapterPoweredOn 适配器上电处理。重置会话后，按连接历史
// 对最近的音频设备独立尝试音频和耳机两个配置文件的自动连接。
// 自动连接固定只针对这两个配置文件，这是策略选择而非实现限制
func (e *PolicyEngine) handleAdapterPoweredOn() {
	e.resetSession("适配器上电")

	if e.QuietMode() {
		e.logger.Debug("静默模式，跳过自动连接")
		return
	}

	peer, ok := e.store.MostRecentlyConnectedAudioPeer()
	if !ok {
		// 无历史记录是正常的冷启动状态
		e.logger.Debug("无最近连接的音频设备，跳过自动连接")
		return
	}

	e.autoConnectProfile(peer, ProfileA2DP)
	e.autoConnectProfile(peer, ProfileHeadset)
}

// autoConnectProfile 对单个配置文件执行自动连接，策略不为允许时静默跳过
func (e *PolicyEngine) autoConnectProfile(peer Address, profile Profile) {
	service, ok := e.registry.Get(profile)
	if !ok {
		e.logger.Debug("配置文件子系统不可用，跳过自动连接", "profile", profile.String())
		return
	}

	if policy := service.ConnectionPolicy(peer); policy != PolicyAllowed {
		e.logger.Debug("策略不允许，跳过自动连接",
			"peer", peer.String(), "profile", profile.String(), "policy", policy.String())
		return
	}

	e.logger.Info("自动连接", "peer", peer.String(), "profile", profile.String())
	service.Connect(peer)
	atomic.AddUint64(&e.connectsIssued, 1)
	e.callbacks.NotifyConnect(peer, profile, ReasonAutoConnect)
}

// handleServiceUUIDs 首次接触的策略初始化。对每个在发现的UUID集合中
// 有服务类命中的配置文件，在策略仍为未知时提升为允许。只做
// 未知到允许的单向提升，重复事件是幂等的
func (e *PolicyEngine) handleServiceUUIDs(peer Address, uuids []uuid.UUID) {
	for _, profile := range AllProfiles() {
		if !e.promotionEnabled(profile) {
			continue
		}
		if !SupportsProfile(uuids, profile) {
			continue
		}

		service, ok := e.registry.Get(profile)
		if !ok {
			continue
		}
		if service.ConnectionPolicy(peer) != PolicyUnknown {
			continue
		}

		if err := e.store.SetProfilePolicy(peer, profile, PolicyAllowed); err != nil {
			e.logger.Error("策略提升写入失败",
				"peer", peer.String(), "profile", profile.String(), "error", err)
			continue
		}

		atomic.AddUint64(&e.policiesPromoted, 1)
		e.logger.Info("策略提升为允许", "peer", peer.String(), "profile", profile.String())
		e.callbacks.NotifyPolicy(peer, profile, PolicyAllowed)
	}
}

// promotionEnabled 判断配置文件是否参与服务发现时的策略提升
func (e *PolicyEngine) promotionEnabled(profile Profile) bool {
	switch profile {
	case ProfileNetworkAccess:
		return e.config.FlagsConfig.NetworkAccessPromotion
	case ProfileHearingAid:
		return e.config.FlagsConfig.HearingAidSupported
	case ProfileLEAudio:
		return e.config.FlagsConfig.LEAudioEnabled
	default:
		return true
	}
}

// handleProfileStateChanged 配置文件连接状态变化处理
func (e *PolicyEngine) handleProfileStateChanged(peer Address, profile Profile, prev, next ConnectionState) {
	e.logger.Debug("配置文件状态变化",
		"peer", peer.String(), "profile", profile.String(),
		"prev", prev.String(), "next", next.String())

	if next == StateConnected {
		switch profile {
		case ProfileA2DP, ProfileHeadset, ProfileLEAudio:
			e.ledger.clearRetried(profile, peer)
			e.connectOtherProfiles(peer, profile)
		}
		return
	}

	if next == StateDisconnected {
		if profile == ProfileA2DP {
			if err := e.store.SetDisconnection(peer); err != nil {
				e.logger.Error("断开记录写入失败", "peer", peer.String(), "error", err)
			}
		}
		e.handleAllProfilesDisconnected(peer)
	}
}

// handleActiveDeviceChanged 活动设备变化处理，音频配置文件的活动
// 状态影响最近连接排序权重
func (e *PolicyEngine) handleActiveDeviceChanged(peer Address, profile Profile) {
	if err := e.store.SetConnection(peer, profile == ProfileA2DP); err != nil {
		e.logger.Error("连接记录写入失败", "peer", peer.String(), "error", err)
	}
}

// handleLinkEstablished 链路层连接建立处理。比活动设备变化更弱的信号，
// 不代表任何具体配置文件处于活动状态。分发到此为止
func (e *PolicyEngine) handleLinkEstablished(peer Address) {
	if err := e.store.SetConnection(peer, false); err != nil {
		e.logger.Error("连接记录写入失败", "peer", peer.String(), "error", err)
	}
}

// connectOtherProfiles 某配置文件刚连接成功后，为同一设备调度其余
// 配置文件的延迟补连。各配置文件独立协商，立即补连容易和进行中的
// 协商冲突，因此延迟一个固定时间。每设备同一时刻最多一个未到期的
// 补连定时事件
func (e *PolicyEngine) connectOtherProfiles(peer Address, trigger Profile) {
	if e.ledger.isScheduled(peer) {
		e.logger.Debug("补连已调度，跳过", "peer", peer.String())
		return
	}

	delay := e.config.EngineConfig.ConnectOtherTimeout
	e.ledger.markScheduled(peer)
	atomic.AddUint64(&e.retriesScheduled, 1)

	e.logger.Info("调度补连", "peer", peer.String(),
		"trigger", trigger.String(), "delay", delay)
	e.callbacks.NotifyRetry(peer, delay)

	e.inbox.PostDelayed(Event{
		Type:      EventTypeConnectOtherProfiles,
		Peer:      peer,
		Profile:   trigger,
		Timestamp: time.Now(),
	}, delay)
}

// handleConnectOtherTimeout 补连定时事件到期处理。从当前实时状态重新
// 推导每个补连候选是否仍有必要，过期的定时事件自行变成空操作
func (e *PolicyEngine) handleConnectOtherTimeout(peer Address, trigger Profile) {
	e.ledger.clearScheduled(peer)

	// 设备在定时事件到期前已完全断开时不再补连
	if e.handleAllProfilesDisconnected(peer) {
		e.logger.Debug("设备已完全断开，跳过补连", "peer", peer.String())
		return
	}

	if e.QuietMode() {
		e.logger.Info("静默模式，跳过补连", "peer", peer.String())
		return
	}

	for _, profile := range RetryProfiles() {
		if profile == trigger {
			continue
		}

		service, ok := e.registry.Get(profile)
		if !ok {
			continue
		}
		if e.ledger.isRetried(profile, peer) {
			continue
		}
		if service.ConnectionPolicy(peer) != PolicyAllowed {
			continue
		}
		if service.ConnectionState(peer) != StateDisconnected {
			continue
		}
		// 网络访问是单设备配置文件，已有连接时不再补连
		if profile == ProfileNetworkAccess && len(service.ConnectedPeers()) > 0 {
			e.logger.Debug("网络访问配置文件已有连接，跳过补连", "peer", peer.String())
			continue
		}

		e.ledger.markRetried(profile, peer)
		e.logger.Info("补连", "peer", peer.String(), "profile", profile.String())
		service.Connect(peer)
		atomic.AddUint64(&e.connectsIssued, 1)
		e.callbacks.NotifyConnect(peer, profile, ReasonRetry)
	}
}

// handleAllProfilesDisconnected 全配置文件断开检查。设备在所有配置
// 文件上都无连接时清除其补连记录；全系统无任何已连接设备时重置会话。
// 返回 true 表示该设备已完全断开，调用方不应再为其发起补连
func (e *PolicyEngine) handleAllProfilesDisconnected(peer Address) bool {
	anyForPeer := false
	allEmpty := true

	for _, profile := range e.registry.Profiles() {
		service, ok := e.registry.Get(profile)
		if !ok {
			continue
		}
		for _, connected := range service.ConnectedPeers() {
			allEmpty = false
			if connected == peer {
				anyForPeer = true
			}
		}
	}

	if anyForPeer {
		return false
	}

	e.ledger.purgePeer(peer)
	if allEmpty {
		e.resetSession("全系统无已连接设备")
	}
	return true
}

// resetSession 清空补连账本，开始新会话
func (e *PolicyEngine) resetSession(reason string) {
	e.ledger.reset()
	atomic.AddUint64(&e.sessionResets, 1)
	e.logger.Debug("会话重置", "reason", reason)
	e.callbacks.NotifyReset()
}
