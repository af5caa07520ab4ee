package bluetooth

// retryLedger 策略引擎的临时状态账本，记录本会话内已发起过补连的设备
// 和已调度补连定时事件的设备。会话指两次全系统完全断开之间的时间段。
// 账本仅由收件箱消费者协程访问，依赖收件箱的串行化保证，无内部锁
type retryLedger struct {
	retried   map[Profile]map[Address]struct{} // 每配置文件本会话已补连的设备集合
	scheduled map[Address]struct{}             // 已有未到期补连定时事件的设备集合
}

// newRetryLedger 创建空账本
func newRetryLedger() *retryLedger {
	return &retryLedger{
		retried:   make(map[Profile]map[Address]struct{}),
		scheduled: make(map[Address]struct{}),
	}
}

// markRetried 记录本会话已对该设备的该配置文件发起补连
func (l *retryLedger) markRetried(profile Profile, peer Address) {
	set, ok := l.retried[profile]
	if !ok {
		set = make(map[Address]struct{})
		l.retried[profile] = set
	}
	set[peer] = struct{}{}
}

// clearRetried 移除补连记录，配置文件连接成功后调用
func (l *retryLedger) clearRetried(profile Profile, peer Address) {
	if set, ok := l.retried[profile]; ok {
		delete(set, peer)
	}
}

// isRetried 判断本会话是否已对该设备的该配置文件发起过补连
func (l *retryLedger) isRetried(profile Profile, peer Address) bool {
	set, ok := l.retried[profile]
	if !ok {
		return false
	}
	_, exists := set[peer]
	return exists
}

// markScheduled 记录该设备已有未到期的补连定时事件
func (l *retryLedger) markScheduled(peer Address) {
	l.scheduled[peer] = struct{}{}
}

// clearScheduled 移除调度记录，定时事件到期时调用；重复移除是无害的空操作
func (l *retryLedger) clearScheduled(peer Address) {
	delete(l.scheduled, peer)
}

// isScheduled 判断该设备是否已有未到期的补连定时事件
func (l *retryLedger) isScheduled(peer Address) bool {
	_, exists := l.scheduled[peer]
	return exists
}

// purgePeer 将设备从所有补连记录中移除，设备全部配置文件断开后调用。
// 调度记录不在此移除，由定时事件到期时自行清理
func (l *retryLedger) purgePeer(peer Address) {
	for _, set := range l.retried {
		delete(set, peer)
	}
}

// reset 清空全部记录，开始新会话。全系统无任何已连接设备时调用
func (l *retryLedger) reset() {
	l.retried = make(map[Profile]map[Address]struct{})
	l.scheduled = make(map[Address]struct{})
}

// retriedCount 返回所有配置文件补连记录的总数
func (l *retryLedger) retriedCount() int {
	count := 0
	for _, set := range l.retried {
		count += len(set)
	}
	return count
}

// scheduledCount 返回调度记录总数
func (l *retryLedger) scheduledCount() int {
	return len(l.scheduled)
}
