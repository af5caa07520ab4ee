package bluetooth

import (
	"context"
	"testing"
	"time"
)

// connectEvent 构造一个配置文件连接成功事件
func connectEvent(peer Address, profile Profile) Event {
	return Event{
		Type:      EventTypeProfileStateChanged,
		Peer:      peer,
		Profile:   profile,
		PrevState: StateConnecting,
		NextState: StateConnected,
		Timestamp: time.Now(),
	}
}

// retryFireEvent 构造一个补连定时到期事件，测试用它模拟定时器到期
func retryFireEvent(peer Address, trigger Profile) Event {
	return Event{
		Type:      EventTypeConnectOtherProfiles,
		Peer:      peer,
		Profile:   trigger,
		Timestamp: time.Now(),
	}
}

// TestPolicyEngine_RetryScheduleOnConnect 测试配置文件连接成功后调度补连
func TestPolicyEngine_RetryScheduleOnConnect(t *testing.T) {
	engine, _, services := newPolicyTestEngine(t, defaultTestFlags())
	peer := Address("AA:BB:CC:DD:EE:80")

	services[ProfileHeadset].SetState(peer, StateConnected)
	engine.dispatch(connectEvent(peer, ProfileHeadset))

	if !engine.ledger.isScheduled(peer) {
		t.Error("期望连接成功后设备被记入调度集合")
	}
	if stats := engine.GetStats(); stats.RetriesScheduled != 1 {
		t.Errorf("期望调度补连数为 1，实际为 %d", stats.RetriesScheduled)
	}

	// 输入设备等非触发配置文件连接成功不调度补连
	peer2 := Address("AA:BB:CC:DD:EE:81")
	engine.dispatch(connectEvent(peer2, ProfileHIDHost))

	if engine.ledger.isScheduled(peer2) {
		t.Error("期望非触发配置文件连接成功不调度补连")
	}
}

// TestPolicyEngine_RetryScheduleDedup 测试同一设备的补连调度去重，
// 快速连续的多个连接成功事件只产生一个定时事件
func TestPolicyEngine_RetryScheduleDedup(t *testing.T) {
	engine, _, services := newPolicyTestEngine(t, defaultTestFlags())
	peer := Address("AA:BB:CC:DD:EE:82")

	services[ProfileHeadset].SetState(peer, StateConnected)
	engine.dispatch(connectEvent(peer, ProfileHeadset))

	services[ProfileA2DP].SetState(peer, StateConnected)
	engine.dispatch(connectEvent(peer, ProfileA2DP))

	if stats := engine.GetStats(); stats.RetriesScheduled != 1 {
		t.Errorf("期望定时事件未到期时不重复调度，调度数应为 1，实际为 %d", stats.RetriesScheduled)
	}

	// 到期后再次连接成功可以重新调度
	engine.dispatch(retryFireEvent(peer, ProfileHeadset))
	engine.dispatch(connectEvent(peer, ProfileHeadset))

	if stats := engine.GetStats(); stats.RetriesScheduled != 2 {
		t.Errorf("期望到期后可重新调度，调度数应为 2，实际为 %d", stats.RetriesScheduled)
	}
}

// TestPolicyEngine_RetryFireJointCheck 测试补连到期时的联合资格检查，
// 只有策略允许且当前断开的配置文件才被补连
func TestPolicyEngine_RetryFireJointCheck(t *testing.T) {
	engine, _, services := newPolicyTestEngine(t, defaultTestFlags())
	peer := Address("AA:BB:CC:DD:EE:83")

	// 音频：允许且断开，应补连
	services[ProfileA2DP].SetPolicy(peer, PolicyAllowed)
	services[ProfileA2DP].SetState(peer, StateDisconnected)
	// 网络访问：策略禁止，应跳过
	services[ProfileNetworkAccess].SetPolicy(peer, PolicyForbidden)
	services[ProfileNetworkAccess].SetState(peer, StateDisconnected)

	services[ProfileHeadset].SetState(peer, StateConnected)
	engine.dispatch(connectEvent(peer, ProfileHeadset))
	engine.dispatch(retryFireEvent(peer, ProfileHeadset))

	if count := services[ProfileA2DP].ConnectCallCount(peer); count != 1 {
		t.Errorf("期望音频配置文件被补连 1 次，实际为 %d", count)
	}
	if count := services[ProfileNetworkAccess].ConnectCallCount(peer); count != 0 {
		t.Errorf("期望禁止策略的配置文件不被补连，实际为 %d", count)
	}

	if !engine.ledger.isRetried(ProfileA2DP, peer) {
		t.Error("期望补连后设备被记入已补连集合")
	}
	if engine.ledger.isScheduled(peer) {
		t.Error("期望到期后调度记录被清除")
	}
}

// TestPolicyEngine_RetryUnknownPolicySkipped 测试未知策略的配置文件不被补连，
// 补连只针对显式允许的策略
func TestPolicyEngine_RetryUnknownPolicySkipped(t *testing.T) {
	engine, _, services := newPolicyTestEngine(t, defaultTestFlags())
	peer := Address("AA:BB:CC:DD:EE:8C")

	// 音频和网络访问都保持未知策略且断开
	services[ProfileA2DP].SetState(peer, StateDisconnected)
	services[ProfileNetworkAccess].SetState(peer, StateDisconnected)

	services[ProfileHeadset].SetState(peer, StateConnected)
	engine.dispatch(connectEvent(peer, ProfileHeadset))
	engine.dispatch(retryFireEvent(peer, ProfileHeadset))

	if count := services[ProfileA2DP].ConnectCallCount(peer); count != 0 {
		t.Errorf("期望未知策略的音频配置文件不被补连，实际为 %d", count)
	}
	if count := services[ProfileNetworkAccess].ConnectCallCount(peer); count != 0 {
		t.Errorf("期望未知策略的网络访问配置文件不被补连，实际为 %d", count)
	}
	if engine.ledger.retriedCount() != 0 {
		t.Errorf("期望跳过的配置文件不记入补连集合，实际为 %d", engine.ledger.retriedCount())
	}
}

// TestPolicyEngine_RetryConnectedProfileSkipped 测试到期时已连接的配置文件
// 不再补连，过期定时事件自行变为空操作
func TestPolicyEngine_RetryConnectedProfileSkipped(t *testing.T) {
	engine, _, services := newPolicyTestEngine(t, defaultTestFlags())
	peer := Address("AA:BB:CC:DD:EE:84")

	services[ProfileA2DP].SetPolicy(peer, PolicyAllowed)
	services[ProfileA2DP].SetState(peer, StateDisconnected)

	services[ProfileHeadset].SetState(peer, StateConnected)
	engine.dispatch(connectEvent(peer, ProfileHeadset))

	// 定时事件到期前音频已自行连接
	services[ProfileA2DP].SetState(peer, StateConnected)
	engine.dispatch(retryFireEvent(peer, ProfileHeadset))

	if count := services[ProfileA2DP].ConnectCallCount(peer); count != 0 {
		t.Errorf("期望已连接的配置文件不被补连，实际为 %d", count)
	}
}

// TestPolicyEngine_RetryTriggerProfileExcluded 测试触发补连的配置文件
// 自身不在补连范围内
func TestPolicyEngine_RetryTriggerProfileExcluded(t *testing.T) {
	engine, _, services := newPolicyTestEngine(t, defaultTestFlags())
	peer := Address("AA:BB:CC:DD:EE:85")

	// 构造耳机允许且断开的矛盾状态，验证排除逻辑本身；
	// 输入设备保持连接，设备不算完全断开
	services[ProfileHeadset].SetPolicy(peer, PolicyAllowed)
	services[ProfileHeadset].SetState(peer, StateDisconnected)
	services[ProfileA2DP].SetPolicy(peer, PolicyAllowed)
	services[ProfileA2DP].SetState(peer, StateDisconnected)
	services[ProfileHIDHost].SetState(peer, StateConnected)

	engine.dispatch(retryFireEvent(peer, ProfileHeadset))

	if count := services[ProfileHeadset].ConnectCallCount(peer); count != 0 {
		t.Errorf("期望触发配置文件不被补连，实际为 %d", count)
	}
	if count := services[ProfileA2DP].ConnectCallCount(peer); count != 1 {
		t.Errorf("期望其他配置文件被补连，实际为 %d", count)
	}
}

// TestPolicyEngine_RetryOncePerSession 测试每会话每设备每配置文件
// 最多补连一次，连接成功后恢复资格
func TestPolicyEngine_RetryOncePerSession(t *testing.T) {
	engine, _, services := newPolicyTestEngine(t, defaultTestFlags())
	peer := Address("AA:BB:CC:DD:EE:86")

	services[ProfileA2DP].SetPolicy(peer, PolicyAllowed)
	services[ProfileA2DP].SetState(peer, StateDisconnected)
	services[ProfileHeadset].SetState(peer, StateConnected)

	// 第一次到期：补连
	engine.dispatch(connectEvent(peer, ProfileHeadset))
	engine.dispatch(retryFireEvent(peer, ProfileHeadset))

	if count := services[ProfileA2DP].ConnectCallCount(peer); count != 1 {
		t.Fatalf("期望首次补连成功，实际次数为 %d", count)
	}

	// 第二次到期：本会话已补连过，不再发起
	engine.dispatch(connectEvent(peer, ProfileHeadset))
	engine.dispatch(retryFireEvent(peer, ProfileHeadset))

	if count := services[ProfileA2DP].ConnectCallCount(peer); count != 1 {
		t.Errorf("期望同会话不重复补连，实际次数为 %d", count)
	}

	// 音频连接成功清除补连记录，之后断开再补连恢复资格
	services[ProfileA2DP].SetState(peer, StateConnected)
	engine.dispatch(connectEvent(peer, ProfileA2DP))

	if engine.ledger.isRetried(ProfileA2DP, peer) {
		t.Error("期望连接成功后补连记录被清除")
	}

	services[ProfileA2DP].SetState(peer, StateDisconnected)
	engine.dispatch(retryFireEvent(peer, ProfileHeadset))

	if count := services[ProfileA2DP].ConnectCallCount(peer); count != 2 {
		t.Errorf("期望恢复资格后再次补连，实际次数为 %d", count)
	}
}

// TestPolicyEngine_RetryNetworkAccessSinglePeerGate 测试网络访问配置文件的
// 单设备限制，已有任何设备连接时不再补连
func TestPolicyEngine_RetryNetworkAccessSinglePeerGate(t *testing.T) {
	engine, _, services := newPolicyTestEngine(t, defaultTestFlags())
	peer := Address("AA:BB:CC:DD:EE:87")
	other := Address("AA:BB:CC:DD:EE:88")

	services[ProfileNetworkAccess].SetPolicy(peer, PolicyAllowed)
	services[ProfileNetworkAccess].SetState(peer, StateDisconnected)
	// 另一设备占用了网络访问配置文件
	services[ProfileNetworkAccess].SetState(other, StateConnected)

	services[ProfileHeadset].SetState(peer, StateConnected)
	engine.dispatch(connectEvent(peer, ProfileHeadset))
	engine.dispatch(retryFireEvent(peer, ProfileHeadset))

	if count := services[ProfileNetworkAccess].ConnectCallCount(peer); count != 0 {
		t.Errorf("期望网络访问已被占用时不补连，实际为 %d", count)
	}

	// 占用解除后恢复补连
	services[ProfileNetworkAccess].SetState(other, StateDisconnected)
	engine.dispatch(connectEvent(peer, ProfileHeadset))
	engine.dispatch(retryFireEvent(peer, ProfileHeadset))

	if count := services[ProfileNetworkAccess].ConnectCallCount(peer); count != 1 {
		t.Errorf("期望占用解除后补连成功，实际为 %d", count)
	}
}

// TestPolicyEngine_RetryFireAfterFullDisconnect 测试设备在定时事件到期前
// 完全断开时不再补连，刚被用户断开的设备不会被引擎重新连回
func TestPolicyEngine_RetryFireAfterFullDisconnect(t *testing.T) {
	engine, _, services := newPolicyTestEngine(t, defaultTestFlags())
	peer := Address("AA:BB:CC:DD:EE:8D")

	services[ProfileA2DP].SetPolicy(peer, PolicyAllowed)
	services[ProfileA2DP].SetState(peer, StateDisconnected)
	services[ProfileNetworkAccess].SetPolicy(peer, PolicyAllowed)
	services[ProfileNetworkAccess].SetState(peer, StateDisconnected)

	// 耳机连接成功，调度补连
	services[ProfileHeadset].SetState(peer, StateConnected)
	engine.dispatch(connectEvent(peer, ProfileHeadset))

	if !engine.ledger.isScheduled(peer) {
		t.Fatal("期望连接成功后补连被调度")
	}

	// 定时事件到期前设备完全断开
	services[ProfileHeadset].SetState(peer, StateDisconnected)
	engine.dispatch(Event{
		Type: EventTypeProfileStateChanged, Peer: peer, Profile: ProfileHeadset,
		PrevState: StateConnected, NextState: StateDisconnected, Timestamp: time.Now(),
	})

	// 过期的定时事件到期，不应向已完全断开的设备发起任何连接
	engine.dispatch(retryFireEvent(peer, ProfileHeadset))

	for _, profile := range RetryProfiles() {
		if count := services[profile].ConnectCallCount(peer); count != 0 {
			t.Errorf("期望完全断开的设备不被补连，配置文件 %s 实际连接次数为 %d",
				profile.String(), count)
		}
	}
	if engine.ledger.isScheduled(peer) {
		t.Error("期望到期后调度记录被清除")
	}
	if stats := engine.GetStats(); stats.ConnectsIssued != 0 {
		t.Errorf("期望发起连接数为 0，实际为 %d", stats.ConnectsIssued)
	}
}

// TestPolicyEngine_RetryQuietModeSkips 测试静默模式下到期补连被跳过，
// 调度记录仍被清除
func TestPolicyEngine_RetryQuietModeSkips(t *testing.T) {
	engine, _, services := newPolicyTestEngine(t, defaultTestFlags())
	peer := Address("AA:BB:CC:DD:EE:89")

	services[ProfileA2DP].SetPolicy(peer, PolicyAllowed)
	services[ProfileA2DP].SetState(peer, StateDisconnected)
	services[ProfileHeadset].SetState(peer, StateConnected)

	engine.dispatch(connectEvent(peer, ProfileHeadset))
	engine.SetQuietMode(true)
	engine.dispatch(retryFireEvent(peer, ProfileHeadset))

	if count := services[ProfileA2DP].ConnectCallCount(peer); count != 0 {
		t.Errorf("期望静默模式下不补连，实际为 %d", count)
	}
	if engine.ledger.isScheduled(peer) {
		t.Error("期望静默模式下调度记录仍被清除")
	}
}

// TestPolicyEngine_RetryLEAudioTrigger 测试 LE 音频连接成功同样触发补连，
// 且三个补连候选配置文件都在范围内
func TestPolicyEngine_RetryLEAudioTrigger(t *testing.T) {
	engine, _, services := newPolicyTestEngine(t, defaultTestFlags())
	peer := Address("AA:BB:CC:DD:EE:8A")

	services[ProfileHeadset].SetPolicy(peer, PolicyAllowed)
	services[ProfileHeadset].SetState(peer, StateDisconnected)
	services[ProfileA2DP].SetPolicy(peer, PolicyAllowed)
	services[ProfileA2DP].SetState(peer, StateDisconnected)
	services[ProfileNetworkAccess].SetPolicy(peer, PolicyAllowed)
	services[ProfileNetworkAccess].SetState(peer, StateDisconnected)

	services[ProfileLEAudio].SetState(peer, StateConnected)
	engine.dispatch(connectEvent(peer, ProfileLEAudio))

	if !engine.ledger.isScheduled(peer) {
		t.Fatal("期望 LE 音频连接成功后调度补连")
	}

	engine.dispatch(retryFireEvent(peer, ProfileLEAudio))

	for _, profile := range []Profile{ProfileHeadset, ProfileA2DP, ProfileNetworkAccess} {
		if count := services[profile].ConnectCallCount(peer); count != 1 {
			t.Errorf("期望配置文件 %s 被补连 1 次，实际为 %d", profile.String(), count)
		}
	}
}

// TestPolicyEngine_DelayedRetryFiresThroughInbox 测试补连定时事件经由
// 收件箱的端到端交付
func TestPolicyEngine_DelayedRetryFiresThroughInbox(t *testing.T) {
	engine, _, services := newPolicyTestEngine(t, defaultTestFlags())
	peer := Address("AA:BB:CC:DD:EE:8B")

	services[ProfileA2DP].SetPolicy(peer, PolicyAllowed)
	services[ProfileA2DP].SetState(peer, StateDisconnected)
	services[ProfileHeadset].SetState(peer, StateConnected)

	ctx := context.Background()
	if err := engine.Start(ctx); err != nil {
		t.Fatalf("启动引擎失败: %v", err)
	}
	defer engine.Stop()

	engine.NotifyProfileStateChanged(peer, ProfileHeadset, StateConnecting, StateConnected)

	// 补连延迟为 50ms，等待定时事件到期并被消费
	ok := waitForCondition(t, 2*time.Second, func() bool {
		return services[ProfileA2DP].ConnectCallCount(peer) == 1
	})
	if !ok {
		t.Fatal("期望定时事件到期后音频配置文件被补连")
	}

	stats := engine.GetStats()
	if stats.RetriesScheduled != 1 {
		t.Errorf("期望调度补连数为 1，实际为 %d", stats.RetriesScheduled)
	}
}
