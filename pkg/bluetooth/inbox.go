package bluetooth

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// EventInbox 串行化事件收件箱。任意数量的生产者并发入队，单一消费者
// 协程按到达顺序逐个调用处理函数，上一个事件处理完成前不会取出下一个，
// 因此策略决策之间永不并发。延迟事件通过定时器在到期后重新入队，
// 到期顺序即交付顺序
type EventInbox struct {
	handler   func(Event)        // 消费者处理函数
	pending   []Event            // 待处理事件，到达顺序
	wake      chan struct{}      // 消费者唤醒信号
	closed    bool               // 是否拒绝新事件
	status    ComponentStatus    // 组件状态
	mu        sync.Mutex         // 保护 pending、closed 和 status
	ctx       context.Context    // 上下文
	cancel    context.CancelFunc // 取消函数
	wg        sync.WaitGroup     // 等待组
	logger    *slog.Logger       // 日志记录器
	posted    uint64             // 已入队事件数
	delivered uint64             // 已交付事件数
	timersSet uint64             // 已创建定时器数
}

// NewEventInbox 创建新的事件收件箱，handler 为单一消费者的处理函数
func NewEventInbox(handler func(Event)) *EventInbox {
	return &EventInbox{
		handler: handler,
		pending: make([]Event, 0, DefaultInboxBacklog),
		wake:    make(chan struct{}, 1),
		status:  StatusStopped,
		logger:  slog.Default().With("component", "event_inbox"),
	}
}

// Start 启动消费者协程
func (i *EventInbox) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.status == StatusRunning {
		return NewBluetoothError(ErrCodeAlreadyExists, "事件收件箱已在运行")
	}

	i.ctx, i.cancel = context.WithCancel(ctx)
	i.closed = false
	i.status = StatusRunning

	i.wg.Add(1)
	go i.consume()

	i.logger.Info("事件收件箱已启动")
	return nil
}

// Stop 停止消费者协程并拒绝后续事件。已入队但未处理的事件被丢弃，
// 尚未到期的定时器到期后发现收件箱已关闭，静默丢弃
func (i *EventInbox) Stop() error {
	i.mu.Lock()
	if i.status != StatusRunning {
		i.mu.Unlock()
		return nil
	}
	i.status = StatusStopping
	i.closed = true
	i.mu.Unlock()

	i.cancel()
	i.wg.Wait()

	i.mu.Lock()
	i.status = StatusStopped
	i.mu.Unlock()

	i.logger.Info("事件收件箱已停止")
	return nil
}

// GetStatus 获取组件状态
func (i *EventInbox) GetStatus() ComponentStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// Post 入队一个事件。立即返回，永不阻塞调用者；收件箱关闭后的
// 事件被静默丢弃
func (i *EventInbox) Post(event Event) {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		i.logger.Debug("收件箱已关闭，丢弃事件", "event_type", event.Type.String())
		return
	}
	i.pending = append(i.pending, event)
	i.mu.Unlock()

	atomic.AddUint64(&i.posted, 1)

	// 容量为1的信号通道保证唤醒不丢失也不堆积
	select {
	case i.wake <- struct{}{}:
	default:
	}
}

// PostDelayed 入队一个延迟事件，事件在 delay 之后才对消费者可见。
// 定时器一旦创建就不再取消，到期时的处理逻辑自行判断动作是否仍有必要
func (i *EventInbox) PostDelayed(event Event, delay time.Duration) {
	if delay <= 0 {
		i.Post(event)
		return
	}

	atomic.AddUint64(&i.timersSet, 1)
	time.AfterFunc(delay, func() {
		i.Post(event)
	})
}

// GetStats 获取收件箱统计信息
func (i *EventInbox) GetStats() InboxStats {
	i.mu.Lock()
	pending := len(i.pending)
	i.mu.Unlock()

	return InboxStats{
		Posted:    atomic.LoadUint64(&i.posted),
		Delivered: atomic.LoadUint64(&i.delivered),
		Pending:   pending,
		TimersSet: atomic.LoadUint64(&i.timersSet),
	}
}

// consume 消费者主循环，一次取出一个事件并处理到完成
func (i *EventInbox) consume() {
	defer i.wg.Done()

	for {
		for {
			i.mu.Lock()
			if len(i.pending) == 0 {
				i.mu.Unlock()
				break
			}
			event := i.pending[0]
			i.pending = i.pending[1:]
			i.mu.Unlock()

			i.handler(event)
			atomic.AddUint64(&i.delivered, 1)
		}

		select {
		case <-i.ctx.Done():
			return
		case <-i.wake:
		}
	}
}
