// Package event 提供基于asaskevich/EventBus的事件总线实现
package event

import (
	"context"
	"fmt"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"
	eventconfig "github.com/xchain/v1/internal/config/event"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/event"
)

// EventBus 事件总线，包装底层evbus并增加生命周期管理
type EventBus struct {
	bus     evbus.Bus           // 底层事件总线
	config  *eventconfig.Config // 配置
	running atomic.Bool         // 运行状态
	cancel  context.CancelFunc
}

// New 创建事件总线实例
func New(config *eventconfig.Config) event.EventBus {
	return &EventBus{
		bus:    evbus.New(),
		config: config,
	}
}

// Subscribe 同步订阅
func (eb *EventBus) Subscribe(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	return eb.bus.Subscribe(string(eventType), handler)
}

// SubscribeAsync 异步订阅
func (eb *EventBus) SubscribeAsync(eventType event.EventType, handler interface{}, transactional bool) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	return eb.bus.SubscribeAsync(string(eventType), handler, transactional)
}

// SubscribeOnce 一次性订阅
func (eb *EventBus) SubscribeOnce(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	return eb.bus.SubscribeOnce(string(eventType), handler)
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	return eb.bus.Unsubscribe(string(eventType), handler)
}

// Publish 发布事件
func (eb *EventBus) Publish(eventType event.EventType, args ...interface{}) {
	if !eb.config.IsEnabled() {
		return
	}
	eb.bus.Publish(string(eventType), args...)
}

// WaitAsync 等待异步回调完成
func (eb *EventBus) WaitAsync() {
	if !eb.config.IsEnabled() {
		return
	}
	eb.bus.WaitAsync()
}

// HasCallback 检查事件类型是否有订阅
func (eb *EventBus) HasCallback(eventType event.EventType) bool {
	if !eb.config.IsEnabled() {
		return false
	}
	return eb.bus.HasCallback(string(eventType))
}

// Start 启动事件总线
func (eb *EventBus) Start(ctx context.Context) error {
	if eb.running.Load() {
		return fmt.Errorf("event bus already running")
	}
	_, eb.cancel = context.WithCancel(ctx)
	eb.running.Store(true)
	return nil
}

// Stop 停止事件总线并等待异步回调结束
func (eb *EventBus) Stop(ctx context.Context) error {
	if !eb.running.Load() {
		return fmt.Errorf("event bus not running")
	}
	eb.running.Store(false)
	if eb.cancel != nil {
		eb.cancel()
	}
	eb.WaitAsync()
	return nil
}
