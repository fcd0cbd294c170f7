// Package event 定义事件总线接口
// 基于asaskevich/EventBus的实现位于 internal/core/infrastructure/event
package event

import "context"

// EventType 事件类型
type EventType string

// SubscriptionID 订阅标识
type SubscriptionID string

// EventBus 事件总线接口
// 领域事件（NewXtx、SFXNewBidReceived等）经由总线发布，
// 订阅方以回调形式消费
type EventBus interface {
	// Subscribe 同步订阅指定类型的事件
	Subscribe(eventType EventType, handler interface{}) error

	// SubscribeAsync 异步订阅
	// transactional为true时同一订阅的回调串行执行
	SubscribeAsync(eventType EventType, handler interface{}, transactional bool) error

	// SubscribeOnce 一次性订阅
	SubscribeOnce(eventType EventType, handler interface{}) error

	// Unsubscribe 取消订阅
	Unsubscribe(eventType EventType, handler interface{}) error

	// Publish 发布事件
	Publish(eventType EventType, args ...interface{})

	// WaitAsync 等待所有异步回调完成
	WaitAsync()

	// HasCallback 检查事件类型是否有订阅
	HasCallback(eventType EventType) bool

	// Start 启动事件总线
	Start(ctx context.Context) error

	// Stop 停止事件总线并等待异步回调结束
	Stop(ctx context.Context) error
}
