// Package event 提供事件总线配置
package event

import "os"

// EventOptions 事件总线配置选项
type EventOptions struct {
	Enabled    bool `json:"enabled"`     // 是否启用事件系统
	MaxWorkers int  `json:"max_workers"` // 异步回调最大并发
	BufferSize int  `json:"buffer_size"` // 事件缓冲大小
}

// Config 事件总线配置访问器
type Config struct {
	options *EventOptions
}

// New 创建事件配置
// 环境变量覆盖：XCHAIN_EVENTS_ENABLED
func New(options *EventOptions) *Config {
	if options == nil {
		options = &EventOptions{
			Enabled:    true,
			MaxWorkers: 8,
			BufferSize: 1024,
		}
	}
	if v := os.Getenv("XCHAIN_EVENTS_ENABLED"); v == "false" {
		options.Enabled = false
	}
	return &Config{options: options}
}

// IsEnabled 事件系统是否启用
func (c *Config) IsEnabled() bool {
	return c.options.Enabled
}

// GetMaxWorkers 异步回调最大并发
func (c *Config) GetMaxWorkers() int {
	return c.options.MaxWorkers
}

// GetBufferSize 事件缓冲大小
func (c *Config) GetBufferSize() int {
	return c.options.BufferSize
}
