// Package badger 提供BadgerDB存储配置
package badger

import "os"

// BadgerOptions BadgerDB配置选项
type BadgerOptions struct {
	Path         string `json:"path"`          // 数据目录
	InMemory     bool   `json:"in_memory"`     // 是否使用内存模式（测试/临时）
	SyncWrites   bool   `json:"sync_writes"`   // 是否同步写盘
	MemTableSize int64  `json:"memtable_size"` // MemTable大小（字节）
}

// Config BadgerDB配置访问器
type Config struct {
	options *BadgerOptions
}

// New 创建BadgerDB配置
// 环境变量覆盖：
//
//	XCHAIN_BADGER_PATH
//	XCHAIN_BADGER_IN_MEMORY
func New(options *BadgerOptions) *Config {
	if options == nil {
		options = defaultOptions()
	}
	if v := os.Getenv("XCHAIN_BADGER_PATH"); v != "" {
		options.Path = v
	}
	if v := os.Getenv("XCHAIN_BADGER_IN_MEMORY"); v == "true" {
		options.InMemory = true
	}
	return &Config{options: options}
}

// GetPath 数据目录
func (c *Config) GetPath() string {
	return c.options.Path
}

// IsInMemory 是否内存模式
func (c *Config) IsInMemory() bool {
	return c.options.InMemory
}

// IsSyncWritesEnabled 是否同步写盘
func (c *Config) IsSyncWritesEnabled() bool {
	return c.options.SyncWrites
}

// GetMemTableSize MemTable大小
func (c *Config) GetMemTableSize() int64 {
	return c.options.MemTableSize
}
