// Package api 提供只读查询服务配置
package api

import "os"

// APIOptions 查询服务配置选项
type APIOptions struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"` // 监听地址
}

// Config 查询服务配置访问器
type Config struct {
	options *APIOptions
}

// New 创建查询服务配置，nil时使用默认值
// 支持环境变量覆盖：XCHAIN_API_ADDR、XCHAIN_API_ENABLED
func New(options *APIOptions) *Config {
	if options == nil {
		options = &APIOptions{Enabled: true, Addr: ":8545"}
	}
	if v := os.Getenv("XCHAIN_API_ADDR"); v != "" {
		options.Addr = v
	}
	if v := os.Getenv("XCHAIN_API_ENABLED"); v == "false" {
		options.Enabled = false
	}
	return &Config{options: options}
}

// IsEnabled 查询服务是否启用
func (c *Config) IsEnabled() bool { return c.options.Enabled }

// GetAddr 监听地址
func (c *Config) GetAddr() string { return c.options.Addr }
