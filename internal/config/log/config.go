// Package log 提供日志配置
package log

import (
	"os"

	"go.uber.org/zap/zapcore"
)

// LogOptions 日志配置选项
type LogOptions struct {
	Level            string `json:"level"`             // debug | info | warn | error
	FilePath         string `json:"file_path"`         // 输出路径，stdout/stderr或文件
	ToConsole        bool   `json:"to_console"`        // 是否同时输出到控制台
	EnableCaller     bool   `json:"enable_caller"`     // 是否记录调用位置
	EnableStacktrace bool   `json:"enable_stacktrace"` // error及以上是否附带堆栈
	MaxSizeMB        int    `json:"max_size_mb"`       // 单文件上限（MB）
	MaxBackups       int    `json:"max_backups"`       // 最多保留文件数
	MaxAgeDays       int    `json:"max_age_days"`      // 最长保留天数
	Compress         bool   `json:"compress"`          // 是否压缩轮转文件
}

// Config 日志配置访问器
type Config struct {
	options *LogOptions
}

// New 创建日志配置
// options为nil时使用默认值，并支持环境变量覆盖：
//
//	XCHAIN_LOG_LEVEL
//	XCHAIN_LOG_FILE
func New(options *LogOptions) *Config {
	if options == nil {
		options = defaultOptions()
	}
	if v := os.Getenv("XCHAIN_LOG_LEVEL"); v != "" {
		options.Level = v
	}
	if v := os.Getenv("XCHAIN_LOG_FILE"); v != "" {
		options.FilePath = v
	}
	return &Config{options: options}
}

// GetLevel 返回配置的日志级别字符串
func (c *Config) GetLevel() string {
	return c.options.Level
}

// GetZapLevel 返回zap日志级别
func (c *Config) GetZapLevel() zapcore.Level {
	switch c.options.Level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// GetFilePath 返回输出路径
func (c *Config) GetFilePath() string {
	return c.options.FilePath
}

// IsConsoleEnabled 是否输出到控制台
func (c *Config) IsConsoleEnabled() bool {
	return c.options.ToConsole
}

// IsCallerEnabled 是否记录调用位置
func (c *Config) IsCallerEnabled() bool {
	return c.options.EnableCaller
}

// IsStacktraceEnabled 是否附带堆栈
func (c *Config) IsStacktraceEnabled() bool {
	return c.options.EnableStacktrace
}

// GetMaxSize 单文件上限（MB）
func (c *Config) GetMaxSize() int {
	return c.options.MaxSizeMB
}

// GetMaxBackups 最多保留文件数
func (c *Config) GetMaxBackups() int {
	return c.options.MaxBackups
}

// GetMaxAge 最长保留天数
func (c *Config) GetMaxAge() int {
	return c.options.MaxAgeDays
}

// IsCompressionEnabled 是否压缩轮转文件
func (c *Config) IsCompressionEnabled() bool {
	return c.options.Compress
}
