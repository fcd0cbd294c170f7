// Package log 定义日志接口
// 具体实现位于 internal/core/infrastructure/log，基于zap
package log

import "go.uber.org/zap"

// Level 日志级别
type Level string

const (
	// DebugLevel 调试级别
	DebugLevel Level = "debug"
	// InfoLevel 信息级别
	InfoLevel Level = "info"
	// WarnLevel 警告级别
	WarnLevel Level = "warn"
	// ErrorLevel 错误级别
	ErrorLevel Level = "error"
	// FatalLevel 致命级别
	FatalLevel Level = "fatal"
)

// Logger 日志记录器接口
// 支持结构化字段（With）与格式化输出
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
	Fatal(msg string)
	Fatalf(format string, args ...interface{})

	// With 返回带有额外键值字段的Logger
	With(args ...interface{}) Logger

	// Sync 刷新缓冲区
	Sync() error

	// GetZapLogger 获取底层zap实例（供需要zap特性的模块使用）
	GetZapLogger() *zap.Logger
}
