// Package log 提供基于zap的日志实现
// 支持控制台/文件输出、日志轮转与结构化字段
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	logconfig "github.com/xchain/v1/internal/config/log"
	logInterface "github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// 全局日志实例
	globalLogger logInterface.Logger
	mu           sync.RWMutex
)

// Logger 日志记录器，实现log.Logger接口
type Logger struct {
	zapLogger *zap.Logger
	sugar     *zap.SugaredLogger
}

func init() {
	ResetDefault()
}

// ResetDefault 重置全局日志记录器为默认配置
func ResetDefault() {
	logger, err := New(logconfig.New(nil))
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化默认日志器失败: %v\n", err)
		return
	}
	SetLogger(logger)
}

// New 根据配置创建日志记录器
func New(config *logconfig.Config) (logInterface.Logger, error) {
	level := config.GetZapLevel()

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	fileEncoder := zapcore.NewJSONEncoder(encoderCfg)

	var cores []zapcore.Core

	outputPath := config.GetFilePath()
	if outputPath == "stdout" || outputPath == "stderr" || config.IsConsoleEnabled() {
		output := zapcore.AddSync(os.Stdout)
		if outputPath == "stderr" {
			output = zapcore.AddSync(os.Stderr)
		}
		cores = append(cores, zapcore.NewCore(consoleEncoder, output, zap.NewAtomicLevelAt(level)))
	}

	// 文件输出：lumberjack轮转
	if outputPath != "stdout" && outputPath != "stderr" {
		logDir := filepath.Dir(outputPath)
		if err := os.MkdirAll(logDir, 0700); err != nil {
			return nil, fmt.Errorf("创建日志目录失败: %w", err)
		}
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   outputPath,
			MaxSize:    config.GetMaxSize(),
			MaxBackups: config.GetMaxBackups(),
			MaxAge:     config.GetMaxAge(),
			Compress:   config.IsCompressionEnabled(),
		})
		cores = append(cores, zapcore.NewCore(fileEncoder, fileWriter, zap.NewAtomicLevelAt(level)))
	}

	core := zapcore.NewTee(cores...)

	zapOptions := []zap.Option{}
	if config.IsCallerEnabled() {
		zapOptions = append(zapOptions, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	if config.IsStacktraceEnabled() {
		zapOptions = append(zapOptions, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	zapLogger := zap.New(core, zapOptions...)
	return &Logger{
		zapLogger: zapLogger,
		sugar:     zapLogger.Sugar(),
	}, nil
}

// SetLogger 设置全局日志记录器
func SetLogger(logger logInterface.Logger) {
	if logger == nil {
		return
	}
	mu.Lock()
	globalLogger = logger
	mu.Unlock()
}

// GetLogger 获取全局日志记录器
func GetLogger() logInterface.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// NewModuleLogger 创建带module字段的logger
// 各子系统用模块名标识自己的日志
func NewModuleLogger(baseLogger logInterface.Logger, module string) logInterface.Logger {
	if baseLogger == nil {
		return nil
	}
	return baseLogger.With("module", module)
}

// NewNop 创建空日志记录器，供测试与logger未注入的场景使用
func NewNop() logInterface.Logger {
	zapLogger := zap.NewNop()
	return &Logger{
		zapLogger: zapLogger,
		sugar:     zapLogger.Sugar(),
	}
}

// toZapFields 将键值对参数转换为zap字段
// 参数必须成对出现，奇数个时忽略最后一个
func toZapFields(args ...interface{}) []zap.Field {
	if len(args)%2 != 0 {
		args = args[:len(args)-1]
	}
	fields := make([]zap.Field, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		fields = append(fields, zap.Any(key, args[i+1]))
	}
	return fields
}

// Debug 记录调试级别日志
func (l *Logger) Debug(msg string) { l.sugar.Debug(msg) }

// Debugf 格式化记录调试级别日志
func (l *Logger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

// Info 记录信息级别日志
func (l *Logger) Info(msg string) { l.sugar.Info(msg) }

// Infof 格式化记录信息级别日志
func (l *Logger) Infof(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

// Warn 记录警告级别日志
func (l *Logger) Warn(msg string) { l.sugar.Warn(msg) }

// Warnf 格式化记录警告级别日志
func (l *Logger) Warnf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

// Error 记录错误级别日志
func (l *Logger) Error(msg string) { l.sugar.Error(msg) }

// Errorf 格式化记录错误级别日志
func (l *Logger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Fatal 记录致命级别日志并退出
func (l *Logger) Fatal(msg string) { l.sugar.Fatal(msg) }

// Fatalf 格式化记录致命级别日志并退出
func (l *Logger) Fatalf(format string, args ...interface{}) { l.sugar.Fatalf(format, args...) }

// With 返回带有额外字段的Logger
func (l *Logger) With(args ...interface{}) logInterface.Logger {
	return &Logger{
		zapLogger: l.zapLogger.With(toZapFields(args...)...),
		sugar:     l.sugar.With(args...),
	}
}

// Sync 刷新日志缓冲区
func (l *Logger) Sync() error {
	return l.zapLogger.Sync()
}

// GetZapLogger 获取底层zap实例
func (l *Logger) GetZapLogger() *zap.Logger {
	return l.zapLogger
}
