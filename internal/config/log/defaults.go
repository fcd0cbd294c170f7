package log

// defaultOptions 返回默认日志配置
func defaultOptions() *LogOptions {
	return &LogOptions{
		Level:            "info",
		FilePath:         "stdout",
		ToConsole:        true,
		EnableCaller:     true,
		EnableStacktrace: false,
		MaxSizeMB:        100,
		MaxBackups:       10,
		MaxAgeDays:       30,
		Compress:         true,
	}
}
