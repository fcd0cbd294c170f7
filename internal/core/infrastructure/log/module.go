// fx模块装配
package log

import (
	"fmt"

	logconfig "github.com/xchain/v1/internal/config/log"
	logInterface "github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ModuleOutput 日志模块输出
type ModuleOutput struct {
	fx.Out

	Logger    logInterface.Logger // 日志记录器接口
	ZapLogger *zap.Logger         // 底层zap实例
}

// Module 返回日志模块
func Module() fx.Option {
	return fx.Module("log",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 提供日志服务
func ProvideServices() (ModuleOutput, error) {
	logger, err := New(logconfig.New(nil))
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("创建日志记录器失败: %w", err)
	}
	SetLogger(logger)

	concrete, ok := logger.(*Logger)
	if !ok {
		return ModuleOutput{}, fmt.Errorf("logger类型断言失败")
	}
	return ModuleOutput{
		Logger:    logger,
		ZapLogger: concrete.zapLogger,
	}, nil
}
