// fx模块装配
package event

import (
	"context"

	eventconfig "github.com/xchain/v1/internal/config/event"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/event"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"go.uber.org/fx"
)

// Module 返回事件总线模块
func Module() fx.Option {
	return fx.Module("event",
		fx.Provide(func() event.EventBus {
			return New(eventconfig.New(nil))
		}),
		fx.Invoke(func(lc fx.Lifecycle, bus event.EventBus, logger log.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					logger.Info("事件总线启动")
					return bus.Start(ctx)
				},
				OnStop: func(ctx context.Context) error {
					logger.Info("事件总线停止")
					return bus.Stop(ctx)
				},
			})
		}),
	)
}
