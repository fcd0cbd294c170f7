// fx模块装配
package clock

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	circuitconfig "github.com/xchain/v1/internal/config/circuit"
	"github.com/xchain/v1/internal/core/circuit"
	logimpl "github.com/xchain/v1/internal/core/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/event"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/types"
	"go.uber.org/fx"
)

// 宿主出块间隔
const blockInterval = 6 * time.Second

// ModuleParams 时钟模块依赖
type ModuleParams struct {
	fx.In

	Service  *circuit.Service
	Accounts core.AccountManager
	Bus      event.EventBus
	Config   *circuitconfig.Config
	Registry prometheus.Registerer
	Logger   log.Logger
}

// Module 返回时钟模块
// 启动后按出块间隔自增区块号并驱动tick
func Module() fx.Option {
	return fx.Module("clock",
		fx.Provide(func(p ModuleParams) *Driver {
			return NewDriver(p.Service, p.Accounts, p.Bus, p.Config, NewMetrics(p.Registry),
				logimpl.NewModuleLogger(p.Logger, "clock"))
		}),
		fx.Invoke(func(lc fx.Lifecycle, driver *Driver, logger log.Logger) {
			tickCtx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go func() {
						defer close(done)
						ticker := time.NewTicker(blockInterval)
						defer ticker.Stop()
						var block types.BlockNumber
						for {
							select {
							case <-tickCtx.Done():
								return
							case <-ticker.C:
								block++
								driver.OnInitialize(tickCtx, block)
							}
						}
					}()
					logger.Info("时钟驱动器启动")
					return nil
				},
				OnStop: func(ctx context.Context) error {
					cancel()
					<-done
					logger.Info("时钟驱动器停止")
					return nil
				},
			})
		}),
	)
}
