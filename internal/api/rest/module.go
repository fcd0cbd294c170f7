// fx模块装配
package rest

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	apiconfig "github.com/xchain/v1/internal/config/api"
	"github.com/xchain/v1/internal/core/circuit"
	logimpl "github.com/xchain/v1/internal/core/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"go.uber.org/fx"
)

// ModuleParams 查询服务依赖
type ModuleParams struct {
	fx.In

	Service  *circuit.Service
	Accounts core.AccountManager
	Xdns     core.Xdns
	Gatherer prometheus.Gatherer
	Config   *apiconfig.Config
	Logger   log.Logger
}

// Module 返回查询服务模块
func Module() fx.Option {
	return fx.Module("rest",
		fx.Provide(func(p ModuleParams) *Server {
			return NewServer(p.Service, p.Accounts, p.Xdns, p.Gatherer, p.Config,
				logimpl.NewModuleLogger(p.Logger, "rest"))
		}),
		fx.Invoke(func(lc fx.Lifecycle, server *Server) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return server.Start()
				},
				OnStop: func(ctx context.Context) error {
					return server.Stop(ctx)
				},
			})
		}),
	)
}
