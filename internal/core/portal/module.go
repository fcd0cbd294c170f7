// fx模块装配
package portal

import (
	"context"

	portalconfig "github.com/xchain/v1/internal/config/portal"
	logimpl "github.com/xchain/v1/internal/core/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
	"go.uber.org/fx"
)

// ModuleOutput 门户模块输出
type ModuleOutput struct {
	fx.Out

	Portal       core.Portal
	PortalHandle *Portal // 宿主侧头部提交与网关注册入口
}

// Module 返回门户模块
func Module() fx.Option {
	return fx.Module("portal",
		fx.Provide(func(store storage.KVStore, logger log.Logger) (ModuleOutput, error) {
			p, err := New(store, portalconfig.New(nil), logimpl.NewModuleLogger(logger, "portal"))
			if err != nil {
				return ModuleOutput{}, err
			}
			return ModuleOutput{Portal: p, PortalHandle: p}, nil
		}),
		fx.Invoke(func(lc fx.Lifecycle, p *Portal) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return p.Close()
				},
			})
		}),
	)
}
