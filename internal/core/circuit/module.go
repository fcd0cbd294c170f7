// fx模块装配
package circuit

import (
	circuitconfig "github.com/xchain/v1/internal/config/circuit"
	logimpl "github.com/xchain/v1/internal/core/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/event"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
	"go.uber.org/fx"
)

// ModuleParams 核心操作面依赖
type ModuleParams struct {
	fx.In

	KV       storage.KVStore
	Xdns     core.Xdns
	Abi      core.AbiRegistry
	Portal   core.Portal
	Accounts core.AccountManager
	Bus      event.EventBus
	Config   *circuitconfig.Config
	Logger   log.Logger
}

// Module 返回核心模块
func Module() fx.Option {
	return fx.Module("circuit",
		fx.Provide(func(p ModuleParams) *Service {
			return NewService(p.KV, p.Xdns, p.Abi, p.Portal, p.Accounts, p.Bus, p.Config,
				logimpl.NewModuleLogger(p.Logger, "circuit"))
		}),
	)
}
