// fx模块装配
package escrow

import (
	circuitconfig "github.com/xchain/v1/internal/config/circuit"
	logimpl "github.com/xchain/v1/internal/core/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
	"go.uber.org/fx"
)

// ModuleOutput 托管模块输出
type ModuleOutput struct {
	fx.Out

	AccountManager core.AccountManager
	ManagerHandle  *Manager // 宿主侧入金与只读查询入口
}

// Module 返回托管账户模块
func Module() fx.Option {
	return fx.Module("escrow",
		fx.Provide(func(store storage.KVStore, config *circuitconfig.Config, logger log.Logger) ModuleOutput {
			m := NewManager(store, config, logimpl.NewModuleLogger(logger, "escrow"))
			return ModuleOutput{AccountManager: m, ManagerHandle: m}
		}),
	)
}
