// fx模块装配
package abi

import (
	logimpl "github.com/xchain/v1/internal/core/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"go.uber.org/fx"
)

// Module 返回ABI注册表模块
func Module() fx.Option {
	return fx.Module("abi",
		fx.Provide(func(logger log.Logger) core.AbiRegistry {
			return NewRegistry(logimpl.NewModuleLogger(logger, "abi"))
		}),
	)
}
