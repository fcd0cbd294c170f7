// fx模块装配
package xdns

import (
	"context"

	logimpl "github.com/xchain/v1/internal/core/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
	"go.uber.org/fx"
)

// Module 返回网关注册表模块
func Module() fx.Option {
	return fx.Module("xdns",
		fx.Provide(func(store storage.KVStore, logger log.Logger) (core.Xdns, error) {
			return NewRegistry(context.Background(), store, logimpl.NewModuleLogger(logger, "xdns"))
		}),
	)
}
