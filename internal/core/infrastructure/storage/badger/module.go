// fx模块装配
package badger

import (
	"context"

	badgerconfig "github.com/xchain/v1/internal/config/storage/badger"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
	"go.uber.org/fx"
)

// Module 返回BadgerDB存储模块
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(func(logger log.Logger) (storage.KVStore, error) {
			return New(badgerconfig.New(nil), logger)
		}),
		fx.Invoke(func(lc fx.Lifecycle, store storage.KVStore, logger log.Logger) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return store.Close()
				},
			})
		}),
	)
}
