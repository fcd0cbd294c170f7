// Package app 负责整机装配
// 按依赖顺序组合各功能模块，统一由fx管理生命周期
package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xchain/v1/internal/api/rest"
	apiconfig "github.com/xchain/v1/internal/config/api"
	circuitconfig "github.com/xchain/v1/internal/config/circuit"
	"github.com/xchain/v1/internal/core/abi"
	"github.com/xchain/v1/internal/core/circuit"
	"github.com/xchain/v1/internal/core/clock"
	"github.com/xchain/v1/internal/core/escrow"
	eventimpl "github.com/xchain/v1/internal/core/infrastructure/event"
	logimpl "github.com/xchain/v1/internal/core/infrastructure/log"
	badgerstore "github.com/xchain/v1/internal/core/infrastructure/storage/badger"
	"github.com/xchain/v1/internal/core/portal"
	"github.com/xchain/v1/internal/core/xdns"
	"go.uber.org/fx"
)

// Options 整机装配参数
type Options struct {
	Circuit *circuitconfig.CircuitOptions
	API     *apiconfig.APIOptions
}

// New 组装完整节点
func New(opts *Options) *fx.App {
	if opts == nil {
		opts = &Options{}
	}
	return fx.New(Assemble(opts))
}

// Assemble 返回完整模块集合（测试可在其上追加替换项）
func Assemble(opts *Options) fx.Option {
	return fx.Options(
		fx.Provide(
			func() *circuitconfig.Config { return circuitconfig.New(opts.Circuit) },
			func() *apiconfig.Config { return apiconfig.New(opts.API) },
			func() (prometheus.Registerer, prometheus.Gatherer) {
				registry := prometheus.NewRegistry()
				return registry, registry
			},
		),
		logimpl.Module(),
		eventimpl.Module(),
		badgerstore.Module(),
		abi.Module(),
		xdns.Module(),
		portal.Module(),
		escrow.Module(),
		circuit.Module(),
		clock.Module(),
		rest.Module(),
	)
}
