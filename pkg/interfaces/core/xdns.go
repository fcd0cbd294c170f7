// XDNS网关注册表接口
package core

import (
	"context"

	"github.com/xchain/v1/pkg/types"
)

// Xdns 网关注册表
// 名称到网关记录的查询层；核心只读，登记由宿主侧维护
type Xdns interface {
	// GetGateway 查询网关记录，未登记时返回 ErrGatewayNotRegistered
	GetGateway(ctx context.Context, chain types.ChainID) (*types.GatewayRecord, error)

	// IsRegistered 检查网关是否已登记
	IsRegistered(ctx context.Context, chain types.ChainID) bool

	// AddGateway 登记网关（宿主侧初始化使用）
	AddGateway(ctx context.Context, record *types.GatewayRecord) error

	// ListGateways 列出全部已登记网关
	ListGateways(ctx context.Context) ([]*types.GatewayRecord, error)
}
