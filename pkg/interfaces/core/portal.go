// Package core 定义核心子系统之间的协作接口
// Portal、托管账户管理器与XDNS注册表的消费方依赖本包，
// 实现位于 internal/core 下对应子目录
package core

import (
	"context"

	"github.com/xchain/v1/pkg/types"
)

// InclusionProof 入块证明
// 执行者提交的确认材料：事件原文、所在区块高度与默克尔路径
type InclusionProof struct {
	Event  []byte   `json:"event"`  // 目标链事件的编码字节
	Height uint64   `json:"height"` // 事件所在目标链区块高度
	Proof  [][]byte `json:"proof"`  // 默克尔包含路径
}

// LightClient 单一目标链轻客户端
// 每个类别（Vendor）为一个独立的小状态机，自持头部存储与校验器
type LightClient interface {
	// Vendor 返回轻客户端类别
	Vendor() types.Vendor

	// LatestFinalizedHeader 最新终局化头部的编码字节
	LatestFinalizedHeader(ctx context.Context) ([]byte, error)

	// LatestFinalizedHeight 最新终局化高度
	LatestFinalizedHeight(ctx context.Context) (uint64, error)

	// LatestUpdatedHeight 最新已提交（未必终局化）高度
	LatestUpdatedHeight(ctx context.Context) (uint64, error)

	// CurrentEpoch 当前epoch
	CurrentEpoch(ctx context.Context) (uint64, error)

	// VerifyEventInclusion 校验事件入块证明
	// speedMode决定所需确认深度；校验通过时返回解码后的事件字节
	VerifyEventInclusion(ctx context.Context, proof InclusionProof, speedMode types.SpeedMode) ([]byte, error)
}

// Portal 轻客户端统一选择器
// 按目标链标识路由到对应的轻客户端实例
type Portal interface {
	LatestFinalizedHeader(ctx context.Context, chain types.ChainID) ([]byte, error)
	LatestFinalizedHeight(ctx context.Context, chain types.ChainID) (uint64, error)
	LatestUpdatedHeight(ctx context.Context, chain types.ChainID) (uint64, error)
	CurrentEpoch(ctx context.Context, chain types.ChainID) (uint64, error)
	VerifyEventInclusion(ctx context.Context, chain types.ChainID, proof InclusionProof, speedMode types.SpeedMode) ([]byte, error)
}
