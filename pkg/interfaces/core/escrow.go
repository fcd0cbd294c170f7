// 托管账户管理器接口
package core

import (
	"context"

	"github.com/xchain/v1/pkg/types"
)

// AccountManager 托管账户管理器
// 负责与SFX执行绑定的资金预留、分账与释放；所有操作同步完成，
// 同一charge_id下同一时刻至多一笔未结押金
type AccountManager interface {
	// Deposit 从付款方转入托管账户并登记押金
	// charge_id已存在未结押金时返回 ErrAlreadyRegistered
	Deposit(ctx context.Context, chargeID string, payee types.PayeeInfo, recipient types.AccountID, amount types.Balance, assetID *types.AssetID) error

	// AssignRecipient 更新未结押金的接收方
	// 竞价定标后将请求者押金的接收方绑定为中标执行者
	AssignRecipient(ctx context.Context, chargeID string, recipient types.AccountID) error

	// Finalize 按结算结果对押金分账并关闭记录
	// 付款方份额即时退回，接收方份额计入当轮可领取
	Finalize(ctx context.Context, chargeID string, outcome types.Outcome) error

	// Refund 全额退回押金并关闭记录（竞价被顶替等场景）
	Refund(ctx context.Context, chargeID string) error

	// Issue 从托管账户直接划转到接收方
	Issue(ctx context.Context, recipient types.AccountID, amount types.Balance) error

	// BalanceOf 查询账户余额
	BalanceOf(ctx context.Context, account types.AccountID) (types.Balance, error)

	// EscrowBalance 查询托管账户总余额
	EscrowBalance(ctx context.Context) (types.Balance, error)

	// OpenDeposits 列出全部未结押金
	OpenDeposits(ctx context.Context) ([]*types.Deposit, error)

	// CurrentRound 当前轮次
	CurrentRound(ctx context.Context) (uint32, error)

	// BumpRound 轮次推进并快照当轮可领取结算
	// 由时钟驱动器每N个区块调用一次；返回新产生的可领取列表
	BumpRound(ctx context.Context) ([]*types.Claimable, error)

	// Claim 受益人领取指定轮次的结算
	Claim(ctx context.Context, beneficiary types.AccountID, round uint32) (types.Balance, error)
}
