// 托管账户相关类型：押金记录、结算结果与受益角色
package types

import (
	"fmt"
	"time"
)

// Outcome SFX结算结果
// 决定finalize时托管资金的分账比例
type Outcome uint8

const (
	// OutcomeNone 正常完成：100%归接收方
	OutcomeNone Outcome = iota
	// OutcomeContractReverted 目标链合约回滚：默认90%退还付款方，10%归接收方
	OutcomeContractReverted
	// OutcomeUnexpectedFailure 意外失败：50%/50%，罚没部分进入罚没库
	OutcomeUnexpectedFailure
)

// String 返回结算结果的字符串表示
func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeContractReverted:
		return "contract_reverted"
	case OutcomeUnexpectedFailure:
		return "unexpected_failure"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(o))
	}
}

// BeneficiaryRole 押金角色
type BeneficiaryRole uint8

const (
	// RoleRequester 请求者押金（酬劳预留）
	RoleRequester BeneficiaryRole = iota
	// RoleExecutor 执行者押金（保证金）
	RoleExecutor
)

// String 返回角色的字符串表示
func (r BeneficiaryRole) String() string {
	if r == RoleExecutor {
		return "executor"
	}
	return "requester"
}

// Deposit 托管押金记录
// 每个charge_id（即SfxID派生键）同一时刻至多一笔未结押金
type Deposit struct {
	Depositor PayeeInfo   `json:"depositor"`  // 付款方
	Recipient AccountID   `json:"recipient"`  // 接收方
	Amount    Balance     `json:"amount"`     // 托管金额
	AssetID   *AssetID    `json:"asset_id"`   // 资产，nil为原生代币
	ChargeID  string    `json:"charge_id"`  // 押金命名空间键
	CreatedAt time.Time `json:"created_at"` // 创建时间
}

// PayeeInfo 付款方信息
type PayeeInfo struct {
	Account AccountID       `json:"account"` // 付款账户
	Role    BeneficiaryRole `json:"role"`    // 押金角色
}

// Claimable 可领取的结算产物
// 按轮次归集，由受益人主动拉取
type Claimable struct {
	Beneficiary AccountID `json:"beneficiary"` // 受益人
	Round       uint32    `json:"round"`       // 归属轮次
	Amount      Balance   `json:"amount"`      // 可领取金额
	AssetID     *AssetID  `json:"asset_id"`    // 资产
}
