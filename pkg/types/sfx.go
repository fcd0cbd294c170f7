// 副作用（SFX）相关类型：请求者提交的SideEffect、核心内部的FullSideEffect、
// 竞价记录与确认记录
package types

import (
	"encoding/json"
	"fmt"
)

// SpeedMode 确认速度模式
// 决定入块证明所需的目标链确认深度
type SpeedMode uint8

const (
	// SpeedModeFast 最小确认偏移，最快结算
	SpeedModeFast SpeedMode = iota
	// SpeedModeRational 中间确认偏移
	SpeedModeRational
	// SpeedModeFinalized 规范终局（按epoch界定）偏移
	SpeedModeFinalized
)

// String 返回速度模式的字符串表示
func (m SpeedMode) String() string {
	switch m {
	case SpeedModeFast:
		return "fast"
	case SpeedModeRational:
		return "rational"
	case SpeedModeFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// SecurityLevel SFX安全级别
type SecurityLevel uint8

const (
	// SecurityOptimistic 乐观模式：仅声誉担保，不锁定保险金
	SecurityOptimistic SecurityLevel = iota
	// SecurityEscrowed 托管模式：执行者保证金被托管，失败时罚没
	SecurityEscrowed
)

// String 返回安全级别的字符串表示
func (l SecurityLevel) String() string {
	if l == SecurityEscrowed {
		return "escrowed"
	}
	return "optimistic"
}

// SideEffect 请求者提交的副作用
// 描述一次在远端目标链上的操作及其酬劳与担保条件
type SideEffect struct {
	Target          ChainID    `json:"target"`                      // 目标链
	Action          Action     `json:"action"`                      // 操作类型
	EncodedArgs     [][]byte   `json:"encoded_args"`                // 位置参数，编码中立的字节串
	MaxReward       Balance    `json:"max_reward"`                  // 请求者愿付的最高酬劳
	Insurance       Balance    `json:"insurance"`                   // 执行者保证金（失败时罚没）
	RewardAssetID   *AssetID   `json:"reward_asset_id,omitempty"`   // 酬劳资产，nil表示原生代币
	EnforceExecutor *AccountID `json:"enforce_executor,omitempty"`  // 指定执行者（仅其可竞价）
	Signature       []byte     `json:"signature,omitempty"`         // 预留字段，核心内未使用
}

// SecurityLevel 根据保险金推导SFX的安全级别
// insurance > 0 即为托管模式
func (s *SideEffect) SecurityLevel() SecurityLevel {
	if s.Insurance > 0 {
		return SecurityEscrowed
	}
	return SecurityOptimistic
}

// SFXBid 单个SFX的当前最优竞价
type SFXBid struct {
	Bidder       AccountID `json:"bidder"`        // 竞价者账户
	Amount       Balance   `json:"amount"`        // 竞价金额（执行酬劳）
	ReservedBond Balance   `json:"reserved_bond"` // 已预留的保证金
}

// ConfirmedSideEffect SFX的确认记录
type ConfirmedSideEffect struct {
	Executor      AccountID   `json:"executor"`            // 提交确认的执行者
	InclusionData []byte      `json:"inclusion_data"`      // 入块证明原始数据
	ReceivedAt    BlockNumber `json:"received_at"`         // 确认被接受的宿主区块
	Cost          *Balance    `json:"cost,omitempty"`      // 目标链上的实际成本（可选）
	Err           string      `json:"err,omitempty"`       // 目标链侧的错误标记（可选）
}

// FullSideEffect 核心内部的完整副作用记录
// 包装不可变的请求输入与可变的竞价/确认状态
type FullSideEffect struct {
	Input       SideEffect           `json:"input"`               // Xtx创建后不可变
	SecurityLvl SecurityLevel        `json:"security_lvl"`        // 安全级别
	BestBid     *SFXBid              `json:"best_bid,omitempty"`  // 当前最优竞价
	Confirmed   *ConfirmedSideEffect `json:"confirmed,omitempty"` // 确认记录
	Index       uint32               `json:"index"`               // 在Xtx内的位置
}

// SfxID 计算此FSX在给定Xtx下的副作用标识
func (f *FullSideEffect) SfxID(xtxID XtxID) SfxID {
	return NewSfxID(xtxID, f.Index)
}

// IsConfirmed 检查FSX是否已确认
func (f *FullSideEffect) IsConfirmed() bool {
	return f.Confirmed != nil
}

// Clone 深拷贝FSX
// compile原语在乐观副本上执行precompile时使用
func (f *FullSideEffect) Clone() *FullSideEffect {
	raw, err := json.Marshal(f)
	if err != nil {
		// FSX结构不含不可序列化字段，Marshal不应失败
		cp := *f
		return &cp
	}
	var cp FullSideEffect
	if err := json.Unmarshal(raw, &cp); err != nil {
		c := *f
		return &c
	}
	return &cp
}

// CloneFSXSteps 深拷贝步骤化FSX列表
func CloneFSXSteps(steps [][]*FullSideEffect) [][]*FullSideEffect {
	out := make([][]*FullSideEffect, len(steps))
	for i, step := range steps {
		out[i] = make([]*FullSideEffect, len(step))
		for j, fsx := range step {
			out[i][j] = fsx.Clone()
		}
	}
	return out
}
