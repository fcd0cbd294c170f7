// Package circuit 提供跨链执行交付核心的配置
// 覆盖竞价窗口、超时、队列深度、分账比例与权重预算等参数
package circuit

import (
	"os"
	"strconv"

	"github.com/xchain/v1/pkg/types"
)

// CircuitOptions 核心配置选项
type CircuitOptions struct {
	SFXBiddingPeriod        uint32 `json:"sfx_bidding_period"`         // 竞价窗口（区块数）
	XtxTimeoutDefault       uint32 `json:"xtx_timeout_default"`        // 默认回滚超时（区块数）
	XtxTimeoutCheckInterval uint32 `json:"xtx_timeout_check_interval"` // 超时检查间隔（区块数）
	SignalQueueDepth        uint32 `json:"signal_queue_depth"`         // 信号队列深度
	DeletionQueueLimit      uint32 `json:"deletion_queue_limit"`       // 单次tick最大清理条数
	SelfGatewayID           string `json:"self_gateway_id"`            // 本链网关标识（4字节）
	SelfParaID              uint32 `json:"self_para_id"`               // 本链平行链ID
	RoundDuration           uint32 `json:"round_duration"`             // 轮次推进间隔（区块数）
	BondMultiplier          uint32 `json:"bond_multiplier"`            // 执行者保证金乘数（bond = max(insurance, amount*multiplier)）
	RevertSplitRequesterPct uint32 `json:"revert_split_requester_pct"` // ContractReverted时付款方份额（百分比）
	TickWeightBudget        uint64 `json:"tick_weight_budget"`         // 单次tick的权重预算
	ConfirmWeightLimit      uint64 `json:"confirm_weight_limit"`       // 单次确认的权重上限
}

// Config 核心配置访问器
type Config struct {
	options *CircuitOptions
}

// New 创建核心配置
// options为nil时使用默认值，并支持环境变量覆盖：
//
//	XCHAIN_SFX_BIDDING_PERIOD
//	XCHAIN_XTX_TIMEOUT
//	XCHAIN_TIMEOUT_CHECK_INTERVAL
//	XCHAIN_SIGNAL_QUEUE_DEPTH
//	XCHAIN_SELF_GATEWAY_ID
//	XCHAIN_ROUND_DURATION
func New(options *CircuitOptions) *Config {
	if options == nil {
		options = defaultOptions()
	}
	if v := os.Getenv("XCHAIN_SFX_BIDDING_PERIOD"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			options.SFXBiddingPeriod = uint32(n)
		}
	}
	if v := os.Getenv("XCHAIN_XTX_TIMEOUT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			options.XtxTimeoutDefault = uint32(n)
		}
	}
	if v := os.Getenv("XCHAIN_TIMEOUT_CHECK_INTERVAL"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			options.XtxTimeoutCheckInterval = uint32(n)
		}
	}
	if v := os.Getenv("XCHAIN_SIGNAL_QUEUE_DEPTH"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			options.SignalQueueDepth = uint32(n)
		}
	}
	if v := os.Getenv("XCHAIN_SELF_GATEWAY_ID"); v != "" && len(v) == 4 {
		options.SelfGatewayID = v
	}
	if v := os.Getenv("XCHAIN_ROUND_DURATION"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			options.RoundDuration = uint32(n)
		}
	}
	return &Config{options: options}
}

// GetSFXBiddingPeriod 竞价窗口（区块数）
func (c *Config) GetSFXBiddingPeriod() types.BlockNumber {
	return types.BlockNumber(c.options.SFXBiddingPeriod)
}

// GetXtxTimeoutDefault 默认回滚超时（区块数）
func (c *Config) GetXtxTimeoutDefault() types.BlockNumber {
	return types.BlockNumber(c.options.XtxTimeoutDefault)
}

// GetXtxTimeoutCheckInterval 超时检查间隔（区块数）
func (c *Config) GetXtxTimeoutCheckInterval() types.BlockNumber {
	return types.BlockNumber(c.options.XtxTimeoutCheckInterval)
}

// GetSignalQueueDepth 信号队列深度
func (c *Config) GetSignalQueueDepth() uint32 {
	return c.options.SignalQueueDepth
}

// GetDeletionQueueLimit 单次tick最大清理条数
func (c *Config) GetDeletionQueueLimit() uint32 {
	return c.options.DeletionQueueLimit
}

// GetSelfGatewayID 本链网关标识
func (c *Config) GetSelfGatewayID() types.ChainID {
	id, err := types.NewChainID(c.options.SelfGatewayID)
	if err != nil {
		return types.MustChainID("self")
	}
	return id
}

// GetSelfParaID 本链平行链ID
func (c *Config) GetSelfParaID() uint32 {
	return c.options.SelfParaID
}

// GetRoundDuration 轮次推进间隔（区块数）
func (c *Config) GetRoundDuration() types.BlockNumber {
	return types.BlockNumber(c.options.RoundDuration)
}

// GetBondMultiplier 保证金乘数
func (c *Config) GetBondMultiplier() uint32 {
	return c.options.BondMultiplier
}

// GetRevertSplitRequesterPct ContractReverted时付款方份额
func (c *Config) GetRevertSplitRequesterPct() uint32 {
	pct := c.options.RevertSplitRequesterPct
	if pct > 100 {
		return 100
	}
	return pct
}

// GetTickWeightBudget 单次tick的权重预算
func (c *Config) GetTickWeightBudget() uint64 {
	return c.options.TickWeightBudget
}

// GetConfirmWeightLimit 单次确认的权重上限
func (c *Config) GetConfirmWeightLimit() uint64 {
	return c.options.ConfirmWeightLimit
}
