// Package clock 提供按块驱动的时钟与队列驱动器
// 每个宿主区块执行一次tick，按固定权重份额依次处理：
// 信号队列(5%)、竞价/回滚截止(30%)、严重逾期清扫(5%)、轮次推进(15%)
package clock

import (
	"context"

	circuitconfig "github.com/xchain/v1/internal/config/circuit"
	"github.com/xchain/v1/internal/core/circuit"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/event"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/types"
)

// 各阶段权重份额（百分比）
const (
	signalSharePct  = 5
	tickSharePct    = 30
	overdueSharePct = 5
	roundSharePct   = 15
)

// Driver 时钟驱动器
// 单次tick内权重超限的条目静默顺延到下一tick，队列保持有序
type Driver struct {
	service  *circuit.Service
	accounts core.AccountManager
	bus      event.EventBus
	config   *circuitconfig.Config
	metrics  *Metrics
	logger   log.Logger

	lastRoundBump types.BlockNumber
}

// NewDriver 创建时钟驱动器
func NewDriver(service *circuit.Service, accounts core.AccountManager, bus event.EventBus,
	config *circuitconfig.Config, metrics *Metrics, logger log.Logger) *Driver {
	return &Driver{
		service:  service,
		accounts: accounts,
		bus:      bus,
		config:   config,
		metrics:  metrics,
		logger:   logger,
	}
}

// OnInitialize 区块初始化入口，宿主每出一块调用一次
func (d *Driver) OnInitialize(ctx context.Context, block types.BlockNumber) {
	d.service.SetBlock(block)
	budget := d.config.GetTickWeightBudget()
	d.metrics.TicksTotal.Inc()

	// 信号队列
	consumed := d.service.ProcessSignals(ctx, budget*signalSharePct/100)
	d.metrics.WeightConsumed.WithLabelValues("signals").Add(float64(consumed))

	// 竞价与回滚截止：tick份额对半分
	tickBudget := budget * tickSharePct / 100
	consumed = d.service.ProcessBiddingTimeouts(ctx, block, tickBudget/2)
	d.metrics.WeightConsumed.WithLabelValues("bidding_timeouts").Add(float64(consumed))
	consumed = d.service.ProcessRevertTimeouts(ctx, block, tickBudget/2)
	d.metrics.WeightConsumed.WithLabelValues("revert_timeouts").Add(float64(consumed))

	// 严重逾期清扫：为上一阶段预算内没轮到的条目兜底
	consumed = d.service.ProcessRevertTimeouts(ctx, block, budget*overdueSharePct/100)
	d.metrics.WeightConsumed.WithLabelValues("overdue_sweep").Add(float64(consumed))

	// 轮次推进
	if interval := d.config.GetRoundDuration(); interval > 0 && block >= d.lastRoundBump+interval {
		d.bumpRound(ctx, block)
	}
}

// bumpRound 推进结算轮次并广播可领取快照
func (d *Driver) bumpRound(ctx context.Context, block types.BlockNumber) {
	claimables, err := d.accounts.BumpRound(ctx)
	if err != nil {
		d.logger.Errorf("轮次推进失败: block=%d err=%v", block, err)
		return
	}
	d.lastRoundBump = block
	d.metrics.RoundsTotal.Inc()
	d.metrics.ClaimablesTotal.Add(float64(len(claimables)))

	for _, c := range claimables {
		d.bus.Publish(types.EventClaimableAccrued, &types.ClaimableAccruedEvent{
			Round:       c.Round,
			Beneficiary: c.Beneficiary,
			Amount:      c.Amount,
		})
	}
	d.logger.Infof("轮次推进: block=%d claimables=%d", block, len(claimables))
}
