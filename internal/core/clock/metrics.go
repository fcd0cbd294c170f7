package clock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 时钟驱动器指标
type Metrics struct {
	TicksTotal      prometheus.Counter
	WeightConsumed  *prometheus.CounterVec
	RoundsTotal     prometheus.Counter
	ClaimablesTotal prometheus.Counter
}

// NewMetrics 注册并返回指标集合
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TicksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "xchain",
			Subsystem: "clock",
			Name:      "ticks_total",
			Help:      "已执行的tick总数",
		}),
		WeightConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xchain",
			Subsystem: "clock",
			Name:      "weight_consumed_total",
			Help:      "各阶段消耗的权重累计",
		}, []string{"phase"}),
		RoundsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "xchain",
			Subsystem: "clock",
			Name:      "rounds_total",
			Help:      "已推进的结算轮次总数",
		}),
		ClaimablesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "xchain",
			Subsystem: "clock",
			Name:      "claimables_total",
			Help:      "轮次快照产生的可领取条目总数",
		}),
	}
}
