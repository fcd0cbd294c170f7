package circuit

// defaultOptions 返回默认核心配置
// 区块数参数按6秒出块折算
func defaultOptions() *CircuitOptions {
	return &CircuitOptions{
		SFXBiddingPeriod:        3,
		XtxTimeoutDefault:       400,
		XtxTimeoutCheckInterval: 10,
		SignalQueueDepth:        100,
		DeletionQueueLimit:      100,
		SelfGatewayID:           "xchn",
		SelfParaID:              3333,
		RoundDuration:           100,
		BondMultiplier:          0,
		RevertSplitRequesterPct: 90,
		TickWeightBudget:        1_000_000,
		ConfirmWeightLimit:      200_000,
	}
}
