// 领域事件类型与事件载荷定义
// 事件通过事件总线发布，类型常量采用 circuit.<域>.<动作> 命名
package types

// 事件类型常量
const (
	// EventNewXtx 新Xtx创建
	EventNewXtx = "circuit.xtx.new"
	// EventSFXNewBidReceived SFX收到新的最优竞价
	EventSFXNewBidReceived = "circuit.sfx.bid_received"
	// EventXtxBiddingComplete 竞价窗口结束且全部SFX绑定执行者
	EventXtxBiddingComplete = "circuit.xtx.bidding_complete"
	// EventSideEffectConfirmed SFX确认成功
	EventSideEffectConfirmed = "circuit.sfx.confirmed"
	// EventXtxCompleted Xtx全部步骤完成
	EventXtxCompleted = "circuit.xtx.completed"
	// EventXtxReverted Xtx回滚
	EventXtxReverted = "circuit.xtx.reverted"
	// EventXtxKilled Xtx被强制终止
	EventXtxKilled = "circuit.xtx.killed"
	// EventClaimableAccrued 轮次快照产生可领取结算
	EventClaimableAccrued = "circuit.claim.accrued"
)

// NewXtxEvent 新Xtx事件载荷
type NewXtxEvent struct {
	XtxID     XtxID       `json:"xtx_id"`
	Requester AccountID   `json:"requester"`
	SfxIDs    []SfxID     `json:"sfx_ids"`
	TimeoutAt BlockNumber `json:"timeout_at"`
}

// SFXNewBidEvent 新竞价事件载荷
type SFXNewBidEvent struct {
	SfxID  SfxID     `json:"sfx_id"`
	Bidder AccountID `json:"bidder"`
	Amount Balance   `json:"amount"`
}

// XtxBiddingCompleteEvent 竞价完成事件载荷
type XtxBiddingCompleteEvent struct {
	XtxID XtxID `json:"xtx_id"`
}

// SideEffectConfirmedEvent SFX确认事件载荷
type SideEffectConfirmedEvent struct {
	SfxID    SfxID     `json:"sfx_id"`
	Executor AccountID `json:"executor"`
}

// XtxCompletedEvent Xtx完成事件载荷
type XtxCompletedEvent struct {
	XtxID XtxID `json:"xtx_id"`
}

// XtxRevertedEvent Xtx回滚事件载荷
type XtxRevertedEvent struct {
	XtxID XtxID `json:"xtx_id"`
	Cause Cause `json:"cause"`
}

// XtxKilledEvent Xtx终止事件载荷
type XtxKilledEvent struct {
	XtxID XtxID `json:"xtx_id"`
	Cause Cause `json:"cause"`
}

// ClaimableAccruedEvent 可领取结算事件载荷
type ClaimableAccruedEvent struct {
	Round       uint32    `json:"round"`
	Beneficiary AccountID `json:"beneficiary"`
	Amount      Balance   `json:"amount"`
}
