package circuit

import (
	"context"

	"github.com/xchain/v1/pkg/types"
)

// 队列处理的单条权重开销
const (
	biddingTimeoutWeight = 30_000
	revertTimeoutWeight  = 40_000
	signalWeight         = 10_000
)

// ProcessBiddingTimeouts 处理竞价窗口已过的Xtx
//
// 全部SFX都有竞价 → Ready；存在无竞价SFX → RevertKill并全额退款。
// 权重预算内处理不完的条目留在队列等下一tick
func (s *Service) ProcessBiddingTimeouts(ctx context.Context, now types.BlockNumber, weightBudget uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	max := int(weightBudget / biddingTimeoutWeight)
	if max == 0 {
		return 0
	}
	due, err := s.store.DueBiddingTimeouts(ctx, now, max)
	if err != nil {
		s.logger.Errorf("扫描竞价截止队列失败: %v", err)
		return 0
	}

	var consumed uint64
	for _, xtxID := range due {
		if s.isDeferred(xtxID) {
			continue
		}
		consumed += biddingTimeoutWeight
		s.closeBidding(ctx, xtxID)
	}
	return consumed
}

// closeBidding 关闭单个Xtx的竞价窗口
func (s *Service) closeBidding(ctx context.Context, xtxID types.XtxID) {
	cause := types.CauseDroppedAtBidding
	var dropped *LocalCtx
	var ready *LocalCtx
	err := s.machine.Compile(ctx, xtxID,
		func(local *LocalCtx) (*PrecompileResult, error) {
			if local.Xtx.Status != types.StatusPendingBidding && local.Xtx.Status != types.StatusInBidding {
				// 队列条目滞后于状态时跳过
				return &PrecompileResult{TargetStatus: statusOf(local.Xtx.Status)}, nil
			}
			for _, step := range local.Steps {
				for _, fsx := range step {
					if fsx.BestBid == nil {
						return &PrecompileResult{TargetStatus: statusOf(types.StatusRevertKill), Cause: &cause}, nil
					}
				}
			}
			return &PrecompileResult{TargetStatus: statusOf(types.StatusReady)}, nil
		},
		func(old types.XtxStatus, local *LocalCtx) {
			if local.Xtx.Status == types.StatusRevertKill && !old.IsTerminal() {
				dropped = local
			}
			if local.Xtx.Status == types.StatusReady && old != types.StatusReady {
				ready = local
			}
		})
	if err != nil {
		s.logger.Errorf("关闭竞价窗口失败: id=%s err=%v", xtxID, err)
		return
	}
	// 状态滞后的残留队列条目直接清理
	if err := s.store.kv.Delete(ctx, bidqKey(xtxID)); err != nil {
		s.logger.Errorf("清理竞价队列条目失败: id=%s err=%v", xtxID, err)
	}

	if dropped != nil {
		s.refundAll(ctx, dropped)
		s.bus.Publish(types.EventXtxReverted, &types.XtxRevertedEvent{XtxID: xtxID, Cause: cause})
		s.logger.Warnf("竞价失败，Xtx回滚: id=%s", xtxID)
		return
	}
	if ready != nil {
		s.bindBidders(ctx, ready)
		s.bus.Publish(types.EventXtxBiddingComplete, &types.XtxBiddingCompleteEvent{XtxID: xtxID})
		s.logger.Infof("竞价完成，Xtx就绪: id=%s", xtxID)
	}
}

// bindBidders 定标时将每笔请求者押金的接收方绑定为中标执行者
// 此后的ContractReverted分账（接收方份额）即流向已履约的执行者
func (s *Service) bindBidders(ctx context.Context, local *LocalCtx) {
	for _, step := range local.Steps {
		for _, fsx := range step {
			if fsx.BestBid == nil {
				continue
			}
			sfxID := fsx.SfxID(local.Xtx.ID)
			if err := s.accounts.AssignRecipient(ctx, requesterCharge(sfxID), fsx.BestBid.Bidder); err != nil {
				s.logger.Errorf("绑定押金接收方失败: sfx=%s err=%v", sfxID, err)
			}
		}
	}
}

// ProcessRevertTimeouts 处理回滚截止已到的Xtx
//
// 未确认FSX：请求者押金全额退回，执行者保证金一半归请求者、
// 一半罚没入金库。已确认FSX：请求者押金按ContractReverted分账，
// 执行者保证金原额退回
func (s *Service) ProcessRevertTimeouts(ctx context.Context, now types.BlockNumber, weightBudget uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	max := int(weightBudget / revertTimeoutWeight)
	if max == 0 {
		return 0
	}
	due, err := s.store.DueRevertTimeouts(ctx, now, max)
	if err != nil {
		s.logger.Errorf("扫描回滚截止队列失败: %v", err)
		return 0
	}

	var consumed uint64
	for _, xtxID := range due {
		if s.isDeferred(xtxID) {
			continue
		}
		consumed += revertTimeoutWeight
		s.forceRevert(ctx, xtxID)
	}
	return consumed
}

// forceRevert 将单个Xtx驱动到RevertTimedOut终态
func (s *Service) forceRevert(ctx context.Context, xtxID types.XtxID) {
	cause := types.CauseTimeout
	var reverted *LocalCtx
	var fromBidding bool
	err := s.machine.Compile(ctx, xtxID,
		func(local *LocalCtx) (*PrecompileResult, error) {
			if local.Xtx.Status.IsTerminal() {
				return &PrecompileResult{TargetStatus: statusOf(local.Xtx.Status)}, nil
			}
			return &PrecompileResult{TargetStatus: statusOf(types.StatusRevertTimedOut), Cause: &cause}, nil
		},
		func(old types.XtxStatus, local *LocalCtx) {
			if local.Xtx.Status.IsTerminal() && !old.IsTerminal() {
				reverted = local
				fromBidding = old == types.StatusPendingBidding || old == types.StatusInBidding
			}
		})
	if err != nil {
		s.logger.Errorf("超时回滚失败: id=%s err=%v", xtxID, err)
		return
	}
	if reverted == nil {
		return
	}

	// 竞价阶段超时：执行者尚未绑定，押金与保证金全额退回
	if fromBidding {
		s.refundAll(ctx, reverted)
	} else {
		s.settleRevert(ctx, reverted)
	}
	s.bus.Publish(types.EventXtxReverted, &types.XtxRevertedEvent{XtxID: xtxID, Cause: cause})
	s.logger.Warnf("Xtx超时回滚: id=%s status=%s", xtxID, reverted.Xtx.Status)
}

// settleRevert 超时回滚的资金结算
func (s *Service) settleRevert(ctx context.Context, local *LocalCtx) {
	for _, step := range local.Steps {
		for _, fsx := range step {
			sfxID := fsx.SfxID(local.Xtx.ID)
			if fsx.IsConfirmed() {
				// 已履约部分：押金按回滚比例分账，保证金原额退回
				if err := s.accounts.Finalize(ctx, requesterCharge(sfxID), types.OutcomeContractReverted); err != nil {
					s.logger.Errorf("回滚分账失败: sfx=%s err=%v", sfxID, err)
				}
				if fsx.BestBid != nil {
					if err := s.accounts.Refund(ctx, executorCharge(sfxID, fsx.BestBid)); err != nil {
						s.logger.Errorf("退回执行者保证金失败: sfx=%s err=%v", sfxID, err)
					}
				}
				continue
			}
			// 未履约部分：押金全额退回请求者，保证金对半罚没
			if err := s.accounts.Refund(ctx, requesterCharge(sfxID)); err != nil {
				s.logger.Errorf("退回请求者押金失败: sfx=%s err=%v", sfxID, err)
			}
			if fsx.BestBid != nil {
				if err := s.accounts.Finalize(ctx, executorCharge(sfxID, fsx.BestBid), types.OutcomeUnexpectedFailure); err != nil {
					s.logger.Errorf("罚没执行者保证金失败: sfx=%s err=%v", sfxID, err)
				}
			}
		}
	}
}

// ProcessSignals 消化外部信号队列
func (s *Service) ProcessSignals(ctx context.Context, weightBudget uint64) uint64 {
	max := int(weightBudget / signalWeight)
	if max == 0 {
		return 0
	}
	signals := s.DrainSignals(max)
	var consumed uint64
	for _, sig := range signals {
		consumed += signalWeight
		switch sig.Kind {
		case SignalKill:
			if err := s.Kill(ctx, sig.XtxID); err != nil {
				s.logger.Warnf("处理kill信号失败: id=%s err=%v", sig.XtxID, err)
			}
		case SignalBounce:
			// bounce不改变Xtx状态，仅将其截止处理顺延到下一tick
			s.deferXtx(sig.XtxID)
			s.logger.Debugf("bounce信号，处理顺延至下一tick: id=%s", sig.XtxID)
		}
	}
	return consumed
}
