package circuit

import (
	"context"
	"fmt"

	"github.com/xchain/v1/pkg/types"
)

// BidSFX 对指定SFX出价
//
// 首价递减拍卖：新竞价必须严格低于当前最优；被顶替的竞价者
// 保证金原额退回。保证金 = max(insurance, amount * bond_multiplier)
func (s *Service) BidSFX(ctx context.Context, bidder types.AccountID, sfxID types.SfxID, amount types.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	xtxID, err := s.store.ResolveSfx(ctx, sfxID)
	if err != nil {
		return err
	}

	// 竞价窗口检查：截止块当块仍可竞价，之后拒绝
	deadline, open, err := s.store.BiddingDeadline(ctx, xtxID)
	if err != nil {
		return err
	}
	if !open || s.CurrentBlock() > deadline {
		return fmt.Errorf("%w: 竞价窗口已关闭", ErrXtxNotInExpectedStatus)
	}

	// 预检（只读副本），确定资金动作
	fsx, _, err := s.store.GetFSX(ctx, sfxID)
	if err != nil {
		return err
	}
	xtx, err := s.store.GetXtx(ctx, xtxID)
	if err != nil {
		return err
	}
	if xtx.Status != types.StatusPendingBidding && xtx.Status != types.StatusInBidding {
		return fmt.Errorf("%w: status=%s", ErrXtxNotInExpectedStatus, xtx.Status)
	}
	if err := checkBid(fsx, bidder, amount); err != nil {
		return err
	}

	// 预留新竞价者保证金；落盘失败时回退
	bond := s.bondFor(fsx, amount)
	newBid := &types.SFXBid{Bidder: bidder, Amount: amount, ReservedBond: bond}
	payee := types.PayeeInfo{Account: bidder, Role: types.RoleExecutor}
	if err := s.accounts.Deposit(ctx, executorCharge(sfxID, newBid), payee, xtx.Requester, bond, nil); err != nil {
		return fmt.Errorf("预留执行者保证金失败: %w", err)
	}

	var displaced *types.SFXBid
	err = s.machine.Compile(ctx, xtxID,
		func(local *LocalCtx) (*PrecompileResult, error) {
			target, _ := local.FindFSX(sfxID)
			if target == nil {
				return nil, fmt.Errorf("%w: sfx=%s", ErrXtxNotFound, sfxID)
			}
			if local.Xtx.Status != types.StatusPendingBidding && local.Xtx.Status != types.StatusInBidding {
				return nil, fmt.Errorf("%w: status=%s", ErrXtxNotInExpectedStatus, local.Xtx.Status)
			}
			// 事务内重校验，抵御预检与落盘间的变化
			if err := checkBid(target, bidder, amount); err != nil {
				return nil, err
			}
			displaced = target.BestBid
			target.BestBid = newBid
			return &PrecompileResult{}, nil
		},
		nil)
	if err != nil {
		if refundErr := s.accounts.Refund(ctx, executorCharge(sfxID, newBid)); refundErr != nil {
			s.logger.Errorf("回退竞价保证金失败: sfx=%s bidder=%s err=%v", sfxID, bidder, refundErr)
		}
		return err
	}

	// 顶替退款：败者保证金原额退回，无罚金
	if displaced != nil {
		if err := s.accounts.Refund(ctx, executorCharge(sfxID, displaced)); err != nil {
			s.logger.Errorf("退回被顶替竞价者保证金失败: sfx=%s bidder=%s err=%v", sfxID, displaced.Bidder, err)
		}
	}

	s.bus.Publish(types.EventSFXNewBidReceived, &types.SFXNewBidEvent{SfxID: sfxID, Bidder: bidder, Amount: amount})
	s.logger.Infof("SFX收到新竞价: sfx=%s bidder=%s amount=%d bond=%d", sfxID, bidder, amount, bond)
	return nil
}

// checkBid 竞价准入规则
func checkBid(fsx *types.FullSideEffect, bidder types.AccountID, amount types.Balance) error {
	if enforce := fsx.Input.EnforceExecutor; enforce != nil && *enforce != bidder {
		return fmt.Errorf("%w: sfx指定执行者%s", ErrBiddingRejectedExecutorNotOnWhitelist, enforce)
	}
	if amount > fsx.Input.MaxReward {
		return fmt.Errorf("%w: amount=%d max_reward=%d", ErrBidTooHigh, amount, fsx.Input.MaxReward)
	}
	if fsx.BestBid != nil && amount >= fsx.BestBid.Amount {
		return fmt.Errorf("%w: amount=%d best=%d", ErrBiddingRejectedBetterBidFound, amount, fsx.BestBid.Amount)
	}
	return nil
}

// bondFor 计算执行者保证金
func (s *Service) bondFor(fsx *types.FullSideEffect, amount types.Balance) types.Balance {
	bond := amount * types.Balance(s.config.GetBondMultiplier())
	if fsx.Input.Insurance > bond {
		bond = fsx.Input.Insurance
	}
	return bond
}
