package circuit

import (
	"context"
	"fmt"

	"github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
	"github.com/xchain/v1/pkg/types"
)

// OnExtrinsicTrigger 提交一组SFX并创建Xtx
//
// salt为宿主提供的当前区块哈希，参与XtxID推导。
// 校验、资金预留与记录写入整体all-or-nothing：任何一步失败
// 都会回退已完成的资金预留
func (s *Service) OnExtrinsicTrigger(ctx context.Context, requester types.AccountID,
	sfxs []*types.SideEffect, speedMode types.SpeedMode, salt []byte) (*types.Xtx, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sfxs) == 0 {
		return nil, fmt.Errorf("%w: SFX列表为空", ErrInvalidArgument)
	}

	// 逐个校验SFX：网关已登记、动作可解析、酬劳达标、酬劳资产已登记
	for _, sfx := range sfxs {
		gw, err := s.xdns.GetGateway(ctx, sfx.Target)
		if err != nil {
			return nil, fmt.Errorf("%w: 目标链未登记: %v", ErrInvalidArgument, err)
		}
		if !gw.SupportsAction(sfx.Action) {
			return nil, fmt.Errorf("%w: 网关%s不支持动作%s", ErrInvalidArgument, sfx.Target, sfx.Action)
		}
		iface, err := s.abi.GetInterface(sfx.Target, sfx.Action)
		if err != nil {
			return nil, err
		}
		if len(sfx.EncodedArgs) != len(iface.Args) {
			return nil, fmt.Errorf("%w: 参数数量%d与接口声明%d不符", ErrInvalidArgument, len(sfx.EncodedArgs), len(iface.Args))
		}
		if min := gw.MinRewardFor(sfx.Action); sfx.MaxReward < min {
			return nil, fmt.Errorf("%w: max_reward=%d低于最低要求%d", ErrInvalidArgument, sfx.MaxReward, min)
		}
		if !gw.RecognizesAsset(sfx.RewardAssetID) {
			return nil, fmt.Errorf("%w: 网关%s未登记酬劳资产%d", ErrInvalidArgument, sfx.Target, *sfx.RewardAssetID)
		}
	}

	nonce, err := s.store.NextNonce(ctx, requester)
	if err != nil {
		return nil, err
	}
	xtxID := types.NewXtxID(requester, nonce, salt)

	// 重复提交检查：同一XtxID或任一SfxID已存在即拒绝
	if _, err := s.store.GetXtx(ctx, xtxID); err == nil {
		return nil, fmt.Errorf("%w: xtx=%s", ErrDuplicateSfx, xtxID)
	}

	steps := buildSteps(sfxs)
	var sfxIDs []types.SfxID
	for _, step := range steps {
		for _, fsx := range step {
			sfxID := fsx.SfxID(xtxID)
			if _, err := s.store.ResolveSfx(ctx, sfxID); err == nil {
				return nil, fmt.Errorf("%w: sfx=%s", ErrDuplicateSfx, sfxID)
			}
			sfxIDs = append(sfxIDs, sfxID)
		}
	}

	now := s.CurrentBlock()
	biddingDeadline := now + s.config.GetSFXBiddingPeriod()
	revertDeadline := now + s.config.GetXtxTimeoutDefault()

	// 资金预留：每个SFX锁定 max_reward + insurance
	var reserved []string
	rollback := func() {
		for _, chargeID := range reserved {
			if err := s.accounts.Refund(ctx, chargeID); err != nil {
				s.logger.Errorf("回退资金预留失败: charge=%s err=%v", chargeID, err)
			}
		}
	}
	payee := types.PayeeInfo{Account: requester, Role: types.RoleRequester}
	idx := 0
	for _, step := range steps {
		for _, fsx := range step {
			chargeID := requesterCharge(sfxIDs[idx])
			amount := fsx.Input.MaxReward + fsx.Input.Insurance
			if err := s.accounts.Deposit(ctx, chargeID, payee, requester, amount, fsx.Input.RewardAssetID); err != nil {
				rollback()
				return nil, fmt.Errorf("预留请求者资金失败: %w", err)
			}
			reserved = append(reserved, chargeID)
			idx++
		}
	}

	xtx := &types.Xtx{
		ID:             xtxID,
		Requester:      requester,
		RequesterNonce: nonce,
		Status:         types.StatusPendingBidding,
		SpeedMode:      speedMode,
		TimeoutsAt:     revertDeadline,
		StepsCnt:       types.StepsCount{Current: 0, Total: uint32(len(steps))},
	}

	err = s.store.kv.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := types.CheckTransition(types.StatusRequested, types.StatusPendingBidding); err != nil {
			return err
		}
		if err := txSetXtx(tx, xtx); err != nil {
			return err
		}
		if err := txSetSteps(tx, xtxID, steps); err != nil {
			return err
		}
		for _, sfxID := range sfxIDs {
			if err := txSetJSON(tx, linkKey(sfxID), xtxID); err != nil {
				return err
			}
		}
		if err := tx.Set(acctKey(requester, xtxID), []byte("1")); err != nil {
			return err
		}
		if err := txSetJSON(tx, bidqKey(xtxID), biddingDeadline); err != nil {
			return err
		}
		if err := txSetJSON(tx, timqKey(xtxID), revertDeadline); err != nil {
			return err
		}
		return txSetJSON(tx, nonceKey(requester), nonce+1)
	})
	if err != nil {
		rollback()
		return nil, fmt.Errorf("写入Xtx记录失败: %w", err)
	}

	s.bus.Publish(types.EventNewXtx, &types.NewXtxEvent{
		XtxID:     xtxID,
		Requester: requester,
		SfxIDs:    sfxIDs,
		TimeoutAt: revertDeadline,
	})
	s.logger.Infof("Xtx创建成功: id=%s sfx_count=%d bidding_deadline=%d revert_deadline=%d",
		xtxID, len(sfxIDs), biddingDeadline, revertDeadline)
	return xtx, nil
}

// buildSteps 将提交顺序的SFX分组为顺序步骤
// 乐观模式SFX共享首个并行步骤；每个托管模式SFX独占一个顺序步骤
func buildSteps(sfxs []*types.SideEffect) [][]*types.FullSideEffect {
	var optimistic []*types.FullSideEffect
	var escrowSteps [][]*types.FullSideEffect
	index := uint32(0)
	for _, sfx := range sfxs {
		fsx := &types.FullSideEffect{
			Input:       *sfx,
			SecurityLvl: sfx.SecurityLevel(),
			Index:       index,
		}
		index++
		if fsx.SecurityLvl == types.SecurityOptimistic {
			optimistic = append(optimistic, fsx)
		} else {
			escrowSteps = append(escrowSteps, []*types.FullSideEffect{fsx})
		}
	}
	var steps [][]*types.FullSideEffect
	if len(optimistic) > 0 {
		steps = append(steps, optimistic)
	}
	return append(steps, escrowSteps...)
}
