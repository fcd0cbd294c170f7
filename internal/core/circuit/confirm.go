package circuit

import (
	"context"
	"fmt"

	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/types"
)

// 权重计费：确认的基础开销与每个证明节点的边际开销
const (
	confirmBaseWeight      = 50_000
	confirmProofNodeWeight = 10_000
)

// ConfirmSideEffect 提交SFX的入块证明并确认执行
//
// 单个SFX确认失败不回滚Xtx：FSX保持未确认，
// 执行者可在revert_deadline之前重试
func (s *Service) ConfirmSideEffect(ctx context.Context, executor types.AccountID,
	sfxID types.SfxID, proof core.InclusionProof) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	xtxID, err := s.store.ResolveSfx(ctx, sfxID)
	if err != nil {
		return err
	}
	xtx, err := s.store.GetXtx(ctx, xtxID)
	if err != nil {
		return err
	}
	if xtx.Status != types.StatusReady && xtx.Status != types.StatusPendingExecution {
		return fmt.Errorf("%w: status=%s", ErrXtxNotInExpectedStatus, xtx.Status)
	}
	// 回滚截止块当块即不再接受确认
	if now := s.CurrentBlock(); now >= xtx.TimeoutsAt {
		return fmt.Errorf("%w: 已到回滚截止块%d", ErrXtxNotInExpectedStatus, xtx.TimeoutsAt)
	}

	fsx, _, err := s.store.GetFSX(ctx, sfxID)
	if err != nil {
		return err
	}
	if fsx.IsConfirmed() {
		return fmt.Errorf("%w: sfx=%s", ErrSfxAlreadyConfirmed, sfxID)
	}
	if fsx.BestBid == nil {
		return fmt.Errorf("%w: sfx=%s", ErrNoBidForSfx, sfxID)
	}
	if fsx.BestBid.Bidder != executor {
		return fmt.Errorf("%w: 确认者%s不是中标执行者%s", ErrInvalidArgument, executor, fsx.BestBid.Bidder)
	}

	// 权重上限：证明体量过大时在任何状态变更前中止
	weight := uint64(confirmBaseWeight) + uint64(len(proof.Proof))*confirmProofNodeWeight
	if weight > s.config.GetConfirmWeightLimit() {
		return fmt.Errorf("%w: weight=%d limit=%d", ErrOutOfGas, weight, s.config.GetConfirmWeightLimit())
	}

	// 入块证明校验
	decoded, err := s.portal.VerifyEventInclusion(ctx, fsx.Input.Target, proof, xtx.SpeedMode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInclusionProofInvalid, err)
	}

	// 载荷参数校验：解码字段须与请求参数一致
	gw, err := s.xdns.GetGateway(ctx, fsx.Input.Target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	iface, err := s.abi.GetInterface(fsx.Input.Target, fsx.Input.Action)
	if err != nil {
		return err
	}
	if err := s.abi.Validate(iface, fsx.Input.EncodedArgs, decoded, gw.Codec); err != nil {
		return fmt.Errorf("%w: %v", ErrConfirmationArgumentsMismatch, err)
	}

	var completed *LocalCtx
	err = s.machine.Compile(ctx, xtxID,
		func(local *LocalCtx) (*PrecompileResult, error) {
			target, stepIdx := local.FindFSX(sfxID)
			if target == nil {
				return nil, fmt.Errorf("%w: sfx=%s", ErrXtxNotFound, sfxID)
			}
			if local.Xtx.Status != types.StatusReady && local.Xtx.Status != types.StatusPendingExecution {
				return nil, fmt.Errorf("%w: status=%s", ErrXtxNotInExpectedStatus, local.Xtx.Status)
			}
			// 只能确认当前步骤的SFX，跨步抢跑拒绝
			if uint32(stepIdx) != local.Xtx.StepsCnt.Current {
				return nil, fmt.Errorf("%w: sfx属于步骤%d，当前步骤%d", ErrXtxNotInExpectedStatus, stepIdx, local.Xtx.StepsCnt.Current)
			}
			if target.IsConfirmed() {
				return nil, fmt.Errorf("%w: sfx=%s", ErrSfxAlreadyConfirmed, sfxID)
			}

			target.Confirmed = &types.ConfirmedSideEffect{
				Executor:      executor,
				InclusionData: proof.Event,
				ReceivedAt:    s.CurrentBlock(),
			}

			// 当前步骤未完成：状态保持
			for _, peer := range local.CurrentStep() {
				if !peer.IsConfirmed() {
					return &PrecompileResult{TargetStatus: statusOf(local.Xtx.Status)}, nil
				}
			}
			// 步骤完成：有后续步骤则推进，否则整体完成
			if local.Xtx.StepsCnt.Current+1 < local.Xtx.StepsCnt.Total {
				local.Xtx.StepsCnt.Current++
				return &PrecompileResult{TargetStatus: statusOf(types.StatusPendingExecution)}, nil
			}
			return &PrecompileResult{TargetStatus: statusOf(types.StatusFinishedAllSteps)}, nil
		},
		func(old types.XtxStatus, local *LocalCtx) {
			if local.Xtx.Status == types.StatusFinishedAllSteps {
				completed = local
			}
		})
	if err != nil {
		return err
	}

	s.bus.Publish(types.EventSideEffectConfirmed, &types.SideEffectConfirmedEvent{SfxID: sfxID, Executor: executor})
	s.logger.Infof("SFX确认成功: sfx=%s executor=%s", sfxID, executor)

	if completed != nil {
		s.settleSuccess(ctx, completed)
		s.bus.Publish(types.EventXtxCompleted, &types.XtxCompletedEvent{XtxID: xtxID})
		s.logger.Infof("Xtx全部步骤完成: id=%s", xtxID)
	}
	return nil
}

// settleSuccess 整体完成时的资金结算
// 每个FSX：请求者押金退回后按中标价转酬劳给执行者（计入可领取），
// 执行者保证金原额退回。终态结算必须前进，失败仅记录日志
func (s *Service) settleSuccess(ctx context.Context, local *LocalCtx) {
	requester := local.Xtx.Requester
	payee := types.PayeeInfo{Account: requester, Role: types.RoleRequester}
	for _, step := range local.Steps {
		for _, fsx := range step {
			sfxID := fsx.SfxID(local.Xtx.ID)
			if err := s.accounts.Refund(ctx, requesterCharge(sfxID)); err != nil {
				s.logger.Errorf("退回请求者押金失败: sfx=%s err=%v", sfxID, err)
				continue
			}
			bid := fsx.BestBid
			if bid == nil {
				continue
			}
			// 酬劳按中标价入托管，立即按None结算给执行者
			chargeID := rewardCharge(sfxID)
			if err := s.accounts.Deposit(ctx, chargeID, payee, bid.Bidder, bid.Amount, fsx.Input.RewardAssetID); err != nil {
				s.logger.Errorf("预留酬劳失败: sfx=%s err=%v", sfxID, err)
				continue
			}
			if err := s.accounts.Finalize(ctx, chargeID, types.OutcomeNone); err != nil {
				s.logger.Errorf("结算酬劳失败: sfx=%s err=%v", sfxID, err)
			}
			if err := s.accounts.Refund(ctx, executorCharge(sfxID, bid)); err != nil {
				s.logger.Errorf("退回执行者保证金失败: sfx=%s err=%v", sfxID, err)
			}
		}
	}
}
