package circuit

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	circuitconfig "github.com/xchain/v1/internal/config/circuit"
	eventconfig "github.com/xchain/v1/internal/config/event"
	portalconfig "github.com/xchain/v1/internal/config/portal"
	"github.com/xchain/v1/internal/core/abi"
	"github.com/xchain/v1/internal/core/escrow"
	eventimpl "github.com/xchain/v1/internal/core/infrastructure/event"
	logimpl "github.com/xchain/v1/internal/core/infrastructure/log"
	"github.com/xchain/v1/internal/core/infrastructure/storage/memory"
	portalimpl "github.com/xchain/v1/internal/core/portal"
	xdnsimpl "github.com/xchain/v1/internal/core/xdns"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/event"
	"github.com/xchain/v1/pkg/types"
	"golang.org/x/crypto/blake2b"
)

var (
	testChain   = types.MustChainID("pdot")
	actTransfer = types.MustAction("tran")

	requester = types.AccountIDFromBytes(bytes.Repeat([]byte{0x11}, 32))
	executor1 = types.AccountIDFromBytes(bytes.Repeat([]byte{0x22}, 32))
	executor2 = types.AccountIDFromBytes(bytes.Repeat([]byte{0x33}, 32))
	receiver  = types.AccountIDFromBytes(bytes.Repeat([]byte{0x44}, 32))
	receiver2 = types.AccountIDFromBytes(bytes.Repeat([]byte{0x55}, 32))
)

const initialBalance = types.Balance(1000)

// circuitEnv 操作面测试环境
// 全部子系统使用真实实现，仅存储换为内存后端
type circuitEnv struct {
	t      *testing.T
	ctx    context.Context
	svc    *Service
	portal *portalimpl.Portal
	escrow *escrow.Manager
	bus    event.EventBus
	cfg    *circuitconfig.Config
}

func newCircuitEnv(t *testing.T) *circuitEnv {
	t.Helper()
	ctx := context.Background()
	kv := memory.New()
	logger := logimpl.NewNop()

	cfg := circuitconfig.New(&circuitconfig.CircuitOptions{
		SFXBiddingPeriod:        3,
		XtxTimeoutDefault:       40,
		XtxTimeoutCheckInterval: 10,
		SignalQueueDepth:        8,
		DeletionQueueLimit:      100,
		SelfGatewayID:           "xchn",
		RoundDuration:           10,
		BondMultiplier:          0,
		RevertSplitRequesterPct: 90,
		TickWeightBudget:        1_000_000,
		ConfirmWeightLimit:      200_000,
	})

	registry, err := xdnsimpl.NewRegistry(ctx, kv, logger)
	require.NoError(t, err)
	require.NoError(t, registry.AddGateway(ctx, &types.GatewayRecord{
		ID:             testChain,
		Vendor:         types.VendorPolkadot,
		Codec:          types.CodecScale,
		AllowedActions:   []types.Action{actTransfer},
		MinRewards:       map[string]types.Balance{"tran": 1},
		RecognizedAssets: []types.AssetID{1},
	}))

	p, err := portalimpl.New(kv, portalconfig.New(nil), logger)
	require.NoError(t, err)
	require.NoError(t, p.RegisterGateway(ctx, testChain, types.VendorPolkadot))
	t.Cleanup(func() { _ = p.Close() })

	manager := escrow.NewManager(kv, cfg, logger)
	for _, account := range []types.AccountID{requester, executor1, executor2} {
		require.NoError(t, manager.Credit(ctx, account, initialBalance))
	}

	bus := eventimpl.New(eventconfig.New(nil))
	svc := NewService(kv, registry, abi.NewRegistry(logger), p, manager, bus, cfg, logger)
	svc.SetBlock(1)

	return &circuitEnv{t: t, ctx: ctx, svc: svc, portal: p, escrow: manager, bus: bus, cfg: cfg}
}

// transferSfx 构造一条转账副作用
func transferSfx(to types.AccountID, amount uint64, maxReward, insurance types.Balance) *types.SideEffect {
	return &types.SideEffect{
		Target: testChain,
		Action: actTransfer,
		EncodedArgs: [][]byte{
			requester.Bytes(),
			to.Bytes(),
			le16(amount),
			le16(uint64(insurance)),
		},
		MaxReward: maxReward,
		Insurance: insurance,
	}
}

// transferEvent 构造与转账副作用对应的目标链事件载荷
func transferEvent(to types.AccountID, amount uint64) []byte {
	payload := make([]byte, 0, 80)
	payload = append(payload, requester.Bytes()...)
	payload = append(payload, to.Bytes()...)
	return append(payload, le16(amount)...)
}

func le16(n uint64) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out, n)
	return out
}

func hashLeaf(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// provenEvent 为事件构造单层默克尔证明并提交对应头部
func (e *circuitEnv) provenEvent(eventBytes []byte, height uint64) core.InclusionProof {
	e.t.Helper()
	sibling := []byte("sibling")
	root := hashLeaf(append(hashLeaf(eventBytes), sibling...))

	lc, err := e.portal.Client(testChain)
	require.NoError(e.t, err)
	require.NoError(e.t, lc.SubmitHeader(e.ctx, height, root, []byte("raw"), true))
	return core.InclusionProof{Event: eventBytes, Height: height, Proof: [][]byte{sibling}}
}

func (e *circuitEnv) trigger(sfxs ...*types.SideEffect) (*types.Xtx, error) {
	return e.svc.OnExtrinsicTrigger(e.ctx, requester, sfxs, types.SpeedModeFast, []byte("blockhash"))
}

func (e *circuitEnv) mustTrigger(sfxs ...*types.SideEffect) *types.Xtx {
	e.t.Helper()
	xtx, err := e.trigger(sfxs...)
	require.NoError(e.t, err)
	return xtx
}

func (e *circuitEnv) balance(account types.AccountID) types.Balance {
	e.t.Helper()
	balance, err := e.escrow.BalanceOf(e.ctx, account)
	require.NoError(e.t, err)
	return balance
}

func (e *circuitEnv) escrowBalance() types.Balance {
	e.t.Helper()
	balance, err := e.escrow.EscrowBalance(e.ctx)
	require.NoError(e.t, err)
	return balance
}

func (e *circuitEnv) status(xtxID types.XtxID) types.XtxStatus {
	e.t.Helper()
	xtx, err := e.svc.GetXtx(e.ctx, xtxID)
	require.NoError(e.t, err)
	return xtx.Status
}

// closeBidding 推进到指定区块并处理竞价截止队列
func (e *circuitEnv) closeBidding(block types.BlockNumber) {
	e.t.Helper()
	e.svc.SetBlock(block)
	e.svc.ProcessBiddingTimeouts(e.ctx, block, 1_000_000)
}

// requireNoOpenDeposits 终态后不应有未结押金
func (e *circuitEnv) requireNoOpenDeposits() {
	e.t.Helper()
	deposits, err := e.escrow.OpenDeposits(e.ctx)
	require.NoError(e.t, err)
	assert.Empty(e.t, deposits, "终态后不应有未结押金")
}

func TestTriggerCreatesXtx(t *testing.T) {
	env := newCircuitEnv(t)

	xtx := env.mustTrigger(transferSfx(receiver, 100, 10, 5))

	assert.Equal(t, types.StatusPendingBidding, xtx.Status)
	assert.Equal(t, types.BlockNumber(41), xtx.TimeoutsAt, "回滚截止应为当前块+默认超时")
	assert.Equal(t, types.StepsCount{Current: 0, Total: 1}, xtx.StepsCnt)

	// 请求者押金 = max_reward + insurance
	assert.Equal(t, initialBalance-15, env.balance(requester))
	assert.Equal(t, types.Balance(15), env.escrowBalance())

	fsx, gotXtxID, err := env.svc.GetFSX(env.ctx, types.NewSfxID(xtx.ID, 0))
	require.NoError(t, err)
	assert.Equal(t, xtx.ID, gotXtxID)
	assert.Equal(t, types.SecurityEscrowed, fsx.SecurityLvl)

	pending, err := env.svc.GetPendingXtxFor(env.ctx, requester)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, xtx.ID, pending[0].ID)
}

func TestTriggerValidation(t *testing.T) {
	env := newCircuitEnv(t)

	_, err := env.trigger()
	assert.ErrorIs(t, err, ErrInvalidArgument, "空SFX列表应拒绝")

	unknown := transferSfx(receiver, 100, 10, 5)
	unknown.Target = types.MustChainID("none")
	_, err = env.trigger(unknown)
	assert.ErrorIs(t, err, ErrInvalidArgument, "未登记网关应拒绝")

	short := transferSfx(receiver, 100, 10, 5)
	short.EncodedArgs = short.EncodedArgs[:3]
	_, err = env.trigger(short)
	assert.ErrorIs(t, err, ErrInvalidArgument, "参数数量不符应拒绝")

	cheap := transferSfx(receiver, 100, 0, 5)
	_, err = env.trigger(cheap)
	assert.ErrorIs(t, err, ErrInvalidArgument, "酬劳低于网关下限应拒绝")

	unknownAsset := types.AssetID(9)
	exotic := transferSfx(receiver, 100, 10, 5)
	exotic.RewardAssetID = &unknownAsset
	_, err = env.trigger(exotic)
	assert.ErrorIs(t, err, ErrInvalidArgument, "未登记的酬劳资产应拒绝")

	// 全部拒绝路径均不动资金
	assert.Equal(t, initialBalance, env.balance(requester))
	assert.Equal(t, types.Balance(0), env.escrowBalance())

	// 已登记资产可充当酬劳
	registered := types.AssetID(1)
	fine := transferSfx(receiver, 100, 10, 5)
	fine.RewardAssetID = &registered
	xtx := env.mustTrigger(fine)
	assert.Equal(t, types.StatusPendingBidding, xtx.Status)
}

func TestBiddingAuction(t *testing.T) {
	env := newCircuitEnv(t)
	xtx := env.mustTrigger(transferSfx(receiver, 100, 10, 5))
	sfxID := types.NewSfxID(xtx.ID, 0)

	// 首个竞价：保证金 = max(insurance, amount*multiplier) = 5
	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, sfxID, 9))
	assert.Equal(t, types.StatusInBidding, env.status(xtx.ID))
	assert.Equal(t, initialBalance-5, env.balance(executor1))

	err := env.svc.BidSFX(env.ctx, executor2, sfxID, 11)
	assert.ErrorIs(t, err, ErrBidTooHigh, "高于max_reward应拒绝")

	err = env.svc.BidSFX(env.ctx, executor2, sfxID, 9)
	assert.ErrorIs(t, err, ErrBiddingRejectedBetterBidFound, "递减拍卖要求严格更低")

	// 更优竞价顶替：败者保证金原额退回
	require.NoError(t, env.svc.BidSFX(env.ctx, executor2, sfxID, 7))
	assert.Equal(t, initialBalance, env.balance(executor1), "被顶替竞价者应全额退款")
	assert.Equal(t, initialBalance-5, env.balance(executor2))

	fsx, _, err := env.svc.GetFSX(env.ctx, sfxID)
	require.NoError(t, err)
	require.NotNil(t, fsx.BestBid)
	assert.Equal(t, executor2, fsx.BestBid.Bidder)
	assert.Equal(t, types.Balance(7), fsx.BestBid.Amount)
}

func TestBiddingEnforcedExecutor(t *testing.T) {
	env := newCircuitEnv(t)
	sfx := transferSfx(receiver, 100, 10, 5)
	sfx.EnforceExecutor = &executor1
	xtx := env.mustTrigger(sfx)
	sfxID := types.NewSfxID(xtx.ID, 0)

	err := env.svc.BidSFX(env.ctx, executor2, sfxID, 8)
	assert.ErrorIs(t, err, ErrBiddingRejectedExecutorNotOnWhitelist)
	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, sfxID, 8))
}

func TestBiddingDeadlineBoundary(t *testing.T) {
	env := newCircuitEnv(t)
	first := env.mustTrigger(transferSfx(receiver, 100, 10, 5))
	second := env.mustTrigger(transferSfx(receiver2, 200, 10, 5))
	firstSfx := types.NewSfxID(first.ID, 0)
	secondSfx := types.NewSfxID(second.ID, 0)

	// 竞价截止块当块仍可竞价
	env.svc.SetBlock(4)
	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, firstSfx, 8))

	// 截止块当块的tick不收割竞价窗口
	consumed := env.svc.ProcessBiddingTimeouts(env.ctx, 4, 1_000_000)
	assert.Zero(t, consumed)
	assert.Equal(t, types.StatusInBidding, env.status(first.ID))

	// 截止块之后拒绝竞价，窗口由tick收割
	env.svc.SetBlock(5)
	err := env.svc.BidSFX(env.ctx, executor2, secondSfx, 8)
	assert.ErrorIs(t, err, ErrXtxNotInExpectedStatus, "竞价窗口关闭后应拒绝")

	env.svc.ProcessBiddingTimeouts(env.ctx, 5, 1_000_000)
	assert.Equal(t, types.StatusReady, env.status(first.ID), "全部SFX有竞价应就绪")
	assert.Equal(t, types.StatusRevertKill, env.status(second.ID), "存在无竞价SFX应回滚")
}

func TestHappyPathSingleSfx(t *testing.T) {
	env := newCircuitEnv(t)

	var completedEvents []*types.XtxCompletedEvent
	require.NoError(t, env.bus.Subscribe(types.EventXtxCompleted, func(e *types.XtxCompletedEvent) {
		completedEvents = append(completedEvents, e)
	}))

	xtx := env.mustTrigger(transferSfx(receiver, 100, 10, 5))
	sfxID := types.NewSfxID(xtx.ID, 0)

	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, sfxID, 8))
	env.closeBidding(5)
	require.Equal(t, types.StatusReady, env.status(xtx.ID))

	env.svc.SetBlock(10)
	proof := env.provenEvent(transferEvent(receiver, 100), 100)
	require.NoError(t, env.svc.ConfirmSideEffect(env.ctx, executor1, sfxID, proof))

	got, err := env.svc.GetXtx(env.ctx, xtx.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFinishedAllSteps, got.Status)
	assert.Nil(t, got.Cause)
	require.Len(t, completedEvents, 1)
	assert.Equal(t, xtx.ID, completedEvents[0].XtxID)

	// 结算：请求者实付中标价8，执行者保证金退回、酬劳计入可领取
	assert.Equal(t, initialBalance-8, env.balance(requester))
	assert.Equal(t, initialBalance, env.balance(executor1))
	assert.Equal(t, types.Balance(8), env.escrowBalance(), "待领取酬劳留在托管账户")
	env.requireNoOpenDeposits()

	// 轮次推进后执行者拉取酬劳
	claimables, err := env.escrow.BumpRound(env.ctx)
	require.NoError(t, err)
	require.Len(t, claimables, 1)
	assert.Equal(t, executor1, claimables[0].Beneficiary)
	assert.Equal(t, types.Balance(8), claimables[0].Amount)

	claimed, err := env.escrow.Claim(env.ctx, executor1, claimables[0].Round)
	require.NoError(t, err)
	assert.Equal(t, types.Balance(8), claimed)
	assert.Equal(t, initialBalance+8, env.balance(executor1))
	assert.Equal(t, types.Balance(0), env.escrowBalance())
}

func TestNoBidsReverted(t *testing.T) {
	env := newCircuitEnv(t)
	xtx := env.mustTrigger(transferSfx(receiver, 100, 10, 5))

	var reverted []*types.XtxRevertedEvent
	require.NoError(t, env.bus.Subscribe(types.EventXtxReverted, func(e *types.XtxRevertedEvent) {
		reverted = append(reverted, e)
	}))

	env.closeBidding(5)

	got, err := env.svc.GetXtx(env.ctx, xtx.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRevertKill, got.Status)
	require.NotNil(t, got.Cause)
	assert.Equal(t, types.CauseDroppedAtBidding, *got.Cause)
	require.Len(t, reverted, 1)
	assert.Equal(t, types.CauseDroppedAtBidding, reverted[0].Cause)

	// 押金全额退回
	assert.Equal(t, initialBalance, env.balance(requester))
	assert.Equal(t, types.Balance(0), env.escrowBalance())
	env.requireNoOpenDeposits()

	// 终态Xtx不再出现在待处理列表，回滚队列条目已随终态清理
	pending, err := env.svc.GetPendingXtxFor(env.ctx, requester)
	require.NoError(t, err)
	assert.Empty(t, pending)
	env.svc.SetBlock(41)
	assert.Zero(t, env.svc.ProcessRevertTimeouts(env.ctx, 41, 1_000_000))
}

func TestRevertTimeout(t *testing.T) {
	env := newCircuitEnv(t)
	xtx := env.mustTrigger(transferSfx(receiver, 100, 10, 5))
	sfxID := types.NewSfxID(xtx.ID, 0)

	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, sfxID, 8))
	env.closeBidding(5)
	require.Equal(t, types.StatusReady, env.status(xtx.ID))

	// 回滚截止块前一块不收割
	env.svc.SetBlock(40)
	assert.Zero(t, env.svc.ProcessRevertTimeouts(env.ctx, 40, 1_000_000))

	env.svc.SetBlock(41)
	consumed := env.svc.ProcessRevertTimeouts(env.ctx, 41, 1_000_000)
	assert.NotZero(t, consumed)

	got, err := env.svc.GetXtx(env.ctx, xtx.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRevertTimedOut, got.Status)
	require.NotNil(t, got.Cause)
	assert.Equal(t, types.CauseTimeout, *got.Cause)

	// 未履约：请求者押金全退；执行者保证金一半计请求者可领取、其余罚没
	assert.Equal(t, initialBalance, env.balance(requester))
	assert.Equal(t, initialBalance-5, env.balance(executor1), "失约执行者保证金不退回")
	assert.Equal(t, types.Balance(3), env.balance(escrow.SlashTreasuryAccount))
	assert.Equal(t, types.Balance(2), env.escrowBalance())
	env.requireNoOpenDeposits()

	claimables, err := env.escrow.BumpRound(env.ctx)
	require.NoError(t, err)
	require.Len(t, claimables, 1)
	assert.Equal(t, requester, claimables[0].Beneficiary)

	claimed, err := env.escrow.Claim(env.ctx, requester, claimables[0].Round)
	require.NoError(t, err)
	assert.Equal(t, types.Balance(2), claimed)
	assert.Equal(t, initialBalance+2, env.balance(requester))
}

func TestConfirmDeadlineBoundary(t *testing.T) {
	env := newCircuitEnv(t)
	xtx := env.mustTrigger(transferSfx(receiver, 100, 10, 5))
	sfxID := types.NewSfxID(xtx.ID, 0)
	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, sfxID, 8))
	env.closeBidding(5)

	proof := env.provenEvent(transferEvent(receiver, 100), 100)

	// 回滚截止块当块不再接受确认
	env.svc.SetBlock(41)
	err := env.svc.ConfirmSideEffect(env.ctx, executor1, sfxID, proof)
	assert.ErrorIs(t, err, ErrXtxNotInExpectedStatus)

	// 截止块前一块仍可确认
	env.svc.SetBlock(40)
	require.NoError(t, env.svc.ConfirmSideEffect(env.ctx, executor1, sfxID, proof))
	assert.Equal(t, types.StatusFinishedAllSteps, env.status(xtx.ID))
}

func TestConfirmPayloadMismatch(t *testing.T) {
	env := newCircuitEnv(t)
	xtx := env.mustTrigger(transferSfx(receiver, 100, 10, 5))
	sfxID := types.NewSfxID(xtx.ID, 0)
	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, sfxID, 8))
	env.closeBidding(5)
	env.svc.SetBlock(10)

	// 证明有效但事件金额与请求不符
	wrong := env.provenEvent(transferEvent(receiver, 99), 100)
	err := env.svc.ConfirmSideEffect(env.ctx, executor1, sfxID, wrong)
	assert.ErrorIs(t, err, ErrConfirmationArgumentsMismatch)

	// 确认失败不改变Xtx，执行者可带正确证明重试
	assert.Equal(t, types.StatusReady, env.status(xtx.ID))
	fsx, _, err := env.svc.GetFSX(env.ctx, sfxID)
	require.NoError(t, err)
	assert.False(t, fsx.IsConfirmed())

	right := env.provenEvent(transferEvent(receiver, 100), 102)
	require.NoError(t, env.svc.ConfirmSideEffect(env.ctx, executor1, sfxID, right))
	assert.Equal(t, types.StatusFinishedAllSteps, env.status(xtx.ID))
}

func TestConfirmValidation(t *testing.T) {
	env := newCircuitEnv(t)
	xtx := env.mustTrigger(transferSfx(receiver, 100, 10, 5))
	sfxID := types.NewSfxID(xtx.ID, 0)
	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, sfxID, 8))

	eventBytes := transferEvent(receiver, 100)

	// 竞价阶段不接受确认
	proof := env.provenEvent(eventBytes, 100)
	err := env.svc.ConfirmSideEffect(env.ctx, executor1, sfxID, proof)
	assert.ErrorIs(t, err, ErrXtxNotInExpectedStatus)

	env.closeBidding(5)
	env.svc.SetBlock(10)

	// 非中标执行者不可代为确认
	err = env.svc.ConfirmSideEffect(env.ctx, executor2, sfxID, proof)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// 证明体量超出权重上限
	oversized := core.InclusionProof{Event: eventBytes, Height: 100, Proof: make([][]byte, 16)}
	err = env.svc.ConfirmSideEffect(env.ctx, executor1, sfxID, oversized)
	assert.ErrorIs(t, err, ErrOutOfGas)

	// 伪造证明
	forged := core.InclusionProof{Event: []byte("forged"), Height: 100, Proof: proof.Proof}
	err = env.svc.ConfirmSideEffect(env.ctx, executor1, sfxID, forged)
	assert.ErrorIs(t, err, ErrInclusionProofInvalid)

	require.NoError(t, env.svc.ConfirmSideEffect(env.ctx, executor1, sfxID, proof))
}

func TestMultiStepOrdering(t *testing.T) {
	env := newCircuitEnv(t)

	// 两个托管SFX各占一个顺序步骤
	xtx := env.mustTrigger(
		transferSfx(receiver, 100, 10, 5),
		transferSfx(receiver2, 200, 10, 5),
	)
	assert.Equal(t, uint32(2), xtx.StepsCnt.Total)
	firstSfx := types.NewSfxID(xtx.ID, 0)
	secondSfx := types.NewSfxID(xtx.ID, 1)

	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, firstSfx, 8))
	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, secondSfx, 9))
	env.closeBidding(5)
	require.Equal(t, types.StatusReady, env.status(xtx.ID))

	env.svc.SetBlock(10)
	firstProof := env.provenEvent(transferEvent(receiver, 100), 100)
	secondProof := env.provenEvent(transferEvent(receiver2, 200), 102)

	// 跨步抢跑：第二步的SFX在第一步完成前不可确认
	err := env.svc.ConfirmSideEffect(env.ctx, executor1, secondSfx, secondProof)
	assert.ErrorIs(t, err, ErrXtxNotInExpectedStatus)

	require.NoError(t, env.svc.ConfirmSideEffect(env.ctx, executor1, firstSfx, firstProof))
	got, err := env.svc.GetXtx(env.ctx, xtx.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPendingExecution, got.Status)
	assert.Equal(t, uint32(1), got.StepsCnt.Current, "步骤完成后应推进到下一步")

	// 已确认SFX不可重复确认
	err = env.svc.ConfirmSideEffect(env.ctx, executor1, firstSfx, firstProof)
	assert.ErrorIs(t, err, ErrSfxAlreadyConfirmed)

	require.NoError(t, env.svc.ConfirmSideEffect(env.ctx, executor1, secondSfx, secondProof))
	assert.Equal(t, types.StatusFinishedAllSteps, env.status(xtx.ID))

	// 结算：两笔中标价8+9计入执行者可领取，其余全额退回
	assert.Equal(t, initialBalance-17, env.balance(requester))
	assert.Equal(t, initialBalance, env.balance(executor1))
	assert.Equal(t, types.Balance(17), env.escrowBalance())
	env.requireNoOpenDeposits()
}

func TestRevertAfterPartialExecution(t *testing.T) {
	env := newCircuitEnv(t)
	xtx := env.mustTrigger(
		transferSfx(receiver, 100, 10, 5),
		transferSfx(receiver2, 200, 10, 5),
	)
	firstSfx := types.NewSfxID(xtx.ID, 0)
	secondSfx := types.NewSfxID(xtx.ID, 1)

	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, firstSfx, 8))
	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, secondSfx, 9))
	env.closeBidding(5)

	env.svc.SetBlock(10)
	proof := env.provenEvent(transferEvent(receiver, 100), 100)
	require.NoError(t, env.svc.ConfirmSideEffect(env.ctx, executor1, firstSfx, proof))

	env.svc.SetBlock(41)
	env.svc.ProcessRevertTimeouts(env.ctx, 41, 1_000_000)

	got, err := env.svc.GetXtx(env.ctx, xtx.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRevertTimedOut, got.Status)

	// 已履约SFX：押金按回滚比例分账，90%即时退回请求者，
	// 10%计入中标执行者可领取（定标时押金接收方已绑定执行者）；
	// 保证金原额退回
	// 未履约SFX：押金全退，保证金一半计请求者可领取、其余罚没
	assert.Equal(t, initialBalance-30+13+15, env.balance(requester))
	assert.Equal(t, initialBalance-10+5, env.balance(executor1))
	assert.Equal(t, types.Balance(3), env.balance(escrow.SlashTreasuryAccount))
	assert.Equal(t, types.Balance(4), env.escrowBalance())
	env.requireNoOpenDeposits()

	claimables, err := env.escrow.BumpRound(env.ctx)
	require.NoError(t, err)
	require.Len(t, claimables, 2)
	byBeneficiary := make(map[types.AccountID]types.Balance, len(claimables))
	for _, c := range claimables {
		byBeneficiary[c.Beneficiary] = c.Amount
	}
	assert.Equal(t, types.Balance(2), byBeneficiary[executor1], "已履约执行者应分得回滚押金的接收方份额")
	assert.Equal(t, types.Balance(2), byBeneficiary[requester])

	claimed, err := env.escrow.Claim(env.ctx, executor1, claimables[0].Round)
	require.NoError(t, err)
	assert.Equal(t, types.Balance(2), claimed)
	claimed, err = env.escrow.Claim(env.ctx, requester, claimables[0].Round)
	require.NoError(t, err)
	assert.Equal(t, types.Balance(2), claimed)
	assert.Equal(t, types.Balance(0), env.escrowBalance())
}

func TestRevertDeadlineDuringBidding(t *testing.T) {
	env := newCircuitEnv(t)
	xtx := env.mustTrigger(transferSfx(receiver, 100, 10, 5))
	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, types.NewSfxID(xtx.ID, 0), 8))

	// 竞价窗口从未收割，回滚截止直接到来
	env.svc.SetBlock(41)
	env.svc.ProcessRevertTimeouts(env.ctx, 41, 1_000_000)

	got, err := env.svc.GetXtx(env.ctx, xtx.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRevertTimedOut, got.Status, "任意非终态超时应落入RevertTimedOut")
	require.NotNil(t, got.Cause)
	assert.Equal(t, types.CauseTimeout, *got.Cause)

	// 执行者尚未绑定：押金与保证金全额退回，无罚没
	assert.Equal(t, initialBalance, env.balance(requester))
	assert.Equal(t, initialBalance, env.balance(executor1))
	assert.Equal(t, types.Balance(0), env.escrowBalance())
	env.requireNoOpenDeposits()

	// 终态后竞价队列条目已随迁移清理
	assert.Zero(t, env.svc.ProcessBiddingTimeouts(env.ctx, 41, 1_000_000))
}

func TestSignalBounceDefersProcessing(t *testing.T) {
	env := newCircuitEnv(t)
	xtx := env.mustTrigger(transferSfx(receiver, 100, 10, 5))
	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, types.NewSfxID(xtx.ID, 0), 8))

	// bounce信号使本tick的截止处理顺延
	env.svc.SetBlock(5)
	require.NoError(t, env.svc.PostSignal(Signal{Kind: SignalBounce, XtxID: xtx.ID}))
	env.svc.ProcessSignals(env.ctx, 1_000_000)
	assert.Zero(t, env.svc.ProcessBiddingTimeouts(env.ctx, 5, 1_000_000))
	assert.Equal(t, types.StatusInBidding, env.status(xtx.ID), "顺延的Xtx本tick不收割")

	// 顺延标记只管一个tick，下一tick恢复处理
	env.svc.SetBlock(6)
	env.svc.ProcessBiddingTimeouts(env.ctx, 6, 1_000_000)
	assert.Equal(t, types.StatusReady, env.status(xtx.ID))
}

func TestKillRefundsAll(t *testing.T) {
	env := newCircuitEnv(t)
	xtx := env.mustTrigger(transferSfx(receiver, 100, 10, 5))
	sfxID := types.NewSfxID(xtx.ID, 0)
	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, sfxID, 8))

	require.NoError(t, env.svc.Kill(env.ctx, xtx.ID))

	got, err := env.svc.GetXtx(env.ctx, xtx.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusKilled, got.Status)
	require.NotNil(t, got.Cause)
	assert.Equal(t, types.CauseIntentionalKill, *got.Cause)

	assert.Equal(t, initialBalance, env.balance(requester))
	assert.Equal(t, initialBalance, env.balance(executor1))
	assert.Equal(t, types.Balance(0), env.escrowBalance())
	env.requireNoOpenDeposits()

	// 终态不可再次终止
	err = env.svc.Kill(env.ctx, xtx.ID)
	assert.ErrorIs(t, err, ErrXtxNotInExpectedStatus)
}

func TestSignalQueue(t *testing.T) {
	env := newCircuitEnv(t)
	xtx := env.mustTrigger(transferSfx(receiver, 100, 10, 5))

	// 队列深度上限
	for i := 0; i < 8; i++ {
		require.NoError(t, env.svc.PostSignal(Signal{Kind: SignalBounce, XtxID: xtx.ID}))
	}
	assert.Error(t, env.svc.PostSignal(Signal{Kind: SignalBounce, XtxID: xtx.ID}), "队列满应拒绝")

	// 预算内逐条消化
	consumed := env.svc.ProcessSignals(env.ctx, 30_000)
	assert.Equal(t, uint64(30_000), consumed)
	consumed = env.svc.ProcessSignals(env.ctx, 1_000_000)
	assert.Equal(t, uint64(50_000), consumed)

	// kill信号驱动终态
	require.NoError(t, env.svc.PostSignal(Signal{Kind: SignalKill, XtxID: xtx.ID}))
	env.svc.ProcessSignals(env.ctx, 1_000_000)
	assert.Equal(t, types.StatusKilled, env.status(xtx.ID))
	assert.Equal(t, initialBalance, env.balance(requester))
}

func TestOptimisticSfxShareStep(t *testing.T) {
	env := newCircuitEnv(t)

	// 两个乐观SFX（无保险金）共享首个并行步骤
	xtx := env.mustTrigger(
		transferSfx(receiver, 100, 10, 0),
		transferSfx(receiver2, 200, 10, 0),
	)
	assert.Equal(t, uint32(1), xtx.StepsCnt.Total)
	firstSfx := types.NewSfxID(xtx.ID, 0)
	secondSfx := types.NewSfxID(xtx.ID, 1)

	require.NoError(t, env.svc.BidSFX(env.ctx, executor1, firstSfx, 8))
	require.NoError(t, env.svc.BidSFX(env.ctx, executor2, secondSfx, 9))
	env.closeBidding(5)
	env.svc.SetBlock(10)

	// 同一步骤内确认顺序任意；步骤未完成时状态保持
	secondProof := env.provenEvent(transferEvent(receiver2, 200), 100)
	require.NoError(t, env.svc.ConfirmSideEffect(env.ctx, executor2, secondSfx, secondProof))
	assert.Equal(t, types.StatusReady, env.status(xtx.ID))

	firstProof := env.provenEvent(transferEvent(receiver, 100), 102)
	require.NoError(t, env.svc.ConfirmSideEffect(env.ctx, executor1, firstSfx, firstProof))
	assert.Equal(t, types.StatusFinishedAllSteps, env.status(xtx.ID))

	assert.Equal(t, initialBalance-17, env.balance(requester))
	env.requireNoOpenDeposits()
}
