package circuit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	circuitconfig "github.com/xchain/v1/internal/config/circuit"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/event"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
	"github.com/xchain/v1/pkg/types"
)

// SignalKind 外部信号类型
type SignalKind uint8

const (
	// SignalKill 强制终止Xtx
	SignalKill SignalKind = iota
	// SignalBounce 将Xtx的处理顺延到下一tick
	SignalBounce
)

// Signal 外部提交的执行信号，tick开始时统一消化
type Signal struct {
	Kind  SignalKind
	XtxID types.XtxID
}

// Service 核心操作面
// 提交类操作（trigger/bid/confirm/kill）串行执行，
// 与宿主按块顺序调度的模型一致
type Service struct {
	mu       sync.Mutex
	store    *Store
	machine  *Machine
	xdns     core.Xdns
	abi      core.AbiRegistry
	portal   core.Portal
	accounts core.AccountManager
	bus      event.EventBus
	config   *circuitconfig.Config
	logger   log.Logger

	block atomic.Uint64 // 当前宿主区块

	sigMu   sync.Mutex
	signals []Signal
	bounced map[types.XtxID]struct{} // 本tick内顺延处理的Xtx
}

// NewService 创建核心操作面
func NewService(kv storage.KVStore, xdns core.Xdns, abiReg core.AbiRegistry, portal core.Portal,
	accounts core.AccountManager, bus event.EventBus, config *circuitconfig.Config, logger log.Logger) *Service {
	return &Service{
		store:    NewStore(kv, logger),
		machine:  NewMachine(kv, logger),
		xdns:     xdns,
		abi:      abiReg,
		portal:   portal,
		accounts: accounts,
		bus:      bus,
		config:   config,
		logger:   logger,
	}
}

// Store 暴露只读存储（REST查询层使用）
func (s *Service) Store() *Store {
	return s.store
}

// SetBlock 推进当前宿主区块（时钟驱动器每tick调用）
// 上一tick的顺延标记随之失效
func (s *Service) SetBlock(block types.BlockNumber) {
	s.block.Store(uint64(block))
	s.sigMu.Lock()
	s.bounced = nil
	s.sigMu.Unlock()
}

// deferXtx 将Xtx标记为本tick顺延，截止队列处理跳过该条目
func (s *Service) deferXtx(id types.XtxID) {
	s.sigMu.Lock()
	defer s.sigMu.Unlock()
	if s.bounced == nil {
		s.bounced = make(map[types.XtxID]struct{})
	}
	s.bounced[id] = struct{}{}
}

// isDeferred 检查Xtx是否在本tick被顺延
func (s *Service) isDeferred(id types.XtxID) bool {
	s.sigMu.Lock()
	defer s.sigMu.Unlock()
	_, ok := s.bounced[id]
	return ok
}

// CurrentBlock 当前宿主区块
func (s *Service) CurrentBlock() types.BlockNumber {
	return types.BlockNumber(s.block.Load())
}

// PostSignal 提交外部信号，队列满时拒绝
func (s *Service) PostSignal(sig Signal) error {
	s.sigMu.Lock()
	defer s.sigMu.Unlock()
	if uint32(len(s.signals)) >= s.config.GetSignalQueueDepth() {
		return fmt.Errorf("信号队列已满: depth=%d", s.config.GetSignalQueueDepth())
	}
	s.signals = append(s.signals, sig)
	return nil
}

// DrainSignals 取走至多max条待处理信号
func (s *Service) DrainSignals(max int) []Signal {
	s.sigMu.Lock()
	defer s.sigMu.Unlock()
	if max <= 0 || max > len(s.signals) {
		max = len(s.signals)
	}
	out := make([]Signal, max)
	copy(out, s.signals[:max])
	s.signals = s.signals[max:]
	return out
}

// GetXtx 查询Xtx记录
func (s *Service) GetXtx(ctx context.Context, id types.XtxID) (*types.Xtx, error) {
	return s.store.GetXtx(ctx, id)
}

// GetFSX 查询FSX记录及所属Xtx
func (s *Service) GetFSX(ctx context.Context, sfxID types.SfxID) (*types.FullSideEffect, types.XtxID, error) {
	return s.store.GetFSX(ctx, sfxID)
}

// GetPendingXtxFor 查询请求者名下未终结的Xtx
func (s *Service) GetPendingXtxFor(ctx context.Context, account types.AccountID) ([]*types.Xtx, error) {
	return s.store.PendingXtxForAccount(ctx, account)
}

// Kill root专用的强制终止
// 调用方授权由宿主侧保证；终止总是成功地驱动Xtx到终态，
// 全部押金与保证金原额退回
func (s *Service) Kill(ctx context.Context, xtxID types.XtxID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cause := types.CauseIntentionalKill
	var killed *LocalCtx
	err := s.machine.Compile(ctx, xtxID,
		func(local *LocalCtx) (*PrecompileResult, error) {
			if local.Xtx.Status.IsTerminal() {
				return nil, fmt.Errorf("%w: status=%s", ErrXtxNotInExpectedStatus, local.Xtx.Status)
			}
			return &PrecompileResult{TargetStatus: statusOf(types.StatusKilled), Cause: &cause}, nil
		},
		func(old types.XtxStatus, local *LocalCtx) {
			killed = local
		})
	if err != nil {
		return err
	}

	s.refundAll(ctx, killed)
	s.bus.Publish(types.EventXtxKilled, &types.XtxKilledEvent{XtxID: xtxID, Cause: cause})
	s.logger.Warnf("Xtx被强制终止: id=%s", xtxID)
	return nil
}

// refundAll 原额退回一个Xtx的全部押金与保证金
// 终态清理路径必须成功，资金操作失败仅记录日志
func (s *Service) refundAll(ctx context.Context, local *LocalCtx) {
	for _, step := range local.Steps {
		for _, fsx := range step {
			sfxID := fsx.SfxID(local.Xtx.ID)
			if err := s.accounts.Refund(ctx, requesterCharge(sfxID)); err != nil {
				s.logger.Errorf("退回请求者押金失败: sfx=%s err=%v", sfxID, err)
			}
			if fsx.BestBid != nil {
				if err := s.accounts.Refund(ctx, executorCharge(sfxID, fsx.BestBid)); err != nil {
					s.logger.Errorf("退回执行者保证金失败: sfx=%s err=%v", sfxID, err)
				}
			}
		}
	}
}

// requesterCharge 请求者押金的charge_id（max_reward+insurance）
func requesterCharge(sfxID types.SfxID) string {
	return sfxID.String() + ":req"
}

// executorCharge 执行者保证金的charge_id
// 按竞价者与竞价金额隔离，同一竞价者改价时新旧押金互不冲突
func executorCharge(sfxID types.SfxID, bid *types.SFXBid) string {
	return fmt.Sprintf("%s:exec:%s:%d", sfxID, bid.Bidder, bid.Amount)
}

// rewardCharge 成功结算时的酬劳押金charge_id
func rewardCharge(sfxID types.SfxID) string {
	return sfxID.String() + ":pay"
}
