package circuit

import (
	"context"
	"fmt"

	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
	"github.com/xchain/v1/pkg/types"
)

// LocalCtx compile原语的本地上下文
// 持有Xtx与步骤化FSX的乐观副本，precompile在副本上自由修改
type LocalCtx struct {
	Xtx   *types.Xtx
	Steps [][]*types.FullSideEffect
}

// CurrentStep 当前步骤的FSX列表
func (c *LocalCtx) CurrentStep() []*types.FullSideEffect {
	idx := int(c.Xtx.StepsCnt.Current)
	if idx >= len(c.Steps) {
		return nil
	}
	return c.Steps[idx]
}

// FindFSX 在全部步骤中按SfxID定位FSX
func (c *LocalCtx) FindFSX(sfxID types.SfxID) (*types.FullSideEffect, int) {
	for stepIdx, step := range c.Steps {
		for _, fsx := range step {
			if fsx.SfxID(c.Xtx.ID) == sfxID {
				return fsx, stepIdx
			}
		}
	}
	return nil, -1
}

// PrecompileResult precompile的产出
// TargetStatus为nil时由DetermineStatus推导目标状态
type PrecompileResult struct {
	TargetStatus *types.XtxStatus
	Cause        *types.Cause
}

// Machine Xtx状态机
// 所有Xtx变更经过Compile：加载→乐观预编译→迁移校验→原子落盘→事后回调
type Machine struct {
	kv     storage.KVStore
	logger log.Logger
}

// NewMachine 创建状态机
func NewMachine(kv storage.KVStore, logger log.Logger) *Machine {
	return &Machine{kv: kv, logger: logger}
}

// statusOf 便捷构造目标状态指针
func statusOf(s types.XtxStatus) *types.XtxStatus {
	return &s
}

// Compile 执行一次状态机变更
//
// precompile在乐观副本上执行并返回目标状态；任何错误都使整个调用
// 无副作用地中止。落盘时Xtx记录、FSX列表与队列索引在同一事务内
// 更新。postUpdate仅在落盘成功后执行，用于事件发布
func (m *Machine) Compile(ctx context.Context, xtxID types.XtxID,
	precompile func(*LocalCtx) (*PrecompileResult, error),
	postUpdate func(oldStatus types.XtxStatus, local *LocalCtx)) error {

	var oldStatus types.XtxStatus
	var committed *LocalCtx

	err := m.kv.RunInTransaction(ctx, func(tx storage.Transaction) error {
		xtx, err := txGetXtx(tx, xtxID)
		if err != nil {
			return err
		}
		if xtx == nil {
			return fmt.Errorf("%w: %s", ErrXtxNotFound, xtxID)
		}
		steps, err := txGetSteps(tx, xtxID)
		if err != nil {
			return err
		}

		oldStatus = xtx.Status
		xtxCopy := *xtx
		local := &LocalCtx{Xtx: &xtxCopy, Steps: types.CloneFSXSteps(steps)}

		result, err := precompile(local)
		if err != nil {
			return err
		}

		target := oldStatus
		if result.TargetStatus != nil {
			target = *result.TargetStatus
		} else {
			target = types.DetermineStatus(local.Steps, local.Xtx.Status)
		}
		if err := types.CheckTransition(oldStatus, target); err != nil {
			return fmt.Errorf("%w: %v", ErrXtxNotInExpectedStatus, err)
		}
		local.Xtx.Status = target
		if result.Cause != nil {
			local.Xtx.Cause = result.Cause
		}

		// 队列维护与记录落盘在同一事务内
		if target != oldStatus && target != types.StatusInBidding && target != types.StatusPendingBidding {
			if err := tx.Delete(bidqKey(xtxID)); err != nil {
				return err
			}
		}
		if target.IsTerminal() {
			if err := tx.Delete(timqKey(xtxID)); err != nil {
				return err
			}
		}
		if err := txSetXtx(tx, local.Xtx); err != nil {
			return err
		}
		if err := txSetSteps(tx, xtxID, local.Steps); err != nil {
			return err
		}
		committed = local
		return nil
	})
	if err != nil {
		return err
	}

	if committed.Xtx.Status != oldStatus {
		m.logger.Infof("Xtx状态迁移: id=%s %s -> %s", xtxID, oldStatus, committed.Xtx.Status)
	}
	if postUpdate != nil {
		postUpdate(oldStatus, committed)
	}
	return nil
}
