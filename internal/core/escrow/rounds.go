package escrow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
	"github.com/xchain/v1/pkg/types"
)

// txCurrentRound 事务内读取当前轮次，未初始化时为0
func txCurrentRound(tx storage.Transaction) (uint32, error) {
	value, err := tx.Get([]byte(roundKey))
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, nil
	}
	var round uint32
	if err := json.Unmarshal(value, &round); err != nil {
		return 0, fmt.Errorf("解析轮次失败: %w", err)
	}
	return round, nil
}

// CurrentRound 当前轮次
func (m *Manager) CurrentRound(ctx context.Context) (uint32, error) {
	value, err := m.store.Get(ctx, []byte(roundKey))
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, nil
	}
	var round uint32
	if err := json.Unmarshal(value, &round); err != nil {
		return 0, fmt.Errorf("解析轮次失败: %w", err)
	}
	return round, nil
}

// BumpRound 轮次推进并快照当轮可领取结算
// 返回被关闭轮次新产生的可领取列表；资金继续留在托管账户，
// 由受益人通过Claim划出
func (m *Manager) BumpRound(ctx context.Context) ([]*types.Claimable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var claimables []*types.Claimable
	err := m.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		round, err := txCurrentRound(tx)
		if err != nil {
			return err
		}
		value, err := json.Marshal(round + 1)
		if err != nil {
			return err
		}
		return tx.Set([]byte(roundKey), value)
	})
	if err != nil {
		return nil, fmt.Errorf("轮次推进失败: %w", err)
	}

	round, err := m.CurrentRound(ctx)
	if err != nil {
		return nil, err
	}
	closed := round - 1

	prefix := fmt.Sprintf("%s%010d:", claimKeyPrefix, closed)
	entries, err := m.store.PrefixScan(ctx, []byte(prefix))
	if err != nil {
		return nil, err
	}
	for key, value := range entries {
		var claimable types.Claimable
		if err := json.Unmarshal(value, &claimable); err != nil {
			return nil, fmt.Errorf("解析可领取记录失败: key=%s: %w", key, err)
		}
		claimables = append(claimables, &claimable)
	}
	m.logger.Infof("轮次推进完成: round=%d claimables=%d", round, len(claimables))
	return claimables, nil
}

// Claim 受益人领取指定轮次的结算
// 仅允许领取已关闭轮次；领取后记录删除，资金从托管账户划出
func (m *Manager) Claim(ctx context.Context, beneficiary types.AccountID, round uint32) (types.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var claimed types.Balance
	err := m.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		current, err := txCurrentRound(tx)
		if err != nil {
			return err
		}
		if round >= current {
			return fmt.Errorf("%w: round=%d current=%d", ErrRoundStillOpen, round, current)
		}

		key := claimKey(round, beneficiary)
		value, err := tx.Get(key)
		if err != nil {
			return err
		}
		if value == nil {
			return fmt.Errorf("%w: round=%d beneficiary=%s", ErrClaimNotFound, round, beneficiary)
		}
		var claimable types.Claimable
		if err := json.Unmarshal(value, &claimable); err != nil {
			return fmt.Errorf("解析可领取记录失败: %w", err)
		}
		if err := txTransfer(tx, EscrowAccount, beneficiary, claimable.Amount); err != nil {
			return err
		}
		claimed = claimable.Amount
		return tx.Delete(key)
	})
	if err != nil {
		return 0, err
	}
	m.logger.Debugf("结算领取完成: beneficiary=%s round=%d amount=%d", beneficiary, round, claimed)
	return claimed, nil
}

// ClaimableRounds 列出受益人可领取的轮次（只读查询）
func (m *Manager) ClaimableRounds(ctx context.Context, beneficiary types.AccountID) ([]*types.Claimable, error) {
	entries, err := m.store.PrefixScan(ctx, []byte(claimKeyPrefix))
	if err != nil {
		return nil, err
	}
	current, err := m.CurrentRound(ctx)
	if err != nil {
		return nil, err
	}
	suffix := ":" + beneficiary.String()
	var out []*types.Claimable
	for key, value := range entries {
		if !strings.HasSuffix(key, suffix) {
			continue
		}
		var claimable types.Claimable
		if err := json.Unmarshal(value, &claimable); err != nil {
			return nil, fmt.Errorf("解析可领取记录失败: key=%s: %w", key, err)
		}
		if claimable.Round < current {
			out = append(out, &claimable)
		}
	}
	return out, nil
}
