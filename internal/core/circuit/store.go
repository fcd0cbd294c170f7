// Package circuit 实现跨链执行交付核心：
// Xtx状态机、竞价引擎、确认引擎与操作面
//
// 所有状态变更都经过compile原语（machine.go）：
// 在乐观副本上预编译，校验状态迁移，再原子落盘
package circuit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
	"github.com/xchain/v1/pkg/types"
)

// 存储键格式
const (
	xtxKeyPrefix   = "cir:xtx:"     // Xtx记录
	fsxKeyPrefix   = "cir:fsx:"     // 步骤化FSX列表（按XtxID）
	linkKeyPrefix  = "cir:sfx2xtx:" // SfxID到XtxID反查
	acctKeyPrefix  = "cir:acct:"    // 请求者账户索引
	bidqKeyPrefix  = "cir:bidq:"    // 竞价截止队列
	timqKeyPrefix  = "cir:timq:"    // 回滚截止队列
	nonceKeyPrefix = "cir:nonce:"   // 请求者提交计数
)

// Store 核心状态存储
// FSX采用arena+index布局：按XtxID平铺存储，SfxID经反查索引定位
type Store struct {
	kv     storage.KVStore
	logger log.Logger
}

// NewStore 创建核心状态存储
func NewStore(kv storage.KVStore, logger log.Logger) *Store {
	return &Store{kv: kv, logger: logger}
}

func xtxKey(id types.XtxID) []byte {
	return []byte(xtxKeyPrefix + id.String())
}

func fsxKey(id types.XtxID) []byte {
	return []byte(fsxKeyPrefix + id.String())
}

func linkKey(id types.SfxID) []byte {
	return []byte(linkKeyPrefix + id.String())
}

func acctKey(account types.AccountID, id types.XtxID) []byte {
	return []byte(acctKeyPrefix + account.String() + ":" + id.String())
}

func bidqKey(id types.XtxID) []byte {
	return []byte(bidqKeyPrefix + id.String())
}

func timqKey(id types.XtxID) []byte {
	return []byte(timqKeyPrefix + id.String())
}

func nonceKey(account types.AccountID) []byte {
	return []byte(nonceKeyPrefix + account.String())
}

// ---- 事务内读写 ----

func txGetJSON(tx storage.Transaction, key []byte, out interface{}) (bool, error) {
	value, err := tx.Get(key)
	if err != nil {
		return false, err
	}
	if value == nil {
		return false, nil
	}
	if err := json.Unmarshal(value, out); err != nil {
		return false, fmt.Errorf("解析存储记录失败: key=%s: %w", key, err)
	}
	return true, nil
}

func txSetJSON(tx storage.Transaction, key []byte, in interface{}) error {
	value, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("序列化存储记录失败: key=%s: %w", key, err)
	}
	return tx.Set(key, value)
}

// txGetXtx 事务内读取Xtx，不存在时返回(nil, nil)
func txGetXtx(tx storage.Transaction, id types.XtxID) (*types.Xtx, error) {
	var xtx types.Xtx
	ok, err := txGetJSON(tx, xtxKey(id), &xtx)
	if err != nil || !ok {
		return nil, err
	}
	return &xtx, nil
}

func txSetXtx(tx storage.Transaction, xtx *types.Xtx) error {
	return txSetJSON(tx, xtxKey(xtx.ID), xtx)
}

// txGetSteps 事务内读取步骤化FSX列表
func txGetSteps(tx storage.Transaction, id types.XtxID) ([][]*types.FullSideEffect, error) {
	var steps [][]*types.FullSideEffect
	if _, err := txGetJSON(tx, fsxKey(id), &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

func txSetSteps(tx storage.Transaction, id types.XtxID, steps [][]*types.FullSideEffect) error {
	return txSetJSON(tx, fsxKey(id), steps)
}

// ---- 读路径 ----

func (s *Store) getJSON(ctx context.Context, key []byte, out interface{}) (bool, error) {
	value, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if value == nil {
		return false, nil
	}
	if err := json.Unmarshal(value, out); err != nil {
		return false, fmt.Errorf("解析存储记录失败: key=%s: %w", key, err)
	}
	return true, nil
}

// GetXtx 读取Xtx记录
func (s *Store) GetXtx(ctx context.Context, id types.XtxID) (*types.Xtx, error) {
	var xtx types.Xtx
	ok, err := s.getJSON(ctx, xtxKey(id), &xtx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrXtxNotFound, id)
	}
	return &xtx, nil
}

// GetSteps 读取步骤化FSX列表
func (s *Store) GetSteps(ctx context.Context, id types.XtxID) ([][]*types.FullSideEffect, error) {
	var steps [][]*types.FullSideEffect
	ok, err := s.getJSON(ctx, fsxKey(id), &steps)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrXtxNotFound, id)
	}
	return steps, nil
}

// ResolveSfx 由SfxID反查所属XtxID
func (s *Store) ResolveSfx(ctx context.Context, sfxID types.SfxID) (types.XtxID, error) {
	var xtxID types.XtxID
	ok, err := s.getJSON(ctx, linkKey(sfxID), &xtxID)
	if err != nil {
		return xtxID, err
	}
	if !ok {
		return xtxID, fmt.Errorf("%w: sfx=%s", ErrXtxNotFound, sfxID)
	}
	return xtxID, nil
}

// GetFSX 由SfxID定位FSX记录及所属Xtx
func (s *Store) GetFSX(ctx context.Context, sfxID types.SfxID) (*types.FullSideEffect, types.XtxID, error) {
	xtxID, err := s.ResolveSfx(ctx, sfxID)
	if err != nil {
		return nil, xtxID, err
	}
	steps, err := s.GetSteps(ctx, xtxID)
	if err != nil {
		return nil, xtxID, err
	}
	for _, step := range steps {
		for _, fsx := range step {
			if fsx.SfxID(xtxID) == sfxID {
				return fsx, xtxID, nil
			}
		}
	}
	return nil, xtxID, fmt.Errorf("%w: sfx=%s", ErrXtxNotFound, sfxID)
}

// PendingXtxForAccount 列出请求者名下未终结的Xtx
func (s *Store) PendingXtxForAccount(ctx context.Context, account types.AccountID) ([]*types.Xtx, error) {
	entries, err := s.kv.PrefixScan(ctx, []byte(acctKeyPrefix+account.String()+":"))
	if err != nil {
		return nil, err
	}
	var out []*types.Xtx
	for key := range entries {
		idHex := strings.TrimPrefix(key, acctKeyPrefix+account.String()+":")
		id, err := types.XtxIDFromHex(idHex)
		if err != nil {
			return nil, fmt.Errorf("解析账户索引失败: key=%s: %w", key, err)
		}
		xtx, err := s.GetXtx(ctx, id)
		if err != nil {
			return nil, err
		}
		if !xtx.Status.IsTerminal() {
			out = append(out, xtx)
		}
	}
	return out, nil
}

// NextNonce 读取请求者当前提交计数（提交时在同一事务内递增）
func (s *Store) NextNonce(ctx context.Context, account types.AccountID) (uint32, error) {
	var nonce uint32
	if _, err := s.getJSON(ctx, nonceKey(account), &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

// dueQueueEntries 扫描截止队列，返回截止块满足cmp的XtxID列表
func (s *Store) dueQueueEntries(ctx context.Context, prefix string, due func(types.BlockNumber) bool, max int) ([]types.XtxID, error) {
	entries, err := s.kv.PrefixScan(ctx, []byte(prefix))
	if err != nil {
		return nil, err
	}
	var out []types.XtxID
	for key, value := range entries {
		if max > 0 && len(out) >= max {
			break
		}
		var deadline types.BlockNumber
		if err := json.Unmarshal(value, &deadline); err != nil {
			return nil, fmt.Errorf("解析队列截止块失败: key=%s: %w", key, err)
		}
		if !due(deadline) {
			continue
		}
		id, err := types.XtxIDFromHex(strings.TrimPrefix(key, prefix))
		if err != nil {
			return nil, fmt.Errorf("解析队列键失败: key=%s: %w", key, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// DueBiddingTimeouts 竞价窗口已过的Xtx（截止块 < now，截止块当块仍可竞价）
func (s *Store) DueBiddingTimeouts(ctx context.Context, now types.BlockNumber, max int) ([]types.XtxID, error) {
	return s.dueQueueEntries(ctx, bidqKeyPrefix, func(d types.BlockNumber) bool { return d < now }, max)
}

// DueRevertTimeouts 回滚截止已到的Xtx（截止块 <= now）
func (s *Store) DueRevertTimeouts(ctx context.Context, now types.BlockNumber, max int) ([]types.XtxID, error) {
	return s.dueQueueEntries(ctx, timqKeyPrefix, func(d types.BlockNumber) bool { return d <= now }, max)
}

// BiddingDeadline 查询Xtx的竞价截止块，无队列条目时返回(0, false)
func (s *Store) BiddingDeadline(ctx context.Context, id types.XtxID) (types.BlockNumber, bool, error) {
	var deadline types.BlockNumber
	ok, err := s.getJSON(ctx, bidqKey(id), &deadline)
	if err != nil {
		return 0, false, err
	}
	return deadline, ok, nil
}
