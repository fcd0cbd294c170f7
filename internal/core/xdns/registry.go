// Package xdns 提供跨链网关注册表
// 记录每个目标链的编码格式、厂商与各动作的最低奖励要求
package xdns

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
	"github.com/xchain/v1/pkg/types"
)

// 存储键前缀
const gatewayKeyPrefix = "xdn:gw:"

// 错误集合
var (
	ErrGatewayNotRegistered = fmt.Errorf("gateway not registered")
	ErrGatewayDuplicated    = fmt.Errorf("gateway already registered")
)

// Registry 网关注册表，实现core.Xdns接口
// 写路径落盘，读路径走内存索引
type Registry struct {
	mu      sync.RWMutex
	records map[types.ChainID]*types.GatewayRecord
	store   storage.KVStore
	logger  log.Logger
}

// NewRegistry 创建注册表并从存储恢复已注册网关
func NewRegistry(ctx context.Context, store storage.KVStore, logger log.Logger) (*Registry, error) {
	r := &Registry{
		records: make(map[types.ChainID]*types.GatewayRecord),
		store:   store,
		logger:  logger,
	}
	entries, err := store.PrefixScan(ctx, []byte(gatewayKeyPrefix))
	if err != nil {
		return nil, fmt.Errorf("恢复网关注册表失败: %w", err)
	}
	for key, value := range entries {
		var record types.GatewayRecord
		if err := json.Unmarshal(value, &record); err != nil {
			return nil, fmt.Errorf("解析网关记录失败: key=%s: %w", key, err)
		}
		r.records[record.ID] = &record
	}
	if len(r.records) > 0 {
		logger.Infof("网关注册表恢复完成: count=%d", len(r.records))
	}
	return r, nil
}

func gatewayKey(id types.ChainID) []byte {
	return []byte(gatewayKeyPrefix + id.String())
}

// AddGateway 注册新网关
func (r *Registry) AddGateway(ctx context.Context, record *types.GatewayRecord) error {
	if record == nil {
		return fmt.Errorf("网关记录为空")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.ID]; ok {
		return fmt.Errorf("%w: %s", ErrGatewayDuplicated, record.ID)
	}

	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化网关记录失败: %w", err)
	}
	if err := r.store.Set(ctx, gatewayKey(record.ID), value); err != nil {
		return fmt.Errorf("持久化网关记录失败: %w", err)
	}
	r.records[record.ID] = record
	r.logger.Infof("网关注册成功: id=%s vendor=%s codec=%s", record.ID, record.Vendor, record.Codec)
	return nil
}

// GetGateway 查询网关记录
func (r *Registry) GetGateway(ctx context.Context, id types.ChainID) (*types.GatewayRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGatewayNotRegistered, id)
	}
	return record, nil
}

// IsRegistered 检查网关是否已注册
func (r *Registry) IsRegistered(ctx context.Context, id types.ChainID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[id]
	return ok
}

// ListGateways 列出所有已注册网关
func (r *Registry) ListGateways(ctx context.Context) ([]*types.GatewayRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*types.GatewayRecord, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, record)
	}
	return out, nil
}

var _ core.Xdns = (*Registry)(nil)
