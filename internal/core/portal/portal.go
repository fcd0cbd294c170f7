package portal

import (
	"context"
	"fmt"
	"sync"

	portalconfig "github.com/xchain/v1/internal/config/portal"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
	"github.com/xchain/v1/pkg/types"
)

// Portal 轻客户端统一选择器，实现core.Portal接口
type Portal struct {
	mu      sync.RWMutex
	clients map[types.ChainID]*LightClient
	store   storage.KVStore
	config  *portalconfig.Config
	cache   *verifiedCache
	logger  log.Logger
}

// New 创建门户
func New(store storage.KVStore, config *portalconfig.Config, logger log.Logger) (*Portal, error) {
	cache, err := newVerifiedCache(config)
	if err != nil {
		return nil, fmt.Errorf("创建已验证事件缓存失败: %w", err)
	}
	return &Portal{
		clients: make(map[types.ChainID]*LightClient),
		store:   store,
		config:  config,
		cache:   cache,
		logger:  logger,
	}, nil
}

// RegisterGateway 为网关创建轻客户端
// 与XDNS登记同步进行，由宿主侧初始化调用
func (p *Portal) RegisterGateway(ctx context.Context, chain types.ChainID, vendor types.Vendor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.clients[chain]; ok {
		return fmt.Errorf("轻客户端已存在: %s", chain)
	}
	lc, err := NewLightClient(ctx, chain, vendor, p.store, p.config, p.cache, p.logger)
	if err != nil {
		return err
	}
	p.clients[chain] = lc
	p.logger.Infof("轻客户端注册成功: chain=%s vendor=%s", chain, vendor)
	return nil
}

// Client 返回指定链的轻客户端
func (p *Portal) Client(chain types.ChainID) (*LightClient, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	lc, ok := p.clients[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, chain)
	}
	return lc, nil
}

// LatestFinalizedHeader 最新终局化头部
func (p *Portal) LatestFinalizedHeader(ctx context.Context, chain types.ChainID) ([]byte, error) {
	lc, err := p.Client(chain)
	if err != nil {
		return nil, err
	}
	return lc.LatestFinalizedHeader(ctx)
}

// LatestFinalizedHeight 最新终局化高度
func (p *Portal) LatestFinalizedHeight(ctx context.Context, chain types.ChainID) (uint64, error) {
	lc, err := p.Client(chain)
	if err != nil {
		return 0, err
	}
	return lc.LatestFinalizedHeight(ctx)
}

// LatestUpdatedHeight 最新已提交高度
func (p *Portal) LatestUpdatedHeight(ctx context.Context, chain types.ChainID) (uint64, error) {
	lc, err := p.Client(chain)
	if err != nil {
		return 0, err
	}
	return lc.LatestUpdatedHeight(ctx)
}

// CurrentEpoch 当前epoch
func (p *Portal) CurrentEpoch(ctx context.Context, chain types.ChainID) (uint64, error) {
	lc, err := p.Client(chain)
	if err != nil {
		return 0, err
	}
	return lc.CurrentEpoch(ctx)
}

// VerifyEventInclusion 校验事件入块证明
func (p *Portal) VerifyEventInclusion(ctx context.Context, chain types.ChainID, proof core.InclusionProof, speedMode types.SpeedMode) ([]byte, error) {
	lc, err := p.Client(chain)
	if err != nil {
		return nil, err
	}
	return lc.VerifyEventInclusion(ctx, proof, speedMode)
}

// Close 释放缓存资源
func (p *Portal) Close() error {
	return p.cache.Close()
}

var _ core.Portal = (*Portal)(nil)
