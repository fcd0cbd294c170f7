// Package portal 提供目标链轻客户端与统一选择器
// 每条已登记链对应一个轻客户端实例：宿主侧喂入头部，
// 核心侧按请求方的速度档校验事件入块证明
package portal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	portalconfig "github.com/xchain/v1/internal/config/portal"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
	"github.com/xchain/v1/pkg/types"
	"golang.org/x/crypto/blake2b"
)

// 存储键格式：por:hdr:<chain>:<height> 头部；por:st:<chain> 客户端状态
const (
	headerKeyPrefix = "por:hdr:"
	stateKeyPrefix  = "por:st:"
)

// clientState 轻客户端持久化状态
type clientState struct {
	LatestHeight    uint64 `json:"latest_height"`    // 最新已提交高度
	FinalizedHeight uint64 `json:"finalized_height"` // 最新终局化高度
	Initialized     bool   `json:"initialized"`
}

// header 持久化的头部记录，Root为事件默克尔树根
type header struct {
	Height uint64 `json:"height"`
	Root   []byte `json:"root"`
	Raw    []byte `json:"raw"`
}

// LightClient 单链轻客户端，实现core.LightClient接口
type LightClient struct {
	mu     sync.RWMutex
	chain  types.ChainID
	vendor types.Vendor
	state  clientState
	store  storage.KVStore
	config *portalconfig.Config
	cache  *verifiedCache
	logger log.Logger
}

// NewLightClient 创建轻客户端并从存储恢复状态
func NewLightClient(ctx context.Context, chain types.ChainID, vendor types.Vendor,
	store storage.KVStore, config *portalconfig.Config, cache *verifiedCache, logger log.Logger) (*LightClient, error) {
	lc := &LightClient{
		chain:  chain,
		vendor: vendor,
		store:  store,
		config: config,
		cache:  cache,
		logger: logger,
	}
	value, err := store.Get(ctx, lc.stateKey())
	if err != nil {
		return nil, fmt.Errorf("恢复轻客户端状态失败: chain=%s: %w", chain, err)
	}
	if value != nil {
		if err := json.Unmarshal(value, &lc.state); err != nil {
			return nil, fmt.Errorf("解析轻客户端状态失败: chain=%s: %w", chain, err)
		}
	}
	return lc, nil
}

func (lc *LightClient) stateKey() []byte {
	return []byte(stateKeyPrefix + lc.chain.String())
}

func (lc *LightClient) headerKey(height uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return append([]byte(headerKeyPrefix+lc.chain.String()+":"), buf[:]...)
}

// Vendor 返回轻客户端类别
func (lc *LightClient) Vendor() types.Vendor {
	return lc.vendor
}

// SubmitHeader 提交新头部
// root为该区块事件默克尔树根；finalized标记该高度及以下已终局化
func (lc *LightClient) SubmitHeader(ctx context.Context, height uint64, root, raw []byte, finalized bool) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if lc.state.Initialized && height <= lc.state.LatestHeight {
		return fmt.Errorf("头部高度回退: chain=%s height=%d latest=%d", lc.chain, height, lc.state.LatestHeight)
	}

	hdr := header{Height: height, Root: root, Raw: raw}
	hdrValue, err := json.Marshal(&hdr)
	if err != nil {
		return fmt.Errorf("序列化头部失败: %w", err)
	}

	newState := lc.state
	newState.Initialized = true
	newState.LatestHeight = height
	if finalized {
		newState.FinalizedHeight = height
	}
	stateValue, err := json.Marshal(&newState)
	if err != nil {
		return fmt.Errorf("序列化轻客户端状态失败: %w", err)
	}

	err = lc.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.Set(lc.headerKey(height), hdrValue); err != nil {
			return err
		}
		return tx.Set(lc.stateKey(), stateValue)
	})
	if err != nil {
		return fmt.Errorf("持久化头部失败: chain=%s: %w", lc.chain, err)
	}
	lc.state = newState
	lc.logger.Debugf("头部已提交: chain=%s height=%d finalized=%v", lc.chain, height, finalized)
	return nil
}

// LatestFinalizedHeader 最新终局化头部的编码字节
func (lc *LightClient) LatestFinalizedHeader(ctx context.Context) ([]byte, error) {
	lc.mu.RLock()
	state := lc.state
	lc.mu.RUnlock()
	if !state.Initialized {
		return nil, fmt.Errorf("%w: chain=%s", ErrNotInitialized, lc.chain)
	}
	hdr, err := lc.loadHeader(ctx, state.FinalizedHeight)
	if err != nil {
		return nil, err
	}
	return hdr.Raw, nil
}

// LatestFinalizedHeight 最新终局化高度
func (lc *LightClient) LatestFinalizedHeight(ctx context.Context) (uint64, error) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	if !lc.state.Initialized {
		return 0, fmt.Errorf("%w: chain=%s", ErrNotInitialized, lc.chain)
	}
	return lc.state.FinalizedHeight, nil
}

// LatestUpdatedHeight 最新已提交高度
func (lc *LightClient) LatestUpdatedHeight(ctx context.Context) (uint64, error) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	if !lc.state.Initialized {
		return 0, fmt.Errorf("%w: chain=%s", ErrNotInitialized, lc.chain)
	}
	return lc.state.LatestHeight, nil
}

// CurrentEpoch 当前epoch，按厂商epoch长度折算终局化高度
func (lc *LightClient) CurrentEpoch(ctx context.Context) (uint64, error) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	if !lc.state.Initialized {
		return 0, fmt.Errorf("%w: chain=%s", ErrNotInitialized, lc.chain)
	}
	return lc.state.FinalizedHeight / lc.config.GetEpochLength(lc.vendor), nil
}

// VerifyEventInclusion 校验事件入块证明
// 确认深度按速度档与厂商配置换算：Fast参照最新提交高度，
// 其余档位参照终局化高度
func (lc *LightClient) VerifyEventInclusion(ctx context.Context, proof core.InclusionProof, speedMode types.SpeedMode) ([]byte, error) {
	lc.mu.RLock()
	state := lc.state
	lc.mu.RUnlock()
	if !state.Initialized {
		return nil, fmt.Errorf("%w: chain=%s", ErrNotInitialized, lc.chain)
	}

	// 深度检查先于缓存：缓存只记录证明有效，不记录确认深度，
	// 低速度档的命中不得替更高档位放行
	offset := lc.config.GetOffset(lc.vendor, speedMode)
	refHeight := state.FinalizedHeight
	if speedMode == types.SpeedModeFast {
		refHeight = state.LatestHeight
	}
	if refHeight < proof.Height+offset {
		return nil, fmt.Errorf("%w: chain=%s height=%d offset=%d ref=%d",
			ErrHeightBelowOffset, lc.chain, proof.Height, offset, refHeight)
	}

	if decoded, ok := lc.cache.Get(lc.chain, proof.Height, proof.Event); ok {
		return decoded, nil
	}

	hdr, err := lc.loadHeader(ctx, proof.Height)
	if err != nil {
		return nil, err
	}
	if !verifyMerkleProof(hdr.Root, proof.Event, proof.Proof) {
		return nil, fmt.Errorf("%w: chain=%s height=%d", ErrInclusionFailed, lc.chain, proof.Height)
	}

	lc.cache.Put(lc.chain, proof.Height, proof.Event, proof.Event)
	return proof.Event, nil
}

// loadHeader 读取指定高度头部
func (lc *LightClient) loadHeader(ctx context.Context, height uint64) (*header, error) {
	value, err := lc.store.Get(ctx, lc.headerKey(height))
	if err != nil {
		return nil, fmt.Errorf("读取头部失败: chain=%s height=%d: %w", lc.chain, height, err)
	}
	if value == nil {
		return nil, fmt.Errorf("%w: chain=%s height=%d无头部", ErrInclusionFailed, lc.chain, height)
	}
	var hdr header
	if err := json.Unmarshal(value, &hdr); err != nil {
		return nil, fmt.Errorf("解析头部失败: chain=%s height=%d: %w", lc.chain, height, err)
	}
	return &hdr, nil
}

// verifyMerkleProof 校验默克尔包含路径
// 叶子为事件摘要，逐层与路径节点拼接哈希，结果须等于头部根
func verifyMerkleProof(root, event []byte, proof [][]byte) bool {
	current := hashNode(event)
	for _, node := range proof {
		current = hashNode(append(current, node...))
	}
	if len(root) != len(current) {
		return false
	}
	for i := range root {
		if root[i] != current[i] {
			return false
		}
	}
	return true
}

func hashNode(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

var _ core.LightClient = (*LightClient)(nil)
