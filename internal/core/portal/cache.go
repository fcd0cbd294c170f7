package portal

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/allegro/bigcache/v3"
	portalconfig "github.com/xchain/v1/internal/config/portal"
	"github.com/xchain/v1/pkg/types"
	"golang.org/x/crypto/blake2b"
)

// verifiedCache 已验证事件缓存
// 同一证明的重复提交（重放、重试）直接命中缓存，避免重复验证
type verifiedCache struct {
	cache *bigcache.BigCache
}

func newVerifiedCache(config *portalconfig.Config) (*verifiedCache, error) {
	cfg := bigcache.DefaultConfig(time.Duration(config.GetCacheTTLSeconds()) * time.Second)
	cfg.HardMaxCacheSize = config.GetCacheMaxSizeMB()
	cfg.Verbose = false
	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return &verifiedCache{cache: cache}, nil
}

// cacheKey 缓存键：链标识、高度与事件内容的摘要
func cacheKey(chain types.ChainID, height uint64, event []byte) string {
	var heightBuf [8]byte
	binary.LittleEndian.PutUint64(heightBuf[:], height)
	h, _ := blake2b.New256(nil)
	h.Write(chain[:])
	h.Write(heightBuf[:])
	h.Write(event)
	return string(h.Sum(nil))
}

// Get 查询缓存，未命中返回(nil, false)
func (c *verifiedCache) Get(chain types.ChainID, height uint64, event []byte) ([]byte, bool) {
	value, err := c.cache.Get(cacheKey(chain, height, event))
	if err != nil {
		return nil, false
	}
	return value, true
}

// Put 写入已验证事件
func (c *verifiedCache) Put(chain types.ChainID, height uint64, event, decoded []byte) {
	_ = c.cache.Set(cacheKey(chain, height, event), decoded)
}

// Close 关闭缓存
func (c *verifiedCache) Close() error {
	return c.cache.Close()
}
