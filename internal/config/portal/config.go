// Package portal 提供轻客户端门户配置
package portal

import (
	"os"
	"strconv"

	"github.com/xchain/v1/pkg/types"
)

// PortalOptions 门户配置选项
type PortalOptions struct {
	// FinalizedOffsets 各厂商Finalized速度档所需确认深度
	FinalizedOffsets map[types.Vendor]uint64 `json:"finalized_offsets"`
	// EpochLengths 各厂商epoch长度（区块数）
	EpochLengths map[types.Vendor]uint64 `json:"epoch_lengths"`
	// CacheTTLSeconds 已验证事件缓存存活秒数
	CacheTTLSeconds int `json:"cache_ttl_seconds"`
	// CacheMaxSizeMB 已验证事件缓存上限
	CacheMaxSizeMB int `json:"cache_max_size_mb"`
}

// Config 门户配置访问器
type Config struct {
	options *PortalOptions
}

// New 创建门户配置，nil时使用默认值
func New(options *PortalOptions) *Config {
	if options == nil {
		options = DefaultOptions()
	}
	applyEnvOverrides(options)
	return &Config{options: options}
}

func applyEnvOverrides(options *PortalOptions) {
	if v := os.Getenv("XCHAIN_PORTAL_CACHE_TTL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			options.CacheTTLSeconds = n
		}
	}
	if v := os.Getenv("XCHAIN_PORTAL_CACHE_MAX_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			options.CacheMaxSizeMB = n
		}
	}
}

// GetFinalizedOffset 指定厂商Finalized档确认深度
func (c *Config) GetFinalizedOffset(vendor types.Vendor) uint64 {
	if off, ok := c.options.FinalizedOffsets[vendor]; ok {
		return off
	}
	return defaultFinalizedOffset
}

// GetOffset 按速度档换算确认深度
// Fast不要求额外深度，Rational取Finalized的一半
func (c *Config) GetOffset(vendor types.Vendor, mode types.SpeedMode) uint64 {
	full := c.GetFinalizedOffset(vendor)
	switch mode {
	case types.SpeedModeFast:
		return 0
	case types.SpeedModeRational:
		return full / 2
	default:
		return full
	}
}

// GetEpochLength 指定厂商epoch长度
func (c *Config) GetEpochLength(vendor types.Vendor) uint64 {
	if n, ok := c.options.EpochLengths[vendor]; ok && n > 0 {
		return n
	}
	return defaultEpochLength
}

// GetCacheTTLSeconds 缓存存活秒数
func (c *Config) GetCacheTTLSeconds() int { return c.options.CacheTTLSeconds }

// GetCacheMaxSizeMB 缓存上限
func (c *Config) GetCacheMaxSizeMB() int { return c.options.CacheMaxSizeMB }
