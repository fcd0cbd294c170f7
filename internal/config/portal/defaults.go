package portal

import "github.com/xchain/v1/pkg/types"

const (
	defaultFinalizedOffset = 12
	defaultEpochLength     = 32
)

// DefaultOptions 默认门户配置
func DefaultOptions() *PortalOptions {
	return &PortalOptions{
		FinalizedOffsets: map[types.Vendor]uint64{
			types.VendorPolkadot: 2,
			types.VendorKusama:   2,
			types.VendorRococo:   2,
			types.VendorEthereum: 12,
		},
		EpochLengths: map[types.Vendor]uint64{
			types.VendorPolkadot: 600,
			types.VendorKusama:   600,
			types.VendorRococo:   600,
			types.VendorEthereum: 32,
		},
		CacheTTLSeconds: 600,
		CacheMaxSizeMB:  64,
	}
}
