// 网关（目标链）登记记录与编解码标签
package types

import "fmt"

// Codec 目标链载荷编解码格式
type Codec uint8

const (
	// CodecScale 长度前缀的紧凑二进制格式（Substrate系目标链）
	CodecScale Codec = iota
	// CodecRlp RLP格式（以太坊系目标链）
	CodecRlp
)

// String 返回编解码标签的字符串表示
func (c Codec) String() string {
	if c == CodecRlp {
		return "rlp"
	}
	return "scale"
}

// Vendor 轻客户端实现类别
// 新目标链类别以新增枚举值的方式加入，Portal按类别穷举分派
type Vendor uint8

const (
	// VendorPolkadot Polkadot GRANDPA轻客户端
	VendorPolkadot Vendor = iota
	// VendorKusama Kusama GRANDPA轻客户端
	VendorKusama
	// VendorRococo Rococo测试网轻客户端
	VendorRococo
	// VendorEthereum 以太坊信标链轻客户端
	VendorEthereum
)

// String 返回轻客户端类别的字符串表示
func (v Vendor) String() string {
	switch v {
	case VendorPolkadot:
		return "polkadot"
	case VendorKusama:
		return "kusama"
	case VendorRococo:
		return "rococo"
	case VendorEthereum:
		return "ethereum"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// GatewayRecord 网关登记记录
// XDNS注册表中一条目标链的描述
type GatewayRecord struct {
	ID               ChainID            `json:"id"`                         // 链标识
	Vendor           Vendor             `json:"vendor"`                     // 轻客户端类别
	Codec            Codec              `json:"codec"`                      // 载荷编解码格式
	AllowedActions   []Action           `json:"allowed_actions"`            // 支持的操作类型
	MinRewards       map[string]Balance `json:"min_rewards"`                // 按操作类型的最低酬劳（键为Action字符串）
	RecognizedAssets []AssetID          `json:"recognized_assets,omitempty"` // 可充当酬劳的已登记资产
}

// SupportsAction 检查网关是否支持指定操作
func (g *GatewayRecord) SupportsAction(a Action) bool {
	for _, allowed := range g.AllowedActions {
		if allowed == a {
			return true
		}
	}
	return false
}

// MinRewardFor 返回指定操作的最低酬劳，未配置时为0
func (g *GatewayRecord) MinRewardFor(a Action) Balance {
	return g.MinRewards[a.String()]
}

// RecognizesAsset 检查酬劳资产是否已在网关登记
// nil表示本位资产，总是接受
func (g *GatewayRecord) RecognizesAsset(id *AssetID) bool {
	if id == nil {
		return true
	}
	for _, asset := range g.RecognizedAssets {
		if asset == *id {
			return true
		}
	}
	return false
}
