package core

import (
	"github.com/xchain/v1/pkg/types"
)

// ArgSpec 副作用参数声明
type ArgSpec struct {
	Name       string `json:"name"`        // 参数名，与载荷描述符中的字段名对应
	MustVerify bool   `json:"must_verify"` // 是否必须与目标链事件字段比对
}

// SFXInterface 副作用接口声明
// Args按位置与SideEffect.EncodedArgs对齐
type SFXInterface struct {
	Action            types.Action `json:"action"`
	Args              []ArgSpec    `json:"args"`
	PayloadDescriptor string       `json:"payload_descriptor"`
}

// AbiRegistry 副作用ABI注册表
// 维护标准接口与按网关覆盖的接口，并负责确认载荷的参数校验
type AbiRegistry interface {
	// GetInterface 查询接口声明，网关覆盖优先于标准接口
	GetInterface(chain types.ChainID, action types.Action) (*SFXInterface, error)

	// RegisterOverride 为指定网关注册覆盖接口
	RegisterOverride(chain types.ChainID, iface *SFXInterface) error

	// Validate 按声明的描述符解析载荷，并比对所有must_verify参数
	Validate(iface *SFXInterface, args [][]byte, payload []byte, codec types.Codec) error
}
