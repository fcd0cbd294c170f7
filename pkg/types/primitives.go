// Package types 定义跨链执行交付核心的领域类型
// 包含链标识、账户、余额、Xtx/SFX标识符等基础类型
package types

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ChainID 目标链标识符
// 固定4字节标签，例如 "pdot"、"ksma"、"eth0"
type ChainID [4]byte

// NewChainID 从字符串创建ChainID
// 字符串必须恰好为4字节
func NewChainID(s string) (ChainID, error) {
	var id ChainID
	if len(s) != 4 {
		return id, fmt.Errorf("链标识必须为4字节: %q", s)
	}
	copy(id[:], s)
	return id, nil
}

// MustChainID 从字符串创建ChainID，长度非法时panic
// 仅用于常量初始化和测试
func MustChainID(s string) ChainID {
	id, err := NewChainID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String 返回ChainID的字符串表示
func (c ChainID) String() string {
	return string(c[:])
}

// IsZero 检查ChainID是否为零值
func (c ChainID) IsZero() bool {
	return c == ChainID{}
}

// MarshalJSON 实现JSON序列化
func (c ChainID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(c[:]))
}

// UnmarshalJSON 实现JSON反序列化
func (c *ChainID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := NewChainID(s)
	if err != nil {
		return err
	}
	*c = id
	return nil
}

// Action SFX操作类型标识符
// 固定4字节标签，例如 "tran"（转账）、"call"（合约调用）
type Action [4]byte

// NewAction 从字符串创建Action
func NewAction(s string) (Action, error) {
	var a Action
	if len(s) != 4 {
		return a, fmt.Errorf("操作标识必须为4字节: %q", s)
	}
	copy(a[:], s)
	return a, nil
}

// MustAction 从字符串创建Action，长度非法时panic
func MustAction(s string) Action {
	a, err := NewAction(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String 返回Action的字符串表示
func (a Action) String() string {
	return string(a[:])
}

// MarshalJSON 实现JSON序列化
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a[:]))
}

// UnmarshalJSON 实现JSON反序列化
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	act, err := NewAction(s)
	if err != nil {
		return err
	}
	*a = act
	return nil
}

// AccountID 账户标识符，32字节公钥哈希
type AccountID [32]byte

// AccountIDFromHex 从十六进制字符串解析AccountID
func AccountIDFromHex(s string) (AccountID, error) {
	var id AccountID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("解析账户十六进制失败: %w", err)
	}
	if len(raw) != 32 {
		return id, fmt.Errorf("账户标识必须为32字节，实际为%d字节", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// AccountIDFromBytes 从字节切片创建AccountID
// 不足32字节时右侧补零，超长时截断；用于测试中的简写账户
func AccountIDFromBytes(b []byte) AccountID {
	var id AccountID
	copy(id[:], b)
	return id
}

// String 返回账户的十六进制表示
func (a AccountID) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero 检查账户是否为零值
func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

// Bytes 返回账户的字节表示
func (a AccountID) Bytes() []byte {
	return a[:]
}

// MarshalJSON 实现JSON序列化
func (a AccountID) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(a[:]))
}

// UnmarshalJSON 实现JSON反序列化
func (a *AccountID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := AccountIDFromHex(s)
	if err != nil {
		return err
	}
	*a = id
	return nil
}

// Balance 余额类型
// 核心内部结算使用原生最小计量单位
type Balance uint64

// AssetID 资产标识符，nil指针语义表示原生代币
type AssetID uint32

// BlockNumber 宿主链区块高度
type BlockNumber uint64

// XtxID 跨链交易标识符，32字节哈希
type XtxID [32]byte

// SfxID 副作用标识符，32字节哈希
type SfxID [32]byte

// hash32 blake2b-256哈希辅助函数
func hash32(parts ...[]byte) [32]byte {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// NewXtxID 派生跨链交易标识
// XtxID = blake2b(requester ‖ nonce_le ‖ salt)，salt为宿主提供的区块哈希
func NewXtxID(requester AccountID, nonce uint32, salt []byte) XtxID {
	var nonceLE [4]byte
	binary.LittleEndian.PutUint32(nonceLE[:], nonce)
	return XtxID(hash32(requester[:], nonceLE[:], salt))
}

// NewSfxID 派生副作用标识
// SfxID = blake2b(xtx_id ‖ index_le)
func NewSfxID(xtxID XtxID, index uint32) SfxID {
	var idxLE [4]byte
	binary.LittleEndian.PutUint32(idxLE[:], index)
	return SfxID(hash32(xtxID[:], idxLE[:]))
}

// String 返回XtxID的十六进制表示
func (x XtxID) String() string {
	return hex.EncodeToString(x[:])
}

// Bytes 返回XtxID的字节表示
func (x XtxID) Bytes() []byte {
	return x[:]
}

// XtxIDFromHex 从十六进制字符串解析XtxID
func XtxIDFromHex(s string) (XtxID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return XtxID{}, fmt.Errorf("非法的Xtx标识: %q", s)
	}
	var id XtxID
	copy(id[:], raw)
	return id, nil
}

// MarshalJSON 实现JSON序列化
func (x XtxID) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(x[:]))
}

// UnmarshalJSON 实现JSON反序列化
func (x *XtxID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := XtxIDFromHex(s)
	if err != nil {
		return err
	}
	*x = id
	return nil
}

// String 返回SfxID的十六进制表示
func (s SfxID) String() string {
	return hex.EncodeToString(s[:])
}

// Bytes 返回SfxID的字节表示
func (s SfxID) Bytes() []byte {
	return s[:]
}

// SfxIDFromHex 从十六进制字符串解析SfxID
func SfxIDFromHex(str string) (SfxID, error) {
	raw, err := hex.DecodeString(str)
	if err != nil || len(raw) != 32 {
		return SfxID{}, fmt.Errorf("非法的SFX标识: %q", str)
	}
	var id SfxID
	copy(id[:], raw)
	return id, nil
}

// MarshalJSON 实现JSON序列化
func (s SfxID) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(s[:]))
}

// UnmarshalJSON 实现JSON反序列化
func (s *SfxID) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	id, err := SfxIDFromHex(str)
	if err != nil {
		return err
	}
	*s = id
	return nil
}
