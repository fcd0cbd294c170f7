package abi

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// rlpCodec 以太坊RLP格式的字段编解码
// 载荷为与叶子字段顺序对齐的RLP列表
// 规范形式：账户左补零到32字节，数值为固定宽度大端
type rlpCodec struct{}

// Decode 按描述符解析RLP载荷
func (c rlpCodec) Decode(desc *Descriptor, payload []byte) (map[string][]byte, error) {
	var items [][]byte
	if err := rlp.DecodeBytes(payload, &items); err != nil {
		return nil, fmt.Errorf("%w: RLP解析失败: %v", ErrDecodeError, err)
	}
	flat := desc.FlatFields()
	if len(items) != len(flat) {
		return nil, fmt.Errorf("%w: RLP列表长度%d与字段数%d不符", ErrDecodeError, len(items), len(flat))
	}

	fields := make(map[string][]byte)
	for i, field := range flat {
		canonical, err := c.Canonicalize(field.Kind, items[i])
		if err != nil {
			return nil, fmt.Errorf("%w: 字段%s: %v", ErrDecodeError, field.Name, err)
		}
		fields[field.Name] = canonical
	}
	return fields, nil
}

// Canonicalize 将参数编码归一化为规范形式
// EVM地址为20字节，统一左补零到32字节与账户参数比对
func (rlpCodec) Canonicalize(kind FieldKind, arg []byte) ([]byte, error) {
	switch kind {
	case KindAccount32:
		if len(arg) != 20 && len(arg) != 32 {
			return nil, fmt.Errorf("%w: 账户参数必须为20或32字节", ErrInvalidArgument)
		}
		out := make([]byte, 32)
		copy(out[32-len(arg):], arg)
		return out, nil
	case KindValue128:
		return padBigEndian(arg, 16)
	case KindValue256:
		return padBigEndian(arg, 32)
	case KindBytes:
		return arg, nil
	default:
		return nil, fmt.Errorf("%w: 不支持的字段类型%s", ErrInvalidArgument, kind)
	}
}

// padBigEndian 大端数值左侧补零到固定宽度
func padBigEndian(arg []byte, width int) ([]byte, error) {
	// RLP数值为最小化大端表示，先剥离前导零再检查宽度
	for len(arg) > 0 && arg[0] == 0 {
		arg = arg[1:]
	}
	if len(arg) > width {
		return nil, fmt.Errorf("%w: 数值参数超出%d字节", ErrInvalidArgument, width)
	}
	out := make([]byte, width)
	copy(out[width-len(arg):], arg)
	return out, nil
}
