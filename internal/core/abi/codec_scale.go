package abi

import (
	"encoding/binary"
	"fmt"
)

// scaleCodec 长度前缀二进制格式的字段编解码
// 规范形式：账户为32字节原文，数值为固定宽度小端，字节串去除长度前缀
type scaleCodec struct{}

// EncodeCompact 编码紧凑整数
func EncodeCompact(n uint64) []byte {
	switch {
	case n < 1<<6:
		return []byte{byte(n << 2)}
	case n < 1<<14:
		v := uint16(n)<<2 | 0b01
		out := make([]byte, 2)
		binary.LittleEndian.PutUint16(out, v)
		return out
	case n < 1<<30:
		v := uint32(n)<<2 | 0b10
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, v)
		return out
	default:
		// 大整数模式：首字节记录后续字节数
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], n)
		byteLen := 8
		for byteLen > 4 && buf[byteLen-1] == 0 {
			byteLen--
		}
		out := make([]byte, 1+byteLen)
		out[0] = byte(byteLen-4)<<2 | 0b11
		copy(out[1:], buf[:byteLen])
		return out
	}
}

// DecodeCompact 解码紧凑整数，返回值与消费的字节数
func DecodeCompact(data []byte) (uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("%w: 紧凑整数输入为空", ErrDecodeError)
	}
	mode := data[0] & 0b11
	switch mode {
	case 0b00:
		return uint64(data[0] >> 2), 1, nil
	case 0b01:
		if len(data) < 2 {
			return 0, 0, fmt.Errorf("%w: 紧凑整数截断", ErrDecodeError)
		}
		return uint64(binary.LittleEndian.Uint16(data[:2]) >> 2), 2, nil
	case 0b10:
		if len(data) < 4 {
			return 0, 0, fmt.Errorf("%w: 紧凑整数截断", ErrDecodeError)
		}
		return uint64(binary.LittleEndian.Uint32(data[:4]) >> 2), 4, nil
	default:
		byteLen := int(data[0]>>2) + 4
		if byteLen > 8 {
			return 0, 0, fmt.Errorf("%w: 紧凑整数超出64位", ErrDecodeError)
		}
		if len(data) < 1+byteLen {
			return 0, 0, fmt.Errorf("%w: 紧凑整数截断", ErrDecodeError)
		}
		var buf [8]byte
		copy(buf[:], data[1:1+byteLen])
		return binary.LittleEndian.Uint64(buf[:]), 1 + byteLen, nil
	}
}

// Decode 按描述符解析载荷，返回叶子字段名到规范编码的映射
func (scaleCodec) Decode(desc *Descriptor, payload []byte) (map[string][]byte, error) {
	fields := make(map[string][]byte)
	pos := 0
	for _, field := range desc.FlatFields() {
		switch field.Kind {
		case KindAccount32:
			if pos+32 > len(payload) {
				return nil, fmt.Errorf("%w: 字段%s载荷不足", ErrDecodeError, field.Name)
			}
			fields[field.Name] = payload[pos : pos+32]
			pos += 32
		case KindValue128:
			if pos+16 > len(payload) {
				return nil, fmt.Errorf("%w: 字段%s载荷不足", ErrDecodeError, field.Name)
			}
			fields[field.Name] = payload[pos : pos+16]
			pos += 16
		case KindValue256:
			if pos+32 > len(payload) {
				return nil, fmt.Errorf("%w: 字段%s载荷不足", ErrDecodeError, field.Name)
			}
			fields[field.Name] = payload[pos : pos+32]
			pos += 32
		case KindBytes:
			length, consumed, err := DecodeCompact(payload[pos:])
			if err != nil {
				return nil, fmt.Errorf("%w: 字段%s长度前缀非法", ErrDecodeError, field.Name)
			}
			pos += consumed
			if pos+int(length) > len(payload) {
				return nil, fmt.Errorf("%w: 字段%s载荷不足", ErrDecodeError, field.Name)
			}
			fields[field.Name] = payload[pos : pos+int(length)]
			pos += int(length)
		default:
			return nil, fmt.Errorf("%w: 不支持的字段类型%s", ErrDecodeError, field.Kind)
		}
	}
	if pos != len(payload) {
		return nil, fmt.Errorf("%w: 载荷存在%d字节尾随数据", ErrDecodeError, len(payload)-pos)
	}
	return fields, nil
}

// Canonicalize 将请求方提交的参数编码归一化为规范形式
func (scaleCodec) Canonicalize(kind FieldKind, arg []byte) ([]byte, error) {
	switch kind {
	case KindAccount32:
		if len(arg) != 32 {
			return nil, fmt.Errorf("%w: 账户参数必须为32字节", ErrInvalidArgument)
		}
		return arg, nil
	case KindValue128:
		return padLittleEndian(arg, 16)
	case KindValue256:
		return padLittleEndian(arg, 32)
	case KindBytes:
		return arg, nil
	default:
		return nil, fmt.Errorf("%w: 不支持的字段类型%s", ErrInvalidArgument, kind)
	}
}

// padLittleEndian 小端数值右侧补零到固定宽度
func padLittleEndian(arg []byte, width int) ([]byte, error) {
	if len(arg) > width {
		return nil, fmt.Errorf("%w: 数值参数超出%d字节", ErrInvalidArgument, width)
	}
	out := make([]byte, width)
	copy(out, arg)
	return out, nil
}
