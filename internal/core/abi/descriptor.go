// Package abi 提供副作用接口注册表与确认载荷校验
// 载荷描述符采用紧凑文法，例如：
//
//	Transfer:Struct(from:Account32,to:Account32,amount:Value128)
//
// 字段类型包括基础类型(Account32/Value128/Value256/Bytes)与
// 嵌套类型(Struct/Log)
package abi

import (
	"fmt"
	"strings"
)

// FieldKind 描述符字段类型
type FieldKind string

const (
	KindAccount32 FieldKind = "Account32" // 32字节账户
	KindValue128  FieldKind = "Value128"  // 128位数值
	KindValue256  FieldKind = "Value256"  // 256位数值
	KindBytes     FieldKind = "Bytes"     // 变长字节串
	KindStruct    FieldKind = "Struct"    // 嵌套结构
	KindLog       FieldKind = "Log"       // 事件日志，字段布局与Struct一致
)

// Field 描述符中的单个字段
type Field struct {
	Name   string
	Kind   FieldKind
	Fields []Field // Struct/Log的子字段
}

// Descriptor 已解析的载荷描述符
type Descriptor struct {
	Name string
	Root Field
}

// ParseDescriptor 解析描述符文法字符串
func ParseDescriptor(s string) (*Descriptor, error) {
	s = strings.TrimSpace(s)
	idx := strings.Index(s, ":")
	if idx <= 0 {
		return nil, fmt.Errorf("%w: 描述符缺少名称: %q", ErrDecodeError, s)
	}
	name := s[:idx]
	root, rest, err := parseField(name, s[idx+1:])
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, fmt.Errorf("%w: 描述符存在尾随内容: %q", ErrDecodeError, rest)
	}
	return &Descriptor{Name: name, Root: root}, nil
}

// parseField 解析单个字段类型，返回剩余未消费的输入
func parseField(name, s string) (Field, string, error) {
	for _, kind := range []FieldKind{KindStruct, KindLog} {
		prefix := string(kind) + "("
		if strings.HasPrefix(s, prefix) {
			fields, rest, err := parseFieldList(s[len(prefix):])
			if err != nil {
				return Field{}, "", err
			}
			return Field{Name: name, Kind: kind, Fields: fields}, rest, nil
		}
	}

	end := len(s)
	for i, c := range s {
		if c == ',' || c == ')' {
			end = i
			break
		}
	}
	kind := FieldKind(s[:end])
	switch kind {
	case KindAccount32, KindValue128, KindValue256, KindBytes:
		return Field{Name: name, Kind: kind}, s[end:], nil
	default:
		return Field{}, "", fmt.Errorf("%w: 未知字段类型: %q", ErrDecodeError, string(kind))
	}
}

// parseFieldList 解析括号内的字段列表，消费闭括号
func parseFieldList(s string) ([]Field, string, error) {
	var fields []Field
	for {
		idx := strings.Index(s, ":")
		if idx <= 0 {
			return nil, "", fmt.Errorf("%w: 字段缺少类型标注: %q", ErrDecodeError, s)
		}
		name := s[:idx]
		field, rest, err := parseField(name, s[idx+1:])
		if err != nil {
			return nil, "", err
		}
		fields = append(fields, field)
		s = rest
		if strings.HasPrefix(s, ",") {
			s = s[1:]
			continue
		}
		if strings.HasPrefix(s, ")") {
			return fields, s[1:], nil
		}
		return nil, "", fmt.Errorf("%w: 字段列表未闭合: %q", ErrDecodeError, s)
	}
}

// FlatFields 深度优先展开所有叶子字段
func (d *Descriptor) FlatFields() []Field {
	return flatten(d.Root)
}

func flatten(f Field) []Field {
	if f.Kind != KindStruct && f.Kind != KindLog {
		return []Field{f}
	}
	var out []Field
	for _, sub := range f.Fields {
		out = append(out, flatten(sub)...)
	}
	return out
}
