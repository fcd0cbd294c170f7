package abi

import "errors"

// 校验与解码错误集合
var (
	ErrNoSuchInterface = errors.New("no such interface")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrDecodeError     = errors.New("decode error")
)
