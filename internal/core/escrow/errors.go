package escrow

import "errors"

// 托管账户错误集合
var (
	ErrAlreadyRegistered   = errors.New("charge id already registered")
	ErrDepositNotFound     = errors.New("deposit not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrClaimNotFound       = errors.New("claim not found")
	ErrRoundStillOpen      = errors.New("round still open")
)
