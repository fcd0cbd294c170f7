package circuit

import "errors"

// 核心操作面的错误集合
// 扩展面（托管、ABI）各自维护自己的错误集，经由%w包装向上传递
var (
	// 校验类
	ErrInvalidArgument                       = errors.New("invalid argument")
	ErrBidTooHigh                            = errors.New("bid exceeds max reward")
	ErrBiddingRejectedExecutorNotOnWhitelist = errors.New("bidding rejected: executor not on whitelist")
	ErrBiddingRejectedBetterBidFound         = errors.New("bidding rejected: better bid found")
	ErrDuplicateSfx                          = errors.New("duplicate sfx")

	// 状态类
	ErrXtxNotFound            = errors.New("xtx not found")
	ErrXtxNotInExpectedStatus = errors.New("xtx not in expected status")
	ErrSfxAlreadyConfirmed    = errors.New("sfx already confirmed")

	// 验证类
	ErrInclusionProofInvalid         = errors.New("inclusion proof invalid")
	ErrConfirmationArgumentsMismatch = errors.New("confirmation arguments mismatch")
	ErrNoBidForSfx                   = errors.New("no bid for sfx")

	// 资源类
	ErrOutOfGas = errors.New("out of gas")
)
