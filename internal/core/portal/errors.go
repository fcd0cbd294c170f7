package portal

import "errors"

// 门户错误集合
var (
	ErrNotInitialized    = errors.New("light client not initialized")
	ErrUnknownGateway    = errors.New("no light client for gateway")
	ErrInclusionFailed   = errors.New("event inclusion verification failed")
	ErrHeightBelowOffset = errors.New("height below required confirmation offset")
)
