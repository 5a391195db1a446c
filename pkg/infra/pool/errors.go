// Package pool wraps ants goroutine pools with submission statistics.
package pool

import "errors"

var (
	// ErrPoolClosed 池已关闭
	ErrPoolClosed = errors.New("pool closed")

	// ErrPoolOverload 池已满（仅非阻塞模式）
	ErrPoolOverload = errors.New("pool overload")

	// ErrInvalidPoolConfig 无效的池配置
	ErrInvalidPoolConfig = errors.New("invalid pool config")
)
