// Package service 实现了业务逻辑层，处理器只做协议转换，规则都在这里。
package service

import "errors"

// 业务层哨兵错误，处理器通过 errors.Is 映射到对应的 HTTP 状态码。
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrChatNotFound       = errors.New("chat not found")
	ErrForbidden          = errors.New("not allowed to access this resource")
	ErrEmptyMessage       = errors.New("message must not be empty")
	ErrInvalidSender      = errors.New("sender must be user or assistant")
)
