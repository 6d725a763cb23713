package service

import "errors"

// 业务层通用错误，handler 与 ws broker 可根据错误类型映射到
// 合适的 HTTP 状态码或事件。
var (
	ErrValidation         = errors.New("invalid payload")
	ErrNotFound           = errors.New("not found")
	ErrNotOwner           = errors.New("not owner")
	ErrEmailTaken         = errors.New("email taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBookNotFound       = errors.New("book not found")
	ErrAlreadyFavorite    = errors.New("already in favorites")
)
