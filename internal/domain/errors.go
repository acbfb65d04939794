package domain

import (
	"errors"
	"fmt"
)

// 业务错误分类，调用方通过 errors.Is 判断
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("message not found")
	ErrAdminNotFound    = errors.New("admin not found")
	ErrUnauthenticated  = errors.New("invalid credentials or session")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrDuplicateID      = errors.New("duplicate message id")
)

// ValidationError 描述单个字段的校验失败，Reason 可直接展示给用户
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap 使 errors.Is(err, ErrValidation) 成立
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError 创建字段校验错误
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Unavailable 将底层存储故障包装为 ErrStoreUnavailable，保留原始原因
func Unavailable(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, cause)
}
