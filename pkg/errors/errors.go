package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// CodeSuccess 成功码
const (
	CodeSuccess = 200
)

// HTTP层错误码 (400-599)
const (
	CodeInvalidParam    = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409
	CodeTooManyRequests = 429
	CodeServerError     = 500
)

// 业务错误分类
var (
	ErrUnauthorized = stderrors.New("authentication failed")
	ErrForbidden    = stderrors.New("permission denied")
	ErrNotFound     = stderrors.New("resource not found")
	ErrConflict     = stderrors.New("resource already exists")
	ErrValidation   = stderrors.New("validation error")
)

// ValidationError 字段级校验错误
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError 创建单字段校验错误
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add 追加字段错误
func (e *ValidationError) Add(field, message string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
	return e
}

// HasErrors 是否存在字段错误
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// Unwrap 使 errors.Is(err, ErrValidation) 成立
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Forbidden 带说明的权限错误
func Forbidden(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

// NotFound 带资源名的不存在错误
func NotFound(resource string) error {
	return fmt.Errorf("%s: %w", resource, ErrNotFound)
}

// Conflict 带说明的冲突错误
func Conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Code 错误对应的返回码
func Code(err error) int {
	var ve *ValidationError
	switch {
	case err == nil:
		return CodeSuccess
	case stderrors.As(err, &ve), stderrors.Is(err, ErrValidation):
		return CodeInvalidParam
	case stderrors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case stderrors.Is(err, ErrForbidden):
		return CodeForbidden
	case stderrors.Is(err, ErrNotFound):
		return CodeNotFound
	case stderrors.Is(err, ErrConflict):
		return CodeConflict
	default:
		return CodeServerError
	}
}
