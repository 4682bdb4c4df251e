package errcode

import (
	"errors"
	"fmt"
)

// 错误码约定（异步导出通知使用）：
// - 0：无错误
// - 4xxx：请求本身有问题，重试无意义
// - 5xxx：系统错误，可重试
const (
	OK              = 0
	InvalidRequest  = 4000
	AccessDenied    = 4003
	ResourceMissing = 4004
	SystemError     = 5000
	RenderFailed    = 5001
)

// Kind 是面向调用方的错误分类。
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindForbidden        Kind = "forbidden"
	KindValidationFailed Kind = "validation_failed"
	KindRenderingFailed  Kind = "rendering_failed"
)

// Error 携带操作名、分类与底层原因。
type Error struct {
	Op   string
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Msg != "" {
		base += ": " + e.Msg
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind 判断错误链中是否存在指定分类的 *Error。
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf 返回错误链中第一个 *Error 的分类，不存在时返回空字符串。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// NotFound 用于资源不存在或归属于其他 CV 的情况，两者对调用方不可区分。
func NotFound(op, msg string) error {
	return &Error{Op: op, Kind: KindNotFound, Msg: msg}
}

func Forbidden(op, msg string) error {
	return &Error{Op: op, Kind: KindForbidden, Msg: msg}
}

func Validation(op, msg string) error {
	return &Error{Op: op, Kind: KindValidationFailed, Msg: msg}
}

// RenderingFailed 包装渲染或导出阶段的底层错误。
func RenderingFailed(op string, cause error) error {
	return &Error{Op: op, Kind: KindRenderingFailed, Err: cause}
}

// Code 将错误映射为通知错误码。
func Code(err error) int {
	if err == nil {
		return OK
	}
	switch KindOf(err) {
	case KindValidationFailed:
		return InvalidRequest
	case KindForbidden:
		return AccessDenied
	case KindNotFound:
		return ResourceMissing
	case KindRenderingFailed:
		return RenderFailed
	default:
		return SystemError
	}
}

// Permanent 判断错误是否由请求本身导致，这类错误重试不会成功。
func Permanent(err error) bool {
	switch KindOf(err) {
	case KindValidationFailed, KindForbidden, KindNotFound:
		return true
	}
	return false
}
