package domain

import (
	"context"
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeFetch              ErrorCode = "FETCH"
	CodeParse              ErrorCode = "PARSE"
	CodeQuery              ErrorCode = "QUERY"
	CodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
	CodeDependencyConflict ErrorCode = "DEPENDENCY_CONFLICT"
	CodePackageNotFound    ErrorCode = "PACKAGE_NOT_FOUND"
	CodeNetworkUnavailable ErrorCode = "NETWORK_UNAVAILABLE"
	CodeUnknown            ErrorCode = "UNKNOWN"
	CodeInvalidArgument    ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeCanceled           ErrorCode = "CANCELED"
)

var (
	ErrToolNotFound     = errors.New("tool not found in catalog")
	ErrAlreadyInstalled = errors.New("package already installed")
	ErrNotInstalled     = errors.New("package not installed")
	ErrIndexUnreachable = errors.New("tool index unreachable")
)

type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Code:    existing.Code,
			Op:      op,
			Message: existing.Message,
			Cause:   existing.Cause,
		}
	}
	return E(code, op, "", err)
}

// CodeFrom extracts the error code carried by err, mapping known sentinels
// and falling back to CodeUnknown for bare errors.
func CodeFrom(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code
	}
	switch {
	case errors.Is(err, ErrToolNotFound):
		return CodeNotFound
	case errors.Is(err, ErrIndexUnreachable):
		return CodeFetch
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	default:
		return CodeUnknown
	}
}
