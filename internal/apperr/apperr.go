package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeValidation              Code = "ValidationError"
	CodeRecordNotFound          Code = "RecordNotFound"
	CodeInsufficientStock       Code = "InsufficientStock"
	CodeNegativeStock           Code = "NegativeStock"
	CodeReservedConflict        Code = "ReservedConflict"
	CodeConcurrentStockConflict Code = "ConcurrentStockConflict"
	CodeOperationInProgress     Code = "OperationInProgress"
	CodeStorage                 Code = "StorageError"
)

// Error is the only error type that crosses the inventory core boundary.
// Message is safe to show to callers; Err keeps the underlying cause for logs.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Storage converts err into a StorageError unless it already carries a
// taxonomy code.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return Wrap(CodeStorage, "storage failure", err)
}

// CodeOf returns the taxonomy code carried by err. Untyped errors are
// reported as StorageError; nil yields the empty code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeStorage
}

// MessageOf returns the caller-safe message of err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "storage failure"
}

func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsBusinessRule reports codes that reject a request without touching state.
func IsBusinessRule(code Code) bool {
	switch code {
	case CodeValidation, CodeRecordNotFound, CodeInsufficientStock, CodeNegativeStock, CodeReservedConflict:
		return true
	}
	return false
}

// Retryable reports codes for which resubmitting the same request later can
// succeed without any caller-side change.
func Retryable(code Code) bool {
	switch code {
	case CodeConcurrentStockConflict, CodeOperationInProgress, CodeStorage:
		return true
	}
	return false
}
