package models

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error category returned to API callers.
type Code string

const (
	CodeDatastoreNotConfigured Code = "DATASTORE_NOT_CONFIGURED"
	CodeLLMUnavailable         Code = "LLM_UNAVAILABLE"
	CodeInvalidRequest         Code = "INVALID_REQUEST"
	CodeInternal               Code = "INTERNAL"
)

// AppError is a configuration-class failure that must reach the caller.
// Message is safe to show to end users.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code Code, msg string, err error) *AppError {
	return &AppError{Code: code, Message: msg, Err: err}
}

// CodeOf returns the AppError code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
