// Package apperr defines the error taxonomy shared by the admin and bypass surfaces.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an error for HTTP mapping and audit purposes.
type Code string

const (
	CodeValidation   Code = "VALIDATION"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeConflict     Code = "CONFLICT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeStorage      Code = "STORAGE"
)

// AppError carries a code, an operator-facing message, and an optional cause.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// New creates an AppError with the given code and message.
func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError that wraps a cause.
func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Validation(msg string) error   { return New(CodeValidation, msg) }
func Unauthorized(msg string) error { return New(CodeUnauthorized, msg) }
func Conflict(msg string) error     { return New(CodeConflict, msg) }
func NotFound(msg string) error     { return New(CodeNotFound, msg) }

// Storage wraps a persistence failure. Callers must treat it as fatal for
// the triggering operation (fail-closed), never as a retryable condition.
func Storage(msg string, cause error) error {
	return Wrap(CodeStorage, msg, cause)
}

// CodeOf returns the code of err if it is (or wraps) an AppError,
// or CodeStorage otherwise so unclassified failures stay fail-closed.
func CodeOf(err error) Code {
	var ae *AppError
	if !errors.As(err, &ae) {
		return CodeStorage
	}
	return ae.Code
}
