// Package apperrors defines the error taxonomy shared by the service and
// HTTP layers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code categorizes an application error.
type Code string

const (
	CodeValidation         Code = "validation"
	CodeDuplicateUser      Code = "duplicate_user"
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeUnauthenticated    Code = "unauthenticated"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeOperationFailed    Code = "operation_failed"
)

// AppError is a classified error with a client-safe message.
type AppError struct {
	Code    Code
	Message string
	// Fields carries per-field validation messages.
	Fields map[string]string
	Cause  error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another *AppError by code, so sentinel-style comparisons work:
// errors.Is(err, apperrors.Forbidden("")).
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Validation(message string, fields map[string]string) *AppError {
	return &AppError{Code: CodeValidation, Message: message, Fields: fields}
}

func DuplicateUser(message string) *AppError { return New(CodeDuplicateUser, message) }

func InvalidCredentials() *AppError {
	return New(CodeInvalidCredentials, "Invalid username or password.")
}

func Unauthenticated() *AppError {
	return New(CodeUnauthenticated, "Invalid or missing authentication token")
}

func Forbidden(message string) *AppError { return New(CodeForbidden, message) }

func NotFound(message string) *AppError { return New(CodeNotFound, message) }

func OperationFailed(err error, message string) *AppError {
	return &AppError{Code: CodeOperationFailed, Message: message, Cause: err}
}

// CodeOf returns the code of the first AppError in err's chain, or
// CodeOperationFailed when there is none.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeOperationFailed
}

// HTTPStatus maps a code to its stable outward status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeDuplicateUser:
		return http.StatusConflict
	case CodeInvalidCredentials, CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
