package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorCode represents a categorized error code
type ErrorCode string

const (
	// Caller contract violations
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeInvalidAccount ErrorCode = "INVALID_ACCOUNT"

	// Upstream transport errors
	CodeNetwork            ErrorCode = "NETWORK_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeServiceTimeout     ErrorCode = "SERVICE_TIMEOUT"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeUpstreamStatus     ErrorCode = "UPSTREAM_STATUS"

	// Upstream payload errors
	CodeParse         ErrorCode = "PARSE_ERROR"
	CodeMalformedData ErrorCode = "MALFORMED_DATA"

	// Storage errors
	CodeDatabase ErrorCode = "DATABASE_ERROR"
	CodeNotFound ErrorCode = "NOT_FOUND"

	// Config errors
	CodeConfig ErrorCode = "CONFIG_ERROR"

	CodeUnknown ErrorCode = "UNKNOWN_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError creates a validation error
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// InvalidAccountError reports an account the caller should never have
// passed to a repository (unknown type or mismatched variant)
func InvalidAccountError(accountID string, message string) *AppError {
	return New(CodeInvalidAccount, message).WithContext("account_id", accountID)
}

// ParseError creates a parse error
func ParseError(message string, err error) *AppError {
	return Wrap(err, CodeParse, message)
}

// DatabaseError creates a database error
func DatabaseError(message string, err error) *AppError {
	return Wrap(err, CodeDatabase, message)
}

// ConfigError creates a configuration error
func ConfigError(message string, err error) *AppError {
	if err != nil {
		return Wrap(err, CodeConfig, message)
	}
	return New(CodeConfig, message)
}

// NotFoundError creates a not found error
func NotFoundError(resource, identifier string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found: %s", resource, identifier))
}

// UpstreamError classifies a transport failure against a content provider.
// Timeouts and connection failures are kept apart so retry can tell them from
// client errors.
func UpstreamError(service string, err error) *AppError {
	code := CodeNetwork
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeServiceTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		code = CodeServiceTimeout
	}
	return Wrap(err, code, "upstream request failed").WithContext("service", service)
}

// StatusError classifies a non-2xx upstream response
func StatusError(service string, status int) *AppError {
	var appErr *AppError
	switch {
	case status == 401 || status == 403:
		appErr = New(CodeUnauthorized, fmt.Sprintf("upstream rejected credentials: HTTP %d", status))
	case status == 429 || status >= 500:
		appErr = New(CodeServiceUnavailable, fmt.Sprintf("upstream unavailable: HTTP %d", status))
	default:
		appErr = New(CodeUpstreamStatus, fmt.Sprintf("unexpected upstream status: HTTP %d", status))
	}
	return appErr.WithContext("service", service).WithContext("status", status)
}

// IsRetryable determines if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeServiceTimeout, CodeServiceUnavailable, CodeNetwork:
			return true
		}
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// IsInvalidAccount reports whether err is a caller contract violation
func IsInvalidAccount(err error) bool {
	return GetErrorCode(err) == CodeInvalidAccount
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == CodeValidation || code == CodeInvalidAccount
}
