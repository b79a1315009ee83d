package helper

import (
	"errors"
	"fmt"
)

// ErrorCode is the closed set of machine-readable error codes surfaced
// across API boundaries.
type ErrorCode string

const (
	CodeNotFound             ErrorCode = "NotFound"
	CodeValidationError      ErrorCode = "ValidationError"
	CodeRateLimited          ErrorCode = "RateLimited"
	CodeUnavailable          ErrorCode = "Unavailable"
	CodeLLMParseError        ErrorCode = "LLMParseError"
	CodeEmbeddingUnavailable ErrorCode = "EmbeddingUnavailable"
	CodeResolutionDeferred   ErrorCode = "ResolutionDeferred"
	CodeIngestInterrupted    ErrorCode = "IngestInterrupted"
	CodeQueryTimeout         ErrorCode = "QueryTimeout"
	CodeInternalError        ErrorCode = "InternalError"
)

// AppError carries a closed error code plus an optional retry hint
// across package and API boundaries.
type AppError struct {
	Code              ErrorCode
	Message           string
	RetryAfterSeconds int
	Cause             error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewCoded builds an AppError with RetryAfterSeconds left at 0, whatever
// the code; NewRateLimited is the constructor that sets a retry hint.
func NewCoded(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// NewRateLimited builds a CodeRateLimited AppError carrying a retry hint.
func NewRateLimited(message string, retryAfterSeconds int, cause error) *AppError {
	return &AppError{Code: CodeRateLimited, Message: message, RetryAfterSeconds: retryAfterSeconds, Cause: cause}
}

// CodeOf extracts the ErrorCode from err if it (or something it wraps) is
// an *AppError, returning CodeInternalError otherwise.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}

// NewError wraps err with an operation label; it is the single
// error-wrapping helper used at every fallible call site.
func NewError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", operation, err)
}
