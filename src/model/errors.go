package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies analysis errors
type ErrorCode string

const (
	ErrProjectNotFound    ErrorCode = "PROJECT_NOT_FOUND"
	ErrInvalidOptions     ErrorCode = "INVALID_OPTIONS"
	ErrParse              ErrorCode = "PARSE_ERROR"
	ErrDatabase           ErrorCode = "DATABASE_ERROR"
	ErrFileAccess         ErrorCode = "FILE_ACCESS_ERROR"
	ErrAnalysisTimeout    ErrorCode = "ANALYSIS_TIMEOUT"
	ErrInsufficientMemory ErrorCode = "INSUFFICIENT_MEMORY"
	ErrNetwork            ErrorCode = "NETWORK_ERROR"
	ErrUnknown            ErrorCode = "UNKNOWN_ERROR"
)

// recoverableByDefault lists codes that may be retried or skipped locally
var recoverableByDefault = map[ErrorCode]bool{
	ErrParse:              true,
	ErrDatabase:           true,
	ErrFileAccess:         true,
	ErrNetwork:            true,
	ErrInsufficientMemory: true,
}

// AnalysisError is a classified error carrying context
type AnalysisError struct {
	Code        ErrorCode
	Message     string
	Context     map[string]any
	Recoverable bool
	Err         error
}

// NewError creates an error with the default recoverability of its code
func NewError(code ErrorCode, msg string, args ...any) *AnalysisError {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &AnalysisError{
		Code:        code,
		Message:     msg,
		Recoverable: recoverableByDefault[code],
	}
}

// WrapError wraps err under code unless it already is an AnalysisError
func WrapError(code ErrorCode, err error, msg string, args ...any) *AnalysisError {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae
	}
	e := NewError(code, msg, args...)
	e.Err = err
	return e
}

// With adds a context key
func (e *AnalysisError) With(key string, value any) *AnalysisError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRecoverable overrides recoverability
func (e *AnalysisError) WithRecoverable(recoverable bool) *AnalysisError {
	e.Recoverable = recoverable
	return e
}

func (e *AnalysisError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error for errors.Is/As
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of err, or ErrUnknown
func CodeOf(err error) ErrorCode {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrUnknown
}

// IsRecoverable reports whether err is a recoverable AnalysisError
func IsRecoverable(err error) bool {
	var ae *AnalysisError
	return errors.As(err, &ae) && ae.Recoverable
}
