package common

import (
	"time"

	apperrors "skillcourt-backend/pkg/errors"
)

// Result is the uniform envelope handed to operator-facing callers (HTTP
// handlers, the bootstrap CLI). Inside the module everything speaks
// (value, error); the envelope is built once at the boundary.
type Result[T any] struct {
	Success   bool       `json:"success"`
	Data      T          `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Message   string     `json:"message,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable,omitempty"`
}

// Ok builds a successful envelope
func Ok[T any](data T) Result[T] {
	return Result[T]{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// OkWithMessage builds a successful envelope with an operator-facing message
func OkWithMessage[T any](data T, message string) Result[T] {
	r := Ok(data)
	r.Message = message
	return r
}

// Fail builds a failure envelope from an error, preserving the structured
// code/details/retryable fields when the error is an AppError.
func Fail[T any](err error) Result[T] {
	info := &ErrorInfo{
		Code:    "INTERNAL_ERROR",
		Message: "internal error",
	}
	if err != nil {
		info.Message = err.Error()
	}
	if appErr := apperrors.GetAppError(err); appErr != nil {
		info.Message = appErr.Message
		info.Details = appErr.Details
		info.Retryable = appErr.Retryable
		info.Code = appErr.Code
		if info.Code == "" {
			info.Code = string(appErr.Type)
		}
	}
	return Result[T]{
		Success:   false,
		Error:     info,
		Timestamp: time.Now().UTC(),
	}
}
