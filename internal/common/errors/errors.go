// Package errors provides standardized error handling for the analysis pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeLLMCallFailed      ErrorCode = "LLM_CALL_FAILED"
	ErrCodeLLMTimeout         ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMMalformedOutput ErrorCode = "LLM_MALFORMED_OUTPUT"
	ErrCodeLLMEmptyResponse   ErrorCode = "LLM_EMPTY_RESPONSE"

	ErrCodeStageFailed     ErrorCode = "STAGE_FAILED"
	ErrCodePipelineAborted ErrorCode = "PIPELINE_ABORTED"
	ErrCodeInvalidRequest  ErrorCode = "INVALID_REQUEST"

	ErrCodeRetrievalFailed          ErrorCode = "RETRIEVAL_FAILED"
	ErrCodeSearchTimeout            ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound            ErrorCode = "INDEX_NOT_FOUND"
	ErrCodePersistenceFailed        ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewLLMCallFailedError creates a retryable completion transport error.
func NewLLMCallFailedError(stage string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMCallFailed,
		Message:   "Completion call failed",
		Details:   fmt.Sprintf("stage: %s, error: %s", stage, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMTimeoutError creates a retryable completion timeout error.
func NewLLMTimeoutError(stage string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "Completion call timed out",
		Details:   fmt.Sprintf("stage: %s", stage),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMMalformedOutputError creates a retryable malformed-JSON error.
// The model is asked again rather than failing the stage outright.
func NewLLMMalformedOutputError(stage string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMMalformedOutput,
		Message:   "Completion returned unparseable JSON",
		Details:   fmt.Sprintf("stage: %s, error: %s", stage, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStageFailedError creates a non-retryable stage error for retries
// already exhausted by the call wrapper.
func NewStageFailedError(stage string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStageFailed,
		Message:   fmt.Sprintf("Stage %s failed after exhausted retries", stage),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPipelineAbortedError creates the terminal pipeline error.
func NewPipelineAbortedError(stage string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePipelineAborted,
		Message:   fmt.Sprintf("Pipeline aborted at stage %s", stage),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError creates a non-retryable request validation error.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid analysis request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRetrievalFailedError creates a retryable knowledge retrieval error.
func NewRetrievalFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRetrievalFailed,
		Message:   "Knowledge base retrieval failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceFailedError creates a retryable storage error.
func NewPersistenceFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Failed to persist analysis result",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Failed to send escalation notification",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// retryCountMap defines how many retries each error code warrants.
var retryCountMap = map[ErrorCode]int{
	ErrCodeLLMCallFailed:            2,
	ErrCodeLLMTimeout:               2,
	ErrCodeLLMMalformedOutput:       2,
	ErrCodeRetrievalFailed:          2,
	ErrCodeSearchTimeout:            2,
	ErrCodePersistenceFailed:        3,
	ErrCodeDatabaseConnectionFailed: 3,
	ErrCodeNotificationSendFailed:   1,
}

// GetRetryCount returns the retry budget for an error code. Zero means
// the error is terminal.
func GetRetryCount(code ErrorCode) int {
	return retryCountMap[code]
}

// IsRetryable reports whether err is a retryable StandardError.
func IsRetryable(err error) bool {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Retryable
	}
	return false
}
