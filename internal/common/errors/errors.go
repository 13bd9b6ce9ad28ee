// Package errors provides standardized error handling for the
// notification and cooperative communication services.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeStorageWriteFailed ErrorCode = "STORAGE_WRITE_FAILED"
	ErrCodeStorageReadFailed  ErrorCode = "STORAGE_READ_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeMessageNotFound      ErrorCode = "MESSAGE_NOT_FOUND"
	ErrCodeAnnouncementNotFound ErrorCode = "ANNOUNCEMENT_NOT_FOUND"
	ErrCodeInvalidTransition    ErrorCode = "INVALID_STATUS_TRANSITION"

	ErrCodePreferencesInvalid ErrorCode = "PREFERENCES_INVALID"
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"

	ErrCodeDeliverySendFailed ErrorCode = "DELIVERY_SEND_FAILED"
	ErrCodeExportFailed       ErrorCode = "EXPORT_FAILED"
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

// ==========================
// 2. Error Constructors
// ==========================

// NewStorageWriteFailedError creates a retryable backing-store write error.
func NewStorageWriteFailedError(key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageWriteFailed,
		Message:   "Backing store write failed",
		Details:   fmt.Sprintf("key: %s, error: %s", key, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMessageNotFoundError creates a non-retryable not-found error.
func NewMessageNotFoundError(messageID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMessageNotFound,
		Message:   "Message not found",
		Details:   fmt.Sprintf("messageId: %s", messageID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAnnouncementNotFoundError creates a non-retryable not-found error.
func NewAnnouncementNotFoundError(announcementID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnnouncementNotFound,
		Message:   "Announcement not found",
		Details:   fmt.Sprintf("announcementId: %s", announcementID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError creates a non-retryable lifecycle error.
func NewInvalidTransitionError(from, to string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Invalid status transition",
		Details:   fmt.Sprintf("from: %s, to: %s", from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a non-retryable payload validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Payload validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeliverySendFailedError creates a retryable delivery channel error.
func NewDeliverySendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliverySendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExportFailedError creates a non-retryable export serialization error.
func NewExportFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExportFailed,
		Message:   "Export serialization failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStorageWriteFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeDeliverySendFailed:
		return 3 // Retryable technical errors

	default:
		return 0 // Business errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "STORAGE"):
		return "STORAGE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "DELIVERY"):
		return "DELIVERY"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
