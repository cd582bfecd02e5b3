// internal/common/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	// Network & remote API
	ErrCodeNetworkError ErrorCode = "NETWORK_ERROR"

	// Detail payloads
	ErrCodeValidationError ErrorCode = "VALIDATION_ERROR"

	// Geocoding
	ErrCodeGeocodingNotFound    ErrorCode = "GEOCODING_NOT_FOUND"
	ErrCodeGeocodingUnavailable ErrorCode = "GEOCODING_UNAVAILABLE"

	// Request / configuration
	ErrCodeConfigurationError  ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeInputParsingFailed  ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeInputSchemaMismatch ErrorCode = "INPUT_SCHEMA_MISMATCH"

	// Output
	ErrCodeSinkWriteFailed        ErrorCode = "SINK_WRITE_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError is the error shape shared by every package in the module.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// --- Constructors ---

// NewNetworkError covers transport failures, timeouts, non-2xx statuses and
// malformed bodies. url should already be redacted of credentials.
func NewNetworkError(url string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNetworkError,
		Message:   "Remote request failed",
		Details:   fmt.Sprintf("url: %s, error: %v", url, err),
		Retryable: true,
		Metadata:  map[string]interface{}{"url": url},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewValidationError(placeID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationError,
		Message:   "Detail response failed validation",
		Details:   fmt.Sprintf("placeId: %s, %s", placeID, details),
		Retryable: false,
		Metadata:  map[string]interface{}{"placeId": placeID},
		Timestamp: time.Now().UTC(),
	}
}

func NewGeocodingNotFoundError(placeName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGeocodingNotFound,
		Message:   "Place name could not be geocoded",
		Details:   fmt.Sprintf("placeName: %s", placeName),
		Retryable: false,
		Metadata:  map[string]interface{}{"placeName": placeName},
		Timestamp: time.Now().UTC(),
	}
}

func NewGeocodingUnavailableError(placeName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGeocodingUnavailable,
		Message:   "Geocoding service unavailable",
		Details:   fmt.Sprintf("placeName: %s, error: %v", placeName, err),
		Retryable: true,
		Metadata:  map[string]interface{}{"placeName": placeName},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigurationError,
		Message:   "Invalid search request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInputParsingFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputParsingFailed,
		Message:   "Failed to parse job variables",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewInputSchemaMismatchError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputSchemaMismatch,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSinkWriteFailedError(sink string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSinkWriteFailed,
		Message:   fmt.Sprintf("Result sink '%s' failed", sink),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"sink": sink},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %v", channel, err),
		Retryable: true,
		Metadata:  map[string]interface{}{"channel": channel},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// --- Inspection helpers ---

// AsStandardError finds the first StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err's chain carries a StandardError with code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// --- BPMN mapping ---

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeNetworkError:           "NETWORK_ERROR",
	ErrCodeValidationError:        "VALIDATION_ERROR",
	ErrCodeGeocodingNotFound:      "GEOCODING_NOT_FOUND",
	ErrCodeGeocodingUnavailable:   "GEOCODING_UNAVAILABLE",
	ErrCodeConfigurationError:     "CONFIGURATION_ERROR",
	ErrCodeInputParsingFailed:     "INPUT_PARSING_FAILED",
	ErrCodeInputSchemaMismatch:    "INPUT_SCHEMA_MISMATCH",
	ErrCodeSinkWriteFailed:        "SINK_WRITE_FAILED",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeNetworkError,
		ErrCodeSinkWriteFailed:
		return 3

	case ErrCodeGeocodingUnavailable,
		ErrCodeNotificationSendFailed:
		return 2

	default:
		return 0 // request and data errors do not improve on retry
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NETWORK"):
		return "NETWORK"
	case strings.Contains(codeStr, "GEOCODING"):
		return "GEOCODING"
	case strings.Contains(codeStr, "SINK") || strings.Contains(codeStr, "NOTIFICATION"):
		return "OUTPUT"
	case strings.Contains(codeStr, "CONFIGURATION") || strings.Contains(codeStr, "INPUT") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
