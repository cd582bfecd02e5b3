// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleJobError fails the job with retries for transient codes and throws a
// BPMN error for everything else.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := NormalizeError(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	h.logError(job, stdErr, bpmnErr)

	retries := GetRetryCount(stdErr.Code)
	if stdErr.Retryable && retries > 0 && job.Retries > 0 {
		h.failJobWithRetries(ctx, client, job, bpmnErr, retries, RetryBackoff(stdErr.Code))
	} else {
		h.throwBPMNError(ctx, client, job, bpmnErr)
	}
}

// NormalizeError unwraps err to a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func NormalizeError(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, maxRetries int, backoff time.Duration) {
	// job.Retries is the remaining budget; never raise it.
	retriesToUse := maxRetries
	if int(job.Retries) < maxRetries {
		retriesToUse = int(job.Retries) - 1
	}
	if retriesToUse < 0 {
		retriesToUse = 0
	}

	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(retriesToUse)).
		RetryBackoff(backoff).
		ErrorMessage(bpmnErr.Message)

	vars, err := errorVariables(bpmnErr)
	if err == nil {
		if withVars, verr := cmd.VariablesFromString(vars); verr == nil {
			_, err = withVars.Send(ctx)
			h.reportSendFailure(job, "fail", err)
			return
		}
	}
	_, err = cmd.Send(ctx)
	h.reportSendFailure(job, "fail", err)
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	vars, err := errorVariables(bpmnErr)
	if err == nil {
		if withVars, verr := cmd.VariablesFromString(vars); verr == nil {
			_, err = withVars.Send(ctx)
			h.reportSendFailure(job, "throw error", err)
			return
		}
	}
	_, err = cmd.Send(ctx)
	h.reportSendFailure(job, "throw error", err)
}

// RetryBackoff is how long Zeebe waits before handing a failed job out
// again. Upstream outages (Places, Nominatim, a sink) get time to recover.
func RetryBackoff(code ErrorCode) time.Duration {
	switch code {
	case ErrCodeNetworkError:
		return 30 * time.Second
	case ErrCodeGeocodingUnavailable:
		// Nominatim allows one request per second per client.
		return 10 * time.Second
	case ErrCodeSinkWriteFailed, ErrCodeNotificationSendFailed:
		return time.Minute
	default:
		return 0
	}
}

func errorVariables(bpmnErr *BPMNError) (string, error) {
	b, err := json.Marshal(bpmnErr.ToErrorVariables())
	return string(b), err
}

func (h *ErrorHandler) reportSendFailure(job entities.Job, command string, err error) {
	if err == nil {
		return
	}
	h.logger.Error("Job command not delivered", map[string]interface{}{
		"jobKey":  job.Key,
		"command": command,
		"error":   err.Error(),
	})
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError) {
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"bpmnErrorCode":    bpmnErr.Code,
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"retries":          GetRetryCount(stdErr.Code),
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
