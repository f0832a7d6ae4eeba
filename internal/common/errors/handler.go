// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorHandler turns errors into HTTP responses with standardized handling.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ErrorResponse is the JSON body written for every failed request.
type ErrorResponse struct {
	Code   ErrorCode `json:"code"`
	Detail string    `json:"detail"`
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleHTTPError writes err to w. Domain errors keep their message;
// everything else is logged in full and reported generically.
func (h *ErrorHandler) HandleHTTPError(w http.ResponseWriter, r *http.Request, err error) int {
	stdErr := AsStandardError(err)
	status := GetHTTPStatus(stdErr.Code)

	resp := ErrorResponse{Code: stdErr.Code}
	switch stdErr.Code {
	case ErrCodeCustomerNotFound, ErrCodeValidationFailed:
		resp.Detail = stdErr.Details
		h.logWarn(r, stdErr)
	case ErrCodeServiceUnavailable, ErrCodeRegistrationFailed:
		resp.Detail = stdErr.Message
		h.logError(r, stdErr)
	default:
		resp.Code = ErrCodeInternal
		resp.Detail = "Internal server error"
		h.logError(r, stdErr)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
	return status
}

func (h *ErrorHandler) logWarn(r *http.Request, stdErr *StandardError) {
	h.logger.Warn("request rejected", map[string]interface{}{
		"path":      r.URL.Path,
		"method":    r.Method,
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
	})
}

func (h *ErrorHandler) logError(r *http.Request, stdErr *StandardError) {
	h.logger.Error("request failed", map[string]interface{}{
		"path":      r.URL.Path,
		"method":    r.Method,
		"errorCode": string(stdErr.Code),
		"message":   stdErr.Message,
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
		"metadata":  stdErr.Metadata,
	})
}
