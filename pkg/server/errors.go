package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/thuhak/pbs-cache/pkg/errors"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Result    bool           `json:"result"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId"`
	Timestamp time.Time      `json:"timestamp"`
	Retryable bool           `json:"retryable"`
}

// WriteError writes an error response
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int,
	code errors.ErrorCode, message string, retryable bool, details map[string]any) {

	requestID, _ := r.Context().Value(contextKeyRequestID).(string)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	errResp := ErrorResponse{
		Result:    false,
		Code:      string(code),
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	}

	RespondJSON(w, statusCode, errResp)
}

// writeStructured maps a structured error onto the HTTP surface.
func writeStructured(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.CodeOf(err)
	WriteError(w, r, statusOf(code), code, messageOf(err), retryable(code), nil)
}

func statusOf(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case errors.ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case errors.ErrCodeStaleData, errors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func retryable(code errors.ErrorCode) bool {
	switch code {
	case errors.ErrCodeStaleData, errors.ErrCodeUnavailable, errors.ErrCodeRateLimitExceeded:
		return true
	default:
		return false
	}
}

// messageOf keeps wrapped causes out of client responses.
func messageOf(err error) string {
	if msg := errors.MessageOf(err); msg != "" {
		return msg
	}
	return "backend failure"
}
