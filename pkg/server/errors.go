package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	cperrors "github.com/mchmarny/craftplan/pkg/errors"
	"github.com/mchmarny/craftplan/pkg/serializer"
)

// HTTPStatusFromCode maps an error code to the HTTP status returned to
// clients. Unknown codes map to 500.
func HTTPStatusFromCode(code cperrors.ErrorCode) int {
	switch code {
	case cperrors.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case cperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case cperrors.ErrCodeNotFound, cperrors.ErrCodeUnknownItem, cperrors.ErrCodeUnknownMachine:
		return http.StatusNotFound
	case cperrors.ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case cperrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case cperrors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case cperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func retryableFromCode(code cperrors.ErrorCode) bool {
	switch code {
	case cperrors.ErrCodeTimeout,
		cperrors.ErrCodeUnavailable,
		cperrors.ErrCodeRateLimitExceeded,
		cperrors.ErrCodeInternal:
		return true
	default:
		return false
	}
}

// mergeDetails returns a new map with the entries of a and b; b wins on
// conflicts. Returns nil when both are empty.
func mergeDetails(a, b map[string]any) map[string]any {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// WriteError writes a JSON ErrorResponse with the given status.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int,
	code cperrors.ErrorCode, message string, retryable bool, details map[string]any) {

	requestID := RequestID(r.Context())
	if requestID == "" {
		requestID = uuid.New().String()
	}

	errResp := ErrorResponse{
		Code:      string(code),
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	}

	serializer.RespondJSON(w, statusCode, errResp)
}

// WriteErrorFromErr writes err as an ErrorResponse. Structured errors keep
// their code, message and context; anything else is reported as INTERNAL
// with fallbackMessage. The cause, if any, is added to details as "error".
func WriteErrorFromErr(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string, extra map[string]any) {
	var se *cperrors.StructuredError
	if errors.As(err, &se) {
		details := mergeDetails(se.Context, extra)
		if se.Cause != nil {
			details = mergeDetails(details, map[string]any{"error": se.Cause.Error()})
		}
		WriteError(w, r, HTTPStatusFromCode(se.Code), se.Code, se.Message, retryableFromCode(se.Code), details)
		return
	}

	details := mergeDetails(extra, nil)
	if err != nil {
		details = mergeDetails(details, map[string]any{"error": err.Error()})
	}
	WriteError(w, r, http.StatusInternalServerError, cperrors.ErrCodeInternal, fallbackMessage,
		retryableFromCode(cperrors.ErrCodeInternal), details)
}
