package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// envelope is the body of every API response.
type envelope struct {
	StatusCode int      `json:"statusCode"`
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Data       any      `json:"data"`
	Errors     []string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		StatusCode: status,
		Success:    status < http.StatusBadRequest,
		Message:    message,
		Data:       data,
		Errors:     []string{},
	})
}

// kindStatus maps error kinds to HTTP statuses. Order matters:
// ErrMisconfigured wraps ErrorInternal.
var kindStatus = []struct {
	kind   error
	status int
}{
	{common.ErrBadRequest, http.StatusBadRequest},
	{common.ErrConflict, http.StatusConflict},
	{common.ErrorUnauthorized, http.StatusUnauthorized},
	{common.ErrorNotFound, http.StatusNotFound},
	{common.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
	{common.ErrorInternal, http.StatusInternalServerError},
}

func statusFor(err error) int {
	for _, ks := range kindStatus {
		if errors.Is(err, ks.kind) {
			return ks.status
		}
	}
	return http.StatusInternalServerError
}

// writeError is the single place where failures become responses.
// Unclassified errors are reported as a bare 500.
func (s *HTTPServer) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := "Internal Server Error"
	details := []string{}

	var appErr *common.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
		if appErr.Errors != nil {
			details = appErr.Errors
		}
	} else {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed", "error", err, "request_id", RequestIDFromContext(ctx))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		StatusCode: status,
		Success:    false,
		Message:    message,
		Data:       nil,
		Errors:     details,
	})
}
