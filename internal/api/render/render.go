// Package render writes JSON responses and maps application errors to
// HTTP statuses.
package render

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isdelr/ender-accounts/internal/apperrors"
	"github.com/rs/zerolog/log"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Status  int               `json:"status"`
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// Error writes err as an ErrorBody. Unclassified errors are logged with full
// detail and reported with a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	status := apperrors.HTTPStatus(code)

	body := ErrorBody{
		Status: status,
		Error:  http.StatusText(status),
	}

	var appErr *apperrors.AppError
	errors.As(err, &appErr)

	switch {
	case status >= http.StatusInternalServerError:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		body.Message = "An unexpected error occurred"
	case appErr != nil:
		body.Message = appErr.Message
		body.Details = appErr.Fields
	default:
		body.Message = http.StatusText(status)
	}

	JSON(w, status, body)
}
