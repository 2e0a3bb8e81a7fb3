package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/openclaw/sessionkeeper/internal/errors"
)

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error string              `json:"error"`
	Code  apperrors.ErrorCode `json:"code"`
}

// WriteError writes an AppError as an HTTP response with appropriate status code.
// Errors without an AppError in their chain are reported as internal errors.
func WriteError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	message := "An unexpected error occurred"
	if appErr, ok := apperrors.AsAppError(err); ok {
		message = appErr.Message
	}

	WriteJSON(w, statusFromCode(code), ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// statusFromCode maps ErrorCode to HTTP status code
func statusFromCode(code apperrors.ErrorCode) int {
	switch code {
	// 400 Bad Request
	case apperrors.ErrCodeInvalidInput:
		return http.StatusBadRequest

	// 401 Unauthorized
	case apperrors.ErrCodeUnauthorized,
		apperrors.ErrCodeInvalidToken:
		return http.StatusUnauthorized

	// 404 Not Found
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound

	// 422 Unprocessable Entity
	case apperrors.ErrCodeSessionCorrupt:
		return http.StatusUnprocessableEntity

	// 500 Internal Server Error
	case apperrors.ErrCodeInternal,
		apperrors.ErrCodeDatabase:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}
