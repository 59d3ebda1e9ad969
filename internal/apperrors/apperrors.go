package apperrors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AppError represents an application error with HTTP context
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

// ErrorResponse is the JSON response format for errors
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// WriteJSON writes the error as JSON response
func (e *AppError) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: e})
}

// ============================================================
// ERROR CONSTRUCTORS
// ============================================================

// Validation Errors (400)
func BadRequest(message string) *AppError {
	return &AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func ValidationFailed(field, details string) *AppError {
	return &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    fmt.Sprintf("Field '%s' is invalid", field),
		Details:    details,
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidJSON(details string) *AppError {
	return &AppError{
		Code:       "INVALID_JSON",
		Message:    "Invalid JSON in request body",
		Details:    details,
		StatusCode: http.StatusBadRequest,
	}
}

func MissingField(field string) *AppError {
	return &AppError{
		Code:       "MISSING_FIELD",
		Message:    fmt.Sprintf("Required field '%s' is missing", field),
		StatusCode: http.StatusBadRequest,
	}
}

// Upload Errors (400/413)
func UploadFailed(details string) *AppError {
	return &AppError{
		Code:       "UPLOAD_FAILED",
		Message:    "The background image could not be uploaded",
		Details:    details,
		StatusCode: http.StatusBadRequest,
	}
}

func UploadTooLarge(limit string) *AppError {
	return &AppError{
		Code:       "UPLOAD_TOO_LARGE",
		Message:    fmt.Sprintf("Image exceeds the %s limit", limit),
		StatusCode: http.StatusRequestEntityTooLarge,
	}
}

// Not Found Errors (404)
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func CountdownNotFound(idOrSlug string) *AppError {
	return &AppError{
		Code:       "COUNTDOWN_NOT_FOUND",
		Message:    fmt.Sprintf("Countdown '%s' not found", idOrSlug),
		StatusCode: http.StatusNotFound,
	}
}

// Persistence Errors (502)
func StoreUnavailable(details string) *AppError {
	return &AppError{
		Code:       "STORE_UNAVAILABLE",
		Message:    "The countdown store is unreachable",
		Details:    details,
		StatusCode: http.StatusBadGateway,
	}
}

// Server Errors (500)
func Internal(details string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An internal server error occurred",
		Details:    details,
		StatusCode: http.StatusInternalServerError,
	}
}
