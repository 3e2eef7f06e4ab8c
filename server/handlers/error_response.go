package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dashport/dashport/auth"
	"github.com/dashport/dashport/dashconfig"
	"github.com/dashport/dashport/userstore"
)

// ErrorResponse represents a standardized error response. LoginRequired is
// the machine-readable marker the frontend uses to redirect to the login
// form; it is only set for authentication-required failures, never for
// authorization-denied ones.
type ErrorResponse struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	LoginRequired bool   `json:"login_required,omitempty"`
}

// SendErrorResponse sends a standardized JSON error response
func SendErrorResponse(w http.ResponseWriter, logger *zap.Logger, err error, defaultStatusCode int) {
	w.Header().Set("Content-Type", "application/json")

	var statusCode int
	var errorCode string
	var loginRequired bool

	// Map specific errors to HTTP status codes and error codes
	switch {
	case errors.Is(err, auth.ErrAuthenticationRequired):
		statusCode = http.StatusUnauthorized
		errorCode = "AUTHENTICATION_REQUIRED"
		loginRequired = true
	case errors.Is(err, auth.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		errorCode = "INVALID_CREDENTIALS"
	case errors.Is(err, auth.ErrAuthorizationDenied):
		statusCode = http.StatusForbidden
		errorCode = "ADMIN_REQUIRED"
	case errors.Is(err, auth.ErrRateLimited):
		statusCode = http.StatusTooManyRequests
		errorCode = "RATE_LIMITED"
	case errors.Is(err, auth.ErrLastAdmin):
		statusCode = http.StatusBadRequest
		errorCode = "LAST_ADMIN"
	case errors.Is(err, auth.ErrValidation):
		statusCode = http.StatusBadRequest
		errorCode = "VALIDATION_FAILED"
	case errors.Is(err, userstore.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errorCode = "USER_NOT_FOUND"
	case errors.Is(err, userstore.ErrUserExists):
		statusCode = http.StatusConflict
		errorCode = "USER_ALREADY_EXISTS"
	case errors.Is(err, userstore.ErrRoleNotFound):
		statusCode = http.StatusNotFound
		errorCode = "ROLE_NOT_FOUND"
	case errors.Is(err, userstore.ErrRoleExists):
		statusCode = http.StatusConflict
		errorCode = "ROLE_ALREADY_EXISTS"
	case errors.Is(err, userstore.ErrRoleInUse):
		statusCode = http.StatusConflict
		errorCode = "ROLE_IN_USE"
	case errors.Is(err, userstore.ErrStoreIO), errors.Is(err, dashconfig.ErrStoreIO):
		statusCode = http.StatusInternalServerError
		errorCode = "STORE_IO_FAILURE"
	default:
		statusCode = defaultStatusCode
		errorCode = "INTERNAL_ERROR"
	}

	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Code:          errorCode,
		Message:       err.Error(),
		LoginRequired: loginRequired,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Failed to encode error response", zap.Error(err))
		fmt.Fprintf(w, "Internal error occurred")
	}

	logger.Info("Error response sent",
		zap.String("error_code", errorCode),
		zap.Int("status_code", statusCode),
		zap.Error(err))
}

// SendJSONResponse sends a JSON response with any data structure
func SendJSONResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, `{"error":"Failed to encode response"}`)
	}
}
