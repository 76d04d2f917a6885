package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/services/auth"
	"github.com/mcoot/quill/internal/services/posts"
	"github.com/mcoot/quill/internal/validation"
)

// FieldError describes a rejected input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError represents an API error response
type APIError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeEmailNotConfirmed   = "EMAIL_NOT_CONFIRMED"
	CodeInvalidConfirmation = "INVALID_CONFIRMATION"
	CodeEmailTaken          = "EMAIL_TAKEN"
	CodeIdentityNotFound    = "IDENTITY_NOT_FOUND"
	CodePostNotFound        = "POST_NOT_FOUND"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		fields := make([]FieldError, len(verr.Fields))
		for i, f := range verr.Fields {
			fields[i] = FieldError{Field: f.Field, Message: f.Message}
		}
		return &httpError{http.StatusBadRequest, APIError{CodeValidationError, verr.Error(), fields}}
	}

	switch {
	// Map model errors
	case errors.Is(err, model.ErrPostNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodePostNotFound, Message: "Post not found"}}
	case errors.Is(err, model.ErrIdentityNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodeIdentityNotFound, Message: "Identity not found"}}
	case errors.Is(err, model.ErrEmailTaken):
		return &httpError{http.StatusConflict, APIError{Code: CodeEmailTaken, Message: "Email already registered"}}
	case errors.Is(err, model.ErrInvalidPost):
		return &httpError{http.StatusBadRequest, APIError{Code: CodeValidationError, Message: "Invalid post"}}

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeInvalidCredentials, Message: "Invalid email or password"}}
	case errors.Is(err, auth.ErrEmailNotConfirmed):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeEmailNotConfirmed, Message: "Email address has not been confirmed"}}
	case errors.Is(err, auth.ErrInvalidConfirmation):
		return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidConfirmation, Message: "Invalid confirmation code"}}
	case errors.Is(err, auth.ErrInvalidSession), errors.Is(err, posts.ErrUnauthenticated):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Invalid or expired session"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidRequest, Message: message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Authentication required"}}
}

// NewRateLimitedError creates a too-many-requests error
func NewRateLimitedError() error {
	return &httpError{http.StatusTooManyRequests, APIError{Code: CodeRateLimited, Message: "Too many attempts, try again later"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
}
