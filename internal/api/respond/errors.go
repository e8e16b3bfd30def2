package respond

import "net/http"

// Error is the body of an API error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// Error codes
const (
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeForbidden              = "FORBIDDEN"
	CodeNotFound               = "NOT_FOUND"
	CodeBadRequest             = "BAD_REQUEST"
	CodeConflict               = "CONFLICT"
	CodeInternalError          = "INTERNAL_ERROR"
	CodeInconsistentStorage    = "INCONSISTENT_STORAGE"
	CodeRateLimited            = "RATE_LIMITED"
	CodeValidationFailed       = "VALIDATION_FAILED"
)

// Standard errors
var (
	ErrAuthenticationRequired = &Error{
		Code:    CodeAuthenticationRequired,
		Message: "Authentication required",
		Status:  http.StatusUnauthorized,
	}

	ErrNotFound = &Error{
		Code:    CodeNotFound,
		Message: "Resource not found",
		Status:  http.StatusNotFound,
	}

	ErrInternalServer = &Error{
		Code:    CodeInternalError,
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}

	ErrRateLimited = &Error{
		Code:    CodeRateLimited,
		Message: "Too many requests",
		Status:  http.StatusTooManyRequests,
	}

	ErrInvalidBody = &Error{
		Code:    CodeBadRequest,
		Message: "Invalid request body",
		Status:  http.StatusBadRequest,
	}
)

// NewBadRequest creates a bad request error with custom message.
func NewBadRequest(message string) *Error {
	return &Error{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewValidationError creates a validation error with custom message.
func NewValidationError(message string) *Error {
	return &Error{
		Code:    CodeValidationFailed,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewConflict creates a conflict error with custom message.
func NewConflict(message string) *Error {
	return &Error{
		Code:    CodeConflict,
		Message: message,
		Status:  http.StatusConflict,
	}
}

// NewNotFound creates a not found error with custom message.
func NewNotFound(message string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: message,
		Status:  http.StatusNotFound,
	}
}

// NewInconsistentStorage reports a write that completed only partially.
func NewInconsistentStorage(message string) *Error {
	return &Error{
		Code:    CodeInconsistentStorage,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}
