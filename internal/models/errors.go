package models

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	StatusCode int          `json:"statusCode"`
	Error      string       `json:"error"`
	Message    string       `json:"message"`
	Details    []FieldError `json:"details,omitempty"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// AppError represents a custom application error
type AppError struct {
	Status  int
	Code    string
	Message string
	Details []FieldError
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError reports a request that failed decoding or validation.
func NewValidationError(details []FieldError, err error) *AppError {
	return &AppError{
		Status:  fiber.StatusBadRequest,
		Code:    http.StatusText(fiber.StatusBadRequest),
		Message: "Validation failed",
		Details: details,
		Err:     err,
	}
}

// NewRouteNotFoundError reports a request for a route that does not exist.
func NewRouteNotFoundError(method, url string) *AppError {
	return &AppError{
		Status:  fiber.StatusNotFound,
		Code:    http.StatusText(fiber.StatusNotFound),
		Message: fmt.Sprintf("Route %s:%s not found", method, url),
	}
}

// NewInternalError wraps a server-side failure. The message is generic so
// the cause never reaches the client unless the caller replaces it.
func NewInternalError(status int, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    http.StatusText(status),
		Message: "Something went wrong",
		Err:     err,
	}
}

// RespondWithError writes a standardized error response.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	response := ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    err.Error(),
	}

	if appErr, ok := err.(*AppError); ok {
		response.Error = appErr.Code
		response.Message = appErr.Message
		response.Details = appErr.Details
	}

	return c.Status(status).JSON(response)
}
