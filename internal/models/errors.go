package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError. Each maps to one HTTP status in StatusForCode.
const (
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
	CodeMediaUploadFailed = "MEDIA_UPLOAD_FAILED"
	CodeOperationFailed   = "OPERATION_FAILED"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
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

// Predefined error constructors
func NewUnauthenticatedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewMediaUploadError(err error) *AppError {
	return &AppError{
		Code:    CodeMediaUploadFailed,
		Message: "Failed to upload image",
		Err:     err,
	}
}

func NewOperationFailedError(message string, err error) *AppError {
	if message == "" {
		message = "Operation failed"
	}
	return &AppError{
		Code:    CodeOperationFailed,
		Message: message,
		Err:     err,
	}
}

// AsAppError classifies any error. Errors that are not already an AppError
// become OPERATION_FAILED so raw store errors never reach a caller.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewOperationFailedError("", err)
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// StatusForCode maps an AppError code to its HTTP status.
func StatusForCode(code string) int {
	switch code {
	case CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case CodeUnauthorized:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeValidation:
		return fiber.StatusBadRequest
	case CodeMediaUploadFailed:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError writes the failure envelope. Wrapped store errors are not
// echoed back to the client; only the classified message is.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	appErr := AsAppError(err)
	if status == 0 {
		status = StatusForCode(appErr.Code)
	}
	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Error:   appErr.Message,
		Code:    appErr.Code,
	})
}

// RespondWithAppError writes the failure envelope using the status derived
// from the error's code.
func RespondWithAppError(c *fiber.Ctx, err error) error {
	return RespondWithError(c, 0, err)
}
